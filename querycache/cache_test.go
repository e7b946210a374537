package querycache_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/studyhub/studyhub-go/querycache"
)

func TestFetch_FreshHitSkipsProducer(t *testing.T) {
	c := querycache.New(time.Minute)
	key := querycache.Key{Kind: "groups"}

	var calls atomic.Int32
	producer := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "groups-v1", nil
	}

	first := c.Fetch(context.Background(), key, producer, querycache.Options{})
	if first.Err != nil {
		t.Fatalf("first fetch: %v", first.Err)
	}
	second := c.Fetch(context.Background(), key, producer, querycache.Options{})

	if second.Value != "groups-v1" {
		t.Fatalf("second fetch value = %v, want groups-v1", second.Value)
	}
	if second.Stale {
		t.Fatal("fresh value reported as stale")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("producer called %d times, want 1", got)
	}
}

func TestFetch_ConcurrentCallersShareOneProducerCall(t *testing.T) {
	c := querycache.New(time.Minute)
	key := querycache.Key{Kind: "sessions", Param: "42"}

	release := make(chan struct{})
	var calls atomic.Int32
	producer := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	const callers = 10
	results := make([]querycache.Result, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Fetch(context.Background(), key, producer, querycache.Options{})
		}(i)
	}

	// Give every caller time to join the flight before letting it finish.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, res := range results {
		if res.Err != nil || res.Value != "shared" {
			t.Fatalf("caller %d got (%v, %v), want (shared, nil)", i, res.Value, res.Err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("producer called %d times, want 1", got)
	}
}

func TestFetch_DistinctParamsAreDistinctSlots(t *testing.T) {
	c := querycache.New(time.Minute)

	producer := func(value string) querycache.Producer {
		return func(ctx context.Context) (any, error) { return value, nil }
	}

	a := c.Fetch(context.Background(), querycache.Key{Kind: "messages", Param: "1"}, producer("room-1"), querycache.Options{})
	b := c.Fetch(context.Background(), querycache.Key{Kind: "messages", Param: "2"}, producer("room-2"), querycache.Options{})

	if a.Value != "room-1" || b.Value != "room-2" {
		t.Fatalf("got (%v, %v), want (room-1, room-2)", a.Value, b.Value)
	}
	if c.Len() != 2 {
		t.Fatalf("cache holds %d entries, want 2", c.Len())
	}
}

func TestFetch_StaleValueServedWhileRevalidating(t *testing.T) {
	c := querycache.New(time.Minute)
	key := querycache.Key{Kind: "resources", Param: "7"}

	var calls atomic.Int32
	producer := func(ctx context.Context) (any, error) {
		n := calls.Add(1)
		return fmt.Sprintf("v%d", n), nil
	}

	first := c.Fetch(context.Background(), key, producer, querycache.Options{})
	if first.Value != "v1" {
		t.Fatalf("first fetch = %v, want v1", first.Value)
	}

	// Shrink the freshness window so the cached value is already stale.
	stale := c.Fetch(context.Background(), key, producer, querycache.Options{MaxAge: time.Nanosecond})
	if stale.Value != "v1" {
		t.Fatalf("stale fetch = %v, want cached v1", stale.Value)
	}
	if !stale.Stale {
		t.Fatal("expected Stale flag on revalidating fetch")
	}

	// The background revalidation lands shortly after.
	deadline := time.Now().Add(2 * time.Second)
	for {
		res, ok := c.Lookup(key)
		if ok && res.Value == "v2" && !res.Stale {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("revalidated value never landed, last = %+v", res)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("producer called %d times, want 2", got)
	}
}

func TestInvalidate_SupersedesInFlightFetch(t *testing.T) {
	c := querycache.New(time.Minute)
	key := querycache.Key{Kind: "groups"}

	slowRelease := make(chan struct{})
	slow := func(ctx context.Context) (any, error) {
		<-slowRelease
		return "old", nil
	}
	fast := func(ctx context.Context) (any, error) {
		return "new", nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var slowResult querycache.Result
	go func() {
		defer wg.Done()
		slowResult = c.Fetch(context.Background(), key, slow, querycache.Options{})
	}()

	// Wait for the slow fetch to be in flight.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if res, ok := c.Lookup(key); ok && res.Loading {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("slow fetch never started")
		}
		time.Sleep(time.Millisecond)
	}

	c.Invalidate(key)

	got := c.Fetch(context.Background(), key, fast, querycache.Options{})
	if got.Err != nil || got.Value != "new" {
		t.Fatalf("post-invalidate fetch = (%v, %v), want (new, nil)", got.Value, got.Err)
	}

	// The superseded fetch resolves late; its result must not clobber the
	// newer one.
	close(slowRelease)
	wg.Wait()
	if slowResult.Value != "old" {
		t.Fatalf("superseded caller got %v, want its own result old", slowResult.Value)
	}

	final, ok := c.Lookup(key)
	if !ok || final.Value != "new" {
		t.Fatalf("cache holds %v after late resolve, want new", final.Value)
	}
}

func TestFetch_DisabledIssuesNoFetch(t *testing.T) {
	c := querycache.New(time.Minute)

	var calls atomic.Int32
	producer := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "never", nil
	}

	res := c.Fetch(context.Background(), querycache.Key{Kind: "sessions"}, producer, querycache.Options{Disabled: true})
	if res.Value != nil || res.Err != nil {
		t.Fatalf("disabled fetch = %+v, want empty result", res)
	}
	if calls.Load() != 0 {
		t.Fatal("producer invoked for a disabled fetch")
	}
	if c.Len() != 0 {
		t.Fatal("disabled fetch created a cache entry")
	}
}

func TestFetch_ErrorIsCapturedAndRetriedNextFetch(t *testing.T) {
	c := querycache.New(time.Minute)
	key := querycache.Key{Kind: "resources"}

	boom := errors.New("backend down")
	var calls atomic.Int32
	producer := func(ctx context.Context) (any, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return "recovered", nil
	}

	first := c.Fetch(context.Background(), key, producer, querycache.Options{})
	if !errors.Is(first.Err, boom) {
		t.Fatalf("first fetch err = %v, want %v", first.Err, boom)
	}
	if first.Value != nil {
		t.Fatalf("failed fetch carried value %v", first.Value)
	}

	second := c.Fetch(context.Background(), key, producer, querycache.Options{})
	if second.Err != nil || second.Value != "recovered" {
		t.Fatalf("second fetch = (%v, %v), want (recovered, nil)", second.Value, second.Err)
	}
}

func TestInvalidateKind_ClearsAllParams(t *testing.T) {
	c := querycache.New(time.Minute)

	var calls atomic.Int32
	producer := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return calls.Load(), nil
	}

	ctx := context.Background()
	c.Fetch(ctx, querycache.Key{Kind: "messages", Param: "1"}, producer, querycache.Options{})
	c.Fetch(ctx, querycache.Key{Kind: "messages", Param: "2"}, producer, querycache.Options{})
	c.Fetch(ctx, querycache.Key{Kind: "groups"}, producer, querycache.Options{})
	if got := calls.Load(); got != 3 {
		t.Fatalf("seed fetches invoked producer %d times, want 3", got)
	}

	c.InvalidateKind("messages")

	c.Fetch(ctx, querycache.Key{Kind: "messages", Param: "1"}, producer, querycache.Options{})
	c.Fetch(ctx, querycache.Key{Kind: "messages", Param: "2"}, producer, querycache.Options{})
	c.Fetch(ctx, querycache.Key{Kind: "groups"}, producer, querycache.Options{})

	// Both message rooms refetched, groups stayed cached.
	if got := calls.Load(); got != 5 {
		t.Fatalf("producer invoked %d times after invalidation, want 5", got)
	}
}

func TestTyped_AssertsCachedValue(t *testing.T) {
	c := querycache.New(time.Minute)
	key := querycache.Key{Kind: "groups"}

	groups, ok, err := querycache.Typed(context.Background(), c, key, func(ctx context.Context) ([]string, error) {
		return []string{"algebra", "compilers"}, nil
	}, querycache.Options{})
	if err != nil {
		t.Fatalf("typed fetch: %v", err)
	}
	if !ok || len(groups) != 2 || groups[0] != "algebra" {
		t.Fatalf("typed fetch = (%v, %v), want cached slice", groups, ok)
	}
}

func TestKey_String(t *testing.T) {
	if got := (querycache.Key{Kind: "groups"}).String(); got != "groups" {
		t.Fatalf("bare kind = %q", got)
	}
	if got := (querycache.Key{Kind: "messages", Param: "9"}).String(); got != "messages:9" {
		t.Fatalf("parameterised key = %q", got)
	}
}
