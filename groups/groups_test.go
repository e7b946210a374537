package groups

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	studyhub "github.com/studyhub/studyhub-go"
	"github.com/studyhub/studyhub-go/querycache"
)

// mockBackend implements Backend for testing
type mockBackend struct {
	groups     map[string]*studyhub.Group
	members    map[string][]studyhub.Member
	listCalls  int
	getCalls   int
	joined     []string
	left       []string
	shouldFail bool
}

func (m *mockBackend) List(ctx context.Context) ([]studyhub.Group, error) {
	m.listCalls++
	if m.shouldFail {
		return nil, errors.New("list groups failed")
	}
	out := make([]studyhub.Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, *g)
	}
	return out, nil
}

func (m *mockBackend) Get(ctx context.Context, groupID string) (*studyhub.Group, error) {
	m.getCalls++
	if m.shouldFail {
		return nil, errors.New("get group failed")
	}
	return m.groups[groupID], nil
}

func (m *mockBackend) Create(ctx context.Context, group studyhub.Group) (*studyhub.Group, error) {
	if m.shouldFail {
		return nil, errors.New("create group failed")
	}
	group.ID = "new"
	if m.groups == nil {
		m.groups = make(map[string]*studyhub.Group)
	}
	m.groups[group.ID] = &group
	return &group, nil
}

func (m *mockBackend) Update(ctx context.Context, group studyhub.Group) (*studyhub.Group, error) {
	if m.shouldFail {
		return nil, errors.New("update group failed")
	}
	m.groups[group.ID] = &group
	return &group, nil
}

func (m *mockBackend) Delete(ctx context.Context, groupID string) error {
	if m.shouldFail {
		return errors.New("delete group failed")
	}
	delete(m.groups, groupID)
	return nil
}

func (m *mockBackend) Join(ctx context.Context, groupID string) error {
	if m.shouldFail {
		return errors.New("join group failed")
	}
	m.joined = append(m.joined, groupID)
	return nil
}

func (m *mockBackend) Leave(ctx context.Context, groupID string) error {
	if m.shouldFail {
		return errors.New("leave group failed")
	}
	m.left = append(m.left, groupID)
	return nil
}

func (m *mockBackend) Members(ctx context.Context, groupID string) ([]studyhub.Member, error) {
	if m.shouldFail {
		return nil, errors.New("list members failed")
	}
	return m.members[groupID], nil
}

func newService(backend Backend) *Service {
	return New(backend, querycache.New(time.Minute))
}

func TestList_CachesAcrossCalls(t *testing.T) {
	backend := &mockBackend{
		groups: map[string]*studyhub.Group{
			"g1": {ID: "g1", Name: "Linear Algebra"},
		},
	}
	svc := newService(backend)

	first, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	second, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 group, got %d and %d", len(first), len(second))
	}
	if backend.listCalls != 1 {
		t.Errorf("expected 1 backend call, got %d", backend.listCalls)
	}
}

func TestGet_MissingGroupIsNil(t *testing.T) {
	backend := &mockBackend{groups: make(map[string]*studyhub.Group)}
	svc := newService(backend)

	group, err := svc.Get(context.Background(), "nope")

	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if group != nil {
		t.Errorf("expected nil for missing group, got %+v", group)
	}
}

func TestGet_EmptyGroupID(t *testing.T) {
	svc := newService(&mockBackend{})

	_, err := svc.Get(context.Background(), "")

	if err == nil {
		t.Fatal("expected error for empty groupID")
	}
}

func TestCreate_InvalidatesList(t *testing.T) {
	backend := &mockBackend{groups: make(map[string]*studyhub.Group)}
	svc := newService(backend)

	if _, err := svc.List(context.Background()); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if _, err := svc.Create(context.Background(), studyhub.Group{Name: "Compilers"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	groups, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if backend.listCalls != 2 {
		t.Errorf("expected list refetch after create, got %d calls", backend.listCalls)
	}
	if len(groups) != 1 {
		t.Errorf("expected created group in listing, got %d", len(groups))
	}
}

func TestCreate_EmptyName(t *testing.T) {
	svc := newService(&mockBackend{})

	_, err := svc.Create(context.Background(), studyhub.Group{})

	if err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestJoin_InvalidatesDetailAndMembers(t *testing.T) {
	backend := &mockBackend{
		groups: map[string]*studyhub.Group{
			"g1": {ID: "g1", Name: "Linear Algebra", MemberCount: 1},
		},
		members: map[string][]studyhub.Member{
			"g1": {{UserID: "u1", Role: "owner"}},
		},
	}
	svc := newService(backend)

	if _, err := svc.Get(context.Background(), "g1"); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if err := svc.Join(context.Background(), "g1"); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if _, err := svc.Get(context.Background(), "g1"); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if backend.getCalls != 2 {
		t.Errorf("expected detail refetch after join, got %d calls", backend.getCalls)
	}
	if len(backend.joined) != 1 || backend.joined[0] != "g1" {
		t.Errorf("expected join recorded for g1, got %v", backend.joined)
	}
}

func TestDelete_Failed(t *testing.T) {
	svc := newService(&mockBackend{shouldFail: true})

	err := svc.Delete(context.Background(), "g1")

	if err == nil {
		t.Fatal("expected error")
	}
}

func TestMembers_Success(t *testing.T) {
	backend := &mockBackend{
		members: map[string][]studyhub.Member{
			"g1": {
				{UserID: "u1", Name: "Alice", Role: "owner"},
				{UserID: "u2", Name: "Bob", Role: "member"},
			},
		},
	}
	svc := newService(backend)

	members, err := svc.Members(context.Background(), "g1")

	if err != nil {
		t.Fatalf("Members returned error: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("expected 2 members, got %d", len(members))
	}
	if members[0].Role != "owner" {
		t.Errorf("expected owner, got %s", members[0].Role)
	}
}

func TestErrorWrapping(t *testing.T) {
	svc := newService(&mockBackend{shouldFail: true})

	_, err := svc.Members(context.Background(), "g1")

	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "studyhub/groups:") {
		t.Errorf("expected error wrapped with 'studyhub/groups:', got: %s", err)
	}
}
