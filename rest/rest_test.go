package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	studyhub "github.com/studyhub/studyhub-go"
	"github.com/studyhub/studyhub-go/rest"
	"github.com/studyhub/studyhub-go/transport"
)

// staticTokens implements transport.TokenSource for testing.
type staticTokens struct {
	access  string
	refresh string
}

func (s *staticTokens) AccessToken() string  { return s.access }
func (s *staticTokens) RefreshToken() string { return s.refresh }

func (s *staticTokens) SetTokens(access, refresh string) error {
	s.access = access
	if refresh != "" {
		s.refresh = refresh
	}
	return nil
}

func (s *staticTokens) Clear() error {
	s.access, s.refresh = "", ""
	return nil
}

func newBackend(t *testing.T, handler http.Handler) *rest.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tc, err := transport.New(server.URL, &staticTokens{access: "acc", refresh: "ref"})
	if err != nil {
		t.Fatalf("transport.New: %v", err)
	}
	return rest.New(tc)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestGroups_ListBareArray(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/groups/" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, http.StatusOK, `[
			{"id": 1, "name": "Linear Algebra", "subject": "math", "owner_id": 9, "member_count": 3},
			{"id": "2", "name": "Compilers", "memberCount": 5}
		]`)
	}))

	groups, err := backend.Groups().List(context.Background())

	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].ID != "1" || groups[0].OwnerID != "9" || groups[0].MemberCount != 3 {
		t.Errorf("first group mapped wrong: %+v", groups[0])
	}
	if groups[1].MemberCount != 5 {
		t.Errorf("camelCase member count not mapped: %+v", groups[1])
	}
}

func TestGroups_ListPaginatedEnvelope(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"count": 1, "results": [{"id": "g1", "name": "Databases"}]}`)
	}))

	groups, err := backend.Groups().List(context.Background())

	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "Databases" {
		t.Errorf("envelope not unwrapped: %+v", groups)
	}
}

func TestGroups_GetMissingIsNil(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"detail": "Not found."}`)
	}))

	group, err := backend.Groups().Get(context.Background(), "nope")

	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if group != nil {
		t.Errorf("expected nil for missing group, got %+v", group)
	}
}

func TestGroups_JoinPostsToMemberRoute(t *testing.T) {
	var gotPath, gotMethod string
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := backend.Groups().Join(context.Background(), "g1"); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/groups/g1/join/" {
		t.Errorf("unexpected request: %s %s", gotMethod, gotPath)
	}
}

func TestGroups_MembersMapFullName(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[
			{"user_id": 1, "full_name": "Alice Chen", "role": "owner", "joined_at": "2026-01-10T08:00:00Z"},
			{"user": "2", "name": "Bob", "role": "member"}
		]`)
	}))

	members, err := backend.Groups().Members(context.Background(), "g1")

	if err != nil {
		t.Fatalf("Members returned error: %v", err)
	}
	if members[0].Name != "Alice Chen" || members[0].UserID != "1" {
		t.Errorf("full_name member mapped wrong: %+v", members[0])
	}
	if members[1].Name != "Bob" || members[1].UserID != "2" {
		t.Errorf("flat member mapped wrong: %+v", members[1])
	}
}

func TestSessions_ListSendsFilterQuery(t *testing.T) {
	var gotQuery string
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, `[{"id": "s1", "group": 4, "title": "Review", "start_time": 1767222000}]`)
	}))

	sessions, err := backend.Sessions().List(context.Background(), studyhub.SessionFilter{GroupID: "4", Upcoming: true})

	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if gotQuery != "group=4&upcoming=true" {
		t.Errorf("unexpected query: %s", gotQuery)
	}
	if sessions[0].GroupID != "4" {
		t.Errorf("bare group field not mapped: %+v", sessions[0])
	}
	if sessions[0].StartsAt.IsZero() {
		t.Error("unix start_time not decoded")
	}
}

func TestSessions_ScheduleSendsRFC3339Times(t *testing.T) {
	var body map[string]any
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		writeJSON(w, http.StatusCreated, `{"id": "s9", "group_id": "g1", "title": "Workshop"}`)
	}))

	session := studyhub.StudySession{GroupID: "g1", Title: "Workshop"}
	session.StartsAt = mustTime(t, "2026-09-01T18:00:00Z")

	created, err := backend.Sessions().Schedule(context.Background(), session)

	if err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	if created.ID != "s9" {
		t.Errorf("expected s9, got %s", created.ID)
	}
	if body["start_time"] != "2026-09-01T18:00:00Z" {
		t.Errorf("start_time serialised as %v", body["start_time"])
	}
	if _, present := body["end_time"]; present {
		t.Error("zero end_time should be omitted")
	}
}

func TestResources_UploadMultipart(t *testing.T) {
	var gotTitle, gotFileName, gotContentType string
	var gotContent []byte
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
			writeJSON(w, http.StatusBadRequest, `{"detail": "bad form"}`)
			return
		}
		gotTitle = r.FormValue("title")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("reading form file: %v", err)
			writeJSON(w, http.StatusBadRequest, `{"detail": "no file"}`)
			return
		}
		defer file.Close()
		gotFileName = header.Filename
		gotContentType = header.Header.Get("Content-Type")
		gotContent, _ = io.ReadAll(file)
		writeJSON(w, http.StatusCreated, `{"id": "r1", "group_id": "g1", "title": "Week 3 notes", "file_name": "notes.pdf", "size": 8}`)
	}))

	resource := studyhub.Resource{GroupID: "g1", Title: "Week 3 notes"}
	file := &studyhub.File{Name: "notes.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4")}

	created, err := backend.Resources().Upload(context.Background(), resource, file)

	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if created.ID != "r1" || created.FileName != "notes.pdf" {
		t.Errorf("created resource mapped wrong: %+v", created)
	}
	if gotTitle != "Week 3 notes" {
		t.Errorf("title field = %q", gotTitle)
	}
	if gotFileName != "notes.pdf" || gotContentType != "application/pdf" {
		t.Errorf("file part = %q (%s)", gotFileName, gotContentType)
	}
	if !bytes.Equal(gotContent, file.Content) {
		t.Errorf("file content altered: %q", gotContent)
	}
}

func TestResources_UploadLinkIsJSON(t *testing.T) {
	var gotContentType string
	var body map[string]string
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, `{"id": "r2", "group_id": "g1", "title": "Course homepage"}`)
	}))

	_, err := backend.Resources().Upload(context.Background(), studyhub.Resource{
		GroupID:     "g1",
		Title:       "Course homepage",
		Description: "https://example.edu/cs101",
	}, nil)

	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if gotContentType != "application/json" {
		t.Errorf("link upload content type = %s", gotContentType)
	}
	if body["description"] != "https://example.edu/cs101" {
		t.Errorf("body = %+v", body)
	}
}

func TestResources_DownloadRawBytes(t *testing.T) {
	payload := []byte("\x89PNG\r\n\x1a\n")
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/resources/r1/download/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))

	content, contentType, err := backend.Resources().Download(context.Background(), "r1")

	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if !bytes.Equal(content, payload) {
		t.Errorf("payload altered: %q", content)
	}
	if contentType != "image/png" {
		t.Errorf("content type = %s", contentType)
	}
}

func TestChat_MessagesDecodeEmbeddedSender(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/groups/g1/messages/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, `{"results": [
			{"id": "m1", "group_id": "g1", "sender": {"id": 7, "full_name": "Jane Smith"}, "content": "hello", "created_at": "2026-02-01T10:00:00Z"}
		]}`)
	}))

	messages, err := backend.Chat().Messages(context.Background(), "g1", studyhub.ListOptions{})

	if err != nil {
		t.Fatalf("Messages returned error: %v", err)
	}
	msg := messages[0]
	if msg.SenderID != "7" || msg.Sender != "Jane Smith" {
		t.Errorf("embedded sender mapped wrong: %+v", msg)
	}
	if msg.Body != "hello" {
		t.Errorf("content field not mapped to body: %q", msg.Body)
	}
}

func TestChat_SendCarriesClientID(t *testing.T) {
	var body map[string]string
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, `{"id": "m2", "group_id": "g1", "body": "on my way", "client_id": "`+body["client_id"]+`"}`)
	}))

	sent, err := backend.Chat().Send(context.Background(), studyhub.Message{
		GroupID:  "g1",
		ClientID: "client-123",
		Body:     "on my way",
	})

	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if body["client_id"] != "client-123" {
		t.Errorf("client_id not sent: %+v", body)
	}
	if sent.ClientID != "client-123" {
		t.Errorf("echoed client_id not mapped: %+v", sent)
	}
}

func TestChat_DeleteUsesMessageRoute(t *testing.T) {
	var gotPath, gotMethod string
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := backend.Chat().Delete(context.Background(), "m1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/messages/m1/" {
		t.Errorf("unexpected request: %s %s", gotMethod, gotPath)
	}
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parsing %q: %v", value, err)
	}
	return parsed
}
