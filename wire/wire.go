// Package wire decodes backend JSON payloads into SDK types.
//
// The backend is loose about shapes: IDs arrive as numbers or strings, some
// fields have both snake_case and camelCase spellings, and the profile uses
// full_name where the SDK exposes Name. All of that is normalized here, once
// per response; nothing past this package ever sees a raw payload.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	studyhub "github.com/studyhub/studyhub-go"
)

// ID decodes a JSON string or number into a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("wire: id is neither string nor number: %s", data)
	}
	*id = ID(n.String())
	return nil
}

// Time decodes an RFC 3339 timestamp or a Unix-seconds number. Absent and
// null both decode to the zero time.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("wire: bad timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	secs, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("wire: bad timestamp %s", data)
	}
	t.Time = time.Unix(secs, 0).UTC()
	return nil
}

// UserPayload is the backend's user shape.
type UserPayload struct {
	ID        ID     `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	AvatarAlt string `json:"avatarUrl"`
	Bio       string `json:"bio"`
	JoinedAt  Time   `json:"date_joined"`
}

// User maps the payload to the SDK type. full_name wins over name when both
// are present.
func (p UserPayload) User() *studyhub.User {
	name := p.FullName
	if name == "" {
		name = p.Name
	}
	avatar := p.AvatarURL
	if avatar == "" {
		avatar = p.AvatarAlt
	}
	return &studyhub.User{
		ID:        string(p.ID),
		Email:     p.Email,
		Name:      name,
		AvatarURL: avatar,
		Bio:       p.Bio,
		JoinedAt:  p.JoinedAt.Time,
	}
}

// GroupPayload is the backend's group shape.
type GroupPayload struct {
	ID             ID     `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Subject        string `json:"subject"`
	Owner          ID     `json:"owner"`
	OwnerID        ID     `json:"owner_id"`
	MemberCount    int    `json:"member_count"`
	MemberCountAlt int    `json:"memberCount"`
	CreatedAt      Time   `json:"created_at"`
}

func (p GroupPayload) Group() studyhub.Group {
	owner := p.OwnerID
	if owner == "" {
		owner = p.Owner
	}
	count := p.MemberCount
	if count == 0 {
		count = p.MemberCountAlt
	}
	return studyhub.Group{
		ID:          string(p.ID),
		Name:        p.Name,
		Description: p.Description,
		Subject:     p.Subject,
		OwnerID:     string(owner),
		MemberCount: count,
		CreatedAt:   p.CreatedAt.Time,
	}
}

// MemberPayload is the backend's group-membership shape.
type MemberPayload struct {
	UserID   ID     `json:"user_id"`
	User     ID     `json:"user"`
	FullName string `json:"full_name"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	JoinedAt Time   `json:"joined_at"`
}

func (p MemberPayload) Member() studyhub.Member {
	id := p.UserID
	if id == "" {
		id = p.User
	}
	name := p.FullName
	if name == "" {
		name = p.Name
	}
	return studyhub.Member{
		UserID:   string(id),
		Name:     name,
		Role:     p.Role,
		JoinedAt: p.JoinedAt.Time,
	}
}

// SessionPayload is the backend's study-session shape.
type SessionPayload struct {
	ID           ID     `json:"id"`
	GroupID      ID     `json:"group_id"`
	GroupIDAlt   ID     `json:"groupId"`
	Group        ID     `json:"group"`
	Title        string `json:"title"`
	Agenda       string `json:"agenda"`
	Location     string `json:"location"`
	StartsAt     Time   `json:"start_time"`
	EndsAt       Time   `json:"end_time"`
	Attendees    []ID   `json:"attendees"`
}

func (p SessionPayload) StudySession() studyhub.StudySession {
	group := p.GroupID
	if group == "" {
		group = p.GroupIDAlt
	}
	if group == "" {
		group = p.Group
	}
	attendees := make([]string, len(p.Attendees))
	for i, a := range p.Attendees {
		attendees[i] = string(a)
	}
	return studyhub.StudySession{
		ID:        string(p.ID),
		GroupID:   string(group),
		Title:     p.Title,
		Agenda:    p.Agenda,
		Location:  p.Location,
		StartsAt:  p.StartsAt.Time,
		EndsAt:    p.EndsAt.Time,
		Attendees: attendees,
	}
}

// ResourcePayload is the backend's resource shape.
type ResourcePayload struct {
	ID          ID     `json:"id"`
	GroupID     ID     `json:"group_id"`
	GroupIDAlt  ID     `json:"groupId"`
	Group       ID     `json:"group"`
	Title       string `json:"title"`
	Description string `json:"description"`
	FileName    string `json:"file_name"`
	FileNameAlt string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	UploadedBy  ID     `json:"uploaded_by"`
	CreatedAt   Time   `json:"created_at"`
}

func (p ResourcePayload) Resource() studyhub.Resource {
	group := p.GroupID
	if group == "" {
		group = p.GroupIDAlt
	}
	if group == "" {
		group = p.Group
	}
	name := p.FileName
	if name == "" {
		name = p.FileNameAlt
	}
	return studyhub.Resource{
		ID:          string(p.ID),
		GroupID:     string(group),
		Title:       p.Title,
		Description: p.Description,
		FileName:    name,
		ContentType: p.ContentType,
		Size:        p.Size,
		UploadedBy:  string(p.UploadedBy),
		CreatedAt:   p.CreatedAt.Time,
	}
}

// MessagePayload is the backend's chat-message shape. The sender arrives
// either embedded or as flat sender_id/sender_name fields.
type MessagePayload struct {
	ID         ID           `json:"id"`
	GroupID    ID           `json:"group_id"`
	GroupIDAlt ID           `json:"groupId"`
	ClientID   string       `json:"client_id"`
	SenderID   ID           `json:"sender_id"`
	SenderName string       `json:"sender_name"`
	SenderObj  *UserPayload `json:"sender"`
	Body       string       `json:"body"`
	Content    string       `json:"content"`
	SentAt     Time         `json:"created_at"`
}

func (p MessagePayload) Message() studyhub.Message {
	group := p.GroupID
	if group == "" {
		group = p.GroupIDAlt
	}
	senderID := string(p.SenderID)
	senderName := p.SenderName
	if p.SenderObj != nil {
		u := p.SenderObj.User()
		if senderID == "" {
			senderID = u.ID
		}
		if senderName == "" {
			senderName = u.Name
		}
	}
	body := p.Body
	if body == "" {
		body = p.Content
	}
	return studyhub.Message{
		ID:       string(p.ID),
		GroupID:  string(group),
		ClientID: p.ClientID,
		SenderID: senderID,
		Sender:   senderName,
		Body:     body,
		SentAt:   p.SentAt.Time,
	}
}

// ErrorPayload is the backend's error body: either {"detail": "..."} or a
// map of field name to message list.
type ErrorPayload map[string]json.RawMessage

// Detail returns the top-level message, or "".
func (p ErrorPayload) Detail() string {
	for _, key := range []string{"detail", "message", "error"} {
		if raw, ok := p[key]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				return s
			}
		}
	}
	return ""
}

// Fields returns per-field validation messages, or nil when the body does
// not carry any.
func (p ErrorPayload) Fields() map[string][]string {
	fields := make(map[string][]string)
	for key, raw := range p {
		switch key {
		case "detail", "message", "error", "code", "status":
			continue
		}
		var msgs []string
		if json.Unmarshal(raw, &msgs) == nil && len(msgs) > 0 {
			fields[key] = msgs
			continue
		}
		var one string
		if json.Unmarshal(raw, &one) == nil && one != "" {
			fields[key] = []string{one}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
