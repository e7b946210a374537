package studyhub

import "time"

// User is the denormalized snapshot of an authenticated identity.
// The backend's `full_name` field is mapped to Name at the wire boundary.
type User struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	Bio       string
	JoinedAt  time.Time
}

// Credentials is the access/refresh token pair issued at login.
// The access token is short-lived and sent on every request; the refresh
// token is only ever exchanged for a new access token.
type Credentials struct {
	Access  string
	Refresh string
}

// Session is the result of a successful login or signup.
type Session struct {
	User        *User
	Credentials Credentials
}

// Registration holds the fields required to create an account.
type Registration struct {
	Email    string
	Password string
	Name     string
}

// ProfileUpdate holds the mutable profile fields. Nil fields are left
// unchanged on the server.
type ProfileUpdate struct {
	Name      *string
	AvatarURL *string
	Bio       *string
}

// Group is a study group.
type Group struct {
	ID          string
	Name        string
	Description string
	Subject     string
	OwnerID     string
	MemberCount int
	CreatedAt   time.Time
}

// Member is a user's membership in a group.
type Member struct {
	UserID   string
	Name     string
	Role     string // "owner" or "member"
	JoinedAt time.Time
}

// StudySession is a scheduled meeting of a group.
type StudySession struct {
	ID        string
	GroupID   string
	Title     string
	Agenda    string
	Location  string
	StartsAt  time.Time
	EndsAt    time.Time
	Attendees []string // user IDs
}

// Resource is a shared file or link attached to a group.
type Resource struct {
	ID          string
	GroupID     string
	Title       string
	Description string
	FileName    string
	ContentType string
	Size        int64
	UploadedBy  string
	CreatedAt   time.Time
}

// Message is a chat message in a group.
type Message struct {
	ID       string
	GroupID  string
	ClientID string // client-generated, makes retried sends idempotent
	SenderID string
	Sender   string
	Body     string
	SentAt   time.Time
}

// SessionFilter narrows a study-session listing.
type SessionFilter struct {
	GroupID  string // empty means all groups the user belongs to
	Upcoming bool
}

// ListOptions holds pagination parameters.
type ListOptions struct {
	Page     int
	PageSize int
}

// File is an attachment payload for resource uploads.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}
