package studyhub

import "context"

// AuthService establishes, persists, and tears down the credential pair and
// user profile. Implementations: auth/ (REST), fake/ (testing).
type AuthService interface {
	// Login exchanges an email/password pair for a session.
	// Fails with ErrInvalidCredentials when the backend rejects the pair;
	// prior session state is left untouched on failure.
	Login(ctx context.Context, email, password string) (*Session, error)

	// Signup registers a new account and logs it in.
	// Fails with *ValidationError carrying field-level detail.
	Signup(ctx context.Context, reg Registration) (*Session, error)

	// Logout tears down the session. The backend notification is
	// best-effort; local state is cleared regardless of its outcome.
	// With allDevices, the backend is asked to invalidate every refresh
	// credential for the account.
	Logout(ctx context.Context, allDevices bool) error

	// Restore re-establishes a persisted session at application start.
	// A persisted profile is trusted optimistically; otherwise a silent
	// refresh is attempted. Ending up logged out is not an error.
	Restore(ctx context.Context) error

	// CurrentUser returns the authenticated identity, or nil when logged
	// out. Safe to call from route-guard logic on every navigation.
	CurrentUser() *User

	// OnChange registers a callback invoked on every session transition
	// (login, logout, expiry teardown) with the new current user.
	OnChange(fn func(*User))

	// UpdateProfile mutates the profile and refreshes the stored snapshot.
	UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error)

	// RequestPasswordReset asks the backend to email a reset token.
	RequestPasswordReset(ctx context.Context, email string) error

	// ConfirmPasswordReset exchanges a reset token for a new password.
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// GroupService manages study groups.
type GroupService interface {
	// List returns the groups visible to the current user.
	List(ctx context.Context) ([]Group, error)

	// Get returns a group by ID, or nil if it does not exist.
	Get(ctx context.Context, groupID string) (*Group, error)

	// Create makes a new group owned by the current user.
	Create(ctx context.Context, group Group) (*Group, error)

	// Update mutates a group's fields.
	Update(ctx context.Context, group Group) (*Group, error)

	// Delete removes a group.
	Delete(ctx context.Context, groupID string) error

	// Join adds the current user to a group.
	Join(ctx context.Context, groupID string) error

	// Leave removes the current user from a group.
	Leave(ctx context.Context, groupID string) error

	// Members returns a group's membership.
	Members(ctx context.Context, groupID string) ([]Member, error)
}

// SessionService manages scheduled study sessions.
type SessionService interface {
	// List returns study sessions matching the filter.
	List(ctx context.Context, filter SessionFilter) ([]StudySession, error)

	// Get returns a study session by ID, or nil if it does not exist.
	Get(ctx context.Context, sessionID string) (*StudySession, error)

	// Schedule creates a study session in a group.
	Schedule(ctx context.Context, session StudySession) (*StudySession, error)

	// Update mutates a study session.
	Update(ctx context.Context, session StudySession) (*StudySession, error)

	// Cancel removes a study session.
	Cancel(ctx context.Context, sessionID string) error

	// Join marks the current user as attending.
	Join(ctx context.Context, sessionID string) error

	// Leave withdraws the current user's attendance.
	Leave(ctx context.Context, sessionID string) error
}

// ResourceService manages shared files and links.
type ResourceService interface {
	// List returns resources, optionally scoped to a group.
	List(ctx context.Context, groupID string) ([]Resource, error)

	// Get returns a resource by ID, or nil if it does not exist.
	Get(ctx context.Context, resourceID string) (*Resource, error)

	// Upload creates a resource. A nil file uploads metadata only (a link);
	// otherwise the payload is sent as a multipart form.
	Upload(ctx context.Context, resource Resource, file *File) (*Resource, error)

	// Download fetches a resource's raw content. The payload is returned
	// opaque, never JSON-decoded.
	Download(ctx context.Context, resourceID string) ([]byte, string, error)

	// Delete removes a resource.
	Delete(ctx context.Context, resourceID string) error
}

// ChatService manages group-scoped chat messages.
type ChatService interface {
	// Messages returns a group's chat history, newest last.
	Messages(ctx context.Context, groupID string, opts ListOptions) ([]Message, error)

	// Send posts a message to a group's chat.
	Send(ctx context.Context, groupID, body string) (*Message, error)

	// Delete removes a message.
	Delete(ctx context.Context, messageID string) error
}
