// Package fake provides in-memory implementations of all studyhub service
// interfaces for testing.
//
// Use fake.NewClient() in unit tests to avoid network calls and external
// dependencies.
package fake

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	studyhub "github.com/studyhub/studyhub-go"
)

// Option configures the fake client.
type Option func(*state)

type account struct {
	password string
	user     *studyhub.User
}

type state struct {
	mu          sync.RWMutex
	accounts    map[string]*account               // email → account
	groups      map[string]*studyhub.Group        // groupID → group
	members     map[string][]studyhub.Member      // groupID → members
	sessions    map[string]*studyhub.StudySession // sessionID → session
	resources   map[string]*studyhub.Resource     // resourceID → resource
	content     map[string][]byte                 // resourceID → raw content
	messages    map[string][]studyhub.Message     // groupID → messages, oldest first
	current     *studyhub.User
	subscribers []func(*studyhub.User)
	nextID      int
}

func (s *state) id(prefix string) string {
	s.nextID++
	return prefix + "-" + strconv.Itoa(s.nextID)
}

func (s *state) notifyLocked(u *studyhub.User) {
	for _, fn := range s.subscribers {
		fn(u)
	}
}

// WithAccount adds a login-able account.
func WithAccount(email, password, name string) Option {
	return func(s *state) {
		s.accounts[email] = &account{
			password: password,
			user: &studyhub.User{
				ID:       s.id("u"),
				Email:    email,
				Name:     name,
				JoinedAt: time.Now(),
			},
		}
	}
}

// WithGroup adds a study group owned by the given user.
func WithGroup(id, name, subject, ownerID string) Option {
	return func(s *state) {
		s.groups[id] = &studyhub.Group{
			ID:          id,
			Name:        name,
			Subject:     subject,
			OwnerID:     ownerID,
			MemberCount: 1,
			CreatedAt:   time.Now(),
		}
		s.members[id] = []studyhub.Member{
			{UserID: ownerID, Role: "owner", JoinedAt: time.Now()},
		}
	}
}

// WithSession adds a scheduled study session.
func WithSession(id, groupID, title string, startsAt time.Time) Option {
	return func(s *state) {
		s.sessions[id] = &studyhub.StudySession{
			ID:       id,
			GroupID:  groupID,
			Title:    title,
			StartsAt: startsAt,
			EndsAt:   startsAt.Add(time.Hour),
		}
	}
}

// WithResource adds a shared resource with raw content.
func WithResource(id, groupID, title string, content []byte) Option {
	return func(s *state) {
		s.resources[id] = &studyhub.Resource{
			ID:          id,
			GroupID:     groupID,
			Title:       title,
			ContentType: "application/octet-stream",
			Size:        int64(len(content)),
			CreatedAt:   time.Now(),
		}
		s.content[id] = content
	}
}

// NewClient creates a *studyhub.Client with all services wired to
// in-memory fakes.
func NewClient(opts ...Option) *studyhub.Client {
	s := &state{
		accounts:  make(map[string]*account),
		groups:    make(map[string]*studyhub.Group),
		members:   make(map[string][]studyhub.Member),
		sessions:  make(map[string]*studyhub.StudySession),
		resources: make(map[string]*studyhub.Resource),
		content:   make(map[string][]byte),
		messages:  make(map[string][]studyhub.Message),
	}
	for _, o := range opts {
		o(s)
	}

	c, _ := studyhub.NewClient(
		studyhub.Config{BaseURL: "fake://localhost"},
		studyhub.WithAuthService(&fakeAuth{s: s}),
		studyhub.WithGroupService(&fakeGroups{s: s}),
		studyhub.WithSessionService(&fakeSessions{s: s}),
		studyhub.WithResourceService(&fakeResources{s: s}),
		studyhub.WithChatService(&fakeChat{s: s}),
	)
	return c
}

func notFound() error {
	return &studyhub.HTTPError{StatusCode: http.StatusNotFound, Detail: "not found"}
}

// --- AuthService implementation ---

type fakeAuth struct {
	s *state
}

func (a *fakeAuth) Login(ctx context.Context, email, password string) (*studyhub.Session, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	acct, ok := a.s.accounts[email]
	if !ok || acct.password != password {
		return nil, studyhub.ErrInvalidCredentials
	}
	user := *acct.user
	a.s.current = &user
	a.s.notifyLocked(&user)
	return &studyhub.Session{
		User:        &user,
		Credentials: studyhub.Credentials{Access: "fake-access", Refresh: "fake-refresh"},
	}, nil
}

func (a *fakeAuth) Signup(ctx context.Context, reg studyhub.Registration) (*studyhub.Session, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if reg.Email == "" || reg.Password == "" {
		fields := make(map[string][]string)
		if reg.Email == "" {
			fields["email"] = []string{"This field is required."}
		}
		if reg.Password == "" {
			fields["password"] = []string{"This field is required."}
		}
		return nil, &studyhub.ValidationError{Message: "invalid registration", Fields: fields}
	}
	if _, exists := a.s.accounts[reg.Email]; exists {
		return nil, &studyhub.ValidationError{
			Message: "invalid registration",
			Fields:  map[string][]string{"email": {"A user with that email already exists."}},
		}
	}

	user := &studyhub.User{
		ID:       a.s.id("u"),
		Email:    reg.Email,
		Name:     reg.Name,
		JoinedAt: time.Now(),
	}
	a.s.accounts[reg.Email] = &account{password: reg.Password, user: user}
	snapshot := *user
	a.s.current = &snapshot
	a.s.notifyLocked(&snapshot)
	return &studyhub.Session{
		User:        &snapshot,
		Credentials: studyhub.Credentials{Access: "fake-access", Refresh: "fake-refresh"},
	}, nil
}

func (a *fakeAuth) Logout(ctx context.Context, allDevices bool) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	a.s.current = nil
	a.s.notifyLocked(nil)
	return nil
}

func (a *fakeAuth) Restore(ctx context.Context) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if a.s.current != nil {
		a.s.notifyLocked(a.s.current)
	}
	return nil
}

func (a *fakeAuth) CurrentUser() *studyhub.User {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	if a.s.current == nil {
		return nil
	}
	user := *a.s.current
	return &user
}

func (a *fakeAuth) OnChange(fn func(*studyhub.User)) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.subscribers = append(a.s.subscribers, fn)
}

func (a *fakeAuth) UpdateProfile(ctx context.Context, update studyhub.ProfileUpdate) (*studyhub.User, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if a.s.current == nil {
		return nil, fmt.Errorf("fake: not logged in")
	}
	if update.Name != nil {
		a.s.current.Name = *update.Name
	}
	if update.AvatarURL != nil {
		a.s.current.AvatarURL = *update.AvatarURL
	}
	if update.Bio != nil {
		a.s.current.Bio = *update.Bio
	}
	if acct, ok := a.s.accounts[a.s.current.Email]; ok {
		snapshot := *a.s.current
		acct.user = &snapshot
	}
	user := *a.s.current
	return &user, nil
}

func (a *fakeAuth) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return &studyhub.ValidationError{
			Message: "invalid request",
			Fields:  map[string][]string{"email": {"This field is required."}},
		}
	}
	return nil
}

func (a *fakeAuth) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return &studyhub.ValidationError{Message: "invalid request"}
	}
	return nil
}

// --- GroupService implementation ---

type fakeGroups struct {
	s *state
}

func (g *fakeGroups) List(ctx context.Context) ([]studyhub.Group, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()

	out := make([]studyhub.Group, 0, len(g.s.groups))
	for _, grp := range g.s.groups {
		out = append(out, *grp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *fakeGroups) Get(ctx context.Context, groupID string) (*studyhub.Group, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()

	grp, ok := g.s.groups[groupID]
	if !ok {
		return nil, nil
	}
	out := *grp
	return &out, nil
}

func (g *fakeGroups) Create(ctx context.Context, group studyhub.Group) (*studyhub.Group, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	group.ID = g.s.id("g")
	group.CreatedAt = time.Now()
	group.MemberCount = 1
	if g.s.current != nil {
		group.OwnerID = g.s.current.ID
		g.s.members[group.ID] = []studyhub.Member{
			{UserID: g.s.current.ID, Name: g.s.current.Name, Role: "owner", JoinedAt: time.Now()},
		}
	}
	g.s.groups[group.ID] = &group
	out := group
	return &out, nil
}

func (g *fakeGroups) Update(ctx context.Context, group studyhub.Group) (*studyhub.Group, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	existing, ok := g.s.groups[group.ID]
	if !ok {
		return nil, notFound()
	}
	if group.Name != "" {
		existing.Name = group.Name
	}
	if group.Description != "" {
		existing.Description = group.Description
	}
	if group.Subject != "" {
		existing.Subject = group.Subject
	}
	out := *existing
	return &out, nil
}

func (g *fakeGroups) Delete(ctx context.Context, groupID string) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	if _, ok := g.s.groups[groupID]; !ok {
		return notFound()
	}
	delete(g.s.groups, groupID)
	delete(g.s.members, groupID)
	return nil
}

func (g *fakeGroups) Join(ctx context.Context, groupID string) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	grp, ok := g.s.groups[groupID]
	if !ok {
		return notFound()
	}
	if g.s.current == nil {
		return fmt.Errorf("fake: not logged in")
	}
	for _, m := range g.s.members[groupID] {
		if m.UserID == g.s.current.ID {
			return nil
		}
	}
	g.s.members[groupID] = append(g.s.members[groupID], studyhub.Member{
		UserID:   g.s.current.ID,
		Name:     g.s.current.Name,
		Role:     "member",
		JoinedAt: time.Now(),
	})
	grp.MemberCount = len(g.s.members[groupID])
	return nil
}

func (g *fakeGroups) Leave(ctx context.Context, groupID string) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	grp, ok := g.s.groups[groupID]
	if !ok {
		return notFound()
	}
	if g.s.current == nil {
		return fmt.Errorf("fake: not logged in")
	}
	members := g.s.members[groupID]
	for i, m := range members {
		if m.UserID == g.s.current.ID {
			g.s.members[groupID] = append(members[:i], members[i+1:]...)
			break
		}
	}
	grp.MemberCount = len(g.s.members[groupID])
	return nil
}

func (g *fakeGroups) Members(ctx context.Context, groupID string) ([]studyhub.Member, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()

	if _, ok := g.s.groups[groupID]; !ok {
		return nil, notFound()
	}
	out := make([]studyhub.Member, len(g.s.members[groupID]))
	copy(out, g.s.members[groupID])
	return out, nil
}

// --- SessionService implementation ---

type fakeSessions struct {
	s *state
}

func (f *fakeSessions) List(ctx context.Context, filter studyhub.SessionFilter) ([]studyhub.StudySession, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()

	now := time.Now()
	out := make([]studyhub.StudySession, 0, len(f.s.sessions))
	for _, sess := range f.s.sessions {
		if filter.GroupID != "" && sess.GroupID != filter.GroupID {
			continue
		}
		if filter.Upcoming && !sess.StartsAt.After(now) {
			continue
		}
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (f *fakeSessions) Get(ctx context.Context, sessionID string) (*studyhub.StudySession, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()

	sess, ok := f.s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := *sess
	return &out, nil
}

func (f *fakeSessions) Schedule(ctx context.Context, session studyhub.StudySession) (*studyhub.StudySession, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if _, ok := f.s.groups[session.GroupID]; !ok {
		return nil, notFound()
	}
	session.ID = f.s.id("s")
	f.s.sessions[session.ID] = &session
	out := session
	return &out, nil
}

func (f *fakeSessions) Update(ctx context.Context, session studyhub.StudySession) (*studyhub.StudySession, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	existing, ok := f.s.sessions[session.ID]
	if !ok {
		return nil, notFound()
	}
	if session.Title != "" {
		existing.Title = session.Title
	}
	if session.Agenda != "" {
		existing.Agenda = session.Agenda
	}
	if session.Location != "" {
		existing.Location = session.Location
	}
	if !session.StartsAt.IsZero() {
		existing.StartsAt = session.StartsAt
	}
	if !session.EndsAt.IsZero() {
		existing.EndsAt = session.EndsAt
	}
	out := *existing
	return &out, nil
}

func (f *fakeSessions) Cancel(ctx context.Context, sessionID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if _, ok := f.s.sessions[sessionID]; !ok {
		return notFound()
	}
	delete(f.s.sessions, sessionID)
	return nil
}

func (f *fakeSessions) Join(ctx context.Context, sessionID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	sess, ok := f.s.sessions[sessionID]
	if !ok {
		return notFound()
	}
	if f.s.current == nil {
		return fmt.Errorf("fake: not logged in")
	}
	for _, id := range sess.Attendees {
		if id == f.s.current.ID {
			return nil
		}
	}
	sess.Attendees = append(sess.Attendees, f.s.current.ID)
	return nil
}

func (f *fakeSessions) Leave(ctx context.Context, sessionID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	sess, ok := f.s.sessions[sessionID]
	if !ok {
		return notFound()
	}
	if f.s.current == nil {
		return fmt.Errorf("fake: not logged in")
	}
	for i, id := range sess.Attendees {
		if id == f.s.current.ID {
			sess.Attendees = append(sess.Attendees[:i], sess.Attendees[i+1:]...)
			break
		}
	}
	return nil
}

// --- ResourceService implementation ---

type fakeResources struct {
	s *state
}

func (f *fakeResources) List(ctx context.Context, groupID string) ([]studyhub.Resource, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()

	out := make([]studyhub.Resource, 0, len(f.s.resources))
	for _, r := range f.s.resources {
		if groupID != "" && r.GroupID != groupID {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeResources) Get(ctx context.Context, resourceID string) (*studyhub.Resource, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()

	r, ok := f.s.resources[resourceID]
	if !ok {
		return nil, nil
	}
	out := *r
	return &out, nil
}

func (f *fakeResources) Upload(ctx context.Context, resource studyhub.Resource, file *studyhub.File) (*studyhub.Resource, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	resource.ID = f.s.id("r")
	resource.CreatedAt = time.Now()
	if f.s.current != nil {
		resource.UploadedBy = f.s.current.ID
	}
	if file != nil {
		resource.FileName = file.Name
		resource.ContentType = file.ContentType
		resource.Size = int64(len(file.Content))
		f.s.content[resource.ID] = file.Content
	}
	f.s.resources[resource.ID] = &resource
	out := resource
	return &out, nil
}

func (f *fakeResources) Download(ctx context.Context, resourceID string) ([]byte, string, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()

	r, ok := f.s.resources[resourceID]
	if !ok {
		return nil, "", notFound()
	}
	content, ok := f.s.content[resourceID]
	if !ok {
		return nil, "", notFound()
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, r.ContentType, nil
}

func (f *fakeResources) Delete(ctx context.Context, resourceID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if _, ok := f.s.resources[resourceID]; !ok {
		return notFound()
	}
	delete(f.s.resources, resourceID)
	delete(f.s.content, resourceID)
	return nil
}

// --- ChatService implementation ---

type fakeChat struct {
	s *state
}

func (f *fakeChat) Messages(ctx context.Context, groupID string, opts studyhub.ListOptions) ([]studyhub.Message, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()

	if _, ok := f.s.groups[groupID]; !ok {
		return nil, notFound()
	}
	out := make([]studyhub.Message, len(f.s.messages[groupID]))
	copy(out, f.s.messages[groupID])
	return out, nil
}

func (f *fakeChat) Send(ctx context.Context, groupID, body string) (*studyhub.Message, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if _, ok := f.s.groups[groupID]; !ok {
		return nil, notFound()
	}
	msg := studyhub.Message{
		ID:      f.s.id("m"),
		GroupID: groupID,
		Body:    body,
		SentAt:  time.Now(),
	}
	if f.s.current != nil {
		msg.SenderID = f.s.current.ID
		msg.Sender = f.s.current.Name
	}
	f.s.messages[groupID] = append(f.s.messages[groupID], msg)
	out := msg
	return &out, nil
}

func (f *fakeChat) Delete(ctx context.Context, messageID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	for groupID, msgs := range f.s.messages {
		for i, m := range msgs {
			if m.ID == messageID {
				f.s.messages[groupID] = append(msgs[:i], msgs[i+1:]...)
				return nil
			}
		}
	}
	return notFound()
}
