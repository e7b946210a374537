// Package rest adapts the studyhub service interfaces to the HTTP backend.
//
// Usage:
//
//	tc, err := transport.New("https://api.example.com", tokens)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	backend := rest.New(tc)
//
//	cache := querycache.New(querycache.DefaultTTL)
//	groupsSvc := groups.New(backend.Groups(), cache)
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	studyhub "github.com/studyhub/studyhub-go"
	"github.com/studyhub/studyhub-go/chat"
	"github.com/studyhub/studyhub-go/groups"
	"github.com/studyhub/studyhub-go/resources"
	"github.com/studyhub/studyhub-go/sessions"
	"github.com/studyhub/studyhub-go/transport"
	"github.com/studyhub/studyhub-go/wire"
)

// Client bundles Backend implementations for every service over one
// authenticated transport.
type Client struct {
	tc *transport.Client

	groups    groups.Backend
	sessions  sessions.Backend
	resources resources.Backend
	chat      chat.Backend
}

// New creates REST backends over the given transport.
func New(tc *transport.Client) *Client {
	c := &Client{tc: tc}
	c.groups = &groupBackend{tc: tc}
	c.sessions = &sessionBackend{tc: tc}
	c.resources = &resourceBackend{tc: tc}
	c.chat = &chatBackend{tc: tc}
	return c
}

// Groups returns the groups.Backend implementation.
func (c *Client) Groups() groups.Backend {
	return c.groups
}

// Sessions returns the sessions.Backend implementation.
func (c *Client) Sessions() sessions.Backend {
	return c.sessions
}

// Resources returns the resources.Backend implementation.
func (c *Client) Resources() resources.Backend {
	return c.resources
}

// Chat returns the chat.Backend implementation.
func (c *Client) Chat() chat.Backend {
	return c.chat
}

// decodeList accepts either a bare JSON array or a paginated envelope with
// a "results" array.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("rest: decoding list: %w", err)
		}
		return items, nil
	}
	var envelope struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("rest: decoding list envelope: %w", err)
	}
	return envelope.Results, nil
}

// --- groups.Backend implementation ---

type groupBackend struct {
	tc *transport.Client
}

func (b *groupBackend) List(ctx context.Context) ([]studyhub.Group, error) {
	var raw json.RawMessage
	if err := b.tc.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/groups/",
		Out:    &raw,
	}); err != nil {
		return nil, err
	}

	payloads, err := decodeList[wire.GroupPayload](raw)
	if err != nil {
		return nil, err
	}
	out := make([]studyhub.Group, len(payloads))
	for i, p := range payloads {
		out[i] = p.Group()
	}
	return out, nil
}

func (b *groupBackend) Get(ctx context.Context, groupID string) (*studyhub.Group, error) {
	var payload wire.GroupPayload
	err := b.tc.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/groups/" + url.PathEscape(groupID) + "/",
		Out:    &payload,
	})
	if studyhub.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	group := payload.Group()
	return &group, nil
}

func (b *groupBackend) Create(ctx context.Context, group studyhub.Group) (*studyhub.Group, error) {
	body := map[string]string{
		"name":        group.Name,
		"description": group.Description,
		"subject":     group.Subject,
	}
	var payload wire.GroupPayload
	if err := b.tc.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/groups/",
		Body:   body,
		Out:    &payload,
	}); err != nil {
		return nil, err
	}
	created := payload.Group()
	return &created, nil
}

func (b *groupBackend) Update(ctx context.Context, group studyhub.Group) (*studyhub.Group, error) {
	body := map[string]string{
		"name":        group.Name,
		"description": group.Description,
		"subject":     group.Subject,
	}
	var payload wire.GroupPayload
	if err := b.tc.Do(ctx, transport.Request{
		Method: http.MethodPatch,
		Path:   "/api/groups/" + url.PathEscape(group.ID) + "/",
		Body:   body,
		Out:    &payload,
	}); err != nil {
		return nil, err
	}
	updated := payload.Group()
	return &updated, nil
}

func (b *groupBackend) Delete(ctx context.Context, groupID string) error {
	return b.tc.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/api/groups/" + url.PathEscape(groupID) + "/",
	})
}

func (b *groupBackend) Join(ctx context.Context, groupID string) error {
	return b.tc.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/groups/" + url.PathEscape(groupID) + "/join/",
	})
}

func (b *groupBackend) Leave(ctx context.Context, groupID string) error {
	return b.tc.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/groups/" + url.PathEscape(groupID) + "/leave/",
	})
}

func (b *groupBackend) Members(ctx context.Context, groupID string) ([]studyhub.Member, error) {
	var raw json.RawMessage
	if err := b.tc.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/groups/" + url.PathEscape(groupID) + "/members/",
		Out:    &raw,
	}); err != nil {
		return nil, err
	}

	payloads, err := decodeList[wire.MemberPayload](raw)
	if err != nil {
		return nil, err
	}
	out := make([]studyhub.Member, len(payloads))
	for i, p := range payloads {
		out[i] = p.Member()
	}
	return out, nil
}

// --- sessions.Backend implementation ---

type sessionBackend struct {
	tc *transport.Client
}

func (b *sessionBackend) List(ctx context.Context, filter studyhub.SessionFilter) ([]studyhub.StudySession, error) {
	query := url.Values{}
	if filter.GroupID != "" {
		query.Set("group", filter.GroupID)
	}
	if filter.Upcoming {
		query.Set("upcoming", "true")
	}

	var raw json.RawMessage
	if err := b.tc.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/sessions/",
		Query:  query,
		Out:    &raw,
	}); err != nil {
		return nil, err
	}

	payloads, err := decodeList[wire.SessionPayload](raw)
	if err != nil {
		return nil, err
	}
	out := make([]studyhub.StudySession, len(payloads))
	for i, p := range payloads {
		out[i] = p.StudySession()
	}
	return out, nil
}

func (b *sessionBackend) Get(ctx context.Context, sessionID string) (*studyhub.StudySession, error) {
	var payload wire.SessionPayload
	err := b.tc.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/sessions/" + url.PathEscape(sessionID) + "/",
		Out:    &payload,
	})
	if studyhub.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session := payload.StudySession()
	return &session, nil
}

// sessionBody serialises the mutable study-session fields. Times go out as
// RFC 3339; zero times are omitted so the backend keeps its own values.
func sessionBody(session studyhub.StudySession) map[string]any {
	body := map[string]any{
		"group_id": session.GroupID,
		"title":    session.Title,
		"agenda":   session.Agenda,
		"location": session.Location,
	}
	if !session.StartsAt.IsZero() {
		body["start_time"] = session.StartsAt.UTC().Format(time.RFC3339)
	}
	if !session.EndsAt.IsZero() {
		body["end_time"] = session.EndsAt.UTC().Format(time.RFC3339)
	}
	return body
}

func (b *sessionBackend) Schedule(ctx context.Context, session studyhub.StudySession) (*studyhub.StudySession, error) {
	var payload wire.SessionPayload
	if err := b.tc.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/sessions/",
		Body:   sessionBody(session),
		Out:    &payload,
	}); err != nil {
		return nil, err
	}
	created := payload.StudySession()
	return &created, nil
}

func (b *sessionBackend) Update(ctx context.Context, session studyhub.StudySession) (*studyhub.StudySession, error) {
	var payload wire.SessionPayload
	if err := b.tc.Do(ctx, transport.Request{
		Method: http.MethodPatch,
		Path:   "/api/sessions/" + url.PathEscape(session.ID) + "/",
		Body:   sessionBody(session),
		Out:    &payload,
	}); err != nil {
		return nil, err
	}
	updated := payload.StudySession()
	return &updated, nil
}

func (b *sessionBackend) Cancel(ctx context.Context, sessionID string) error {
	return b.tc.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/api/sessions/" + url.PathEscape(sessionID) + "/",
	})
}

func (b *sessionBackend) Join(ctx context.Context, sessionID string) error {
	return b.tc.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/sessions/" + url.PathEscape(sessionID) + "/join/",
	})
}

func (b *sessionBackend) Leave(ctx context.Context, sessionID string) error {
	return b.tc.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/sessions/" + url.PathEscape(sessionID) + "/leave/",
	})
}

// --- resources.Backend implementation ---

type resourceBackend struct {
	tc *transport.Client
}

func (b *resourceBackend) List(ctx context.Context, groupID string) ([]studyhub.Resource, error) {
	query := url.Values{}
	if groupID != "" {
		query.Set("group", groupID)
	}

	var raw json.RawMessage
	if err := b.tc.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/resources/",
		Query:  query,
		Out:    &raw,
	}); err != nil {
		return nil, err
	}

	payloads, err := decodeList[wire.ResourcePayload](raw)
	if err != nil {
		return nil, err
	}
	out := make([]studyhub.Resource, len(payloads))
	for i, p := range payloads {
		out[i] = p.Resource()
	}
	return out, nil
}

func (b *resourceBackend) Get(ctx context.Context, resourceID string) (*studyhub.Resource, error) {
	var payload wire.ResourcePayload
	err := b.tc.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/resources/" + url.PathEscape(resourceID) + "/",
		Out:    &payload,
	})
	if studyhub.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	resource := payload.Resource()
	return &resource, nil
}

func (b *resourceBackend) Upload(ctx context.Context, resource studyhub.Resource, file *studyhub.File) (*studyhub.Resource, error) {
	var payload wire.ResourcePayload
	req := transport.Request{
		Method: http.MethodPost,
		Path:   "/api/resources/",
		Out:    &payload,
	}
	if file == nil {
		req.Body = map[string]string{
			"group_id":    resource.GroupID,
			"title":       resource.Title,
			"description": resource.Description,
		}
	} else {
		req.Form = &transport.Form{
			Fields: map[string]string{
				"group_id":    resource.GroupID,
				"title":       resource.Title,
				"description": resource.Description,
			},
			File:      file,
			FileField: "file",
		}
	}
	if err := b.tc.Do(ctx, req); err != nil {
		return nil, err
	}
	created := payload.Resource()
	return &created, nil
}

func (b *resourceBackend) Download(ctx context.Context, resourceID string) ([]byte, string, error) {
	return b.tc.Download(ctx, "/api/resources/"+url.PathEscape(resourceID)+"/download/")
}

func (b *resourceBackend) Delete(ctx context.Context, resourceID string) error {
	return b.tc.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/api/resources/" + url.PathEscape(resourceID) + "/",
	})
}

// --- chat.Backend implementation ---

type chatBackend struct {
	tc *transport.Client
}

func (b *chatBackend) Messages(ctx context.Context, groupID string, opts studyhub.ListOptions) ([]studyhub.Message, error) {
	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(opts.PageSize))
	}

	var raw json.RawMessage
	if err := b.tc.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/groups/" + url.PathEscape(groupID) + "/messages/",
		Query:  query,
		Out:    &raw,
	}); err != nil {
		return nil, err
	}

	payloads, err := decodeList[wire.MessagePayload](raw)
	if err != nil {
		return nil, err
	}
	out := make([]studyhub.Message, len(payloads))
	for i, p := range payloads {
		out[i] = p.Message()
	}
	return out, nil
}

func (b *chatBackend) Send(ctx context.Context, message studyhub.Message) (*studyhub.Message, error) {
	var payload wire.MessagePayload
	if err := b.tc.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/groups/" + url.PathEscape(message.GroupID) + "/messages/",
		Body: map[string]string{
			"body":      message.Body,
			"client_id": message.ClientID,
		},
		Out: &payload,
	}); err != nil {
		return nil, err
	}
	sent := payload.Message()
	return &sent, nil
}

func (b *chatBackend) Delete(ctx context.Context, messageID string) error {
	return b.tc.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/api/messages/" + url.PathEscape(messageID) + "/",
	})
}
