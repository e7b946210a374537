package studyhub

import "context"

type ctxKey string

const (
	ctxKeyUser      ctxKey = "studyhub_user"
	ctxKeyRequestID ctxKey = "studyhub_request_id"
)

// WithUser stores the current user in the context. Route-guard and
// rendering code can pass identity down without threading it explicitly.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

// UserFromContext extracts the current user from the context, or nil.
func UserFromContext(ctx context.Context) *User {
	v, _ := ctx.Value(ctxKeyUser).(*User)
	return v
}

// WithRequestID stores a request ID in the context. The transport reuses it
// for the X-Request-ID header instead of generating a fresh one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFromContext extracts the request ID from the context, or "".
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}
