// Package tenant carries the ambient tenant and user identity through
// request handling so cache keys and metrics can be scoped without
// threading explicit parameters through every call site.
package tenant

import "context"

type contextKey string

const (
	tenantIDKey contextKey = "tenantId"
	userIDKey   contextKey = "userId"
)

// WithTenant returns a context carrying the tenant id.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// WithUser returns a context carrying the user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// FromContext extracts the tenant id, if one was attached upstream.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tenantIDKey).(string)
	return id, ok && id != ""
}

// UserFromContext extracts the user id, if one was attached upstream.
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
