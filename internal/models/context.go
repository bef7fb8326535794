package models

import "context"

type userIdContextKey struct{}

// WithUserId attaches the authenticated user id to a context. Authentication
// itself happens upstream; everything below the transport reads the acting
// user from here.
func WithUserId(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, userIdContextKey{}, userId)
}

// UserIdFromContext returns the acting user id, or "" if none was attached.
func UserIdFromContext(ctx context.Context) string {
	userId, _ := ctx.Value(userIdContextKey{}).(string)
	return userId
}
