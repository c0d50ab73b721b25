// Package context provides request-scoped values extraction.
package context

import (
	"context"

	"backoffice/internal/core/id"
)

// UserContext contains authenticated user information.
type UserContext struct {
	UserID    string
	Email     string
	Name      string
	SessionID string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// ActorID parses the authenticated user id. ok is false when the context
// carries no user or the id is malformed.
func ActorID(ctx context.Context) (actor id.ID, ok bool) {
	raw := GetUserID(ctx)
	if raw == "" {
		return id.Nil(), false
	}
	parsed, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), false
	}
	return parsed, true
}
