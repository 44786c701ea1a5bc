package utils

import (
	"context"
	"strings"
)

type contextKey string

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint
	Email  string
	Role   string
}

// IsAdmin reports whether the actor may override ownership checks.
func (a Actor) IsAdmin() bool {
	return strings.EqualFold(a.Role, RoleAdmin)
}

// CanAccess reports whether the actor owns the resource or is an admin.
func (a Actor) CanAccess(ownerID uint) bool {
	return a.IsAdmin() || (a.UserID != 0 && a.UserID == ownerID)
}

// SetUserContext sets user info into context (called by middleware)
func SetUserContext(ctx context.Context, id uint, email string, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id)
	ctx = context.WithValue(ctx, UserEmailKey, email)
	ctx = context.WithValue(ctx, UserRoleKey, role)
	return ctx
}

// GetUserIDFromContext retrieves userID safely
func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(UserIDKey).(uint)
	return id, ok
}

func GetUserEmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(UserEmailKey).(string)
	return email
}

func GetUserRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

// ActorFromContext returns the caller stored by the auth middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	id, ok := GetUserIDFromContext(ctx)
	if !ok || id == 0 {
		return Actor{}, false
	}
	return Actor{
		UserID: id,
		Email:  GetUserEmailFromContext(ctx),
		Role:   GetUserRoleFromContext(ctx),
	}, true
}
