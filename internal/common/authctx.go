package common

import "context"

type ctxKey string

const userIDKey ctxKey = "auth/user-id"
const rolesKey ctxKey = "auth/roles"

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithRoles stores the authenticated user's roles on the provided context.
func WithRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, rolesKey, roles)
}

// Roles extracts the caller's roles from the context if present.
func Roles(ctx context.Context) ([]string, bool) {
	v := ctx.Value(rolesKey)
	if v == nil {
		return nil, false
	}
	roles, ok := v.([]string)
	return roles, ok
}

// HasRole reports whether the context carries the given role.
func HasRole(ctx context.Context, role string) bool {
	roles, ok := Roles(ctx)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
