package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKeyType string

const (
	userIDKey   contextKeyType = "user_id"
	userNameKey contextKeyType = "user_name"
	roleKey     contextKeyType = "role"
)

// RoleAdmin is the role required for the moderation surface.
const RoleAdmin = "admin"

// Identity extracts the caller identity propagated by the API gateway
// (X-User-ID, X-User-Name, X-User-Role headers) into the request context.
// Authentication itself happens at the gateway; this service only consumes
// the verified identity.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := r.Header.Get("X-User-ID"); id != "" {
				ctx = context.WithValue(ctx, userIDKey, id)
			}
			if name := r.Header.Get("X-User-Name"); name != "" {
				ctx = context.WithValue(ctx, userNameKey, name)
			}
			if role := r.Header.Get("X-User-Role"); role != "" {
				ctx = context.WithValue(ctx, roleKey, role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated rejects requests that carry no caller identity.
func RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFromContext(r.Context()) == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"code":    "UNAUTHORIZED",
					"message": "missing caller identity",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole checks that the authenticated caller has one of the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if _, ok := roleSet[role]; !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"code":    "FORBIDDEN",
					"message": "insufficient permissions",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// UserNameFromContext extracts the user display name from the request context.
func UserNameFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(userNameKey).(string); ok {
		return name
	}
	return ""
}

// RoleFromContext extracts the user role from the request context.
func RoleFromContext(ctx context.Context) string {
	if role, ok := ctx.Value(roleKey).(string); ok {
		return role
	}
	return ""
}

// IsAdmin reports whether the caller in context carries the admin role.
func IsAdmin(ctx context.Context) bool {
	return RoleFromContext(ctx) == RoleAdmin
}
