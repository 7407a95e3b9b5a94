package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/fkhayef/forumcore/internal/role"
	"github.com/fkhayef/forumcore/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey ContextKey = "principal"
)

// Headers set by the trusted gateway in front of the service
const (
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"
)

// Authenticate resolves the caller from the gateway headers. Identity is
// verified upstream; requests without a usable user id are rejected.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userIDStr := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userIDStr == "" {
			response.Unauthorized(w, "X-User-ID header required")
			return
		}

		userID, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil || userID <= 0 {
			response.Unauthorized(w, "Invalid user id")
			return
		}

		siteRole := role.SiteUser
		switch strings.ToLower(strings.TrimSpace(r.Header.Get(UserRoleHeader))) {
		case "", string(role.SiteUser):
		case string(role.SiteAdmin):
			siteRole = role.SiteAdmin
		default:
			response.Unauthorized(w, "Invalid user role")
			return
		}

		ctx := WithPrincipal(r.Context(), role.Principal{UserID: userID, SiteRole: siteRole})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithPrincipal stores p in ctx
func WithPrincipal(ctx context.Context, p role.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetPrincipal extracts the principal from the request context
func GetPrincipal(ctx context.Context) (role.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(role.Principal)
	return p, ok
}

// GetUserID extracts the user ID from the request context
func GetUserID(ctx context.Context) (int64, bool) {
	p, ok := GetPrincipal(ctx)
	return p.UserID, ok
}
