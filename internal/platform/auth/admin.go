package auth

import (
	"net/http"
	"strings"

	"github.com/example/movie-platform/internal/platform/api"
)

// RequireAdmin allows the request only when RequireUser already injected
// role=admin into the context. Errors use the shared envelope so admin
// surfaces fail the same way as everything else.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := RoleFromContext(r.Context())
		if strings.ToLower(strings.TrimSpace(role)) != "admin" {
			api.Forbidden(w, "FORBIDDEN", "admin role required", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
