package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/edlatam/lms-platform/internal/http/response"
)

// RequireRole возвращает middleware, пропускающий запрос только
// при одной из перечисленных ролей в контексте. Личность должна быть
// установлена ранее через Identity.
func RequireRole(log *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value(UserRole).(string)
			if !ok || role == "" {
				log.Error("user role missing in context")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing user identity"))
				return
			}

			if _, ok := allowed[role]; !ok {
				log.Error("access denied for role", slog.String("role", role))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
