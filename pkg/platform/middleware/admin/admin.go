package admin

import (
	"log/slog"
	"net/http"
	"slices"

	"processguard/pkg/requestcontext"
)

// RoleProcessAdmin may create and disable processes.
const RoleProcessAdmin = "process_admin"

// RequireRole rejects authenticated callers lacking role. It must run after
// the auth middleware has populated the actor roles.
func RequireRole(role string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !slices.Contains(requestcontext.ActorRoles(ctx), role) {
				logger.WarnContext(ctx, "forbidden - missing role",
					"role", role,
					"actor_id", requestcontext.ActorID(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"role ` + role + ` required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
