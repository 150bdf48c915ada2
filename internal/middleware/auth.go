package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/masterrlv/log-2/internal/auth"
)

// Headers the upstream identity layer sets after authenticating the
// request. This service trusts them; verifying credentials is the
// identity layer's job.
const (
	userIDHeader   = "X-User-Id"
	userRoleHeader = "X-User-Role"
)

// AuthMiddleware installs the authenticated principal into the request
// context. Requests without a valid principal are rejected.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(userIDHeader))
		if err != nil || id == uuid.Nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		role := r.Header.Get(userRoleHeader)
		if role == "" {
			role = "viewer"
		}

		principal := auth.Principal{ID: id, Role: role}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	})
}
