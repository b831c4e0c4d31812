package middleware

import (
	"net/http"

	"warehouse/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the user has admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isAdmin(r, logger) {
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminForWrites lets any authenticated user read and restricts
// mutating methods to admins
func RequireAdminForWrites(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if !isAdmin(r, logger) {
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isAdmin(r *http.Request, logger *zap.Logger) bool {
	role, ok := GetUserRole(r.Context())
	if !ok {
		logger.Warn("Role not found in context", zap.String("path", r.URL.Path))
		return false
	}

	if role != domain.RoleAdmin {
		logger.Warn("Non-admin user attempted an admin operation",
			zap.String("role", role),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		return false
	}
	return true
}
