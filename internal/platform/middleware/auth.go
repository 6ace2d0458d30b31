package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	id "pledger/pkg/domain"
	"pledger/pkg/requestcontext"
)

// TokenValidator validates bearer tokens and extracts the caller identity.
type TokenValidator interface {
	ValidateToken(tokenString string) (id.Identity, error)
}

// RequireAuth enforces a valid bearer token and injects the caller identity
// into the request context. Every mutating ledger route sits behind this.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				unauthorized(w, r, logger, "missing or invalid Authorization header")
				return
			}

			caller, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w, r, logger, "invalid or expired token")
				return
			}

			ctx := requestcontext.WithCallerID(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin checks the administrative secret header against the configured
// bcrypt hash. Used by verification decisions and quorum updates.
func RequireAdmin(adminSecretHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := r.Header.Get("X-Admin-Secret")
			if adminSecretHash == "" || secret == "" {
				unauthorized(w, r, logger, "admin secret required")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(adminSecretHash), []byte(secret)); err != nil {
				logger.WarnContext(r.Context(), "admin secret mismatch",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w, r, logger, "admin secret invalid")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(`{"error":"unauthorized","error_description":"` + reason + `"}`)); err != nil {
		logger.ErrorContext(r.Context(), "failed to write unauthorized response", "error", err)
	}
}
