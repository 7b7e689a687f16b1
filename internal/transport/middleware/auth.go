package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/pkg/ctxutil"
)

type tokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, domain.UserRole, error)
}

// Auth resolves a bearer token into the caller's identity. Requests with no
// Authorization header pass through anonymously and services reject them
// where a user is needed. A header that is not a usable bearer token, or a
// token that fails validation, is answered with 401.
func Auth(validator tokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := extractBearerToken(header)
			if token == "" {
				challenge(w, "invalid_request")
				return
			}
			userID, role, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				challenge(w, "invalid_token")
				return
			}

			ctx := ctxutil.WithUserID(r.Context(), userID)
			if role == domain.UserRoleAdmin {
				ctx = ctxutil.WithAdmin(ctx)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// challenge answers 401 with an RFC 6750 WWW-Authenticate header. An empty
// code is used when no credentials were sent at all.
func challenge(w http.ResponseWriter, code string) {
	value := `Bearer realm="submissions"`
	if code != "" {
		value += `, error="` + code + `"`
	}
	w.Header().Set("WWW-Authenticate", value)
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

func extractBearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
