package middleware

import (
	"net/http"

	"github.com/heartmarshall/submission-backend/pkg/ctxutil"
)

// RequireAdmin guards the dictionary and category registry. Anonymous
// callers get 401, authenticated non-admins 403. It must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch _, ok := ctxutil.UserIDFromCtx(r.Context()); {
		case !ok:
			challenge(w, "")
		case !ctxutil.IsAdminCtx(r.Context()):
			writeError(w, http.StatusForbidden, "admin access required")
		default:
			next.ServeHTTP(w, r)
		}
	})
}
