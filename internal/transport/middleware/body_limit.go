package middleware

import "net/http"

// MaxBytes caps request bodies at limit bytes. Reads past the cap fail with
// *http.MaxBytesError; request decoding reports it as a field error.
func MaxBytes(limit int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
