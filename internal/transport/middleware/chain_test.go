package middleware

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

// tracing returns a middleware that records entry and exit under name.
func tracing(name string, trace *[]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*trace = append(*trace, name+">")
			next.ServeHTTP(w, r)
			*trace = append(*trace, "<"+name)
		})
	}
}

func TestChain(t *testing.T) {
	tests := []struct {
		name  string
		build func(trace *[]string) Middleware
		want  []string
	}{
		{
			name: "first runs outermost",
			build: func(trace *[]string) Middleware {
				return Chain(tracing("recovery", trace), tracing("auth", trace))
			},
			want: []string{"recovery>", "auth>", "handler", "<auth", "<recovery"},
		},
		{
			name: "nil entries skipped",
			build: func(trace *[]string) Middleware {
				return Chain(nil, tracing("auth", trace), nil)
			},
			want: []string{"auth>", "handler", "<auth"},
		},
		{
			name:  "empty",
			build: func(*[]string) Middleware { return Chain() },
			want:  []string{"handler"},
		},
		{
			name: "nested chains flatten",
			build: func(trace *[]string) Middleware {
				return Chain(tracing("outer", trace), Chain(tracing("a", trace), tracing("b", trace)))
			},
			want: []string{"outer>", "a>", "b>", "handler", "<b", "<a", "<outer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var trace []string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trace = append(trace, "handler")
				w.WriteHeader(http.StatusNoContent)
			})

			rec := httptest.NewRecorder()
			tt.build(&trace)(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if !slices.Equal(trace, tt.want) {
				t.Errorf("trace = %v, want %v", trace, tt.want)
			}
			if rec.Code != http.StatusNoContent {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
			}
		})
	}
}
