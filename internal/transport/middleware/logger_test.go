package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/pkg/ctxutil"
)

// serveLogged runs one request through Logger and returns the decoded entry.
func serveLogged(t *testing.T, req *http.Request, handler http.HandlerFunc) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	Logger(logger)(handler).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry %q: %v", buf.String(), err)
	}
	return entry
}

func TestLogger_Success(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/dictionaries", nil)
	entry := serveLogged(t, req, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`)) //nolint:errcheck
	})

	if entry["msg"] != "http.request" {
		t.Errorf("msg = %v, want http.request", entry["msg"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
	if entry["method"] != "GET" || entry["path"] != "/dictionaries" {
		t.Errorf("method/path = %v %v", entry["method"], entry["path"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if entry["bytes"] != float64(2) {
		t.Errorf("bytes = %v, want 2", entry["bytes"])
	}
	if _, ok := entry["user_id"]; ok {
		t.Error("anonymous request should not log user_id")
	}
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusAccepted, "INFO"},
		{http.StatusConflict, "WARN"},
		{http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/categories", nil)
			entry := serveLogged(t, req, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
		})
	}
}

func TestLogger_FirstStatusWins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	entry := serveLogged(t, req, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.WriteHeader(http.StatusOK)
	})

	if entry["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v, want 404", entry["status"])
	}
}

func TestLogger_IncludesContextIdentifiers(t *testing.T) {
	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := ctxutil.WithRequestID(req.Context(), "test-request-id-123")
	req = req.WithContext(ctxutil.WithUserID(ctx, userID))

	entry := serveLogged(t, req, func(w http.ResponseWriter, r *http.Request) {})

	if entry["request_id"] != "test-request-id-123" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["user_id"] != userID.String() {
		t.Errorf("user_id = %v, want %s", entry["user_id"], userID)
	}
}

func TestLogger_RouteFromMux(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /data/{systemId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	Logger(logger)(mux).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/data/SD-42", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry %q: %v", buf.String(), err)
	}
	if entry["route"] != "GET /data/{systemId}" {
		t.Errorf("route = %v, want the mux pattern", entry["route"])
	}
	if entry["path"] != "/data/SD-42" {
		t.Errorf("path = %v, want /data/SD-42", entry["path"])
	}
}
