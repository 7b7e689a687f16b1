package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/submission-backend/pkg/ctxutil"
)

func serveRecovered(t *testing.T, h http.HandlerFunc, r *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	rec := httptest.NewRecorder()
	Recovery(logger)(h).ServeHTTP(rec, r)
	return rec, buf.String()
}

func TestRecovery_NoPanicPassesThrough(t *testing.T) {
	rec, logged := serveRecovered(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}, httptest.NewRequest(http.MethodPost, "/categories", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, logged)
}

func TestRecovery_PanicBecomes500(t *testing.T) {
	userID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/submissions/x/commit", nil)
	ctx := ctxutil.WithRequestID(req.Context(), "req-42")
	req = req.WithContext(ctxutil.WithUserID(ctx, userID))

	rec, logged := serveRecovered(t, func(w http.ResponseWriter, r *http.Request) {
		panic("cascade walked off the graph")
	}, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(logged), &entry))
	assert.Equal(t, "panic recovered", entry["msg"])
	assert.Equal(t, "cascade walked off the graph", entry["panic"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, userID.String(), entry["user_id"])
	assert.Equal(t, false, entry["response_started"])
	assert.Contains(t, entry["stack"], "goroutine")
}

func TestRecovery_PanicAfterHeaderKeepsStatus(t *testing.T) {
	rec, logged := serveRecovered(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"items":[`))
		panic("encoder failed")
	}, httptest.NewRequest(http.MethodGet, "/data", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"items":[`, rec.Body.String())
	assert.True(t, strings.Contains(logged, `"response_started":true`), logged)
}

func TestRecovery_AbortHandlerRepanics(t *testing.T) {
	handler := Recovery(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		}),
	)

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
