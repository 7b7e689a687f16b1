package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/submission-backend/internal/config"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{MaxBodyBytes: 1 << 20},
		Database: config.DatabaseConfig{
			Driver: config.DriverMemory,
		},
		Auth: config.AuthConfig{
			JWTSecret:      "this-is-a-very-long-jwt-secret-for-testing-32+",
			JWTIssuer:      "submission-backend",
			AccessTokenTTL: time.Hour,
		},
		Submission: config.SubmissionConfig{
			TaskTimeout:          10 * time.Second,
			MaxRetries:           1,
			RetryInitialInterval: 10 * time.Millisecond,
			RetryMaxInterval:     50 * time.Millisecond,
			MaxPendingTasks:      16,
			SystemIDStrategy:     "random",
		},
		CORS: config.CORSConfig{AllowedOrigins: "*"},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), testConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})
	return a
}

func issueToken(t *testing.T, a *App, role domain.UserRole) string {
	t.Helper()

	token, err := a.JWT.GenerateAccessToken(uuid.New(), role)
	require.NoError(t, err)
	return token
}

func do(t *testing.T, a *App, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var donorDictionary = map[string]any{
	"name":    "donors",
	"version": "1.0",
	"schemas": []any{
		map[string]any{
			"name": "donor",
			"fields": []any{
				map[string]any{"name": "submitterId", "valueType": "string", "restrictions": map[string]any{"required": true, "unique": true}},
				map[string]any{"name": "age", "valueType": "integer", "restrictions": map[string]any{"range": map[string]any{"min": 0}}},
			},
		},
	},
}

func TestApp_SubmitCommitEditFlow(t *testing.T) {
	a := newTestApp(t)
	admin := issueToken(t, a, domain.UserRoleAdmin)
	user := issueToken(t, a, domain.UserRoleUser)

	rec := do(t, a, http.MethodPost, "/dictionaries", admin, donorDictionary)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dict := decode[domain.Dictionary](t, rec)

	rec = do(t, a, http.MethodPost, "/categories", admin, map[string]any{
		"name":         "cancer",
		"dictionaryId": dict.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cat := decode[domain.Category](t, rec)
	catPath := "/categories/" + cat.ID.String()

	rec = do(t, a, http.MethodPost, catPath+"/submissions", user, map[string]any{
		"organization": "ORG",
		"inserts": map[string]any{
			"donor": map[string]any{
				"batchName": "donor.tsv",
				"records":   []any{map[string]any{"submitterId": "D1", "age": 30}},
			},
		},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	a.Wait()

	rec = do(t, a, http.MethodGet, catPath+"/submissions/active?organization=ORG", user, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	active := decode[domain.ActiveSubmission](t, rec)
	require.Equal(t, domain.SubmissionStatusValid, active.Status)

	rec = do(t, a, http.MethodPost, catPath+"/submissions/"+active.ID.String()+"/commit", user, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	a.Wait()

	rec = do(t, a, http.MethodGet, "/submissions/"+active.ID.String(), user, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.SubmissionStatusCommitted, decode[domain.ActiveSubmission](t, rec).Status)

	rec = do(t, a, http.MethodGet, catPath+"/data?organization=ORG", user, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[struct {
		Items []domain.SubmittedData `json:"items"`
		Total int                    `json:"total"`
	}](t, rec)
	require.Equal(t, 1, page.Total)
	row := page.Items[0]
	assert.True(t, row.IsValid)
	assert.Equal(t, "donor", row.EntityName)
	assert.NotEmpty(t, row.SystemID)

	rec = do(t, a, http.MethodPut, catPath+"/data", user, map[string]any{
		"organization": "ORG",
		"records": []any{map[string]any{
			"systemId": row.SystemID,
			"data":     map[string]any{"submitterId": "D1", "age": 31},
		}},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	edit := decode[struct {
		SubmissionID uuid.UUID `json:"submissionId"`
	}](t, rec)
	a.Wait()

	rec = do(t, a, http.MethodPost, catPath+"/submissions/"+edit.SubmissionID.String()+"/commit", user, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	a.Wait()

	rec = do(t, a, http.MethodGet, "/data/"+row.SystemID, user, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.SubmittedData](t, rec)
	assert.EqualValues(t, 31, updated.Data["age"])

	rec = do(t, a, http.MethodGet, catPath+"/audit?organization=ORG", user, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	history := decode[[]domain.AuditRecord](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, domain.AuditActionUpdate, history[0].Action)
	assert.Equal(t, row.SystemID, history[0].SystemID)
}

func TestApp_RegistryRequiresAdmin(t *testing.T) {
	a := newTestApp(t)

	rec := do(t, a, http.MethodPost, "/dictionaries", "", donorDictionary)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, a, http.MethodPost, "/dictionaries", issueToken(t, a, domain.UserRoleUser), donorDictionary)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApp_InvalidTokenRejected(t *testing.T) {
	a := newTestApp(t)

	rec := do(t, a, http.MethodGet, "/dictionaries", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApp_ReadyWithMemoryStorage(t *testing.T) {
	a := newTestApp(t)

	rec := do(t, a, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Driver = "sqlite"

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}

func TestNew_UnknownSystemIDStrategy(t *testing.T) {
	cfg := testConfig()
	cfg.Submission.SystemIDStrategy = "sequential"

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.ErrorIs(t, err, domain.ErrBadRequest)
}
