package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/pkg/ctxutil"
)

//go:generate moq -out token_validator_mock_test.go -pkg middleware . tokenValidator

type seenCaller struct {
	called bool
	userID uuid.UUID
	hasID  bool
	admin  bool
}

func serveAuth(t *testing.T, v tokenValidator, header string) (*httptest.ResponseRecorder, *seenCaller) {
	t.Helper()

	seen := &seenCaller{}
	handler := Auth(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.called = true
		seen.userID, seen.hasID = ctxutil.UserIDFromCtx(r.Context())
		seen.admin = ctxutil.IsAdminCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestAuth(t *testing.T) {
	user := uuid.New()
	admin := uuid.New()
	validator := &tokenValidatorMock{
		ValidateTokenFunc: func(_ context.Context, token string) (uuid.UUID, domain.UserRole, error) {
			switch token {
			case "user-token":
				return user, domain.UserRoleUser, nil
			case "admin-token":
				return admin, domain.UserRoleAdmin, nil
			}
			return uuid.Nil, "", errors.New("bad token")
		},
	}

	tests := []struct {
		name          string
		header        string
		wantCode      int
		wantUser      uuid.UUID
		wantAdmin     bool
		wantChallenge string
	}{
		{name: "anonymous", wantCode: http.StatusOK},
		{name: "user", header: "Bearer user-token", wantCode: http.StatusOK, wantUser: user},
		{name: "scheme is case-insensitive", header: "bearer user-token", wantCode: http.StatusOK, wantUser: user},
		{name: "admin", header: "Bearer admin-token", wantCode: http.StatusOK, wantUser: admin, wantAdmin: true},
		{name: "rejected token", header: "Bearer forged", wantCode: http.StatusUnauthorized, wantChallenge: `Bearer realm="submissions", error="invalid_token"`},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantCode: http.StatusUnauthorized, wantChallenge: `Bearer realm="submissions", error="invalid_request"`},
		{name: "empty bearer", header: "Bearer ", wantCode: http.StatusUnauthorized, wantChallenge: `Bearer realm="submissions", error="invalid_request"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, seen := serveAuth(t, validator, tt.header)

			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantChallenge, rec.Header().Get("WWW-Authenticate"))
			if tt.wantCode != http.StatusOK {
				assert.False(t, seen.called)
				assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
				return
			}
			assert.Equal(t, tt.wantUser != uuid.Nil, seen.hasID)
			assert.Equal(t, tt.wantUser, seen.userID)
			assert.Equal(t, tt.wantAdmin, seen.admin)
		})
	}
}

func TestAuth_ValidatorSeesTrimmedToken(t *testing.T) {
	validator := &tokenValidatorMock{
		ValidateTokenFunc: func(context.Context, string) (uuid.UUID, domain.UserRole, error) {
			return uuid.New(), domain.UserRoleUser, nil
		},
	}

	serveAuth(t, validator, "Bearer   padded-token  ")

	calls := validator.ValidateTokenCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "padded-token", calls[0].Token)
}

func TestAuth_MalformedHeaderSkipsValidator(t *testing.T) {
	validator := &tokenValidatorMock{}

	rec, _ := serveAuth(t, validator, "Bearertoken")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, validator.ValidateTokenCalls())
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":  "abc",
		"BEARER abc":  "abc",
		"Basic abc":   "",
		"Bearerabc":   "",
		"Bearer":      "",
		"Bearer  ":    "",
		"Token abc x": "",
	}
	for header, want := range cases {
		assert.Equal(t, want, extractBearerToken(header), "header %q", header)
	}
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name string
		ctx  func(ctx context.Context) context.Context
		want int
	}{
		{"anonymous", func(ctx context.Context) context.Context { return ctx }, http.StatusUnauthorized},
		{"user", func(ctx context.Context) context.Context { return ctxutil.WithUserID(ctx, uuid.New()) }, http.StatusForbidden},
		{"admin", func(ctx context.Context) context.Context {
			return ctxutil.WithAdmin(ctxutil.WithUserID(ctx, uuid.New()))
		}, http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/dictionaries", nil)
			req = req.WithContext(tc.ctx(req.Context()))
			rec := httptest.NewRecorder()

			RequireAdmin(next).ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusUnauthorized {
				assert.Equal(t, `Bearer realm="submissions"`, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
