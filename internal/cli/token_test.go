package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/submission-backend/internal/auth"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

const testSecret = "this-is-a-very-long-jwt-secret-for-testing-32+"

func TestTokenIssue_AdminRoundTrip(t *testing.T) {
	userID := uuid.New()

	out, err := execute(t, "--config", memoryConfig(t), "--format", "json",
		"token", "issue", "--user", userID.String(), "--role", "admin")
	require.NoError(t, err)

	var issued IssuedToken
	require.NoError(t, json.Unmarshal([]byte(out), &issued))
	assert.Equal(t, domain.UserRoleAdmin, issued.Role)

	jwt := auth.NewJWTManager(testSecret, "submission-backend", time.Hour)
	gotID, gotRole, err := jwt.ValidateToken(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, domain.UserRoleAdmin, gotRole)
}

func TestTokenIssue_TextPrintsBareToken(t *testing.T) {
	out, err := execute(t, "--config", memoryConfig(t), "token", "issue", "--user", uuid.NewString())
	require.NoError(t, err)

	token := strings.TrimSpace(out)
	assert.Equal(t, 3, len(strings.Split(token, ".")))
}

func TestTokenIssue_UnknownRole(t *testing.T) {
	_, err := execute(t, "--config", memoryConfig(t), "token", "issue", "--user", uuid.NewString(), "--role", "root")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
