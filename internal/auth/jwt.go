// Package auth issues and checks the bearer tokens that identify submitters
// and registry administrators.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// clockSkew is tolerated on exp, nbf and iat between issuer and validator.
const clockSkew = 30 * time.Second

// JWTManager signs and validates HS256 access tokens.
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager creates a manager. The config layer enforces a secret of at
// least 32 bytes.
func NewJWTManager(secret, issuer string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// claims are the registered claims plus the caller's role. An absent role
// means a plain user.
type claims struct {
	jwt.RegisteredClaims
	Role domain.UserRole `json:"role,omitempty"`
}

// GenerateAccessToken signs a token whose subject is userID.
func (m *JWTManager) GenerateAccessToken(userID uuid.UUID, role domain.UserRole) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("subject is nil: %w", domain.ErrBadRequest)
	}
	if !role.IsValid() {
		return "", fmt.Errorf("unknown role %q: %w", role, domain.ErrBadRequest)
	}

	now := m.now()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
		Role: role,
	}).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken returns the subject and role of a valid token. Every
// rejection wraps domain.ErrUnauthorized.
func (m *JWTManager) ValidateToken(_ context.Context, raw string) (uuid.UUID, domain.UserRole, error) {
	if raw == "" {
		return uuid.Nil, "", fmt.Errorf("empty token: %w", domain.ErrUnauthorized)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(m.now),
	)

	var c claims
	if _, err := parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return m.secret, nil }); err != nil {
		return uuid.Nil, "", fmt.Errorf("%s: %w", reason(err), domain.ErrUnauthorized)
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, "", fmt.Errorf("subject %q is not a user id: %w", c.Subject, domain.ErrUnauthorized)
	}

	role := c.Role
	if role == "" {
		role = domain.UserRoleUser
	}
	if !role.IsValid() {
		return uuid.Nil, "", fmt.Errorf("unknown role %q: %w", c.Role, domain.ErrUnauthorized)
	}
	return userID, role, nil
}

// reason names the first failed check without echoing token contents.
func reason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "token not valid yet"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "wrong issuer"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "bad signature"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing claim"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed token"
	default:
		return "invalid token"
	}
}
