package jwttoken

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "filegov/pkg/domain-errors"
	"filegov/pkg/requestcontext"
)

func newService() *JWTService {
	return NewJWTService("test-signing-key", "filegov", "filegov-console", time.Hour)
}

func TestIssueAndValidate(t *testing.T) {
	svc := newService()

	token, err := svc.IssueToken(context.Background(), "  alice ")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.NotEmpty(t, claims.JTI)
}

func TestIssueToken_RejectsBlankHandle(t *testing.T) {
	_, err := newService().IssueToken(context.Background(), " ")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestValidateToken_Failures(t *testing.T) {
	svc := newService()

	t.Run("empty token", func(t *testing.T) {
		_, err := svc.ValidateToken("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired token", func(t *testing.T) {
		past := requestcontext.WithTime(context.Background(), time.Now().Add(-2*time.Hour))
		token, err := svc.IssueToken(past, "alice")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewJWTService("other-key", "filegov", "filegov-console", time.Hour)
		token, err := other.IssueToken(context.Background(), "alice")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewJWTService("test-signing-key", "filegov", "someone-else", time.Hour)
		token, err := other.IssueToken(context.Background(), "alice")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		now := time.Now()
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "filegov",
				Audience:  []string{"filegov-console"},
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		})
		token, err := raw.SignedString([]byte("test-signing-key"))
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
