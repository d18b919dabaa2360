package jwttoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "filegov/pkg/domain-errors"
	"filegov/pkg/platform/middleware/auth"
	"filegov/pkg/requestcontext"
)

// AccessTokenClaims are the claims carried by console access tokens. The
// subject is the actor handle; session issuance itself lives outside this service.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
}

// JWTService signs and validates HS256 access tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
}

func NewJWTService(signingKey, issuer, audience string, tokenTTL time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
	}
}

// IssueToken signs a token for the given actor handle. Used by the dev
// `token` command and the feature tests.
func (s *JWTService) IssueToken(ctx context.Context, handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "handle cannot be empty")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := requestcontext.Now(ctx)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   handle,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        hex.EncodeToString(b),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken implements auth.JWTValidator.
func (s *JWTService) ValidateToken(tokenString string) (*auth.JWTClaims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "empty token")
	}

	claims := new(AccessTokenClaims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing algorithm")
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token expired")
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid jwt signature")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "jwt parse failed")
		}
	}
	if !token.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no subject")
	}

	return &auth.JWTClaims{Subject: claims.Subject, JTI: claims.ID}, nil
}
