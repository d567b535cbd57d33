package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodiary/foodiary-api/internal/config"
)

const testSecret = "test-secret-key-that-is-long-enough!"

// signToken builds a token the way the external identity service would.
func signToken(t *testing.T, secret string, userID uuid.UUID, expiresIn time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := jwtCustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newVerifier(t *testing.T) TokenVerifier {
	t.Helper()

	verifier, err := NewTokenVerifier(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)
	return verifier
}

func TestNewTokenVerifier(t *testing.T) {
	t.Parallel()

	t.Run("rejects short secrets", func(t *testing.T) {
		_, err := NewTokenVerifier(config.AuthConfig{JWTSecret: "short"})

		assert.Error(t, err)
	})
}

func TestVerifyToken(t *testing.T) {
	t.Parallel()

	t.Run("valid token yields the user's claims", func(t *testing.T) {
		userID := uuid.New()
		verifier := newVerifier(t)
		token := signToken(t, testSecret, userID, time.Hour)

		claims, err := verifier.VerifyToken(context.Background(), token)

		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, userID.String(), claims.Subject)
	})

	t.Run("expired token", func(t *testing.T) {
		verifier := newVerifier(t)
		token := signToken(t, testSecret, uuid.New(), -time.Hour)

		_, err := verifier.VerifyToken(context.Background(), token)

		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong signing secret", func(t *testing.T) {
		verifier := newVerifier(t)
		token := signToken(t, "another-secret-key-that-is-long-enough", uuid.New(), time.Hour)

		_, err := verifier.VerifyToken(context.Background(), token)

		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed token", func(t *testing.T) {
		verifier := newVerifier(t)

		_, err := verifier.VerifyToken(context.Background(), "not-a-jwt")

		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("token without user ID claim", func(t *testing.T) {
		verifier := newVerifier(t)

		now := time.Now()
		claims := jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = verifier.VerifyToken(context.Background(), signed)

		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
