// Package auth verifies the bearer tokens issued by the external identity
// service. This API never issues or refreshes tokens; it only needs to
// establish which user a request belongs to.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenVerifier validates access tokens and extracts their claims.
type TokenVerifier interface {
	// VerifyToken validates the provided token string and extracts the
	// claims. Returns ErrExpiredToken or ErrInvalidToken on failure.
	VerifyToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims carries the verified identity of a request.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
