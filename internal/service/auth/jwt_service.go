// Package auth provides operator token and API key verification for
// the service's protected endpoints.
package auth

import (
	"context"
	"time"
)

// JWTService defines operations for managing operator JWT tokens.
// Operator tokens gate the admin endpoints (queue clear and drain).
type JWTService interface {
	// GenerateToken creates a signed operator token for the given subject.
	// Returns the token string or an error if signing fails.
	GenerateToken(ctx context.Context, subject string) (string, error)

	// ValidateToken validates the provided token string and extracts the
	// claims. Returns an error if validation fails (expired, invalid
	// signature, wrong token type, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the validated contents of an operator token.
type Claims struct {
	// Subject identifies the operator the token was issued to.
	Subject string

	// TokenType is always "ops" for valid operator tokens. Used to
	// prevent token misuse across different contexts.
	TokenType string

	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}
