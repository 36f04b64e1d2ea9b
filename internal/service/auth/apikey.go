package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyVerifier defines the interface for checking presented API keys.
type APIKeyVerifier interface {
	// Verify checks a presented key. Returns nil on success, or
	// ErrInvalidAPIKey on mismatch.
	Verify(presented string) error
}

// BcryptAPIKeyVerifier implements APIKeyVerifier against a single
// bcrypt hash from configuration. Because a bcrypt compare costs tens
// of milliseconds, the SHA-256 of the last successfully verified key is
// memoized so steady-state requests pay one hash, not one bcrypt run.
type BcryptAPIKeyVerifier struct {
	hash []byte

	mu       sync.RWMutex
	knownSum [sha256.Size]byte
	hasKnown bool
}

// NewBcryptAPIKeyVerifier creates a verifier for the given bcrypt hash.
// The hash is validated eagerly so a malformed config fails at startup
// rather than on the first request.
func NewBcryptAPIKeyVerifier(hash string) (*BcryptAPIKeyVerifier, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid API key hash: %w", err)
	}
	return &BcryptAPIKeyVerifier{hash: []byte(hash)}, nil
}

// Ensure BcryptAPIKeyVerifier implements APIKeyVerifier
var _ APIKeyVerifier = (*BcryptAPIKeyVerifier)(nil)

// Verify implements APIKeyVerifier.
func (v *BcryptAPIKeyVerifier) Verify(presented string) error {
	if presented == "" {
		return ErrInvalidAPIKey
	}

	sum := sha256.Sum256([]byte(presented))

	v.mu.RLock()
	if v.hasKnown && subtle.ConstantTimeCompare(sum[:], v.knownSum[:]) == 1 {
		v.mu.RUnlock()
		return nil
	}
	v.mu.RUnlock()

	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(presented)); err != nil {
		return ErrInvalidAPIKey
	}

	v.mu.Lock()
	v.knownSum = sum
	v.hasKnown = true
	v.mu.Unlock()
	return nil
}
