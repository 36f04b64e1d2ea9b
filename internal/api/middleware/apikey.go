package middleware

import (
	"net/http"

	"github.com/visionsmith/argus-api/internal/api/shared"
	"github.com/visionsmith/argus-api/internal/service/auth"
)

// apiKeyHeader is the header clients present their API key in.
const apiKeyHeader = "X-API-Key"

// APIKeyMiddleware gates the classification endpoints behind a shared
// API key.
type APIKeyMiddleware struct {
	verifier auth.APIKeyVerifier
}

// NewAPIKeyMiddleware creates a new APIKeyMiddleware with the given verifier.
func NewAPIKeyMiddleware(verifier auth.APIKeyVerifier) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		verifier: verifier,
	}
}

// Require rejects requests whose X-API-Key header is absent or does not
// verify against the configured hash.
func (m *APIKeyMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "API key required")
			return
		}

		if err := m.verifier.Verify(key); err != nil {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
