package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/visionsmith/argus-api/internal/service/auth"
)

// fakeAPIKeyVerifier accepts exactly one key.
type fakeAPIKeyVerifier struct {
	accepted string
}

func (f *fakeAPIKeyVerifier) Verify(presented string) error {
	if presented == f.accepted {
		return nil
	}
	return auth.ErrInvalidAPIKey
}

func TestAPIKeyMiddleware_Require(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		key            string
		expectedStatus int
	}{
		{
			name:           "valid key",
			key:            "client-key",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing key",
			key:            "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong key",
			key:            "not-the-key",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			middleware := NewAPIKeyMiddleware(&fakeAPIKeyVerifier{accepted: "client-key"})

			nextCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/classify", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			recorder := httptest.NewRecorder()

			middleware.Require(nextHandler).ServeHTTP(recorder, req)

			assert.Equal(t, tt.expectedStatus, recorder.Code)
			assert.Equal(t, tt.expectedStatus == http.StatusOK, nextCalled)
		})
	}
}
