package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/visionsmith/argus-api/internal/api/shared"
	"github.com/visionsmith/argus-api/internal/service/auth"
)

// fakeJWTService returns canned claims or a canned error from ValidateToken.
type fakeJWTService struct {
	claims      *auth.Claims
	validateErr error
}

func (f *fakeJWTService) GenerateToken(_ context.Context, _ string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeJWTService) ValidateToken(_ context.Context, _ string) (*auth.Claims, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return f.claims, nil
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		authHeader       string
		validateErr      error
		claims           *auth.Claims
		expectedStatus   int
		expectedOperator string
	}{
		{
			name:             "valid token",
			authHeader:       "Bearer valid-token",
			claims:           &auth.Claims{Subject: "ops-alice", TokenType: "ops"},
			expectedStatus:   http.StatusOK,
			expectedOperator: "ops-alice",
		},
		{
			name:           "missing auth header",
			authHeader:     "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid auth format",
			authHeader:     "InvalidFormat",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong scheme",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "expired token",
			authHeader:     "Bearer expired-token",
			validateErr:    auth.ErrExpiredToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid token",
			authHeader:     "Bearer invalid-token",
			validateErr:    auth.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong token type",
			authHeader:     "Bearer refresh-token",
			validateErr:    auth.ErrWrongTokenType,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unexpected validation error",
			authHeader:     "Bearer broken-token",
			validateErr:    errors.New("keystore unavailable"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			jwtService := &fakeJWTService{
				claims:      tt.claims,
				validateErr: tt.validateErr,
			}
			middleware := NewAuthMiddleware(jwtService)

			var capturedOperator string
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if operator, ok := GetOperator(r); ok {
					capturedOperator = operator
				}
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/admin/queue/clear", nil)
			if tt.authHeader != "" {
				req.Header.Add("Authorization", tt.authHeader)
			}
			recorder := httptest.NewRecorder()

			middleware.Authenticate(nextHandler).ServeHTTP(recorder, req)

			assert.Equal(t, tt.expectedStatus, recorder.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedOperator, capturedOperator)
			}
		})
	}
}

func TestGetOperator(t *testing.T) {
	t.Parallel()

	t.Run("context with operator", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := context.WithValue(req.Context(), shared.OperatorContextKey, "ops-bob")
		req = req.WithContext(ctx)

		operator, ok := GetOperator(req)
		assert.True(t, ok)
		assert.Equal(t, "ops-bob", operator)
	})

	t.Run("context without operator", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)

		operator, ok := GetOperator(req)
		assert.False(t, ok)
		assert.Empty(t, operator)
	})
}
