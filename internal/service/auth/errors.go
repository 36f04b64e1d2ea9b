package auth

import "errors"

var (
	// ErrInvalidToken covers malformed tokens and signature mismatches.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token's expiry has passed.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates an nbf claim in the future.
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrWrongTokenType indicates a structurally valid token that is
	// not an operator token.
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrInvalidAPIKey indicates the presented key does not match the
	// configured hash.
	ErrInvalidAPIKey = errors.New("invalid API key")
)
