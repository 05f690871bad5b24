// Package common defines shared constants and sentinel errors used across
// client layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Validation errors, surfaced synchronously to the caller.
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrNoRefreshToken      = errors.New("no refresh token available")
	ErrUnsupportedLanguage = errors.New("language is not supported")

	// Terminal session error after a failed refresh.
	ErrAuthExpired = errors.New("authentication expired, please log in again")

	// The server answered 2xx without the fields the flow needs.
	ErrInvalidResponse = errors.New("invalid response from server")
)
