// Package common contains shared constants and sentinel errors used across
// the invoice client packages.
package common

// Outbound request headers.
const (
	AuthorizationHeader = "Authorization"
	ContentTypeHeader   = "Content-Type"
	RequestIDHeader     = "X-Request-ID"

	BearerPrefix    = "Bearer "
	JSONContentType = "application/json"
)

// Durable storage keys. Values are stored as plain strings.
const (
	KeyAccessToken       = "access_token"
	KeyRefreshToken      = "refresh_token"
	KeyPreferredLanguage = "preferred_language"
)

// Navigation entry points used by redirects.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

const DefaultLanguage = "en"
