// Package client is the transport to the invoice REST API.
//
// # Overview
//
// HTTPClient sends JSON requests relative to a base URL and attaches the
// bearer token of its TokenSource (the session). A single attempt is
// exposed as Request, which returns an Outcome; on HTTP 401 it refreshes
// the access token and sets Outcome.NeedsRetry instead of retrying behind
// the caller's back. Do and the verb helpers honour NeedsRetry exactly
// once. When the refresh fails the session is logged out, the Navigator is
// sent to /login and common.ErrAuthExpired is returned.
//
// Concurrent 401s share one refresh call.
//
// # Error Handling
//
// Non-2xx answers become *APIError carrying the server's "error" message.
// APIError unwraps to ErrUnauthorized, ErrNotFound or ErrUnavailable so
// callers can use errors.Is. Transport errors are logged and returned
// unchanged.
//
// See Also
//
//   - Resources: Invoices, Clients, Payments, Reports
//   - Files:     UploadFile, DownloadFile, DirSaver
package client
