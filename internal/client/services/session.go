// Package services holds the client-side state containers: the session,
// the notification feed and the localization state. Each mirrors server
// responses into memory and, where needed, into durable storage.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/invoiceclient/internal/client/client"
	"github.com/dmitrijs2005/invoiceclient/internal/client/models"
	"github.com/dmitrijs2005/invoiceclient/internal/client/storage"
	"github.com/dmitrijs2005/invoiceclient/internal/common"
	"github.com/dmitrijs2005/invoiceclient/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

const msgInvalidResponse = "Invalid response from server"

// AuthTransport performs a single authenticated call without any refresh
// handling. *client.HTTPClient satisfies it.
type AuthTransport interface {
	CallWithToken(ctx context.Context, method, path, token string, body, out any) error
}

// Result is the outcome of a user-initiated session flow. Transport
// failures are reported here rather than as errors.
type Result struct {
	Success bool
	User    *models.User
	Message string
	Error   string
}

// Session owns the signed-in user and the token pair. Tokens are mirrored
// into storage under access_token and refresh_token.
type Session struct {
	api   AuthTransport
	store storage.Store
	log   logging.Logger

	mu           sync.RWMutex
	user         *models.User
	accessToken  string
	refreshToken string
	lastError    string

	loading atomic.Bool
}

var _ client.TokenSource = (*Session)(nil)

func NewSession(api AuthTransport, store storage.Store, log logging.Logger) *Session {
	return &Session{api: api, store: store, log: log}
}

// IsAuthenticated is true iff both a user and an access token are held.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.accessToken != ""
}

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.IsAdmin()
}

func (s *Session) FullName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.FullName()
}

// User returns a copy of the current user, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// UserID returns the current user's id or "".
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// LastError is the message of the last failed flow, cleared when a new
// flow starts.
func (s *Session) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *Session) Loading() bool {
	return s.loading.Load()
}

// AccessTokenExpiresAt reads the exp claim of the access token without
// verifying its signature. ok is false for opaque or expiry-less tokens.
func (s *Session) AccessTokenExpiresAt() (time.Time, bool) {
	token := s.AccessToken()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (s *Session) SetUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

// SetTokens replaces both tokens in memory and writes them to storage in
// one transaction.
func (s *Session) SetTokens(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	s.accessToken = access
	s.refreshToken = refresh
	s.mu.Unlock()

	return s.store.SetMany(ctx, map[string]string{
		common.KeyAccessToken:  access,
		common.KeyRefreshToken: refresh,
	})
}

// ClearTokens drops both tokens from memory and storage.
func (s *Session) ClearTokens(ctx context.Context) error {
	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.mu.Unlock()

	return s.store.Delete(ctx, common.KeyAccessToken, common.KeyRefreshToken)
}

// LoadStoredTokens restores the token pair from storage. Both keys must be
// present.
func (s *Session) LoadStoredTokens(ctx context.Context) bool {
	access, err := s.store.Get(ctx, common.KeyAccessToken)
	if err != nil {
		s.log.Warn(ctx, "cannot read stored access token", "error", err)
		return false
	}
	refresh, err := s.store.Get(ctx, common.KeyRefreshToken)
	if err != nil {
		s.log.Warn(ctx, "cannot read stored refresh token", "error", err)
		return false
	}
	if access == "" || refresh == "" {
		return false
	}

	s.mu.Lock()
	s.accessToken = access
	s.refreshToken = refresh
	s.mu.Unlock()
	return true
}

func (s *Session) begin() {
	s.loading.Store(true)
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
}

func (s *Session) fail(msg string) Result {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
	return Result{Success: false, Error: msg}
}

// Login exchanges credentials for a token pair. username may also be the
// account e-mail.
func (s *Session) Login(ctx context.Context, username, password string) Result {
	body := map[string]string{"username": username, "password": password}
	return s.authenticate(ctx, "/auth/login", body, "Login failed")
}

// Register creates an account and signs it in.
func (s *Session) Register(ctx context.Context, reg models.Registration) Result {
	return s.authenticate(ctx, "/auth/register", reg, "Registration failed")
}

func (s *Session) authenticate(ctx context.Context, path string, body any, fallback string) Result {
	s.begin()
	defer s.loading.Store(false)

	var resp models.AuthResponse
	if err := s.api.CallWithToken(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		s.log.Warn(ctx, "authentication failed", "endpoint", path, "error", err)
		return s.fail(errorText(err, fallback))
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return s.fail(msgInvalidResponse)
	}

	if err := s.SetTokens(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
		s.log.Error(ctx, "cannot persist tokens", "error", err)
	}
	s.SetUser(resp.User)

	return Result{Success: true, User: resp.User, Message: resp.Message}
}

// Logout tells the server when a token is held, then always clears the
// user and both tokens. Server and storage failures are only logged.
func (s *Session) Logout(ctx context.Context) {
	if token := s.AccessToken(); token != "" {
		if err := s.api.CallWithToken(ctx, http.MethodPost, "/auth/logout", token, nil, nil); err != nil {
			s.log.Warn(ctx, "logout request failed", "endpoint", "/auth/logout", "error", err)
		}
	}

	s.SetUser(nil)
	if err := s.ClearTokens(ctx); err != nil {
		s.log.Error(ctx, "cannot clear stored tokens", "error", err)
	}
}

// RefreshAccessToken trades the refresh token for a new access token. The
// refresh token itself is kept. Any failure other than a missing refresh
// token logs the session out.
func (s *Session) RefreshAccessToken(ctx context.Context) (string, error) {
	refresh := s.RefreshToken()
	if refresh == "" {
		return "", common.ErrNoRefreshToken
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	err := s.api.CallWithToken(ctx, http.MethodPost, "/auth/refresh", refresh, nil, &resp)
	if err == nil && resp.AccessToken == "" {
		err = fmt.Errorf("failed to refresh token: %w", common.ErrInvalidResponse)
	}
	if err != nil {
		s.log.Warn(ctx, "token refresh failed", "endpoint", "/auth/refresh", "error", err)
		s.Logout(ctx)
		return "", err
	}

	s.mu.Lock()
	s.accessToken = resp.AccessToken
	s.mu.Unlock()

	if err := s.store.Set(ctx, common.KeyAccessToken, resp.AccessToken); err != nil {
		s.log.Error(ctx, "cannot persist access token", "error", err)
	}
	return resp.AccessToken, nil
}

// UpdateProfile sends the changed profile fields and stores the returned
// user.
func (s *Session) UpdateProfile(ctx context.Context, fields map[string]any) (Result, error) {
	token := s.AccessToken()
	if token == "" {
		return Result{}, common.ErrNotAuthenticated
	}

	s.begin()
	defer s.loading.Store(false)

	var resp struct {
		User *models.User `json:"user"`
	}
	if err := s.api.CallWithToken(ctx, http.MethodPut, "/auth/profile", token, fields, &resp); err != nil {
		s.log.Warn(ctx, "profile update failed", "endpoint", "/auth/profile", "error", err)
		return s.fail(errorText(err, "Profile update failed")), nil
	}
	if resp.User == nil {
		return s.fail(msgInvalidResponse), nil
	}

	s.SetUser(resp.User)
	return Result{Success: true, User: resp.User}, nil
}

// ChangePassword returns the server's confirmation message on success.
func (s *Session) ChangePassword(ctx context.Context, current, next string) (Result, error) {
	token := s.AccessToken()
	if token == "" {
		return Result{}, common.ErrNotAuthenticated
	}

	s.begin()
	defer s.loading.Store(false)

	body := map[string]string{"current_password": current, "new_password": next}
	var resp struct {
		Message string `json:"message"`
	}
	if err := s.api.CallWithToken(ctx, http.MethodPost, "/auth/change-password", token, body, &resp); err != nil {
		s.log.Warn(ctx, "password change failed", "endpoint", "/auth/change-password", "error", err)
		return s.fail(errorText(err, "Password change failed")), nil
	}
	return Result{Success: true, Message: resp.Message}, nil
}

// InitializeAuth restores a stored session: it loads the token pair and
// fetches the profile. A failed fetch, or a reply without a user, clears
// the stored tokens.
func (s *Session) InitializeAuth(ctx context.Context) bool {
	if !s.LoadStoredTokens(ctx) {
		return false
	}

	var resp struct {
		User *models.User `json:"user"`
	}
	err := s.api.CallWithToken(ctx, http.MethodGet, "/auth/profile", s.AccessToken(), nil, &resp)
	if err == nil && resp.User == nil {
		err = common.ErrInvalidResponse
	}
	if err != nil {
		s.log.Info(ctx, "stored session rejected", "endpoint", "/auth/profile", "error", err)
		if cerr := s.ClearTokens(ctx); cerr != nil {
			s.log.Error(ctx, "cannot clear stored tokens", "error", cerr)
		}
		return false
	}

	s.SetUser(resp.User)
	return true
}

// errorText prefers the server's message, then the error text, then
// fallback.
func errorText(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}
