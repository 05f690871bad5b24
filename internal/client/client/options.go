package client

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/invoiceclient/internal/logging"
)

// TokenSource supplies the bearer token and recovers from 401s. It is
// implemented by the session.
type TokenSource interface {
	AccessToken() string
	RefreshAccessToken(ctx context.Context) (string, error)
	Logout(ctx context.Context)
}

// Navigator moves the user to another route, e.g. /login after the
// session expired.
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

type NavigatorFunc func(ctx context.Context, path string)

func (f NavigatorFunc) Navigate(ctx context.Context, path string) { f(ctx, path) }

type Option func(*HTTPClient)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.hc = hc }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

func WithNavigator(n Navigator) Option {
	return func(c *HTTPClient) { c.nav = n }
}

func WithFileSaver(s FileSaver) Option {
	return func(c *HTTPClient) { c.saver = s }
}
