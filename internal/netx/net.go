// Package netx holds small network helpers shared by client transports.
package netx

import (
	"fmt"
	"net/url"
	"strings"
)

// WebSocketURL maps an http(s) or ws(s) origin to its ws(s) form and
// appends path below any existing base path.
func WebSocketURL(origin, path string) (*url.URL, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", origin, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("invalid url %q: unsupported scheme", origin)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid url %q: missing host", origin)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u, nil
}
