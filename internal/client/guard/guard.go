// Package guard decides whether a view may be entered and where to send
// the user otherwise.
package guard

import (
	"context"

	"github.com/dmitrijs2005/invoiceclient/internal/client/client"
	"github.com/dmitrijs2005/invoiceclient/internal/common"
)

// Session is the part of the session state the guards consult.
type Session interface {
	IsAuthenticated() bool
	InitializeAuth(ctx context.Context) bool
}

// Decision is the outcome of a guard. A zero Redirect with Allow false
// simply blocks.
type Decision struct {
	Allow    bool
	Redirect string
}

var allow = Decision{Allow: true}

func redirect(path string) Decision { return Decision{Redirect: path} }

type Guard func(ctx context.Context) Decision

// RequireAuth lets authenticated users through. Otherwise it tries to
// restore a stored session and waits for the result before deciding.
func RequireAuth(s Session) Guard {
	return func(ctx context.Context) Decision {
		if s.IsAuthenticated() {
			return allow
		}
		if s.InitializeAuth(ctx) && s.IsAuthenticated() {
			return allow
		}
		return redirect(common.LoginPath)
	}
}

// RequireGuest keeps signed-in users away from guest-only views.
func RequireGuest(s Session) Guard {
	return func(context.Context) Decision {
		if s.IsAuthenticated() {
			return redirect(common.DashboardPath)
		}
		return allow
	}
}

// Apply runs guards in order and stops at the first one that does not
// allow entry, navigating to its redirect when it has one.
func Apply(ctx context.Context, nav client.Navigator, guards ...Guard) Decision {
	for _, g := range guards {
		d := g(ctx)
		if d.Allow {
			continue
		}
		if d.Redirect != "" && nav != nil {
			nav.Navigate(ctx, d.Redirect)
		}
		return d
	}
	return allow
}
