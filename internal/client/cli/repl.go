package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/invoiceclient/internal/client/client"
	"github.com/dmitrijs2005/invoiceclient/internal/client/guard"
	"github.com/dmitrijs2005/invoiceclient/internal/common"
)

// access selects the guards a command runs behind.
type access int

const (
	public access = iota
	authOnly
	guestOnly
)

type command struct {
	name   string
	usage  string
	help   string
	route  string
	access access
	run    func(ctx context.Context, args []string) error
}

// usageError makes the REPL print the command's usage line.
type usageError struct{}

func (usageError) Error() string { return "invalid arguments" }

var errUsage = usageError{}

func (a *App) commands() []command {
	return []command{
		{name: "login", usage: "login [username]", help: "sign in", route: common.LoginPath, access: guestOnly, run: a.login},
		{name: "register", usage: "register", help: "create an account", route: "/register", access: guestOnly, run: a.register},
		{name: "logout", usage: "logout", help: "sign out", access: authOnly, run: a.logout},
		{name: "whoami", usage: "whoami", help: "show the signed-in user", access: authOnly, run: a.whoami},
		{name: "profile", usage: "profile [edit | name=value...]", help: "show or update the profile", route: "/profile", access: authOnly, run: a.profile},
		{name: "passwd", usage: "passwd", help: "change the password", route: "/profile", access: authOnly, run: a.passwd},

		{name: "notifications", usage: "notifications [page] [unread]", help: "list notifications", route: "/notifications", access: authOnly, run: a.notifications},
		{name: "unread", usage: "unread", help: "show the unread count", access: authOnly, run: a.unread},
		{name: "read", usage: "read <id>", help: "mark a notification as read", access: authOnly, run: a.markRead},
		{name: "readall", usage: "readall", help: "mark all notifications as read", access: authOnly, run: a.markAllRead},
		{name: "delete", usage: "delete <id>", help: "delete a notification", access: authOnly, run: a.deleteNotification},
		{name: "live", usage: "live [on|off]", help: "show or toggle live notifications", access: authOnly, run: a.live},

		{name: "lang", usage: "lang [code]", help: "show or switch the language", access: public, run: a.lang},
		{name: "langs", usage: "langs", help: "list supported languages", access: public, run: a.langsList},
		{name: "text", usage: "text <key> [fallback]", help: "translate a key", access: public, run: a.text},
		{name: "money", usage: "money <amount> [currency]", help: "format an amount", access: public, run: a.money},
		{name: "date", usage: "date [YYYY-MM-DD] [long|short]", help: "format a date", access: public, run: a.date},
		{name: "tax", usage: "tax <country>", help: "show tax rules of a country", access: public, run: a.tax},

		{name: "dashboard", usage: "dashboard [days]", help: "show the dashboard", route: common.DashboardPath, access: authOnly, run: a.dashboard},
		{name: "invoices", usage: "invoices [page] [status]", help: "list invoices", route: "/invoices", access: authOnly, run: a.invoices},
		{name: "invoice", usage: "invoice <id>", help: "show an invoice", route: "/invoices", access: authOnly, run: a.invoice},
		{name: "pdf", usage: "pdf <id>", help: "download an invoice PDF", route: "/invoices", access: authOnly, run: a.pdf},
		{name: "clients", usage: "clients [page] [search]", help: "list clients", route: "/clients", access: authOnly, run: a.clients},
	}
}

func (a *App) lookup(name string) (command, bool) {
	for _, c := range a.commands() {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (a *App) guardsFor(c command) []guard.Guard {
	switch c.access {
	case authOnly:
		return []guard.Guard{guard.RequireAuth(a.session)}
	case guestOnly:
		return []guard.Guard{guard.RequireGuest(a.session)}
	default:
		return nil
	}
}

// status is shown in the prompt, e.g. "(alice en live 3)".
func (a *App) status() string {
	parts := []string{}
	if a.session.IsAuthenticated() {
		if u := a.session.User(); u != nil {
			parts = append(parts, u.Username)
		}
	}
	parts = append(parts, a.langs.CurrentLanguage())
	if a.feed.Connected() {
		parts = append(parts, "live")
	}
	if n := a.feed.UnreadCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (a *App) readLine() (string, bool) {
	line, err := a.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", false
	}
	return strings.TrimRight(line, "\r\n"), true
}

// runREPL reads commands until EOF, "exit" or "quit". Command errors are
// printed and never end the loop.
func (a *App) runREPL(ctx context.Context) {
	for ctx.Err() == nil {
		fmt.Fprintf(a.out, "invoice %s> ", a.status())
		line, ok := a.readLine()
		if !ok {
			fmt.Fprintln(a.out)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		name, args := parts[0], parts[1:]
		switch name {
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		case "help":
			a.printHelp()
			continue
		}

		cmd, ok := a.lookup(name)
		if !ok {
			fmt.Fprintln(a.out, "Unknown command:", name)
			continue
		}
		a.exec(ctx, cmd, args)
	}
}

func (a *App) exec(ctx context.Context, cmd command, args []string) {
	if d := guard.Apply(ctx, a.nav, a.guardsFor(cmd)...); !d.Allow {
		return
	}
	if cmd.route != "" {
		a.nav.enter(cmd.route)
	}

	err := cmd.run(ctx, args)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintln(a.out, "Usage:", cmd.usage)
	case errors.Is(err, common.ErrAuthExpired):
		a.endSession()
		fmt.Fprintln(a.out, "Session expired, please log in again")
	default:
		fmt.Fprintln(a.out, "Error:", describe(err))
		if !a.session.IsAuthenticated() && a.feed.Connected() {
			a.endSession()
		}
	}
}

func describe(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func (a *App) printHelp() {
	authed := a.session.IsAuthenticated()
	fmt.Fprintln(a.out, "Available commands:")
	for _, c := range a.commands() {
		if (c.access == authOnly && !authed) || (c.access == guestOnly && authed) {
			continue
		}
		fmt.Fprintf(a.out, "  %-32s %s\n", c.usage, c.help)
	}
	fmt.Fprintf(a.out, "  %-32s %s\n", "help", "show this list")
	fmt.Fprintf(a.out, "  %-32s %s\n", "exit | quit", "leave the program")
}
