package cli

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/invoiceclient/internal/client/models"
	"github.com/dmitrijs2005/invoiceclient/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

func (a *App) prompt(label string) (string, error) {
	return getSimpleText(a.reader, label, a.out)
}

// login signs in. The password is wiped once sent.
func (a *App) login(ctx context.Context, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		u, err := a.prompt("Enter username or email")
		if err != nil {
			return err
		}
		username = u
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res := a.session.Login(ctx, username, string(password))
	if !res.Success {
		fmt.Fprintln(a.out, "Login failed:", res.Error)
		return nil
	}

	fmt.Fprintf(a.out, "Welcome, %s\n", a.displayName())
	a.afterLogin(ctx)
	return nil
}

func (a *App) register(ctx context.Context, _ []string) error {
	var reg models.Registration
	fields := []struct {
		label string
		dst   *string
	}{
		{"Enter username", &reg.Username},
		{"Enter email", &reg.Email},
		{"Enter first name", &reg.FirstName},
		{"Enter last name", &reg.LastName},
		{"Enter company name (optional)", &reg.CompanyName},
	}
	for _, f := range fields {
		v, err := a.prompt(f.label)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	confirm, err := getPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		fmt.Fprintln(a.out, "Passwords do not match")
		return nil
	}
	reg.Password = string(password)

	res := a.session.Register(ctx, reg)
	if !res.Success {
		fmt.Fprintln(a.out, "Registration failed:", res.Error)
		return nil
	}

	fmt.Fprintf(a.out, "Welcome, %s\n", a.displayName())
	a.afterLogin(ctx)
	return nil
}

func (a *App) logout(ctx context.Context, _ []string) error {
	a.endSession()
	a.session.Logout(ctx)
	a.nav.enter(common.LoginPath)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) whoami(_ context.Context, _ []string) error {
	u := a.session.User()
	if u == nil {
		return common.ErrNotAuthenticated
	}
	fmt.Fprintf(a.out, "%s <%s>\n", u.Username, u.Email)
	if name := u.FullName(); name != "" {
		fmt.Fprintln(a.out, "Name:", name)
	}
	fmt.Fprintln(a.out, "Role:", u.Role)
	if exp, ok := a.session.AccessTokenExpiresAt(); ok {
		fmt.Fprintf(a.out, "Access token expires: %s (in %s)\n",
			exp.Local().Format(time.DateTime), time.Until(exp).Round(time.Second))
	}
	return nil
}

// profile prints the profile, or updates it from inline name=value pairs
// or from an interactive "edit" session.
func (a *App) profile(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printProfile(a.session.User())
		return nil
	}

	var (
		changes map[string]any
		err     error
	)
	if len(args) == 1 && args[0] == "edit" {
		changes, err = GetFields(a.reader, "Enter profile fields to change", a.out)
	} else {
		changes, err = ParseFields(args)
	}
	if err != nil {
		fmt.Fprintln(a.out, err)
		return errUsage
	}
	if len(changes) == 0 {
		fmt.Fprintln(a.out, "Nothing to update")
		return nil
	}

	res, err := a.session.UpdateProfile(ctx, changes)
	if err != nil {
		return err
	}
	if !res.Success {
		fmt.Fprintln(a.out, "Profile update failed:", res.Error)
		return nil
	}
	fmt.Fprintln(a.out, "Profile updated")
	a.printProfile(res.User)
	return nil
}

func (a *App) printProfile(u *models.User) {
	if u == nil {
		return
	}
	rows := map[string]string{
		"username":         u.Username,
		"email":            u.Email,
		"first_name":       u.FirstName,
		"last_name":        u.LastName,
		"company_name":     u.CompanyName,
		"company_address":  u.CompanyAddress,
		"company_phone":    u.CompanyPhone,
		"company_website":  u.CompanyWebsite,
		"default_currency": u.DefaultCurrency,
		"invoice_prefix":   u.InvoicePrefix,
		"timezone":         u.Timezone,
	}
	keys := make([]string, 0, len(rows))
	for k, v := range rows {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(a.out, "  %-18s %s\n", k, rows[k])
	}
}

func (a *App) passwd(ctx context.Context, _ []string) error {
	current, err := getPassword("Enter current password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)
	next, err := getPassword("Enter new password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)
	confirm, err := getPassword("Repeat new password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(next, confirm) {
		fmt.Fprintln(a.out, "Passwords do not match")
		return nil
	}

	res, err := a.session.ChangePassword(ctx, string(current), string(next))
	if err != nil {
		return err
	}
	if !res.Success {
		fmt.Fprintln(a.out, "Password change failed:", res.Error)
		return nil
	}
	fmt.Fprintln(a.out, res.Message)
	return nil
}
