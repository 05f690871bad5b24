package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

func (a *App) lang(ctx context.Context, args []string) error {
	if len(args) == 0 {
		info, _ := a.langs.CurrentLanguageInfo()
		dir := "ltr"
		if a.langs.IsRTL() {
			dir = "rtl"
		}
		fmt.Fprintf(a.out, "%s %s (%s, %s)\n", info.Flag, info.Name, a.langs.CurrentLanguage(), dir)
		return nil
	}

	if err := a.langs.SetLanguage(ctx, strings.ToLower(args[0])); err != nil {
		return err
	}
	info, _ := a.langs.CurrentLanguageInfo()
	fmt.Fprintf(a.out, "Language set to %s %s\n", info.Flag, info.Name)
	return nil
}

func (a *App) langsList(ctx context.Context, _ []string) error {
	_ = a.langs.GetSupportedLanguages(ctx)

	current := a.langs.CurrentLanguage()
	for _, l := range a.langs.SupportedLanguages() {
		mark := " "
		if l.Code == current {
			mark = "*"
		}
		fmt.Fprintf(a.out, "%s %s %-3s %s\n", mark, l.Flag, l.Code, l.Name)
	}
	return nil
}

func (a *App) text(_ context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	fmt.Fprintln(a.out, a.langs.GetText(args[0], strings.Join(args[1:], " ")))
	return nil
}

func (a *App) money(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errUsage
	}
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return errUsage
	}
	code := a.userCurrency()
	if len(args) == 2 {
		code = strings.ToUpper(args[1])
	}
	fmt.Fprintln(a.out, a.langs.FormatCurrency(ctx, amount, code))
	return nil
}

func (a *App) userCurrency() string {
	if u := a.session.User(); u != nil && u.DefaultCurrency != "" {
		return u.DefaultCurrency
	}
	return "USD"
}

func (a *App) date(ctx context.Context, args []string) error {
	t := time.Now()
	formatType := "long"
	for _, arg := range args {
		switch arg {
		case "long", "short":
			formatType = arg
		case "today":
		default:
			d, err := time.Parse(time.DateOnly, arg)
			if err != nil {
				return errUsage
			}
			t = d
		}
	}
	fmt.Fprintln(a.out, a.langs.FormatDate(ctx, t, formatType))
	return nil
}

func (a *App) tax(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	rules := a.langs.GetTaxRules(ctx, args[0])
	if rules == nil {
		fmt.Fprintln(a.out, "No tax rules for", strings.ToUpper(args[0]))
		return nil
	}
	b, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(b))
	return nil
}
