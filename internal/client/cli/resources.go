package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/invoiceclient/internal/client/client"
	"github.com/dmitrijs2005/invoiceclient/internal/client/models"
)

const listPerPage = 20

func (a *App) dashboard(ctx context.Context, args []string) error {
	params := client.Params{}
	if len(args) > 0 {
		days, err := strconv.Atoi(args[0])
		if err != nil || days < 1 {
			return errUsage
		}
		params["days"] = days
	}

	d, err := a.api.Reports().Dashboard(ctx, params)
	if err != nil {
		return err
	}

	cur := a.userCurrency()
	s := d.Summary
	fmt.Fprintf(a.out, "%s (last %d days)\n", a.langs.GetText("dashboard", "Dashboard"), s.Days)
	fmt.Fprintf(a.out, "  %-10s %d\n", a.langs.GetText("invoices", "Invoices"), s.TotalInvoices)
	fmt.Fprintf(a.out, "  %-10s %s\n", "total", a.langs.FormatCurrency(ctx, s.TotalAmount, cur))
	fmt.Fprintf(a.out, "  %-10s %s\n", "paid", a.langs.FormatCurrency(ctx, s.TotalPaid, cur))
	fmt.Fprintf(a.out, "  %-10s %s\n", "pending", a.langs.FormatCurrency(ctx, s.TotalPending, cur))

	if len(d.StatusCounts) > 0 {
		statuses := make([]string, 0, len(d.StatusCounts))
		for st := range d.StatusCounts {
			statuses = append(statuses, st)
		}
		sort.Strings(statuses)
		parts := make([]string, 0, len(statuses))
		for _, st := range statuses {
			parts = append(parts, fmt.Sprintf("%s=%d", st, d.StatusCounts[st]))
		}
		fmt.Fprintln(a.out, "  status    ", strings.Join(parts, " "))
	}
	return nil
}

func pageArg(args []string) (int, []string, error) {
	if len(args) == 0 {
		return 1, nil, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 1, args, nil
	}
	if n < 1 {
		return 0, nil, errUsage
	}
	return n, args[1:], nil
}

func (a *App) invoices(ctx context.Context, args []string) error {
	page, rest, err := pageArg(args)
	if err != nil {
		return err
	}
	params := client.Params{"page": page, "per_page": listPerPage}
	if len(rest) > 0 {
		params["status"] = rest[0]
	}

	resp, err := a.api.Invoices().List(ctx, params)
	if err != nil {
		return err
	}
	if len(resp.Invoices) == 0 {
		fmt.Fprintln(a.out, "No invoices")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tCLIENT\tSTATUS\tDUE\tTOTAL")
	for _, inv := range resp.Invoices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f %s\n",
			inv.ID, inv.InvoiceNumber, clientName(inv.Client), inv.Status, inv.DueDate, inv.TotalAmount, inv.Currency)
	}
	_ = tw.Flush()
	printPagination(a, resp.Pagination)
	return nil
}

func clientName(c *models.Client) string {
	if c == nil {
		return "-"
	}
	return c.CompanyName
}

func printPagination(a *App, p models.Pagination) {
	if p.Pages > 1 {
		fmt.Fprintf(a.out, "page %d of %d (%d total)\n", p.Page, p.Pages, p.Total)
	}
}

func (a *App) invoice(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	inv, err := a.api.Invoices().Get(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Invoice %s (%s)\n", inv.InvoiceNumber, inv.Status)
	fmt.Fprintf(a.out, "  client   %s\n", clientName(inv.Client))
	if inv.IssueDate != "" {
		fmt.Fprintf(a.out, "  issued   %s\n", inv.IssueDate)
	}
	if inv.DueDate != "" {
		fmt.Fprintf(a.out, "  due      %s\n", inv.DueDate)
	}

	if len(inv.Items) > 0 {
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  DESCRIPTION\tQTY\tPRICE\tTOTAL")
		for _, it := range inv.Items {
			fmt.Fprintf(tw, "  %s\t%g\t%.2f\t%.2f\n", it.Description, it.Quantity, it.UnitPrice, it.Total)
		}
		_ = tw.Flush()
	}

	cur := inv.Currency
	fmt.Fprintf(a.out, "  subtotal %s\n", a.langs.FormatCurrency(ctx, inv.Subtotal, cur))
	fmt.Fprintf(a.out, "  tax      %s\n", a.langs.FormatCurrency(ctx, inv.TaxTotal, cur))
	fmt.Fprintf(a.out, "  total    %s\n", a.langs.FormatCurrency(ctx, inv.TotalAmount, cur))
	fmt.Fprintf(a.out, "  balance  %s\n", a.langs.FormatCurrency(ctx, inv.BalanceDue, cur))
	return nil
}

func (a *App) pdf(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	path, err := a.api.Invoices().DownloadPDF(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Saved", path)
	return nil
}

func (a *App) clients(ctx context.Context, args []string) error {
	page, rest, err := pageArg(args)
	if err != nil {
		return err
	}
	params := client.Params{"page": page, "per_page": listPerPage}
	if len(rest) > 0 {
		params["search"] = strings.Join(rest, " ")
	}

	resp, err := a.api.Clients().List(ctx, params)
	if err != nil {
		return err
	}
	if len(resp.Clients) == 0 {
		fmt.Fprintln(a.out, "No clients")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMPANY\tCONTACT\tEMAIL\tTAGS")
	for _, c := range resp.Clients {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.CompanyName, c.ContactPerson, c.Email, strings.Join(c.Tags, ","))
	}
	_ = tw.Flush()
	printPagination(a, resp.Pagination)
	return nil
}
