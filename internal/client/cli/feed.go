package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/invoiceclient/internal/client/models"
)

const notificationsPerPage = 20

func (a *App) notifications(ctx context.Context, args []string) error {
	page, unreadOnly := 1, false
	for _, arg := range args {
		if arg == "unread" {
			unreadOnly = true
			continue
		}
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return errUsage
		}
		page = n
	}

	resp, err := a.feed.FetchNotifications(ctx, page, notificationsPerPage, unreadOnly)
	if err != nil {
		return err
	}
	if len(resp.Notifications) == 0 {
		fmt.Fprintln(a.out, "No notifications")
		return nil
	}
	a.printNotifications(resp.Notifications)
	if p := resp.Pagination; p.Pages > 1 {
		fmt.Fprintf(a.out, "page %d of %d (%d total)\n", p.Page, p.Pages, p.Total)
	}
	return nil
}

func (a *App) printNotifications(items []models.Notification) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, n := range items {
		mark := " "
		if !n.IsRead {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, n.ID, n.Type, n.Title, n.CreatedAt)
	}
	_ = tw.Flush()
}

func (a *App) unread(ctx context.Context, _ []string) error {
	if err := a.feed.FetchUnreadCount(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d unread\n", a.feed.UnreadCount())
	return nil
}

func (a *App) markRead(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := a.feed.MarkAsRead(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Marked as read")
	return nil
}

func (a *App) markAllRead(ctx context.Context, _ []string) error {
	if err := a.feed.MarkAllAsRead(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "All notifications marked as read")
	return nil
}

func (a *App) deleteNotification(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := a.feed.DeleteNotification(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted")
	return nil
}

func (a *App) live(ctx context.Context, args []string) error {
	if len(args) == 0 {
		state := "off"
		if a.feed.Connected() {
			state = "on"
		}
		fmt.Fprintln(a.out, "Live notifications:", state)
		return nil
	}

	switch args[0] {
	case "on":
		if err := a.feed.InitializeSocket(ctx, a.session.UserID()); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Live notifications on")
	case "off":
		a.feed.DisconnectSocket()
		fmt.Fprintln(a.out, "Live notifications off")
	default:
		return errUsage
	}
	return nil
}
