package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/invoiceclient/internal/client/client"
	"github.com/dmitrijs2005/invoiceclient/internal/client/models"
	"github.com/dmitrijs2005/invoiceclient/internal/client/push"
	"github.com/dmitrijs2005/invoiceclient/internal/logging"
)

const (
	// MaxNotifications caps the in-memory feed; older records are evicted.
	MaxNotifications = 100
	toastTimeout     = 5 * time.Second
)

// Push channel events.
const (
	eventNotification = "notification"
	eventUnreadCount  = "unread_count"
	eventJoin         = "join"
	eventMarkRead     = "mark_read"
	eventMarkAllRead  = "mark_all_read"
)

var ErrNoPushChannel = errors.New("push channel is not configured")

// RESTClient is the subset of *client.HTTPClient the state containers use.
type RESTClient interface {
	Get(ctx context.Context, path string, params client.Params, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Toaster shows a transient message at one of the levels info, success,
// warning or error.
type Toaster interface {
	Toast(level, title, message string, timeout time.Duration)
}

// PushChannel is the event transport behind the live feed. *push.Client
// satisfies it.
type PushChannel interface {
	On(event string, h push.Handler)
	Connect(ctx context.Context) error
	Emit(ctx context.Context, event string, payload any) error
	Connected() bool
	Close() error
}

// ChannelFactory builds a fresh, unconnected channel for userID.
type ChannelFactory func(userID string) (PushChannel, error)

// Notifications holds the notification feed and the unread counter. Fetch
// results and push events are applied one at a time under a single lock.
type Notifications struct {
	rest    RESTClient
	dial    ChannelFactory
	toaster Toaster
	log     logging.Logger

	mu        sync.Mutex
	items     []models.Notification
	unread    int
	loading   bool
	connected bool
	channel   PushChannel
	userID    string
}

// NewNotifications wires the feed. dial and toaster may be nil.
func NewNotifications(rest RESTClient, dial ChannelFactory, toaster Toaster, log logging.Logger) *Notifications {
	return &Notifications{rest: rest, dial: dial, toaster: toaster, log: log}
}

// Notifications returns a copy of the feed, newest first.
func (n *Notifications) Notifications() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.items...)
}

func (n *Notifications) filter(read bool) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.Notification
	for _, it := range n.items {
		if it.IsRead == read {
			out = append(out, it)
		}
	}
	return out
}

func (n *Notifications) Unread() []models.Notification { return n.filter(false) }

func (n *Notifications) Read() []models.Notification { return n.filter(true) }

func (n *Notifications) UnreadCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unread
}

func (n *Notifications) HasUnread() bool { return n.UnreadCount() > 0 }

func (n *Notifications) Connected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

func (n *Notifications) Loading() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loading
}

func (n *Notifications) setLoading(v bool) {
	n.mu.Lock()
	n.loading = v
	n.mu.Unlock()
}

// FetchNotifications loads one page. Page 1 replaces the feed, later pages
// are appended as they come.
func (n *Notifications) FetchNotifications(ctx context.Context, page, perPage int, unreadOnly bool) (*models.NotificationPage, error) {
	n.setLoading(true)
	defer n.setLoading(false)

	params := client.Params{"page": page, "per_page": perPage, "unread_only": unreadOnly}
	var resp models.NotificationPage
	if err := n.rest.Get(ctx, "/notifications", params, &resp); err != nil {
		n.log.Error(ctx, "error fetching notifications", "endpoint", "/notifications", "error", err)
		return nil, err
	}

	n.mu.Lock()
	if page <= 1 {
		n.items = append([]models.Notification(nil), resp.Notifications...)
	} else {
		n.items = append(n.items, resp.Notifications...)
	}
	n.mu.Unlock()

	return &resp, nil
}

// FetchUnreadCount overwrites the counter with the server's value.
func (n *Notifications) FetchUnreadCount(ctx context.Context) error {
	var resp models.UnreadCount
	if err := n.rest.Get(ctx, "/notifications/unread-count", nil, &resp); err != nil {
		n.log.Error(ctx, "error fetching unread count", "endpoint", "/notifications/unread-count", "error", err)
		return err
	}

	n.mu.Lock()
	n.unread = resp.UnreadCount
	n.mu.Unlock()
	return nil
}

func nowISO() *string {
	s := time.Now().UTC().Format(time.RFC3339)
	return &s
}

func (n *Notifications) MarkAsRead(ctx context.Context, id string) error {
	path := "/notifications/" + url.PathEscape(id) + "/read"
	if err := n.rest.Put(ctx, path, nil, nil); err != nil {
		n.log.Error(ctx, "error marking notification as read", "endpoint", path, "error", err)
		return err
	}

	n.mu.Lock()
	for i := range n.items {
		if n.items[i].ID == id {
			n.items[i].IsRead = true
			n.items[i].ReadAt = nowISO()
			break
		}
	}
	if n.unread > 0 {
		n.unread--
	}
	ch, userID := n.channel, n.userID
	n.mu.Unlock()

	n.emit(ctx, ch, eventMarkRead, map[string]string{"notification_id": id, "user_id": userID})
	return nil
}

func (n *Notifications) MarkAllAsRead(ctx context.Context) error {
	const path = "/notifications/mark-all-read"
	if err := n.rest.Put(ctx, path, nil, nil); err != nil {
		n.log.Error(ctx, "error marking all notifications as read", "endpoint", path, "error", err)
		return err
	}

	n.mu.Lock()
	readAt := nowISO()
	for i := range n.items {
		n.items[i].IsRead = true
		n.items[i].ReadAt = readAt
	}
	n.unread = 0
	ch, userID := n.channel, n.userID
	n.mu.Unlock()

	n.emit(ctx, ch, eventMarkAllRead, map[string]string{"user_id": userID})
	return nil
}

// DeleteNotification removes the record on the server and then locally.
// Deleting an unread record decrements the counter.
func (n *Notifications) DeleteNotification(ctx context.Context, id string) error {
	path := "/notifications/" + url.PathEscape(id)
	if err := n.rest.Delete(ctx, path, nil); err != nil {
		n.log.Error(ctx, "error deleting notification", "endpoint", path, "error", err)
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.items {
		if n.items[i].ID != id {
			continue
		}
		if !n.items[i].IsRead && n.unread > 0 {
			n.unread--
		}
		n.items = append(n.items[:i], n.items[i+1:]...)
		break
	}
	return nil
}

// emit is fire-and-forget; a missing or offline channel is not an error.
func (n *Notifications) emit(ctx context.Context, ch PushChannel, event string, payload any) {
	if ch == nil {
		return
	}
	if err := ch.Emit(ctx, event, payload); err != nil {
		n.log.Debug(ctx, "push emit skipped", "event", event, "error", err)
	}
}

// AddNotification prepends rec. A record already in the feed is moved to the
// front instead of duplicated. It reports whether rec was new.
func (n *Notifications) AddNotification(rec models.Notification) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.addLocked(rec)
}

func (n *Notifications) addLocked(rec models.Notification) bool {
	isNew := true
	items := make([]models.Notification, 0, len(n.items)+1)
	items = append(items, rec)
	for _, it := range n.items {
		if rec.ID != "" && it.ID == rec.ID {
			isNew = false
			continue
		}
		items = append(items, it)
	}
	if len(items) > MaxNotifications {
		items = items[:MaxNotifications]
	}
	n.items = items
	return isNew
}

// InitializeSocket subscribes to the live feed of userID. An existing
// subscription is closed first. Reconnects are left to the channel.
func (n *Notifications) InitializeSocket(ctx context.Context, userID string) error {
	if n.dial == nil {
		return ErrNoPushChannel
	}
	n.DisconnectSocket()

	ch, err := n.dial(userID)
	if err != nil {
		n.log.Error(ctx, "error initializing push channel", "error", err)
		return err
	}

	ch.On(eventNotification, n.onNotification)
	ch.On(eventUnreadCount, n.onUnreadCount)
	ch.On(push.EventConnect, func(json.RawMessage) {
		n.mu.Lock()
		n.connected = true
		n.mu.Unlock()
		n.log.Info(ctx, "connected to notification service", "user_id", userID)
		n.emit(ctx, ch, eventJoin, map[string]string{"user_id": userID})
	})
	ch.On(push.EventDisconnect, func(json.RawMessage) {
		n.mu.Lock()
		n.connected = false
		n.mu.Unlock()
		n.log.Info(ctx, "disconnected from notification service", "user_id", userID)
	})

	n.mu.Lock()
	n.channel = ch
	n.userID = userID
	n.mu.Unlock()

	// The connect handler takes n.mu, so the lock must not be held here.
	if err := ch.Connect(ctx); err != nil {
		n.log.Error(ctx, "error connecting push channel", "error", err)
		n.DisconnectSocket()
		return err
	}
	return nil
}

func (n *Notifications) onNotification(data json.RawMessage) {
	var rec models.Notification
	if err := json.Unmarshal(data, &rec); err != nil {
		n.log.Warn(context.Background(), "malformed notification dropped", "error", err)
		return
	}

	n.mu.Lock()
	if n.addLocked(rec) && !rec.IsRead {
		n.unread++
	}
	n.mu.Unlock()

	n.ShowToast(rec)
}

func (n *Notifications) onUnreadCount(data json.RawMessage) {
	var msg struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		n.log.Warn(context.Background(), "malformed unread count dropped", "error", err)
		return
	}

	n.mu.Lock()
	n.unread = msg.Count
	n.mu.Unlock()
}

// DisconnectSocket closes the live feed, if any.
func (n *Notifications) DisconnectSocket() {
	n.mu.Lock()
	ch := n.channel
	n.channel = nil
	n.userID = ""
	n.connected = false
	n.mu.Unlock()

	if ch == nil {
		return
	}
	if err := ch.Close(); err != nil {
		n.log.Warn(context.Background(), "error closing push channel", "error", err)
	}
	// Close may have dispatched a disconnect that raced the reset above.
	n.mu.Lock()
	n.connected = false
	n.mu.Unlock()
}

// ClearNotifications empties the feed and zeroes the counter.
func (n *Notifications) ClearNotifications() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = nil
	n.unread = 0
}

// ShowToast displays rec on the toaster, if one is attached.
func (n *Notifications) ShowToast(rec models.Notification) {
	if n.toaster == nil {
		return
	}
	n.toaster.Toast(toastLevel(rec.Type), rec.Title, rec.Message, toastTimeout)
}

func toastLevel(kind string) string {
	switch kind {
	case models.NotificationError, models.NotificationWarning, models.NotificationSuccess:
		return kind
	default:
		return models.NotificationInfo
	}
}
