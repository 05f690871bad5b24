package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/invoiceclient/internal/client/client"
	"github.com/dmitrijs2005/invoiceclient/internal/client/models"
	"github.com/dmitrijs2005/invoiceclient/internal/client/push"
	"github.com/dmitrijs2005/invoiceclient/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fake REST client ----

type restCall struct {
	Method string
	Path   string
	Params client.Params
	Body   any
}

// fakeREST answers from a table keyed by "METHOD path".
type fakeREST struct {
	mu      sync.Mutex
	replies map[string]authReply
	calls   []restCall
}

func newFakeREST() *fakeREST {
	return &fakeREST{replies: make(map[string]authReply)}
}

func (f *fakeREST) on(method, path string, resp any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[method+" "+path] = authReply{Resp: resp, Err: err}
}

func (f *fakeREST) reply(c restCall, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	r, ok := f.replies[c.Method+" "+c.Path]
	f.mu.Unlock()

	if !ok {
		return &client.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
	}
	if r.Err != nil {
		return r.Err
	}
	if out == nil || r.Resp == nil {
		return nil
	}
	b, err := json.Marshal(r.Resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (f *fakeREST) Get(_ context.Context, path string, params client.Params, out any) error {
	return f.reply(restCall{Method: http.MethodGet, Path: path, Params: params}, out)
}

func (f *fakeREST) Post(_ context.Context, path string, body, out any) error {
	return f.reply(restCall{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (f *fakeREST) Put(_ context.Context, path string, body, out any) error {
	return f.reply(restCall{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (f *fakeREST) Delete(_ context.Context, path string, out any) error {
	return f.reply(restCall{Method: http.MethodDelete, Path: path}, out)
}

func (f *fakeREST) callsTo(method, path string) []restCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []restCall
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// ---- fake push channel ----

type emitted struct {
	Event   string
	Payload any
}

type fakeChannel struct {
	mu         sync.Mutex
	handlers   map[string][]push.Handler
	emits      []emitted
	connected  bool
	connectErr error
	closed     int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[string][]push.Handler)}
}

func (f *fakeChannel) On(event string, h push.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = append(f.handlers[event], h)
}

func (f *fakeChannel) fire(event string, payload any) {
	var data json.RawMessage
	if payload != nil {
		data, _ = json.Marshal(payload)
	}
	f.mu.Lock()
	hs := append([]push.Handler(nil), f.handlers[event]...)
	f.mu.Unlock()
	for _, h := range hs {
		h(data)
	}
}

func (f *fakeChannel) Connect(context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	f.fire(push.EventConnect, nil)
	return nil
}

func (f *fakeChannel) Emit(_ context.Context, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return push.ErrNotConnected
	}
	f.emits = append(f.emits, emitted{Event: event, Payload: payload})
	return nil
}

func (f *fakeChannel) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	wasConnected := f.connected
	f.connected = false
	f.closed++
	f.mu.Unlock()
	if wasConnected {
		f.fire(push.EventDisconnect, "io client disconnect")
	}
	return nil
}

func (f *fakeChannel) emitted() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.emits...)
}

// ---- fake toaster ----

type toast struct {
	Level, Title, Message string
	Timeout               time.Duration
}

type fakeToaster struct {
	mu     sync.Mutex
	toasts []toast
}

func (f *fakeToaster) Toast(level, title, message string, timeout time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = append(f.toasts, toast{level, title, message, timeout})
}

func (f *fakeToaster) all() []toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]toast(nil), f.toasts...)
}

// ---- helpers ----

func note(id string, read bool) models.Notification {
	return models.Notification{ID: id, Title: "t" + id, Message: "m" + id, Type: models.NotificationInfo, IsRead: read}
}

func pageOf(ns ...models.Notification) models.NotificationPage {
	return models.NotificationPage{Notifications: ns, Pagination: models.Pagination{Page: 1, PerPage: 20, Total: len(ns), Pages: 1}}
}

func ids(ns []models.Notification) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.ID)
	}
	return out
}

func newTestNotifications(t *testing.T) (*Notifications, *fakeREST, *fakeChannel, *fakeToaster) {
	t.Helper()
	rest := newFakeREST()
	ch := newFakeChannel()
	toaster := &fakeToaster{}
	dial := func(string) (PushChannel, error) { return ch, nil }
	return NewNotifications(rest, dial, toaster, logging.Discard()), rest, ch, toaster
}

// ---- tests ----

func TestNotifications_Fetch_ReplaceThenAppend(t *testing.T) {
	ctx := context.Background()
	n, rest, _, _ := newTestNotifications(t)
	n.AddNotification(note("stale", false))

	rest.on(http.MethodGet, "/notifications", pageOf(note("a", false), note("b", true)), nil)
	page, err := n.FetchNotifications(ctx, 1, 20, false)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, []string{"a", "b"}, ids(n.Notifications()))

	calls := rest.callsTo(http.MethodGet, "/notifications")
	require.Len(t, calls, 1)
	assert.Equal(t, client.Params{"page": 1, "per_page": 20, "unread_only": false}, calls[0].Params)

	rest.on(http.MethodGet, "/notifications", pageOf(note("c", false)), nil)
	_, err = n.FetchNotifications(ctx, 2, 20, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(n.Notifications()))

	// later pages are not de-duplicated
	_, err = n.FetchNotifications(ctx, 2, 20, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "c"}, ids(n.Notifications()))
	assert.False(t, n.Loading())
}

func TestNotifications_Fetch_ErrorLeavesFeed(t *testing.T) {
	n, rest, _, _ := newTestNotifications(t)
	n.AddNotification(note("keep", false))
	rest.on(http.MethodGet, "/notifications", nil, errors.New("network down"))

	_, err := n.FetchNotifications(context.Background(), 1, 20, false)

	require.Error(t, err)
	assert.Equal(t, []string{"keep"}, ids(n.Notifications()))
	assert.False(t, n.Loading())
}

func TestNotifications_FetchUnreadCount(t *testing.T) {
	ctx := context.Background()
	n, rest, _, _ := newTestNotifications(t)

	rest.on(http.MethodGet, "/notifications/unread-count", map[string]int{"unread_count": 7}, nil)
	require.NoError(t, n.FetchUnreadCount(ctx))
	assert.Equal(t, 7, n.UnreadCount())
	assert.True(t, n.HasUnread())

	rest.on(http.MethodGet, "/notifications/unread-count", nil, errors.New("boom"))
	require.Error(t, n.FetchUnreadCount(ctx))
	assert.Equal(t, 7, n.UnreadCount())
}

func TestNotifications_MarkAsRead(t *testing.T) {
	ctx := context.Background()
	n, rest, ch, _ := newTestNotifications(t)
	require.NoError(t, n.InitializeSocket(ctx, "u1"))
	ch.fire(eventUnreadCount, map[string]int{"count": 2})
	n.AddNotification(note("a", false))
	n.AddNotification(note("b", false))

	rest.on(http.MethodPut, "/notifications/a/read", map[string]string{"message": "ok"}, nil)
	require.NoError(t, n.MarkAsRead(ctx, "a"))

	assert.Equal(t, 1, n.UnreadCount())
	assert.Equal(t, []string{"a"}, ids(n.Read()))
	assert.Equal(t, []string{"b"}, ids(n.Unread()))
	read := n.Read()[0]
	require.NotNil(t, read.ReadAt)

	emits := ch.emitted()
	require.NotEmpty(t, emits)
	assert.Equal(t, emitted{Event: "mark_read", Payload: map[string]string{"notification_id": "a", "user_id": "u1"}}, emits[len(emits)-1])
}

func TestNotifications_MarkAsRead_FailureLeavesState(t *testing.T) {
	ctx := context.Background()
	n, rest, ch, _ := newTestNotifications(t)
	require.NoError(t, n.InitializeSocket(ctx, "u1"))
	ch.fire(eventUnreadCount, map[string]int{"count": 1})
	n.AddNotification(note("a", false))
	rest.on(http.MethodPut, "/notifications/a/read", nil, &client.APIError{StatusCode: 500, Message: "oops"})

	require.Error(t, n.MarkAsRead(ctx, "a"))

	assert.Equal(t, 1, n.UnreadCount())
	assert.Equal(t, []string{"a"}, ids(n.Unread()))
	for _, e := range ch.emitted() {
		assert.NotEqual(t, "mark_read", e.Event)
	}
}

func TestNotifications_MarkAsRead_CounterNeverNegative(t *testing.T) {
	n, rest, _, _ := newTestNotifications(t)
	rest.on(http.MethodPut, "/notifications/x/read", nil, nil)

	require.NoError(t, n.MarkAsRead(context.Background(), "x"))
	assert.Equal(t, 0, n.UnreadCount())
}

func TestNotifications_MarkAllAsRead(t *testing.T) {
	ctx := context.Background()
	n, rest, ch, _ := newTestNotifications(t)
	require.NoError(t, n.InitializeSocket(ctx, "u1"))
	ch.fire(eventUnreadCount, map[string]int{"count": 5})
	n.AddNotification(note("a", false))
	n.AddNotification(note("b", false))
	rest.on(http.MethodPut, "/notifications/mark-all-read", nil, nil)

	require.NoError(t, n.MarkAllAsRead(ctx))

	assert.Equal(t, 0, n.UnreadCount())
	assert.Empty(t, n.Unread())
	assert.Len(t, n.Read(), 2)
	emits := ch.emitted()
	assert.Equal(t, emitted{Event: "mark_all_read", Payload: map[string]string{"user_id": "u1"}}, emits[len(emits)-1])
}

func TestNotifications_MarkAllAsRead_WithoutChannel(t *testing.T) {
	n, rest, _, _ := newTestNotifications(t)
	n.AddNotification(note("a", false))
	rest.on(http.MethodPut, "/notifications/mark-all-read", nil, nil)

	require.NoError(t, n.MarkAllAsRead(context.Background()))
	assert.Empty(t, n.Unread())
}

func TestNotifications_DeleteNotification(t *testing.T) {
	ctx := context.Background()
	n, rest, ch, _ := newTestNotifications(t)
	require.NoError(t, n.InitializeSocket(ctx, "u1"))
	ch.fire(eventUnreadCount, map[string]int{"count": 1})
	n.AddNotification(note("read", true))
	n.AddNotification(note("unread", false))
	emitsBefore := len(ch.emitted())

	rest.on(http.MethodDelete, "/notifications/read", nil, nil)
	rest.on(http.MethodDelete, "/notifications/unread", nil, nil)

	require.NoError(t, n.DeleteNotification(ctx, "read"))
	assert.Equal(t, 1, n.UnreadCount())
	require.NoError(t, n.DeleteNotification(ctx, "unread"))
	assert.Equal(t, 0, n.UnreadCount())
	assert.Empty(t, n.Notifications())

	// delete is not broadcast
	assert.Len(t, ch.emitted(), emitsBefore)

	rest.on(http.MethodDelete, "/notifications/gone", nil, errors.New("boom"))
	require.Error(t, n.DeleteNotification(ctx, "gone"))
}

func TestNotifications_AddNotification_DedupAndCap(t *testing.T) {
	n, _, _, _ := newTestNotifications(t)

	assert.True(t, n.AddNotification(note("a", false)))
	assert.True(t, n.AddNotification(note("b", false)))
	updated := note("a", true)
	assert.False(t, n.AddNotification(updated))

	feed := n.Notifications()
	assert.Equal(t, []string{"a", "b"}, ids(feed))
	assert.True(t, feed[0].IsRead)
}

func TestNotifications_Push_101EventsKeeps100(t *testing.T) {
	ctx := context.Background()
	n, _, ch, _ := newTestNotifications(t)
	require.NoError(t, n.InitializeSocket(ctx, "u1"))

	for i := 0; i < 101; i++ {
		ch.fire("notification", note(fmt.Sprintf("n%03d", i), false))
	}

	feed := n.Notifications()
	require.Len(t, feed, MaxNotifications)
	assert.Equal(t, "n100", feed[0].ID)
	assert.Equal(t, "n001", feed[len(feed)-1].ID)
	assert.Equal(t, 101, n.UnreadCount())
}

func TestNotifications_Push_DuplicateDoesNotInflateCounter(t *testing.T) {
	ctx := context.Background()
	n, _, ch, _ := newTestNotifications(t)
	require.NoError(t, n.InitializeSocket(ctx, "u1"))

	ch.fire("notification", note("a", false))
	ch.fire("notification", note("a", false))
	ch.fire("notification", note("b", true))

	assert.Equal(t, 1, n.UnreadCount())
	assert.Equal(t, []string{"b", "a"}, ids(n.Notifications()))
}

func TestNotifications_Push_AcceptsTypeAlias(t *testing.T) {
	ctx := context.Background()
	n, _, ch, toaster := newTestNotifications(t)
	require.NoError(t, n.InitializeSocket(ctx, "u1"))

	ch.fire("notification", map[string]any{"id": "p1", "title": "Paid", "message": "Invoice paid", "type": "success"})

	feed := n.Notifications()
	require.Len(t, feed, 1)
	assert.Equal(t, models.NotificationSuccess, feed[0].Type)
	toasts := toaster.all()
	require.Len(t, toasts, 1)
	assert.Equal(t, toast{Level: "success", Title: "Paid", Message: "Invoice paid", Timeout: 5 * time.Second}, toasts[0])
}

func TestNotifications_Push_UnreadCountOverwrites(t *testing.T) {
	ctx := context.Background()
	n, _, ch, _ := newTestNotifications(t)
	require.NoError(t, n.InitializeSocket(ctx, "u1"))

	ch.fire("notification", note("a", false))
	ch.fire("unread_count", map[string]int{"count": 42})
	assert.Equal(t, 42, n.UnreadCount())

	ch.fire("unread_count", "garbage")
	assert.Equal(t, 42, n.UnreadCount())
}

func TestNotifications_InitializeSocket_JoinsAndTracksConnection(t *testing.T) {
	ctx := context.Background()
	n, _, ch, _ := newTestNotifications(t)

	require.NoError(t, n.InitializeSocket(ctx, "u1"))

	assert.True(t, n.Connected())
	emits := ch.emitted()
	require.NotEmpty(t, emits)
	assert.Equal(t, emitted{Event: "join", Payload: map[string]string{"user_id": "u1"}}, emits[0])

	ch.fire(push.EventDisconnect, "transport close")
	assert.False(t, n.Connected())

	n.DisconnectSocket()
	assert.Equal(t, 1, ch.closed)
	assert.False(t, n.Connected())
}

func TestNotifications_InitializeSocket_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("no factory", func(t *testing.T) {
		n := NewNotifications(newFakeREST(), nil, nil, logging.Discard())
		require.ErrorIs(t, n.InitializeSocket(ctx, "u1"), ErrNoPushChannel)
	})

	t.Run("factory fails", func(t *testing.T) {
		want := errors.New("bad url")
		n := NewNotifications(newFakeREST(), func(string) (PushChannel, error) { return nil, want }, nil, logging.Discard())
		require.ErrorIs(t, n.InitializeSocket(ctx, "u1"), want)
	})

	t.Run("connect fails", func(t *testing.T) {
		ch := newFakeChannel()
		ch.connectErr = errors.New("refused")
		n := NewNotifications(newFakeREST(), func(string) (PushChannel, error) { return ch, nil }, nil, logging.Discard())

		require.Error(t, n.InitializeSocket(ctx, "u1"))
		assert.False(t, n.Connected())
		assert.Equal(t, 1, ch.closed)
	})
}

func TestNotifications_InitializeSocket_ReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	var chans []*fakeChannel
	dial := func(string) (PushChannel, error) {
		ch := newFakeChannel()
		chans = append(chans, ch)
		return ch, nil
	}
	n := NewNotifications(newFakeREST(), dial, nil, logging.Discard())

	require.NoError(t, n.InitializeSocket(ctx, "u1"))
	require.NoError(t, n.InitializeSocket(ctx, "u2"))

	require.Len(t, chans, 2)
	assert.Equal(t, 1, chans[0].closed)
	assert.Equal(t, 0, chans[1].closed)
	assert.True(t, n.Connected())
}

func TestNotifications_ClearNotifications(t *testing.T) {
	n, _, _, _ := newTestNotifications(t)
	n.AddNotification(note("a", false))

	n.ClearNotifications()

	assert.Empty(t, n.Notifications())
	assert.Equal(t, 0, n.UnreadCount())
	assert.False(t, n.HasUnread())
}

func TestNotifications_ShowToast_Levels(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{models.NotificationError, "error"},
		{models.NotificationWarning, "warning"},
		{models.NotificationSuccess, "success"},
		{models.NotificationInfo, "info"},
		{"invoice_paid", "info"},
		{"", "info"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			toaster := &fakeToaster{}
			n := NewNotifications(newFakeREST(), nil, toaster, logging.Discard())

			n.ShowToast(models.Notification{Type: tt.kind, Title: "T", Message: "M"})

			toasts := toaster.all()
			require.Len(t, toasts, 1)
			assert.Equal(t, tt.want, toasts[0].Level)
			assert.Equal(t, 5*time.Second, toasts[0].Timeout)
		})
	}
}

func TestNotifications_ShowToast_NoToaster(t *testing.T) {
	n := NewNotifications(newFakeREST(), nil, nil, logging.Discard())
	assert.NotPanics(t, func() { n.ShowToast(note("a", false)) })
}
