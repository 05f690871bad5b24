package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverConn struct {
	ws      *websocket.Conn
	connect string
	in      chan string
}

func (s *serverConn) send(t *testing.T, msg string) {
	t.Helper()
	require.NoError(t, s.ws.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func (s *serverConn) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case got, ok := <-s.in:
		require.True(t, ok, "connection closed while waiting for %q", want)
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %q", want)
	}
}

// fakeEIO speaks just enough Engine.IO v4 / Socket.IO v4 for the client.
type fakeEIO struct {
	srv     *httptest.Server
	conns   chan *serverConn
	refuse  string
	upgrade websocket.Upgrader
}

func newFakeEIO(t *testing.T) *fakeEIO {
	t.Helper()
	f := &fakeEIO{conns: make(chan *serverConn, 4)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeEIO) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/socket.io/" || r.URL.Query().Get("EIO") != "4" {
		http.NotFound(w, r)
		return
	}
	ws, err := f.upgrade.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	_ = ws.WriteMessage(websocket.TextMessage,
		[]byte(`0{"sid":"s1","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`))

	_, data, err := ws.ReadMessage()
	if err != nil {
		return
	}
	if f.refuse != "" {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`44{"message":"`+f.refuse+`"}`))
		return
	}
	_ = ws.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"n1"}`))

	sc := &serverConn{ws: ws, connect: string(data), in: make(chan string, 16)}
	f.conns <- sc

	defer close(sc.in)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		sc.in <- string(data)
	}
}

func (f *fakeEIO) accept(t *testing.T) *serverConn {
	t.Helper()
	select {
	case sc := <-f.conns:
		return sc
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for client connection")
		return nil
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []string
	ch     chan string
}

func newEventLog() *eventLog { return &eventLog{ch: make(chan string, 32)} }

func (l *eventLog) handler(name string) Handler {
	return func(data json.RawMessage) {
		entry := name
		if data != nil {
			entry += " " + string(data)
		}
		l.mu.Lock()
		l.events = append(l.events, entry)
		l.mu.Unlock()
		l.ch <- entry
	}
}

func (l *eventLog) next(t *testing.T) string {
	t.Helper()
	select {
	case e := <-l.ch:
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event")
		return ""
	}
}

func TestClient_ConnectEmitAndReceive(t *testing.T) {
	f := newFakeEIO(t)
	log := newEventLog()

	c, err := New(f.srv.URL, WithAuth(map[string]string{"token": "tok"}))
	require.NoError(t, err)
	defer c.Close()

	c.On(EventConnect, log.handler("connect"))
	c.On("notification", log.handler("notification"))
	c.On("unread_count", log.handler("unread_count"))

	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.Connected())
	assert.Equal(t, "connect", log.next(t))

	sc := f.accept(t)
	assert.Equal(t, `40{"token":"tok"}`, sc.connect)

	require.NoError(t, c.Emit(context.Background(), "join", map[string]string{"user_id": "u1"}))
	sc.expect(t, `42["join",{"user_id":"u1"}]`)

	sc.send(t, `42["notification",{"id":"a"}]`)
	sc.send(t, `42["unread_count",{"count":4}]`)
	sc.send(t, `42["notification",{"id":"b"}]`)

	assert.Equal(t, `notification {"id":"a"}`, log.next(t))
	assert.Equal(t, `unread_count {"count":4}`, log.next(t))
	assert.Equal(t, `notification {"id":"b"}`, log.next(t))
}

func TestClient_AcknowledgesEventsWithID(t *testing.T) {
	f := newFakeEIO(t)
	log := newEventLog()

	c, err := New(f.srv.URL)
	require.NoError(t, err)
	defer c.Close()
	c.On("notification", log.handler("notification"))

	require.NoError(t, c.Connect(context.Background()))
	sc := f.accept(t)

	sc.send(t, `4212["notification",{"id":"a"}]`)
	assert.Equal(t, `notification {"id":"a"}`, log.next(t))
	sc.expect(t, `4312[]`)

	sc.send(t, `42["notification",{"id":"b"}]`)
	assert.Equal(t, `notification {"id":"b"}`, log.next(t))
	sc.send(t, "2")
	sc.expect(t, "3")
}

func TestClient_RepliesToPing(t *testing.T) {
	f := newFakeEIO(t)
	c, err := New(f.srv.URL)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	sc := f.accept(t)

	sc.send(t, "2")
	sc.expect(t, "3")
}

func TestClient_EmitWhenNotConnected(t *testing.T) {
	c, err := New("http://127.0.0.1:1")
	require.NoError(t, err)

	err = c.Emit(context.Background(), "join", map[string]string{"user_id": "u1"})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, c.Connected())
}

func TestClient_ConnectRefused(t *testing.T) {
	f := newFakeEIO(t)
	f.refuse = "unauthorized"

	c, err := New(f.srv.URL)
	require.NoError(t, err)
	defer c.Close()

	err = c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
	assert.False(t, c.Connected())
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	f := newFakeEIO(t)
	log := newEventLog()

	c, err := New(f.srv.URL, WithReconnect(10*time.Millisecond, 5*time.Second))
	require.NoError(t, err)
	defer c.Close()

	c.On(EventConnect, log.handler("connect"))
	c.On(EventDisconnect, func(json.RawMessage) { log.handler("disconnect")(nil) })

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, "connect", log.next(t))

	first := f.accept(t)
	require.NoError(t, first.ws.Close())

	assert.Equal(t, "disconnect", log.next(t))
	assert.Equal(t, "connect", log.next(t))

	second := f.accept(t)
	assert.True(t, c.Connected())

	require.NoError(t, c.Emit(context.Background(), "join", map[string]string{"user_id": "u1"}))
	second.expect(t, `42["join",{"user_id":"u1"}]`)
}

func TestClient_ServerDisconnectDoesNotReconnect(t *testing.T) {
	f := newFakeEIO(t)
	log := newEventLog()

	c, err := New(f.srv.URL, WithReconnect(10*time.Millisecond, time.Second))
	require.NoError(t, err)
	defer c.Close()
	c.On(EventDisconnect, log.handler("disconnect"))

	require.NoError(t, c.Connect(context.Background()))
	sc := f.accept(t)
	sc.send(t, "41")

	assert.Equal(t, `disconnect "io server disconnect"`, log.next(t))
	assert.False(t, c.Connected())

	select {
	case <-f.conns:
		t.Fatal("client reconnected after server disconnect")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestClient_CloseDispatchesDisconnectOnce(t *testing.T) {
	f := newFakeEIO(t)
	log := newEventLog()

	c, err := New(f.srv.URL)
	require.NoError(t, err)
	c.On(EventDisconnect, log.handler("disconnect"))

	require.NoError(t, c.Connect(context.Background()))
	sc := f.accept(t)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.Equal(t, `disconnect "io client disconnect"`, log.next(t))
	sc.expect(t, "41")
	assert.False(t, c.Connected())
	assert.ErrorIs(t, c.Connect(context.Background()), ErrClosed)

	time.Sleep(100 * time.Millisecond)
	log.mu.Lock()
	defer log.mu.Unlock()
	assert.Len(t, log.events, 1)
}
