package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dmitrijs2005/invoiceclient/internal/logging"
	"github.com/dmitrijs2005/invoiceclient/internal/netx"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout     = 10 * time.Second
	handshakeTimeout = 10 * time.Second
	namespace        = "/"
)

// Pseudo-events dispatched by the client itself.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

var (
	ErrNotConnected = errors.New("push channel not connected")
	ErrClosed       = errors.New("push channel closed")
)

// Handler receives the first argument of an event, or nil when the event
// carried none. Handlers run one at a time in arrival order.
type Handler func(data json.RawMessage)

type Option func(*Client)

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithAuth sets the payload of the namespace connect packet.
func WithAuth(auth any) Option {
	return func(c *Client) { c.auth = auth }
}

func WithHeader(h http.Header) Option {
	return func(c *Client) { c.header = h }
}

// WithReconnect tunes the exponential backoff used after the connection
// drops. maxElapsed of zero disables the limit.
func WithReconnect(initial, maxElapsed time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = initial
		c.maxElapsed = maxElapsed
	}
}

// Client is a Socket.IO v4 client over a single WebSocket transport.
type Client struct {
	url    string
	header http.Header
	auth   any
	dialer *websocket.Dialer
	log    logging.Logger

	initialBackoff time.Duration
	maxElapsed     time.Duration

	hmu      sync.RWMutex
	handlers map[string][]Handler

	// dispatchMu keeps handler invocations sequential across reconnects.
	dispatchMu sync.Mutex

	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool

	sendMu    sync.Mutex
	connected atomic.Bool

	runCtx context.Context
	stop   context.CancelFunc
}

// New prepares a client for the server at origin, e.g.
// http://localhost:5000. Nothing is dialed until Connect.
func New(origin string, opts ...Option) (*Client, error) {
	u, err := socketURL(origin)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		url:            u,
		dialer:         websocket.DefaultDialer,
		log:            logging.Discard(),
		initialBackoff: 500 * time.Millisecond,
		maxElapsed:     5 * time.Minute,
		handlers:       make(map[string][]Handler),
		runCtx:         ctx,
		stop:           cancel,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func socketURL(origin string) (string, error) {
	u, err := netx.WebSocketURL(origin, "/socket.io/")
	if err != nil {
		return "", fmt.Errorf("invalid push url: %w", err)
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// On registers h for event. Several handlers per event run in
// registration order.
func (c *Client) On(event string, h Handler) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

func (c *Client) dispatch(event string, data json.RawMessage) {
	c.hmu.RLock()
	hs := append([]Handler(nil), c.handlers[event]...)
	c.hmu.RUnlock()

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	for _, h := range hs {
		h(data)
	}
}

// Connected reports whether the namespace handshake has completed and the
// connection is still up.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Connect dials the server and joins the default namespace. The connect
// handlers have run by the time it returns. After a drop the client
// reconnects by itself until Close.
func (c *Client) Connect(ctx context.Context) error {
	if c.connected.Load() {
		return nil
	}
	return c.handshake(ctx)
}

func (c *Client) handshake(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	ws, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return fmt.Errorf("dial push channel: %w", err)
	}

	open, err := c.negotiate(ctx, ws)
	if err != nil {
		_ = ws.Close()
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ws.Close()
		return ErrClosed
	}
	c.ws = ws
	c.mu.Unlock()

	c.connected.Store(true)
	c.log.Info(ctx, "push channel connected", "sid", open.SID)
	c.dispatch(EventConnect, nil)

	go c.readLoop(ws, open.readTimeout())
	return nil
}

// negotiate reads the engine open packet, sends the namespace connect
// packet and waits for its acknowledgement.
func (c *Client) negotiate(ctx context.Context, ws *websocket.Conn) (openPacket, error) {
	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = ws.SetReadDeadline(deadline)
	defer func() { _ = ws.SetReadDeadline(time.Time{}) }()

	_, data, err := ws.ReadMessage()
	if err != nil {
		return openPacket{}, fmt.Errorf("read open packet: %w", err)
	}
	open, err := parseOpenPacket(string(data))
	if err != nil {
		return openPacket{}, err
	}

	connectPkt, err := buildSocketConnectPacket(namespace, c.auth)
	if err != nil {
		return openPacket{}, err
	}
	if err := c.write(ws, string(engineMessage)+connectPkt); err != nil {
		return openPacket{}, fmt.Errorf("send connect packet: %w", err)
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return openPacket{}, fmt.Errorf("await connect ack: %w", err)
		}
		msg := string(data)
		switch {
		case msg == string(enginePing):
			if err := c.write(ws, string(enginePong)); err != nil {
				return openPacket{}, err
			}
		case len(msg) >= 2 && msg[0] == byte(engineMessage) && msg[1] == byte(socketConnect):
			return open, nil
		case len(msg) >= 2 && msg[0] == byte(engineMessage) && msg[1] == byte(socketConnectError):
			return openPacket{}, fmt.Errorf("push connect refused: %s", parseConnectError(msg[1:]))
		}
	}
}

func (c *Client) write(ws *websocket.Conn, msg string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (c *Client) readLoop(ws *websocket.Conn, timeout time.Duration) {
	for {
		_ = ws.SetReadDeadline(time.Now().Add(timeout))
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.lost(ws, err.Error(), true)
			return
		}

		msg := string(data)
		if msg == "" {
			continue
		}

		switch enginePacketType(msg[0]) {
		case enginePing:
			_ = c.write(ws, string(enginePong))
		case engineClose:
			c.lost(ws, "transport close", false)
			return
		case engineMessage:
			if !c.handleSocketPacket(ws, msg[1:]) {
				c.lost(ws, "io server disconnect", false)
				return
			}
		}
	}
}

// handleSocketPacket returns false when the server ended the session.
// Events carrying an ack id are acknowledged once their handler returns.
func (c *Client) handleSocketPacket(ws *websocket.Conn, payload string) bool {
	if payload == "" {
		return true
	}
	switch socketPacketType(payload[0]) {
	case socketEvent:
		pkt, err := parseSocketEventPacket(payload)
		if err != nil {
			c.log.Warn(c.runCtx, "malformed push event dropped", "error", err)
			return true
		}
		c.dispatch(pkt.Event, pkt.firstArg())
		if pkt.ID != nil {
			c.ack(ws, pkt.Namespace, *pkt.ID)
		}
	case socketDisconnect:
		return false
	}
	return true
}

func (c *Client) ack(ws *websocket.Conn, namespace string, id int) {
	pkt, err := buildSocketAckPacket(namespace, id)
	if err != nil {
		return
	}
	if err := c.write(ws, string(engineMessage)+pkt); err != nil {
		c.log.Debug(c.runCtx, "push ack not sent", "id", id, "error", err)
	}
}

// lost tears down ws and reports the disconnect once. Unexpected drops
// start the reconnect loop.
func (c *Client) lost(ws *websocket.Conn, reason string, reconnect bool) {
	c.mu.Lock()
	if c.ws == ws {
		c.ws = nil
	}
	closed := c.closed
	c.mu.Unlock()
	_ = ws.Close()

	if c.connected.CompareAndSwap(true, false) {
		c.log.Warn(c.runCtx, "push channel disconnected", "reason", reason)
		data, _ := json.Marshal(reason)
		c.dispatch(EventDisconnect, data)
	}

	if reconnect && !closed {
		go c.reconnect()
	}
}

func (c *Client) reconnect() {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff

	_, err := backoff.Retry(c.runCtx, func() (struct{}, error) {
		err := c.handshake(c.runCtx)
		if errors.Is(err, ErrClosed) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(c.maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Debug(c.runCtx, "push reconnect failed", "error", err, "retry_in", next)
		}),
	)
	if err != nil && !errors.Is(err, ErrClosed) && c.runCtx.Err() == nil {
		c.log.Warn(c.runCtx, "push channel gave up reconnecting", "error", err)
	}
}

// Emit sends event with payload. It does not wait for an acknowledgement.
func (c *Client) Emit(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil || !c.connected.Load() {
		return ErrNotConnected
	}

	var (
		pkt string
		err error
	)
	if payload == nil {
		pkt, err = buildSocketEventPacket(namespace, event)
	} else {
		pkt, err = buildSocketEventPacket(namespace, event, payload)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	return c.write(ws, string(engineMessage)+pkt)
}

// Close leaves the namespace, drops the connection and stops reconnecting.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	c.stop()

	if ws == nil {
		c.connected.Store(false)
		return nil
	}

	_ = c.write(ws, string(engineMessage)+buildSocketDisconnectPacket(namespace))

	if c.connected.CompareAndSwap(true, false) {
		data, _ := json.Marshal("io client disconnect")
		c.dispatch(EventDisconnect, data)
	}
	return ws.Close()
}
