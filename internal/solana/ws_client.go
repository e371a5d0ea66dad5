package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrWSClosed is returned when subscribing on a closed client.
var ErrWSClosed = errors.New("websocket client closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// HandshakeTimeout bounds the dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription id.
	SubscribeTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		WriteTimeout:     10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
	}
}

// WSClientImpl implements WSClient using gorilla/websocket. The connection is
// dialed lazily and redialed on the next subscription after it drops;
// subscriptions that were live on a dropped connection have their channels
// closed without a value.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to the notification channel
	subs   map[int64]chan SignatureNotification
	subsMu sync.Mutex

	// pendingSubs maps request ID to a subscription awaiting its ID
	pendingSubs   map[uint64]*pendingSub
	pendingSubsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

var _ WSClient = (*WSClientImpl)(nil)

type pendingSub struct {
	ready  chan error
	notify chan SignatureNotification
	subID  chan int64
}

// NewWSClient creates a WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClientImpl{
		endpoint:    endpoint,
		config:      cfg,
		subs:        make(map[int64]chan SignatureNotification),
		pendingSubs: make(map[uint64]*pendingSub),
		done:        make(chan struct{}),
	}

	if _, err := c.ensureConn(ctx); err != nil {
		return nil, err
	}

	if cfg.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop()
	}

	return c, nil
}

// ensureConn returns the live connection, dialing a new one if needed.
func (c *WSClientImpl) ensureConn(ctx context.Context) (*websocket.Conn, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	c.conn = conn

	c.wg.Add(1)
	go c.readLoop(conn)

	return conn, nil
}

// SignatureSubscribe subscribes to the outcome of a single signature.
func (c *WSClientImpl) SignatureSubscribe(ctx context.Context, sig Signature, commitment string) (*SignatureSubscription, error) {
	if c.closed.Load() {
		return nil, ErrWSClosed
	}

	conn, err := c.ensureConn(ctx)
	if err != nil {
		return nil, err
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			sig.String(),
			map[string]string{"commitment": commitment},
		},
	}

	pending := &pendingSub{
		ready:  make(chan error, 1),
		notify: make(chan SignatureNotification, 1),
		subID:  make(chan int64, 1),
	}
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = pending
	c.pendingSubsMu.Unlock()

	c.connMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err = conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		c.dropPending(reqID)
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	timeout := time.NewTimer(c.config.SubscribeTimeout)
	defer timeout.Stop()

	select {
	case err, ok := <-pending.ready:
		if !ok {
			return nil, fmt.Errorf("connection lost while subscribing")
		}
		if err != nil {
			return nil, err
		}
		subID := <-pending.subID
		return NewSignatureSubscription(pending.notify, func() { c.unsubscribe(subID) }), nil
	case <-timeout.C:
		c.dropPending(reqID)
		return nil, fmt.Errorf("subscription timeout after %s", c.config.SubscribeTimeout)
	case <-c.done:
		return nil, ErrWSClosed
	case <-ctx.Done():
		c.dropPending(reqID)
		return nil, ctx.Err()
	}
}

func (c *WSClientImpl) dropPending(reqID uint64) {
	c.pendingSubsMu.Lock()
	delete(c.pendingSubs, reqID)
	c.pendingSubsMu.Unlock()
}

// Close closes the WebSocket connection.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.failAll()
	c.wg.Wait()
	return nil
}

// failAll closes every live and pending subscription channel.
func (c *WSClientImpl) failAll() {
	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.pendingSubsMu.Lock()
	for id, p := range c.pendingSubs {
		close(p.ready)
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()
}

// readLoop reads messages from one connection until it fails.
func (c *WSClientImpl) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.connMu.Lock()
			if c.conn == conn {
				c.conn.Close()
				c.conn = nil
			}
			c.connMu.Unlock()
			c.failAll()
			return
		}
		c.handleMessage(message)
	}
}

// handleMessage processes incoming WebSocket message.
func (c *WSClientImpl) handleMessage(message []byte) {
	var envelope wsEnvelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		return
	}

	switch {
	case envelope.Method == "signatureNotification" && envelope.Params != nil:
		c.handleSignatureNotification(envelope.Params)
	case envelope.ID != nil && envelope.Error != nil:
		c.resolvePending(*envelope.ID, 0, envelope.Error)
	case envelope.ID != nil && len(envelope.Result) > 0:
		var subID int64
		if err := json.Unmarshal(envelope.Result, &subID); err != nil {
			return
		}
		c.resolvePending(*envelope.ID, subID, nil)
	}
}

// resolvePending registers the notification channel before releasing the
// subscriber, so a notification read right after the response is not lost.
func (c *WSClientImpl) resolvePending(reqID uint64, subID int64, rpcErr *RPCError) {
	c.pendingSubsMu.Lock()
	p, ok := c.pendingSubs[reqID]
	if ok {
		delete(c.pendingSubs, reqID)
	}
	c.pendingSubsMu.Unlock()
	if !ok {
		return
	}

	if rpcErr != nil {
		p.ready <- rpcErr
		return
	}

	c.subsMu.Lock()
	c.subs[subID] = p.notify
	c.subsMu.Unlock()
	p.subID <- subID
	p.ready <- nil
}

// unsubscribe retires a subscription the caller stopped waiting for and
// tells the node. Subscriptions already notified or lost with their
// connection are gone from subs and need nothing.
func (c *WSClientImpl) unsubscribe(subID int64) {
	c.subsMu.Lock()
	ch, live := c.subs[subID]
	delete(c.subs, subID)
	c.subsMu.Unlock()
	if !live {
		return
	}
	close(ch)

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	// a failed write means the connection is dead; readLoop handles that
	_ = c.conn.WriteJSON(wsRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "signatureUnsubscribe",
		Params:  []interface{}{subID},
	})
}

// handleSignatureNotification delivers the single notification and retires the subscription.
func (c *WSClientImpl) handleSignatureNotification(params *wsNotificationParams) {
	c.subsMu.Lock()
	ch, ok := c.subs[params.Subscription]
	if ok {
		delete(c.subs, params.Subscription)
	}
	c.subsMu.Unlock()
	if !ok {
		return
	}

	notif := SignatureNotification{Err: params.Result.Value.Err}
	if params.Result.Context != nil {
		notif.Slot = params.Result.Context.Slot
	}
	ch <- notif
	close(ch)
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// a dead connection is detected by readLoop
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsEnvelope struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      *uint64               `json:"id,omitempty"`
	Method  string                `json:"method,omitempty"`
	Result  json.RawMessage       `json:"result,omitempty"`
	Error   *RPCError             `json:"error,omitempty"`
	Params  *wsNotificationParams `json:"params,omitempty"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext       `json:"context"`
	Value   wsSignatureValue `json:"value"`
}

type wsContext struct {
	Slot uint64 `json:"slot"`
}

type wsSignatureValue struct {
	Err interface{} `json:"err"`
}
