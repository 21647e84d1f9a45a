package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSConfig configures WebSocket client behavior.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps backoff between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for keepalive ping frames.
	PingInterval time.Duration
	// ReadTimeout bounds a single read.
	ReadTimeout time.Duration
	// WriteTimeout bounds a single write.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription confirmation.
	SubscribeTimeout time.Duration
	// OnReconnect is invoked after each successful reconnect, if set.
	OnReconnect func()
}

// DefaultWSConfig returns the default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

// WSClientImpl implements WSClient over gorilla/websocket with automatic
// reconnect and resubscribe. Missed notifications during a reconnect are
// not replayed; the aggregator poller compensates for the gap.
type WSClientImpl struct {
	endpoint string
	config   WSConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to the delivery channel and its filter,
	// the filter kept for resubscription after reconnect.
	subs   map[int64]*wsSubscription
	subsMu sync.Mutex

	// pending maps request ID to a channel waiting for the subscription ID.
	pending   map[uint64]chan int64
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

type wsSubscription struct {
	ch     chan LogNotification
	filter LogsFilter
}

// NewWSClient connects to endpoint and starts the read and ping loops.
func NewWSClient(ctx context.Context, endpoint string, config *WSConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		defaults := cfg
		cfg = *config
		if cfg.ReconnectDelay <= 0 {
			cfg.ReconnectDelay = defaults.ReconnectDelay
		}
		if cfg.MaxReconnectDelay <= 0 {
			cfg.MaxReconnectDelay = defaults.MaxReconnectDelay
		}
		if cfg.PingInterval <= 0 {
			cfg.PingInterval = defaults.PingInterval
		}
		if cfg.ReadTimeout <= 0 {
			cfg.ReadTimeout = defaults.ReadTimeout
		}
		if cfg.WriteTimeout <= 0 {
			cfg.WriteTimeout = defaults.WriteTimeout
		}
		if cfg.SubscribeTimeout <= 0 {
			cfg.SubscribeTimeout = defaults.SubscribeTimeout
		}
	}

	c := &WSClientImpl{
		endpoint: endpoint,
		config:   cfg,
		subs:     make(map[int64]*wsSubscription),
		pending:  make(map[uint64]chan int64),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

func (c *WSClientImpl) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// SubscribeLogs subscribes to program logs matching the filter.
// The returned channel has a large buffer; notifications are never
// dropped while the client is open.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	subID, err := c.requestSubscription(ctx, filter)
	if err != nil {
		return nil, err
	}

	ch := make(chan LogNotification, 10000)
	c.subsMu.Lock()
	c.subs[subID] = &wsSubscription{ch: ch, filter: filter}
	c.subsMu.Unlock()

	return ch, nil
}

// requestSubscription sends a logsSubscribe request and waits for the
// subscription ID.
func (c *WSClientImpl) requestSubscription(ctx context.Context, filter LogsFilter) (int64, error) {
	if c.closed.Load() {
		return 0, fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)

	mentions := make(map[string]interface{})
	if len(filter.Mentions) > 0 {
		mentions["mentions"] = filter.Mentions
	} else {
		mentions["all"] = nil
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentions,
			map[string]string{"commitment": "confirmed"},
		},
	}

	confirmCh := make(chan int64, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = confirmCh
	c.pendingMu.Unlock()

	abort := func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		abort()
		return 0, fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		abort()
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case subID := <-confirmCh:
		return subID, nil
	case <-time.After(c.config.SubscribeTimeout):
		abort()
		return 0, fmt.Errorf("subscription timeout after %s", c.config.SubscribeTimeout)
	case <-c.done:
		return 0, fmt.Errorf("client closed")
	case <-ctx.Done():
		abort()
		return 0, ctx.Err()
	}
}

// Close closes the WebSocket connection and all subscription channels.
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
	}
	c.connMu.Unlock()

	c.subsMu.Lock()
	for id, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages and dispatches them, reconnecting on error.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay
		c.handleMessage(message)
	}
}

// reconnect re-dials the endpoint after delay and resubscribes.
func (c *WSClientImpl) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		log.Warn().Str("component", "ws").Err(err).Msg("reconnect failed, will retry on next read error")
		return
	}

	log.Info().Str("component", "ws").Str("endpoint", c.endpoint).Msg("reconnected")
	if c.config.OnReconnect != nil {
		c.config.OnReconnect()
	}

	c.resubscribeAll()
}

// resubscribeAll re-issues logsSubscribe for every live subscription and
// rebinds delivery channels to the new subscription IDs.
func (c *WSClientImpl) resubscribeAll() {
	c.subsMu.Lock()
	existing := make(map[int64]*wsSubscription, len(c.subs))
	for id, sub := range c.subs {
		existing[id] = sub
	}
	c.subsMu.Unlock()

	for oldID, sub := range existing {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newID, err := c.requestSubscription(ctx, sub.filter)
		cancel()

		if err != nil {
			log.Warn().Str("component", "ws").Int64("subscription", oldID).Err(err).
				Msg("resubscribe failed, keeping old mapping")
			continue
		}

		c.subsMu.Lock()
		delete(c.subs, oldID)
		c.subs[newID] = sub
		c.subsMu.Unlock()
	}
}

// handleMessage routes one incoming frame.
func (c *WSClientImpl) handleMessage(message []byte) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result > 0 {
		c.handleSubscribeResponse(&resp)
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "logsNotification" {
		c.handleLogsNotification(&notif)
		return
	}

	var errResp struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(message, &errResp); err == nil && errResp.Error != nil {
		log.Warn().Str("component", "ws").
			Int("code", errResp.Error.Code).
			Str("message", errResp.Error.Message).
			Msg("error frame from provider")
	}
}

func (c *WSClientImpl) handleSubscribeResponse(resp *wsSubscribeResponse) {
	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()

	if ok {
		select {
		case ch <- resp.Result:
		default:
		}
	}
}

func (c *WSClientImpl) handleLogsNotification(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	value := notif.Params.Result.Value
	logNotif := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		logNotif.Slot = notif.Params.Result.Context.Slot
	}

	c.subsMu.Lock()
	sub, ok := c.subs[notif.Params.Subscription]
	c.subsMu.Unlock()

	if ok {
		// Block until delivered; the buffer absorbs bursts.
		select {
		case sub.ch <- logNotif:
		case <-c.done:
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
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
				// Write errors surface in readLoop, which reconnects.
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// Wire message types.

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
