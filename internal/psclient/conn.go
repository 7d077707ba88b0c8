package psclient

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// ConnState tracks the transport lifecycle.
type ConnState string

const (
	StateConnecting   ConnState = "connecting"
	StateOpen         ConnState = "open"
	StateClosing      ConnState = "closing"
	StateClosed       ConnState = "closed"
	StateReconnecting ConnState = "reconnecting"
)

// ChunkCallback receives each raw inbound text frame.
type ChunkCallback func(chunk string)

// StateCallback observes transport state transitions.
type StateCallback func(state ConnState)

// Conn is the connection manager: it owns the websocket lifecycle, the
// ordered outbound queue, and reconnection. Exactly one Conn exists per bot
// identity.
type Conn struct {
	wsURL  string
	logger *zap.Logger

	conn   *websocket.Conn
	state  ConnState
	stateM sync.RWMutex

	writeM sync.Mutex

	// Outbound lines waiting for the transport to open. Flushed FIFO on the
	// transition to open, then cleared.
	queueM  sync.Mutex
	pending []string

	chunkCbs []ChunkCallback
	stateCbs []StateCallback
	cbM      sync.RWMutex

	reconnectDelay       time.Duration
	maxReconnectAttempts int
	reconnecting         bool

	explicitClose bool
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewConn(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration, logger *zap.Logger) *Conn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{
		wsURL:                wsURL,
		logger:               logger,
		state:                StateClosed,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		stopCh:               make(chan struct{}),
	}
}

// Connect dials the server. On success the pending queue is flushed in
// enqueue order and the read loop starts.
func (c *Conn) Connect(ctx context.Context) error {
	c.stateM.Lock()
	if c.state == StateOpen || c.state == StateConnecting {
		c.stateM.Unlock()
		return nil
	}
	c.stateM.Unlock()

	c.rootCtx, c.rootCancel = context.WithCancel(context.Background())
	c.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.wsURL, nil)
	if err != nil {
		c.setState(StateClosed)
		c.scheduleReconnect()
		return err
	}
	conn.SetReadLimit(1 << 20)

	c.conn = conn
	c.setState(StateOpen)
	c.flushPending()

	c.wg.Add(1)
	go c.readLoop()
	return nil
}

// Send writes one text frame. If the transport is not open the line is
// queued and written, in order, once it is. Write errors are logged and the
// line is re-queued; they do not close the connection by themselves.
func (c *Conn) Send(line string) {
	c.stateM.RLock()
	open := c.state == StateOpen && c.conn != nil
	conn := c.conn
	c.stateM.RUnlock()

	if !open {
		c.enqueue(line)
		return
	}
	if err := c.write(conn, line); err != nil {
		c.logger.Warn("ws_send_failed", zap.Error(err))
		c.enqueue(line)
	}
}

func (c *Conn) write(conn *websocket.Conn, line string) error {
	c.writeM.Lock()
	defer c.writeM.Unlock()
	ctx, cancel := context.WithTimeout(c.rootCtx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, []byte(line))
}

func (c *Conn) enqueue(line string) {
	c.queueM.Lock()
	c.pending = append(c.pending, line)
	c.queueM.Unlock()
}

func (c *Conn) flushPending() {
	c.queueM.Lock()
	queued := c.pending
	c.pending = nil
	c.queueM.Unlock()

	for _, line := range queued {
		if err := c.write(c.conn, line); err != nil {
			c.logger.Warn("ws_flush_failed", zap.Error(err))
		}
	}
}

func (c *Conn) readLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}
		if c.conn == nil {
			return
		}
		typ, data, err := c.conn.Read(c.rootCtx)
		if err != nil {
			if c.isStopping() {
				return
			}
			c.logger.Info("ws_closed", zap.Error(err))
			c.setState(StateClosed)
			_ = c.closeConn(websocket.StatusGoingAway, "reconnect")
			c.scheduleReconnect()
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		c.cbM.RLock()
		callbacks := make([]ChunkCallback, len(c.chunkCbs))
		copy(callbacks, c.chunkCbs)
		c.cbM.RUnlock()
		for _, cb := range callbacks {
			if cb != nil {
				cb(string(data))
			}
		}
	}
}

// scheduleReconnect arms a single redial after the configured delay. Only
// one reconnect loop is in flight at a time; an explicit disconnect
// suppresses it entirely.
func (c *Conn) scheduleReconnect() {
	if c.maxReconnectAttempts <= 0 || c.explicitClose || c.isStopping() {
		return
	}
	c.stateM.Lock()
	if c.reconnecting {
		c.stateM.Unlock()
		return
	}
	c.reconnecting = true
	c.stateM.Unlock()

	c.setState(StateReconnecting)

	go func() {
		defer func() {
			c.stateM.Lock()
			c.reconnecting = false
			c.stateM.Unlock()
		}()
		for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
			select {
			case <-c.stopCh:
				return
			case <-time.After(c.reconnectDelay):
			}

			dialCtx, cancel := context.WithTimeout(c.rootCtx, 10*time.Second)
			conn, _, err := websocket.Dial(dialCtx, c.wsURL, nil)
			cancel()
			if err != nil {
				c.logger.Warn("ws_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			conn.SetReadLimit(1 << 20)

			c.conn = conn
			c.setState(StateOpen)
			c.flushPending()

			c.wg.Add(1)
			go c.readLoop()
			return
		}
		c.logger.Error("ws_reconnect_exhausted", zap.Int("attempts", c.maxReconnectAttempts))
		c.setState(StateClosed)
	}()
}

// OnChunk registers a callback for raw inbound frames.
func (c *Conn) OnChunk(cb ChunkCallback) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.chunkCbs = append(c.chunkCbs, cb)
}

// OnStateChange registers a callback for state transitions.
func (c *Conn) OnStateChange(cb StateCallback) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.stateCbs = append(c.stateCbs, cb)
}

// State reports the current transport state.
func (c *Conn) State() ConnState {
	c.stateM.RLock()
	defer c.stateM.RUnlock()
	return c.state
}

func (c *Conn) setState(state ConnState) {
	c.stateM.Lock()
	c.state = state
	c.stateM.Unlock()

	c.cbM.RLock()
	callbacks := make([]StateCallback, len(c.stateCbs))
	copy(callbacks, c.stateCbs)
	c.cbM.RUnlock()
	for _, cb := range callbacks {
		if cb != nil {
			cb(state)
		}
	}
}

// Disconnect closes the transport deterministically and suppresses any
// further reconnect attempts.
func (c *Conn) Disconnect(ctx context.Context) error {
	c.explicitClose = true
	c.setState(StateClosing)
	c.stopOnce.Do(func() { close(c.stopCh) })
	_ = c.closeConn(websocket.StatusNormalClosure, "disconnect")

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if c.rootCancel != nil {
			c.rootCancel()
		}
		c.setState(StateClosed)
		return nil
	}
}

func (c *Conn) closeConn(code websocket.StatusCode, reason string) error {
	if c.conn == nil {
		return nil
	}
	defer func() { c.conn = nil }()
	return c.conn.Close(code, reason)
}

func (c *Conn) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}
