package transport

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	sendChSize   = 10_000
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
)

// connection manages a rosbridge websocket with a single write goroutine.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{} // closed on shutdown
	closed bool

	wsURL   string
	backoff time.Duration

	// Advertise/subscribe requests replayed after reconnect, keyed by request id.
	replay      map[string][]byte
	replayOrder []string

	onMessage func([]byte)
	logger    *slog.Logger
}

func newConnection(logger *slog.Logger, onMessage func([]byte)) *connection {
	return &connection{
		sendCh:    make(chan []byte, sendChSize),
		done:      make(chan struct{}),
		backoff:   time.Second,
		replay:    make(map[string][]byte),
		onMessage: onMessage,
		logger:    logger,
	}
}

// dial connects to the rosbridge server and starts read/write loops.
func (c *connection) dial(rawURL string) error {
	c.wsURL = rawURL

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.start(conn)

	return nil
}

// start runs the loops for conn. The write loop exits once the read loop does.
func (c *connection) start(conn *ws.Conn) {
	gone := make(chan struct{})
	go c.writeLoop(conn, gone)
	go c.readLoop(conn, gone)
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid rosbridge URL: %w", err)
	}

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("rosbridge dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// writeLoop drains sendCh onto conn. It returns on error or shutdown; on error
// it hands over to reconnect.
func (c *connection) writeLoop(conn *ws.Conn, gone <-chan struct{}) {
	for {
		select {
		case <-c.done:
			return
		case <-gone:
			return
		case data := <-c.sendCh:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("Rosbridge SetWriteDeadline error", "error", err)
				go c.reconnect(conn)
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("Rosbridge write error", "error", err)
				go c.reconnect(conn)
				return
			}
		}
	}
}

// readLoop forwards inbound frames to onMessage until the socket fails.
func (c *connection) readLoop(conn *ws.Conn, gone chan<- struct{}) {
	defer close(gone)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("Rosbridge read error", "error", err)
			go c.reconnect(conn)
			return
		}
		if c.onMessage != nil {
			c.onMessage(message)
		}
	}
}

// reconnect re-establishes the connection with exponential backoff, replays
// every advertise/subscribe request and restarts the loops. Only the first
// caller for a broken conn does the work.
func (c *connection) reconnect(broken *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != broken {
		c.mu.Unlock()
		return
	}
	_ = c.conn.Close()
	c.conn = nil
	backoff := c.backoff
	c.mu.Unlock()

	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("Reconnecting to rosbridge", "attempt", attempt, "backoff", backoff)

		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		if err := c.replayTo(conn); err != nil {
			c.logger.Warn("Failed to replay requests after reconnect", "error", err)
			_ = conn.Close()
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.logger.Info("Rosbridge reconnected", "attempt", attempt)
		c.start(conn)
		return
	}

	c.logger.Error("Rosbridge reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

func (c *connection) replayTo(conn *ws.Conn) error {
	c.mu.Lock()
	msgs := make([][]byte, 0, len(c.replayOrder))
	for _, id := range c.replayOrder {
		msgs = append(msgs, c.replay[id])
	}
	c.mu.Unlock()

	for _, data := range msgs {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
			return err
		}
	}
	return nil
}

// remember stores a request for replay after reconnect and sends it now.
func (c *connection) remember(id string, data []byte) {
	c.mu.Lock()
	if _, ok := c.replay[id]; !ok {
		c.replayOrder = append(c.replayOrder, id)
	}
	c.replay[id] = data
	c.mu.Unlock()
	c.send(data)
}

// forget drops a request from the replay set.
func (c *connection) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.replay[id]; !ok {
		return
	}
	delete(c.replay, id)
	for i, v := range c.replayOrder {
		if v == id {
			c.replayOrder = append(c.replayOrder[:i], c.replayOrder[i+1:]...)
			break
		}
	}
}

// send pushes data to the write loop. Non-blocking; drops if channel full.
func (c *connection) send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		c.logger.Warn("Rosbridge send channel full, dropping message")
		return false
	}
}

// close sends a websocket close frame and shuts down all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		return conn.Close()
	}
	return nil
}
