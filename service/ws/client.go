package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const writeWait = 5 * time.Second

// Transport is the slice of *websocket.Conn the session layer writes
// through. Narrowed to an interface so delivery paths can be exercised
// without a network socket.
type Transport interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is the ownership-exclusive handle to one live connection. It
// belongs to exactly one user and one channel namespace for its whole
// lifetime. All writes are serialized through its mutex and carry a
// write deadline; a stalled peer turns into a timeout error, which the
// callers treat as a delivery failure.
type Client struct {
	connID string
	userID int64
	link   Transport

	mu       sync.Mutex
	closed   bool
	once     sync.Once
	lastPong time.Time
}

func NewClient(connID string, userID int64, link Transport) *Client {
	return &Client{connID: connID, userID: userID, link: link, lastPong: time.Now()}
}

func (c *Client) ConnID() string { return c.connID }
func (c *Client) UserID() int64  { return c.userID }

func (c *Client) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// SendJSON marshals v and writes it as one text frame.
func (c *Client) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal frame")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	if err := c.link.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return errors.Wrap(err, "set write deadline")
	}
	return c.link.WriteMessage(websocket.TextMessage, data)
}

// Ping sends a zero-length PING control frame.
func (c *Client) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	return c.link.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close shuts the transport down. Safe to call more than once.
func (c *Client) Close(code int, reason string) {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		_ = c.link.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.link.Close()
		c.mu.Unlock()
	})
}

// MarkPong records pong receipt. Observational only; eviction stays
// with the transport's own close detection.
func (c *Client) MarkPong() {
	c.mu.Lock()
	c.lastPong = time.Now()
	c.mu.Unlock()
}

func (c *Client) LastPong() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPong
}
