package handlers

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/4cecoder/snakearena/config"
	"github.com/4cecoder/snakearena/models"
	"github.com/4cecoder/snakearena/protocol"
)

var (
	ErrSendBufferFull = errors.New("send buffer is full")
	ErrClientClosed   = errors.New("client is closed")
)

type EventType int

const (
	EventTypeMessage EventType = iota
	EventTypeLogin
	EventTypeLogout
	EventTypeError
)

type Event struct {
	Type    EventType
	Client  *Client
	Message models.ClientMessage
	Err     error
}

// Client is one WebSocket connection. It implements session.Conn: Send hands
// a frame to the write pump without blocking and Buffered reports the bytes
// handed over but not yet written.
type Client struct {
	ID   string
	Name string

	conn     *websocket.Conn
	cfg      config.NetworkConfig
	binary   bool
	log      *log.Logger
	send     chan []byte
	buffered atomic.Int64
	done     chan struct{}
	once     sync.Once
}

func NewClient(id string, conn *websocket.Conn, cfg config.NetworkConfig, binary bool, logger *log.Logger) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		cfg:    cfg,
		binary: binary,
		log:    logger.With("client", id),
		send:   make(chan []byte, cfg.SendQueueSize),
		done:   make(chan struct{}),
	}
}

// pongWait is how long a connection may stay silent: two missed heartbeats.
func (c *Client) pongWait() time.Duration {
	return 2 * c.cfg.HeartbeatInterval
}

func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- data:
		c.buffered.Add(int64(len(data)))
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) Buffered() int {
	return int(c.buffered.Load())
}

// Close sends a close frame and tears the connection down. It is safe to call
// more than once and from any goroutine.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		deadline := time.Now().Add(c.cfg.WriteWait)
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = c.conn.Close()
	})
	return err
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// AwaitHello reads frames until a valid hello arrives and returns the player
// name. Anything else sent before the hello is dropped.
func (c *Client) AwaitHello() (string, error) {
	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	})
	for {
		msg, err := c.readMessage()
		if err != nil {
			return "", err
		}
		if msg.Type == models.MsgHello {
			c.Name = msg.Name
			c.emitEvent(Event{Type: EventTypeLogin, Client: c})
			return msg.Name, nil
		}
	}
}

// ReadPump delivers every valid inbound message to handle until the
// connection fails or is closed.
func (c *Client) ReadPump(handle func(models.ClientMessage)) {
	defer func() {
		c.emitEvent(Event{Type: EventTypeLogout, Client: c})
		c.Close()
	}()

	for {
		msg, err := c.readMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.emitEvent(Event{Type: EventTypeError, Client: c, Err: err})
			}
			return
		}
		c.emitEvent(Event{Type: EventTypeMessage, Client: c, Message: msg})
		handle(msg)
	}
}

// readMessage returns the next valid message, skipping frames that fail to
// decode.
func (c *Client) readMessage() (models.ClientMessage, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return models.ClientMessage{}, err
		}
		msg, err := protocol.Decode(messageType == websocket.BinaryMessage, data)
		if err != nil {
			c.log.Debug("dropped message", "err", err)
			continue
		}
		return msg, nil
	}
}

// WritePump writes queued frames and heartbeat pings until the client is
// closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	frameType := websocket.TextMessage
	if c.binary {
		frameType = websocket.BinaryMessage
	}
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			err := c.conn.WriteMessage(frameType, data)
			c.buffered.Add(-int64(len(data)))
			if err != nil {
				c.emitEvent(Event{Type: EventTypeError, Client: c, Err: err})
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.emitEvent(Event{Type: EventTypeError, Client: c, Err: err})
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) emitEvent(event Event) {
	switch event.Type {
	case EventTypeMessage:
		c.log.Debug("message", "type", event.Message.Type)
	case EventTypeLogin:
		c.log.Info("player joined", "name", c.Name)
	case EventTypeLogout:
		c.log.Info("player left", "name", c.Name)
	case EventTypeError:
		c.log.Warn("connection error", "err", event.Err)
	}
}
