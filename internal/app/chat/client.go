/*
Package chat implements the presence and room-membership coordinator.

A Hub owns the presence Registry and the room Directory, admits authenticated
connections, dispatches their inbound events, and tears them down on disconnect.
The Router fans chat messages and typing feedback out to room members. Client wraps
one WebSocket connection with its read and write pumps.
*/
package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"lobbychat/internal/app/user"
	"lobbychat/internal/pkg/errs"
	"lobbychat/internal/pkg/logx"
	"lobbychat/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 16 * 1024

	// sendQueueSize is the number of outbound frames buffered per connection.
	sendQueueSize = 256

	// WsCloseCodeSessionKicked is a custom WebSocket Close Code (4000-4999 range)
	// used to signal the client that the session was replaced by a new connection.
	WsCloseCodeSessionKicked = 4001
)

// Client is one admitted WebSocket connection bound to an identity.
type Client struct {
	// ID is unique per connection, so a reconnect of the same identity gets a new one.
	ID string

	identity    user.Identity
	connectedAt time.Time

	// conn is nil for connections driven directly through the Hub in tests.
	conn *websocket.Conn

	mu       sync.Mutex
	send     chan []byte
	closed   bool
	closeMsg []byte

	gone atomic.Bool

	logger zerolog.Logger
}

// NewClient wraps conn for identity. The identity snapshot is marked online.
func NewClient(conn *websocket.Conn, identity user.Identity) *Client {
	identity.IsOnline = true
	identity.LastSeen = time.Now().UTC()

	id := randx.ConnID()

	return &Client{
		ID:          id,
		identity:    identity,
		connectedAt: identity.LastSeen,
		conn:        conn,
		send:        make(chan []byte, sendQueueSize),
		logger: logx.Logger().With().
			Str("component", "client").
			Str("conn_id", id).
			Str("user_id", identity.ID).
			Str("username", identity.Username).
			Logger(),
	}
}

// Identity returns the identity snapshot captured at admission.
func (c *Client) Identity() user.Identity {
	return c.identity
}

// Send queues an encoded frame without blocking.
func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("send queue full, dropping frame")
		return ErrSendQueueFull
	}
}

// Emit encodes data as event and queues it.
func (c *Client) Emit(event string, data any) error {
	frame, err := encodeFrame(event, data)
	if err != nil {
		c.logger.Error().Err(err).Str("event", event).Msg("encode outbound frame")
		return err
	}
	return c.Send(frame)
}

// SendError queues an error event carrying customErr.
func (c *Client) SendError(customErr *errs.CustomError) {
	if customErr == nil {
		return
	}
	if err := c.Emit(EventError, errorPayload{Code: customErr.Code, Message: customErr.Message}); err != nil {
		c.logger.Debug().Err(err).Int("code", customErr.Code).Msg("error event not queued")
	}
}

// Close stops the write pump after it flushes queued frames. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Kick closes the connection with close code 4001 telling the client its session
// was replaced.
func (c *Client) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeSessionKicked).
		Str("reason", reason).
		Msg("kicking connection")

	c.mu.Lock()
	if !c.closed {
		c.closeMsg = websocket.FormatCloseMessage(WsCloseCodeSessionKicked, reason)
	}
	c.mu.Unlock()

	c.Close()
}

// markGone flags the connection as torn down and reports whether this call did it.
func (c *Client) markGone() bool {
	return c.gone.CompareAndSwap(false, true)
}

func (c *Client) isGone() bool {
	return c.gone.Load()
}

// ReadPump reads frames until the connection fails and hands each to hub in order.
// The hub teardown runs when it returns.
func (c *Client) ReadPump(hub *Hub) {
	defer func() {
		hub.Disconnect(c)
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("connection close")
		}
	}()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("connection closed unexpectedly")
			}
			return
		}

		hub.HandleInbound(c, raw)
	}
}

// WritePump drains the send queue to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("connection close in write pump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueued(frame, ok) {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug().Err(err).Msg("ping failed")
				return
			}
		}
	}
}

// writeQueued writes one queued frame, or the close frame once the queue is closed.
// It returns false when the pump should stop.
func (c *Client) writeQueued(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("failed to set write deadline")
		return false
	}

	if !ok {
		c.mu.Lock()
		closeMsg := c.closeMsg
		c.mu.Unlock()

		if closeMsg == nil {
			closeMsg = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		}
		if err := c.conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
			c.logger.Debug().Err(err).Msg("error writing close frame")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn().Err(err).Msg("error writing frame")
		return false
	}

	return true
}
