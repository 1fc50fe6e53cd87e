package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"study-chat/internal/models"
	"study-chat/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Conn is one authenticated socket. Writes go through the send buffer and are
// performed by writePump only.
type Conn struct {
	ID   string
	User models.Identity
	Info ConnInfo

	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc
	log    *zap.Logger
}

func newConn(socket *websocket.Conn, user models.Identity, info ConnInfo, buffer int, log *zap.Logger) *Conn {
	if buffer <= 0 {
		buffer = 256
	}
	id := uuid.NewString()
	return &Conn{
		ID:   id,
		User: user,
		Info: info,
		ws:   socket,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
		log:  log.With(zap.String("conn_id", id), zap.String("user_id", user.UserID)),
	}
}

// Send enqueues a frame. It never blocks: a full buffer drops the frame.
func (c *Conn) Send(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		observability.IncDroppedFrame()
		c.log.Warn("send buffer full, dropping frame")
		return false
	}
}

// Close stops the write pump and cancels the connection context. Safe to call repeatedly.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.cancel != nil {
			c.cancel()
		}
	})
}

func (c *Conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("websocket write failed", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// readPump hands every frame to handle in arrival order and returns the close reason.
func (c *Conn) readPump(handle func([]byte)) string {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("websocket read failed", zap.Error(err))
			}
			return err.Error()
		}
		if c.closed() {
			return "closed"
		}
		handle(raw)
	}
}
