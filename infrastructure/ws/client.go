package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"chat-relay/domain"
	"chat-relay/services"
)

const writeWait = 10 * time.Second

var validate = validator.New()

type joinRequest struct {
	Room string `validate:"required,max=64"`
	Name string `validate:"omitempty,max=32"`
}

// Client owns one websocket connection for the lifetime of its session.
// The read pump turns frames into service calls; the write pump drains the
// sink's channel and keeps the heartbeat alive.
type Client struct {
	log       *slog.Logger
	conn      *websocket.Conn
	sink      *connSink
	service   services.IChatService
	session   domain.Session
	heartbeat time.Duration
}

func newClient(log *slog.Logger, conn *websocket.Conn, sink *connSink,
	service services.IChatService, session domain.Session, heartbeat time.Duration) *Client {
	return &Client{
		log:       log.With("session_id", session.ID),
		conn:      conn,
		sink:      sink,
		service:   service,
		session:   session,
		heartbeat: heartbeat,
	}
}

// pongWait is the bounded window for disconnect detection: a client that
// answers no ping within two heartbeat intervals is treated as gone.
func (c *Client) pongWait() time.Duration {
	return 2 * c.heartbeat
}

// run blocks until the connection dies, then cascades the disconnect.
func (c *Client) run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.service.Disconnect(c.session.ID)
		_ = c.sink.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Warn("Unexpected websocket error", "error", err)
			}
			return
		}
		c.dispatch(raw)
	}
}

// dispatch decodes one client envelope and executes it. Synchronous errors
// go back to this connection only with a reason code; successful operations
// answer through the fan-out like everyone else's.
func (c *Client) dispatch(raw []byte) {
	var evt ClientEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		c.reply(badRequestEvent("malformed event"))
		return
	}

	switch evt.Type {
	case TypeJoin:
		req := joinRequest{Room: evt.Room, Name: evt.Name}
		if err := validate.Struct(req); err != nil {
			c.reply(badRequestEvent(err.Error()))
			return
		}
		if err := c.service.Join(c.session.ID, evt.Room, evt.Name); err != nil {
			c.reply(errorEvent(err))
		}
	case TypeLeave:
		if err := c.service.Leave(c.session.ID, evt.Room); err != nil {
			c.reply(errorEvent(err))
		}
	case TypeSend:
		if _, err := c.service.Send(c.session.ID, evt.Room, evt.Body); err != nil {
			c.reply(errorEvent(err))
		}
	case TypeSearch:
		ctx, cancel := contextWithTimeout()
		results, err := c.service.Search(ctx, c.session.ID, evt.Room, evt.Body)
		cancel()
		if err != nil {
			c.reply(errorEvent(err))
			return
		}
		c.reply(searchResultEvent(evt.Room, results))
	default:
		c.reply(badRequestEvent(fmt.Sprintf("unknown event type %q", evt.Type)))
	}
}

func (c *Client) reply(evt ServerEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		c.log.Error("Failed to marshal reply", "error", err)
		return
	}
	if !c.sink.enqueue(data) {
		c.log.Warn("Reply dropped, connection buffer full")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.heartbeat)
	defer func() {
		ticker.Stop()
		_ = c.sink.Close()
	}()

	for {
		select {
		case data := <-c.sink.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
