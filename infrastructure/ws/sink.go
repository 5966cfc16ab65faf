package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"chat-relay/domain/event"
	"chat-relay/errors"
)

// connSink bridges the core's fan-out to one connection's buffered send
// channel. Consume is called under room locks, so it enqueues or refuses —
// it never blocks and never touches the network. The write pump drains the
// channel.
type connSink struct {
	send      chan []byte
	conn      *websocket.Conn
	closeOnce sync.Once
}

func newConnSink(conn *websocket.Conn, bufferSize int) *connSink {
	return &connSink{
		send: make(chan []byte, bufferSize),
		conn: conn,
	}
}

func (s *connSink) Consume(ctx context.Context, e event.DomainEvent) error {
	evt, ok := fromDomainEvent(e)
	if !ok {
		return nil
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	select {
	case s.send <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSlowConsumer
	}
}

// enqueue pushes an already-encoded frame, dropping it when the buffer is
// full. Used for direct replies to the connection's own requests.
func (s *connSink) enqueue(data []byte) bool {
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// Close tears the underlying connection down, which unblocks the read pump
// and lets the normal disconnect path run. The orchestrator calls this when
// it evicts a slow consumer.
func (s *connSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}
