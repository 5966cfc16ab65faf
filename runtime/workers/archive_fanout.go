package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

const sinkTimeout = 2 * time.Second

// ArchiveFanout drains the archive channel and hands each event to the
// permanent sinks (history store, search index).
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// durability, or retries; the send path has already completed by the time an
// event reaches this worker, so a failing sink only costs archive data.
type ArchiveFanout struct {
	log    *slog.Logger
	events <-chan event.DomainEvent
	sinks  []contract.EventSink
}

func NewArchiveFanout(log *slog.Logger, events <-chan event.DomainEvent,
	sinks []contract.EventSink) *ArchiveFanout {
	return &ArchiveFanout{log: log, events: events, sinks: sinks}
}

func (w *ArchiveFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping archive fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			w.fanout(ctx, evt)
		}
	}
}

// fanout delivers one event to each sink; one sink failing never stops the
// others.
func (w *ArchiveFanout) fanout(ctx context.Context, evt event.DomainEvent) {
	for _, s := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		if err := s.Consume(sinkCtx, evt); err != nil {
			w.log.Error("Archive sink failed", "room", evt.RoomID(), "error", err)
		}
		cancel()
	}
}
