package sink

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// IndexSink forwards delivered messages to the full-text index.
type IndexSink struct {
	index contract.MessageIndex
	log   *slog.Logger
}

func NewIndexSink(index contract.MessageIndex, log *slog.Logger) IndexSink {
	return IndexSink{index: index, log: log}
}

func (s IndexSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageBroadcast:
		return s.index.Index(evt.Message)
	default:
		return nil
	}
}
