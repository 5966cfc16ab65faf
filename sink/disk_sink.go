// Package sink holds the permanent consumers of the archive pipeline.
package sink

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// DiskSink forwards delivered messages to the history store.
type DiskSink struct {
	history contract.HistoryStore
	log     *slog.Logger
}

func NewDiskSink(history contract.HistoryStore, log *slog.Logger) DiskSink {
	return DiskSink{history: history, log: log}
}

func (d DiskSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageBroadcast:
		return d.history.Record(evt.Message)
	default:
		return nil
	}
}
