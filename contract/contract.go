//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself; supervision lives in the supervisor.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes, avoiding the need for
// manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives domain events for one consumer. Implementations called
// from the fan-out path must not block: enqueue or fail.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// HistoryStore is the optional external sink for delivered messages.
// Record is fire-and-forget from the broadcaster's point of view;
// FetchRecent seeds a newly joined client. Absence of a store simply means
// new joiners see no history.
type HistoryStore interface {
	Record(msg domain.Message) error
	FetchRecent(room domain.RoomID, limit int) ([]domain.Message, error)
}

// MessageIndex is the optional full-text index over archived messages.
type MessageIndex interface {
	Index(msg domain.Message) error
	Search(ctx context.Context, room domain.RoomID, terms string, limit int) ([]domain.Message, error)
}

// Verifier is the identity provider boundary: it turns a credential supplied
// at connect time into a verified display name the core trusts for the
// connection's lifetime.
type Verifier interface {
	Verify(token string) (displayName string, err error)
}
