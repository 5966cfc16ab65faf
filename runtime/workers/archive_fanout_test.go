package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestArchiveFanout_DeliversToEverySink(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	diskSink := mocks.NewMockEventSink(ctrl)
	indexSink := mocks.NewMockEventSink(ctrl)

	events := make(chan event.DomainEvent, 1)
	worker := NewArchiveFanout(log, events, []contract.EventSink{diskSink, indexSink})

	evt := event.MessageBroadcast{Message: domain.Message{Room: "lobby", Body: "hello", Seq: 1}}

	done := make(chan struct{})
	// Given both permanent sinks consume the event
	diskSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	indexSink.EXPECT().Consume(gomock.Any(), evt).
		DoAndReturn(func(ctx context.Context, e event.DomainEvent) error {
			close(done)
			return nil
		}).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	// When an event reaches the archive channel
	events <- evt

	// Then both sinks were consumed
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		req.Fail("Event did not reach the sinks in time")
	}
}

func TestArchiveFanout_OneFailingSinkDoesNotStopOthers(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	failing := mocks.NewMockEventSink(ctrl)
	healthy := mocks.NewMockEventSink(ctrl)

	events := make(chan event.DomainEvent, 1)
	worker := NewArchiveFanout(log, events, []contract.EventSink{failing, healthy})

	evt := event.MessageBroadcast{Message: domain.Message{Room: "lobby", Body: "hello", Seq: 1}}

	done := make(chan struct{})
	// Given the first sink fails
	failing.EXPECT().Consume(gomock.Any(), evt).Return(fmt.Errorf("disk full")).Times(1)
	// Then the second sink is still consumed
	healthy.EXPECT().Consume(gomock.Any(), evt).
		DoAndReturn(func(ctx context.Context, e event.DomainEvent) error {
			close(done)
			return nil
		}).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	events <- evt

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		req.Fail("Healthy sink was never consumed")
	}
}

func TestArchiveFanout_StopsOnClosedChannel(t *testing.T) {
	req := require.New(t)
	log := slog.Default()

	events := make(chan event.DomainEvent)
	worker := NewArchiveFanout(log, events, nil)

	done := make(chan struct{})
	go func() {
		req.NoError(worker.Run(context.Background()))
		close(done)
	}()

	// When the producer closes the channel
	close(events)

	// Then the worker drains and returns nil
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		req.Fail("Worker should have returned after channel close")
	}
}
