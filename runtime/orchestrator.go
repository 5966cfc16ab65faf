package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/runtime/workers"
	"chat-relay/search"
	"chat-relay/sink"
)

// Options are the documented knobs of the core. Zero values fall back to
// defaults at construction.
type Options struct {
	MaxRoomSize       int // 256
	MaxMessageLength  int // 4096
	HistoryPageSize   int // 50
	ArchiveBufferSize int // 1024
}

func (o Options) withDefaults() Options {
	if o.MaxRoomSize == 0 {
		o.MaxRoomSize = 256
	}
	if o.MaxMessageLength == 0 {
		o.MaxMessageLength = 4096
	}
	if o.HistoryPageSize == 0 {
		o.HistoryPageSize = 50
	}
	if o.ArchiveBufferSize == 0 {
		o.ArchiveBufferSize = 1024
	}
	return o
}

// Orchestrator composes the session manager, room registry, presence tracker
// and broadcaster into the operations the transport calls, and runs the
// archive pipeline under supervision.
type Orchestrator struct {
	log         *slog.Logger
	opts        Options
	sessions    *SessionManager
	registry    *Registry
	presence    *PresenceTracker
	broadcaster *Broadcaster
	supervisor  contract.ISupervisor
	history     contract.HistoryStore // nil: joiners see no history
	index       contract.MessageIndex // nil: search returns nothing
	archive     chan event.DomainEvent
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	history contract.HistoryStore, index contract.MessageIndex,
	moderator *moderation.Moderator, opts Options) *Orchestrator {
	opts = opts.withDefaults()

	sessions := NewSessionManager()
	registry := NewRegistry(log, sessions, opts.MaxRoomSize)
	archive := make(chan event.DomainEvent, opts.ArchiveBufferSize)

	o := &Orchestrator{
		log:         log,
		opts:        opts,
		sessions:    sessions,
		registry:    registry,
		presence:    NewPresenceTracker(log, sessions),
		broadcaster: NewBroadcaster(log, registry, sessions, moderator, archive, opts.MaxMessageLength),
		supervisor:  supervisor,
		history:     history,
		index:       index,
		archive:     archive,
	}
	o.presence.OnEvict(o.Disconnect)
	o.broadcaster.OnEvict(o.Disconnect)
	return o
}

// Start registers the archive pipeline with the supervisor and launches it.
// It returns immediately; workers stop when ctx is canceled.
func (o *Orchestrator) Start(ctx context.Context) error {
	var sinks []contract.EventSink
	if o.history != nil {
		sinks = append(sinks, sink.NewDiskSink(o.history, o.log))
	}
	if o.index != nil {
		sinks = append(sinks, sink.NewIndexSink(o.index, o.log))
	}
	if len(sinks) > 0 {
		o.supervisor.Add(workers.NewArchiveFanout(o.log, o.archive, sinks))
	}

	o.log.Info("Starting orchestrator and all supervised workers")
	go o.supervisor.Run(ctx)
	return nil
}

// Stop cancels the supervised workers.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

// Connect registers a new session for one connection. displayName may be
// empty when no identity token was presented; the first join supplies it.
func (o *Orchestrator) Connect(displayName string, s contract.EventSink) domain.Session {
	sess := o.sessions.Register(displayName, s)
	o.log.Info("Session connected", "session_id", sess.ID, "name", sess.DisplayName)
	return sess
}

// Disconnect removes the session and cascades the removal through every room
// it belonged to, emitting exactly one presence update per affected room.
// Idempotent: unknown sessions are ignored.
func (o *Orchestrator) Disconnect(sessionID string) {
	rooms, s, ok := o.sessions.Deregister(sessionID)
	if !ok {
		return
	}

	for _, room := range rooms {
		room := room
		o.registry.Leave(sessionID, room, func(members []string) {
			o.presence.Publish(room, members)
		})
	}

	if closer, ok := s.(io.Closer); ok {
		_ = closer.Close()
	}
	o.log.Info("Session disconnected", "session_id", sessionID, "rooms", len(rooms))
}

// Join adds the session to a room, publishing the new presence snapshot and
// seeding the joiner with recent history. Idempotent; a join for an unknown
// session is a no-op, not an error.
func (o *Orchestrator) Join(sessionID, rawRoom, displayName string) error {
	room, err := domain.ParseRoomID(rawRoom)
	if err != nil {
		return err
	}

	o.sessions.SetName(sessionID, displayName)
	if !o.sessions.Track(sessionID, room) {
		return nil
	}

	joined, err := o.registry.Join(sessionID, room, func(members []string) {
		o.presence.Publish(room, members)
	})
	if err != nil {
		o.sessions.Untrack(sessionID, room)
		return err
	}
	if !joined {
		return nil
	}

	o.seedHistory(sessionID, room)
	return nil
}

// Leave removes the session from a room. Leaving a room one is not in has no
// additional effect and is not an error.
func (o *Orchestrator) Leave(sessionID, rawRoom string) error {
	room, err := domain.ParseRoomID(rawRoom)
	if err != nil {
		return err
	}

	o.registry.Leave(sessionID, room, func(members []string) {
		o.presence.Publish(room, members)
	})
	o.sessions.Untrack(sessionID, room)
	return nil
}

// Send broadcasts one message to the room's current members.
func (o *Orchestrator) Send(sessionID, rawRoom, body string) (domain.Message, error) {
	room, err := domain.ParseRoomID(rawRoom)
	if err != nil {
		return domain.Message{}, err
	}
	return o.broadcaster.Send(sessionID, room, body)
}

// Search runs a room-scoped full-text query over archived messages on behalf
// of a member. Results go to the caller only.
func (o *Orchestrator) Search(ctx context.Context, sessionID, rawRoom, rawQuery string) ([]domain.Message, error) {
	room, err := domain.ParseRoomID(rawRoom)
	if err != nil {
		return nil, err
	}
	if !o.registry.IsMember(sessionID, room) {
		return nil, errors.ErrNotMember
	}
	if o.index == nil {
		return nil, nil
	}

	q := search.Parse(rawQuery)
	limit := q.Limit
	if limit <= 0 {
		limit = o.opts.HistoryPageSize
	}
	return o.index.Search(ctx, room, q.Terms, limit)
}

// MembersOf exposes the registry's point-in-time membership snapshot.
func (o *Orchestrator) MembersOf(rawRoom string) ([]string, error) {
	room, err := domain.ParseRoomID(rawRoom)
	if err != nil {
		return nil, err
	}
	return o.registry.MembersOf(room), nil
}

// Stats reports live gauges for the telemetry worker.
func (o *Orchestrator) Stats() (sessions, rooms, members int) {
	rooms, members = o.registry.Stats()
	return o.sessions.Count(), rooms, members
}

// seedHistory pushes the most recent messages of the room to the new joiner
// only. Best-effort: a failure here never fails the join.
func (o *Orchestrator) seedHistory(sessionID string, room domain.RoomID) {
	if o.history == nil {
		return
	}

	messages, err := o.history.FetchRecent(room, o.opts.HistoryPageSize)
	if err != nil {
		o.log.Warn("Failed to fetch history for new joiner",
			"room", room, "error", err)
		return
	}
	if len(messages) == 0 {
		return
	}

	s, ok := o.sessions.Sink(sessionID)
	if !ok {
		return
	}
	evt := event.HistoryReplay{Room: room, Messages: messages}
	if err := s.Consume(context.Background(), evt); err != nil {
		o.log.Warn("Failed to seed history", "session_id", sessionID,
			"room", room, "error", fmt.Errorf("history replay: %w", err))
	}
}
