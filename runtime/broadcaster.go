package runtime

import (
	"log/slog"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
)

// Broadcaster stamps messages with a per-room sequence number and fans them
// out to a fixed membership snapshot. Validation and moderation happen
// before the room lock is taken, so rejected sends never consume a sequence
// number and the serialized section stays small.
type Broadcaster struct {
	log       *slog.Logger
	registry  *Registry
	sessions  *SessionManager
	moderator *moderation.Moderator // nil disables censoring
	archive   chan<- event.DomainEvent
	evict     func(sessionID string)
	maxBody   int
}

func NewBroadcaster(log *slog.Logger, registry *Registry, sessions *SessionManager,
	moderator *moderation.Moderator, archive chan<- event.DomainEvent, maxBody int) *Broadcaster {
	return &Broadcaster{
		log:       log,
		registry:  registry,
		sessions:  sessions,
		moderator: moderator,
		archive:   archive,
		maxBody:   maxBody,
	}
}

func (b *Broadcaster) OnEvict(fn func(sessionID string)) {
	b.evict = fn
}

// Send validates, stamps and delivers one message to every current member of
// the room, the sender included. Per-recipient delivery is best-effort: a
// slow or gone recipient never blocks the others.
func (b *Broadcaster) Send(senderID string, room domain.RoomID, body string) (domain.Message, error) {
	if strings.TrimSpace(body) == "" {
		return domain.Message{}, errors.ErrInvalidMessage
	}
	if b.maxBody > 0 && len(body) > b.maxBody {
		return domain.Message{}, errors.ErrMessageTooLong
	}

	sender, ok := b.sessions.Lookup(senderID)
	if !ok {
		return domain.Message{}, errors.ErrNotMember
	}

	info := whatlanggo.Detect(body)
	lang := info.Lang.Iso6391()

	censored := body
	var flagged []string
	if b.moderator != nil {
		censored, flagged = b.moderator.Censor(body)
	}

	var msg domain.Message
	err := b.registry.Broadcast(senderID, room, func(seq uint64, members []string) {
		msg = domain.Message{
			ID:         uuid.New(),
			Room:       room,
			SenderID:   senderID,
			SenderName: sender.DisplayName,
			Body:       censored,
			Lang:       lang,
			Seq:        seq,
			SentAt:     time.Now().UTC(),
		}
		deliverToMembers(b.sessions, b.log, b.evict, members, event.MessageBroadcast{Message: msg})
	})
	if err != nil {
		return domain.Message{}, err
	}

	if len(flagged) > 0 {
		b.log.Warn("Censored words in message",
			"room", room, "sender", sender.DisplayName, "count", len(flagged))
	}
	b.toArchive(event.MessageBroadcast{Message: msg})
	return msg, nil
}

// toArchive forwards the delivered message to the archive pipeline without
// ever blocking the send path.
func (b *Broadcaster) toArchive(evt event.DomainEvent) {
	if b.archive == nil {
		return
	}
	select {
	case b.archive <- evt:
	default:
		b.log.Warn("Archive channel full, dropping event", "room", evt.RoomID())
	}
}
