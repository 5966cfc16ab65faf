package ws

import (
	"time"

	"github.com/samber/lo"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
)

// Client → server event types.
const (
	TypeJoin   = "join"
	TypeLeave  = "leave"
	TypeSend   = "send"
	TypeSearch = "search"
)

// Server → client event types.
const (
	TypeMessage      = "message"
	TypePresence     = "presence"
	TypeHistory      = "history"
	TypeSearchResult = "search_result"
	TypeError        = "error"
)

// ClientEvent is the JSON envelope a client sends over the socket.
type ClientEvent struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
	Name string `json:"name,omitempty"`
	Body string `json:"body,omitempty"`
}

// WireMessage is one chat message as seen on the wire.
type WireMessage struct {
	Sender string    `json:"sender"`
	Body   string    `json:"body"`
	Lang   string    `json:"lang,omitempty"`
	Seq    uint64    `json:"seq"`
	SentAt time.Time `json:"sentAt"`
}

// ServerEvent is the JSON envelope the server pushes to a client.
type ServerEvent struct {
	Type     string        `json:"type"`
	Room     string        `json:"room,omitempty"`
	Message  *WireMessage  `json:"message,omitempty"`
	Online   []string      `json:"online,omitempty"`
	Messages []WireMessage `json:"messages,omitempty"`
	Code     string        `json:"code,omitempty"`
	Detail   string        `json:"detail,omitempty"`
}

func toWireMessage(m domain.Message) WireMessage {
	return WireMessage{
		Sender: m.SenderName,
		Body:   m.Body,
		Lang:   m.Lang,
		Seq:    m.Seq,
		SentAt: m.SentAt,
	}
}

// fromDomainEvent converts a core event into its wire form. Events without a
// wire representation report false.
func fromDomainEvent(e event.DomainEvent) (ServerEvent, bool) {
	switch evt := e.(type) {
	case event.MessageBroadcast:
		wire := toWireMessage(evt.Message)
		return ServerEvent{
			Type:    TypeMessage,
			Room:    string(evt.Message.Room),
			Message: &wire,
		}, true
	case event.PresenceUpdated:
		return ServerEvent{
			Type:   TypePresence,
			Room:   string(evt.Room),
			Online: evt.Online,
		}, true
	case event.HistoryReplay:
		return ServerEvent{
			Type: TypeHistory,
			Room: string(evt.Room),
			Messages: lo.Map(evt.Messages, func(m domain.Message, _ int) WireMessage {
				return toWireMessage(m)
			}),
		}, true
	default:
		return ServerEvent{}, false
	}
}

func searchResultEvent(room string, results []domain.Message) ServerEvent {
	return ServerEvent{
		Type: TypeSearchResult,
		Room: room,
		Messages: lo.Map(results, func(m domain.Message, _ int) WireMessage {
			return toWireMessage(m)
		}),
	}
}

func errorEvent(err error) ServerEvent {
	return ServerEvent{
		Type:   TypeError,
		Code:   errors.Code(err),
		Detail: err.Error(),
	}
}

func badRequestEvent(detail string) ServerEvent {
	return ServerEvent{
		Type:   TypeError,
		Code:   errors.CodeBadRequest,
		Detail: detail,
	}
}
