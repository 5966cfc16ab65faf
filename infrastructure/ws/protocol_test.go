package ws

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
)

func TestFromDomainEvent(t *testing.T) {
	req := require.New(t)

	sentAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := domain.Message{
		Room:       "lobby",
		SenderName: "alice",
		Body:       "hello",
		Lang:       "en",
		Seq:        7,
		SentAt:     sentAt,
	}

	// Message broadcast
	evt, ok := fromDomainEvent(event.MessageBroadcast{Message: msg})
	req.True(ok)
	req.Equal(TypeMessage, evt.Type)
	req.Equal("lobby", evt.Room)
	req.NotNil(evt.Message)
	req.Equal("alice", evt.Message.Sender)
	req.Equal("hello", evt.Message.Body)
	req.Equal(uint64(7), evt.Message.Seq)
	req.Equal(sentAt, evt.Message.SentAt)

	// Presence update
	evt, ok = fromDomainEvent(event.PresenceUpdated{Room: "lobby", Online: []string{"alice", "bob"}})
	req.True(ok)
	req.Equal(TypePresence, evt.Type)
	req.Equal([]string{"alice", "bob"}, evt.Online)

	// History replay
	evt, ok = fromDomainEvent(event.HistoryReplay{Room: "lobby", Messages: []domain.Message{msg}})
	req.True(ok)
	req.Equal(TypeHistory, evt.Type)
	req.Len(evt.Messages, 1)
	req.Equal("hello", evt.Messages[0].Body)
}

func TestErrorEventCodes(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		err  error
		code string
	}{
		{errors.ErrInvalidRoomID, errors.CodeInvalidRoom},
		{errors.ErrInvalidMessage, errors.CodeInvalidMessage},
		{errors.ErrMessageTooLong, errors.CodeInvalidMessage},
		{errors.ErrNotMember, errors.CodeNotMember},
		{errors.ErrRoomFull, errors.CodeRoomFull},
		{stderrors.New("anything else"), errors.CodeInternal},
	}

	for _, tt := range tests {
		evt := errorEvent(tt.err)
		req.Equal(TypeError, evt.Type)
		req.Equal(tt.code, evt.Code)
		req.Equal(tt.err.Error(), evt.Detail)
	}

	evt := badRequestEvent("what even is this")
	req.Equal(errors.CodeBadRequest, evt.Code)
}
