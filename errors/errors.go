package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrInvalidRoomID   = fmt.Errorf("invalid room id")
	ErrInvalidMessage  = fmt.Errorf("empty message body")
	ErrMessageTooLong  = fmt.Errorf("message body too long")
	ErrNotMember       = fmt.Errorf("sender is not a member of the room")
	ErrRoomFull        = fmt.Errorf("room is full")
	ErrSessionNotFound = fmt.Errorf("session not found")
	ErrSlowConsumer    = fmt.Errorf("connection buffer full")
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrEmptyWords      = fmt.Errorf("no words have been found")
)

// Reason codes carried by the wire error event.
const (
	CodeInvalidRoom    = "INVALID_ROOM"
	CodeInvalidMessage = "INVALID_MESSAGE"
	CodeNotMember      = "NOT_MEMBER"
	CodeRoomFull       = "ROOM_FULL"
	CodeBadRequest     = "BAD_REQUEST"
	CodeInternal       = "INTERNAL"
)

// Code maps a domain error to the reason code returned to the initiating
// client. Unknown errors map to INTERNAL.
func Code(err error) string {
	switch {
	case stderrors.Is(err, ErrInvalidRoomID):
		return CodeInvalidRoom
	case stderrors.Is(err, ErrInvalidMessage), stderrors.Is(err, ErrMessageTooLong):
		return CodeInvalidMessage
	case stderrors.Is(err, ErrNotMember), stderrors.Is(err, ErrSessionNotFound):
		return CodeNotMember
	case stderrors.Is(err, ErrRoomFull):
		return CodeRoomFull
	default:
		return CodeInternal
	}
}
