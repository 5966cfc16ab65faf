// Messages are immutable once created. They are owned by the broadcaster
// until delivered, then by the optional history store.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is one chat event fanned out to a room.
type Message struct {
	ID         uuid.UUID
	Room       RoomID
	SenderID   string
	SenderName string // captured at send time
	Body       string
	Lang       string // ISO 639-1 code detected at send time, may be empty
	Seq        uint64 // monotonic per room, assigned at fan-out time
	SentAt     time.Time
}
