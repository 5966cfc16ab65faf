package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-relay/domain"
)

// BadgerHistory persists delivered messages in BadgerDB.
// The key is formatted as "msg:{room}:{seq_padded}" so that a prefix scan
// returns messages in sequence order: 19-digit zero padding keeps the
// lexicographical order aligned with the numeric one.
type BadgerHistory struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerHistory(db *badger.DB, log *slog.Logger) BadgerHistory {
	return BadgerHistory{db: db, log: log}
}

type diskMessage struct {
	ID         uuid.UUID     `json:"id"`
	Room       domain.RoomID `json:"room"`
	SenderID   string        `json:"sender_id"`
	SenderName string        `json:"sender_name"`
	Body       string        `json:"body"`
	Lang       string        `json:"lang,omitempty"`
	Seq        uint64        `json:"seq"`
	SentAt     time.Time     `json:"sent_at"`
}

func roomPrefix(room domain.RoomID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", room))
}

// Record persists one message. Sequence numbers are unique for a room's
// lifetime, so writes never collide while the room exists.
func (h BadgerHistory) Record(msg domain.Message) error {
	key := fmt.Sprintf("msg:%s:%019d", msg.Room, msg.Seq)
	bytes, err := json.Marshal(fromMessage(msg))
	if err != nil {
		return err
	}
	return h.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// FetchRecent returns up to limit of the latest messages for a room in
// chronological order. It iterates the prefix in reverse and flips the
// result, so old history never has to be scanned.
func (h BadgerHistory) FetchRecent(room domain.RoomID, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	var stored []diskMessage
	err := h.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the highest possible sequence for this room.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(stored) == limit {
				break
			}
			var dm diskMessage
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &dm)
			})
			if err != nil {
				return err
			}
			stored = append(stored, dm)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse order back to chronological.
	for i, j := 0, len(stored)-1; i < j; i, j = i+1, j-1 {
		stored[i], stored[j] = stored[j], stored[i]
	}
	return lo.Map(stored, func(dm diskMessage, _ int) domain.Message {
		return toMessage(dm)
	}), nil
}

func fromMessage(msg domain.Message) diskMessage {
	return diskMessage{
		ID:         msg.ID,
		Room:       msg.Room,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Body:       msg.Body,
		Lang:       msg.Lang,
		Seq:        msg.Seq,
		SentAt:     msg.SentAt,
	}
}

func toMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:         dm.ID,
		Room:       dm.Room,
		SenderID:   dm.SenderID,
		SenderName: dm.SenderName,
		Body:       dm.Body,
		Lang:       dm.Lang,
		Seq:        dm.Seq,
		SentAt:     dm.SentAt,
	}
}
