// Package search maintains a full-text index over archived messages and
// serves room-scoped queries against it.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"chat-relay/domain"
)

// Index wraps a Bluge writer. Messages are indexed by the archive pipeline
// and queried by the search operation; the index is rebuildable from history
// and therefore disposable.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// Open opens (or creates) an index at path. An empty path yields an
// in-memory index that vanishes on shutdown.
func Open(path string, log *slog.Logger) (*Index, error) {
	var cfg bluge.Config
	if path == "" {
		cfg = bluge.InMemoryOnlyConfig()
	} else {
		cfg = bluge.DefaultConfig(path)
	}

	writer, err := bluge.OpenWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening bluge index: %w", err)
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// Index adds one message to the index. The document id is room-scoped so a
// replayed archive event overwrites instead of duplicating.
func (i *Index) Index(msg domain.Message) error {
	docID := fmt.Sprintf("%s/%d", msg.Room, msg.Seq)
	doc := bluge.NewDocument(docID)
	doc.AddField(bluge.NewKeywordField("room", string(msg.Room)).StoreValue())
	doc.AddField(bluge.NewKeywordField("message_id", msg.ID.String()).StoreValue())
	doc.AddField(bluge.NewKeywordField("sender", msg.SenderName).StoreValue())
	doc.AddField(bluge.NewTextField("body", msg.Body).StoreValue())
	doc.AddField(bluge.NewKeywordField("seq", strconv.FormatUint(msg.Seq, 10)).StoreValue())
	doc.AddField(bluge.NewKeywordField("sent_at", msg.SentAt.UTC().Format(time.RFC3339Nano)).StoreValue())

	return i.writer.Update(doc.ID(), doc)
}

// Search returns up to limit messages of one room matching terms, best
// match first.
func (i *Index) Search(ctx context.Context, room domain.RoomID, terms string, limit int) ([]domain.Message, error) {
	if terms == "" || limit <= 0 {
		return nil, nil
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening index reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Failed to close index reader", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(string(room)).SetField("room")).
		AddMust(bluge.NewMatchQuery(terms).SetField("body"))

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	var results []domain.Message
	for {
		match, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		var msg domain.Message
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "room":
				msg.Room = domain.RoomID(value)
			case "message_id":
				if id, err := uuid.Parse(string(value)); err == nil {
					msg.ID = id
				}
			case "sender":
				msg.SenderName = string(value)
			case "body":
				msg.Body = string(value)
			case "seq":
				if seq, err := strconv.ParseUint(string(value), 10, 64); err == nil {
					msg.Seq = seq
				}
			case "sent_at":
				if at, err := time.Parse(time.RFC3339Nano, string(value)); err == nil {
					msg.SentAt = at
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		results = append(results, msg)
	}
	return results, nil
}
