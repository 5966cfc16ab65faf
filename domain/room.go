package domain

import (
	"fmt"
	"unicode"

	"chat-relay/errors"
)

// RoomID names a channel. Rooms are created lazily on first join and
// reclaimed once their membership becomes empty.
type RoomID string

const maxRoomIDLength = 64

// ParseRoomID validates a raw room identifier. Valid ids are non-empty,
// at most 64 runes, and restricted to letters, digits, '.', '_' and '-'.
func ParseRoomID(raw string) (RoomID, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: empty", errors.ErrInvalidRoomID)
	}
	runes := []rune(raw)
	if len(runes) > maxRoomIDLength {
		return "", fmt.Errorf("%w: longer than %d characters", errors.ErrInvalidRoomID, maxRoomIDLength)
	}
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			continue
		}
		return "", fmt.Errorf("%w: character %q not allowed", errors.ErrInvalidRoomID, r)
	}
	return RoomID(raw), nil
}
