package main

import (
	"fmt"
	"strings"
	"time"
)

// Config holds every documented knob of the server. All values have working
// defaults; only secrets and storage paths are environment-specific.
type Config struct {
	Host           string `env:"HOST,default=0.0.0.0"`
	Port           int    `env:"PORT,default=8080" validate:"gt=0,lte=65535"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"` // comma separated; empty allows all

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=30s" validate:"gt=0"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=30s" validate:"gt=0"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`

	MaxRoomSize          int   `env:"MAX_ROOM_SIZE,default=256" validate:"gt=0"`
	MaxMessageLength     int   `env:"MAX_MESSAGE_LENGTH,default=4096" validate:"gt=0"`
	MaxFrameSize         int64 `env:"MAX_FRAME_SIZE,default=8192" validate:"gt=0"`
	HistoryPageSize      int   `env:"HISTORY_PAGE_SIZE,default=50" validate:"gte=0"`
	ConnectionBufferSize int   `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"gt=0"`
	ArchiveBufferSize    int   `env:"ARCHIVE_BUFFER_SIZE,default=1024" validate:"gt=0"`

	// Empty paths select in-memory storage, which is the right default for
	// development and for the optional-history deployment profile.
	BadgerFilepath string `env:"BADGER_FILEPATH"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH"`

	// Empty secret disables token verification: the core then trusts the
	// display name supplied at join.
	JWTSecret string `env:"JWT_SECRET"`

	CensorReplacement string `env:"CENSOR_REPLACEMENT,default=*"`
}

func (c Config) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ReplacementRune enforces that the censor replacement is one character.
func (c Config) ReplacementRune() (rune, error) {
	r := []rune(c.CensorReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf("CENSOR_REPLACEMENT must be a single character, got %q", c.CensorReplacement)
	}
	return r[0], nil
}
