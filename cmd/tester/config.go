package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerURL string        `envconfig:"TESTER_SERVER_URL" default:"ws://localhost:8080/ws"`
	Room      string        `envconfig:"TESTER_ROOM" default:"lobby"`
	Clients   int           `envconfig:"TESTER_CLIENTS" default:"3"`
	Messages  int           `envconfig:"TESTER_MESSAGES" default:"5"`
	Timeout   time.Duration `envconfig:"TESTER_TIMEOUT" default:"10s"`
	// TESTER_JWT_SECRET mints identity tokens when the server runs with
	// verification enabled.
	JWTSecret string `envconfig:"TESTER_JWT_SECRET"`
	// TESTER_COLOURS enables colorized output for better log readability.
	Colours bool `envconfig:"TESTER_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
