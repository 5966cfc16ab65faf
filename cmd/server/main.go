package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"chat-relay/contract"
	"chat-relay/identity"
	"chat-relay/infrastructure/ws"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/search"
	"chat-relay/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before the process
// exits.
func run() error {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	log := newLogger(config.LogLevel)

	// 2. Storage (BadgerDB history, Bluge index)
	badgerOpts := badger.DefaultOptions(config.BadgerFilepath).WithLogger(nil)
	if config.BadgerFilepath == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	history := repositories.NewBadgerHistory(db, log)

	index, err := search.Open(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	// 3. Moderation
	moderator, err := buildModerator(config, log)
	if err != nil {
		return err
	}

	// 4. Supervision & orchestration
	sup := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, sup, history, index, moderator, runtime.Options{
		MaxRoomSize:       config.MaxRoomSize,
		MaxMessageLength:  config.MaxMessageLength,
		HistoryPageSize:   config.HistoryPageSize,
		ArchiveBufferSize: config.ArchiveBufferSize,
	})
	sup.Add(workers.NewTelemetryWorker(log, config.TelemetryInterval, orchestrator.Stats))

	// 5. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator failed to start: %w", err)
	}

	// 6. Transport
	var verifier contract.Verifier
	if config.JWTSecret != "" {
		verifier = identity.NewTokenVerifier(config.JWTSecret)
	}
	wsServer := ws.NewServer(log, services.NewChatService(orchestrator), verifier, ws.Config{
		HeartbeatInterval: config.HeartbeatInterval,
		MaxMessageSize:    config.MaxFrameSize,
		SendBufferSize:    config.ConnectionBufferSize,
		AllowedOrigins:    config.Origins(),
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:        address,
		Handler:     wsServer.Handler(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting websocket server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

func buildModerator(config Config, log *slog.Logger) (*moderation.Moderator, error) {
	replacement, err := config.ReplacementRune()
	if err != nil {
		return nil, err
	}

	data, err := runtime.LoadCensoredWords()
	if err != nil {
		return nil, fmt.Errorf("loading censored words: %w", err)
	}
	log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	moderator, err := moderation.NewModerator(data.Words, replacement, log)
	if err != nil {
		return nil, err
	}
	return &moderator, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
