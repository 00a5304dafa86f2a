package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"feedlab/auth"
	"feedlab/feed"
	"feedlab/internal"
	"feedlab/moderation"
	"feedlab/repositories"
	"feedlab/search"
	"feedlab/services"
	"feedlab/workers"
	"feedlab/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components and centralizes the shutdown path, so
// every defer (badger close, worker drain) executes before the process
// exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Feed store & auth
	store, err := feed.NewStore(log, repositories.NewMessageRepository(db, log))
	if err != nil {
		return fmt.Errorf("loading feed failed: %w", err)
	}
	tokens := auth.NewTokenManager(
		[]byte(config.AuthTokenSecret), config.AuthTokenIssuer, config.AuthTokenDuration)
	authService := services.NewAuthService(repositories.NewUserRepository(db), tokens)

	// 4. Optional moderation
	var moderator *moderation.Moderator
	if len(config.CensoredWords) > 0 {
		mask, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return err
		}
		moderator, err = moderation.NewModerator(config.CensoredWords, mask)
		if err != nil {
			return fmt.Errorf("moderation setup failed: %w", err)
		}
	}

	// 5. Search index
	index, err := search.Open(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Supervised background workers
	sup := workers.NewSupervisor(log, config.RestartInterval).
		Add(workers.NewIndexerWorker(store, index, log)).
		Add(workers.NewTelemetryWorker(log, store, config.TelemetryInterval))
	go sup.Run(ctx)

	// 8. WebSocket server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := ws.NewServer(log, address, authService, store, moderator, index)

	// Run returns nil once ctx is cancelled and open connections have
	// been drained, or an error if the listener fails.
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("websocket server error: %w", err)
	}

	// 9. Final Cleanup
	log.Info("Shutting down gracefully...")
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
