/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the cashbook server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and config file
  2. Configure zerolog
  3. Initialize SQLite store
  4. Wire the orchestrator (optionally with a Kafka publisher)
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file path (default: cashbook.toml, optional)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close publisher and database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/cashbook.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run with a config file
  ./server -config=./cashbook.toml

SEE ALSO:
  - config/config.go: Config file format and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/bonkapal/cashbook/api"
	"github.com/bonkapal/cashbook/config"
	"github.com/bonkapal/cashbook/events/kafka"
	"github.com/bonkapal/cashbook/ledger"
	"github.com/bonkapal/cashbook/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "cashbook.toml", "config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	log := newLogger(cfg.Logging)

	// Initialize store
	store, err := sqlite.New(cfg.Store.Path, ledger.DefaultNamespace)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// Optional Kafka mutation event publishing
	var publisher ledger.EventPublisher
	if cfg.Events.Enabled {
		p := kafka.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		defer p.Close()
		publisher = p
		log.Info().Strs("brokers", cfg.Events.Brokers).Str("topic", cfg.Events.Topic).
			Msg("mutation event publishing enabled")
	}

	// Wire the engine
	book := ledger.NewOrchestrator(store, store, ledger.Config{
		Rounding: ledger.Rounding{
			StockDecimals: int32(cfg.Ledger.StockDecimals),
			PriceDecimals: int32(cfg.Ledger.PriceDecimals),
		},
		PurgeChunkSize: cfg.Ledger.PurgeChunkSize,
		Publisher:      publisher,
		Log:            log,
	})

	// Create router
	handler := api.NewHandler(book)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	w := zerolog.New(os.Stderr)
	if cfg.Pretty {
		w = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return w.Level(level).With().Timestamp().Logger()
}
