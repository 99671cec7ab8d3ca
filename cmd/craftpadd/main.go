package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/craftpad/craftpad/internal/config"
	"github.com/craftpad/craftpad/internal/daemon"
	"github.com/craftpad/craftpad/internal/events"
	"github.com/craftpad/craftpad/internal/store/local"
	"github.com/craftpad/craftpad/internal/store/postgres"
	"github.com/craftpad/craftpad/internal/store/resilient"
	"github.com/craftpad/craftpad/internal/store/sqlite"
	"github.com/craftpad/craftpad/internal/workspace"
)

const (
	pidFileName = "craftpadd.pid"
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Ensure ~/.craftpad directory exists
	craftpadDir, err := config.EnsureCraftpadDir()
	if err != nil {
		return fmt.Errorf("ensure craftpad dir: %w", err)
	}

	// Load configuration
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Setup logging
	logLevel := parseLogLevel(cfg.Daemon.LogLevel)
	logFile, err := setupLogging(craftpadDir, logLevel)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	// Write PID file
	pidPath := filepath.Join(craftpadDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ctx := context.Background()

	store, cleanup, err := openStore(ctx, craftpadDir, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if cfg.Storage.Resilient {
		store = resilient.NewStore(store, resilient.Config{
			Logger: slog.Default(),
		})
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.AMQPURL != "" {
		conn, err := events.NewConnection(cfg.Events.AMQPURL)
		if err != nil {
			slog.Warn("event queue unavailable, continuing without events", "error", err)
		} else {
			defer conn.Close()
			publisher = conn
		}
	}

	server := daemon.NewServer(daemon.ServerConfig{
		Config:    cfg,
		Store:     store,
		Publisher: publisher,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("received signal, shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		close(done)
	}()

	// Start server
	if err := server.Start(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}

// openStore builds the project store for the configured backend.
func openStore(ctx context.Context, craftpadDir string, cfg *config.LocalConfig) (workspace.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		store, err := postgres.Connect(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store, store.Close, nil

	case config.BackendLocal:
		dataDir := cfg.Storage.DataDir
		if dataDir == "" {
			dataDir = filepath.Join(craftpadDir, "projects")
		}
		store, err := local.NewStore(dataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open local store: %w", err)
		}
		return store, nil, nil

	default:
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = filepath.Join(craftpadDir, "data", "craftpad.db")
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return sqlite.NewStore(db), func() { db.Close() }, nil
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogging(craftpadDir string, level slog.Level) (*os.File, error) {
	logPath := filepath.Join(craftpadDir, "logs", "craftpadd.log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	handler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: level,
	})

	// Also log to stderr for foreground mode
	multiHandler := &multiHandler{
		handlers: []slog.Handler{
			handler,
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}),
		},
	}

	slog.SetDefault(slog.New(multiHandler))

	return logFile, nil
}

func writePIDFile(path string) error {
	pid := os.Getpid()
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", pid)), 0644)
}

// multiHandler logs to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
