package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/craftpad/craftpad/internal/assistant"
	"github.com/craftpad/craftpad/internal/config"
	"github.com/craftpad/craftpad/internal/store/local"
	"github.com/craftpad/craftpad/internal/store/sqlite"
	"github.com/craftpad/craftpad/internal/workspace"
)

// cmdMCP starts the MCP server for editor integration
func cmdMCP() error {
	craftpadDir, err := config.EnsureCraftpadDir()
	if err != nil {
		return fmt.Errorf("setup craftpad directory: %w", err)
	}

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// MCP runs against local storage only. The daemon owns remote backends.
	var store workspace.Store
	switch cfg.Storage.Backend {
	case config.BackendLocal:
		dataDir := cfg.Storage.DataDir
		if dataDir == "" {
			dataDir = filepath.Join(craftpadDir, "projects")
		}
		store, err = local.NewStore(dataDir)
		if err != nil {
			return fmt.Errorf("open local store: %w", err)
		}
	default:
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = filepath.Join(craftpadDir, "data", "craftpad.db")
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
		store = sqlite.NewStore(db)
	}

	mcpSrv := assistant.NewServer(assistant.Config{
		Store: store,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return mcpSrv.ServeStdio(ctx)
}
