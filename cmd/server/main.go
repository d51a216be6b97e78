package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/logging"
	"github.com/JonMunkholm/datatable/internal/store"
	"github.com/JonMunkholm/datatable/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"storage_driver", cfg.Storage.Driver,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("configuration", "config", cfg.String())

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	table, err := restoreTable(ctx, st)
	if err != nil {
		slog.Error("failed to load table", "error", err)
		st.Close()
		os.Exit(1)
	}

	// Persist every mutation in the background
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	persister := store.NewPersister(st, cfg.Storage.SaveTimeout)
	detach := persister.Attach(table)
	persister.Start(jobCtx)

	imports := core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	server := web.NewServer(cfg, table, imports, persister)

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		if status := imports.Status(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := imports.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Stop persisting after the last request, then flush.
		detach()
		cancelJobs()
		if err := persister.Close(); err != nil {
			slog.Error("final snapshot save failed", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		cancelJobs()
		persister.Close() //nolint:errcheck // logged by the persister
		st.Close()
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

// restoreTable builds the table from the last saved snapshot. An empty store
// starts from the seed table. A store that cannot be read is an error: the
// persister would otherwise replace the saved table on the first mutation.
func restoreTable(ctx context.Context, st store.Store) (*core.Table, error) {
	snap, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore table: %w", err)
	}
	table := core.NewTable(snap)
	slog.Info("table loaded",
		"rows", table.Len(),
		"columns", len(table.Columns()),
		"restored", !snap.Empty(),
	)
	return table, nil
}
