// Command tablectl inspects and edits a persisted table from the shell.
//
// It reads the same environment (and .env file) as the server, so both
// operate on the same store. Every mutating command saves the table before
// exiting.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/logging"
	"github.com/JonMunkholm/datatable/internal/store"
)

func main() {
	// Existing environment wins over .env for a CLI.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", core.FormatUserError(err))
		fmt.Fprintln(os.Stderr, "Details:", err)
		os.Exit(1)
	}
}

// rootOptions are storage overrides shared by every command. A flag left
// empty falls back to the environment variable it shadows.
type rootOptions struct {
	driver    string
	path      string
	url       string
	tableName string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "tablectl",
		Short:         "Inspect and edit a persisted data table",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.driver, "driver", "", "storage driver: file, sqlite, postgres (env STORAGE_DRIVER)")
	pf.StringVar(&opts.path, "path", "", "snapshot file or sqlite database (env STORAGE_PATH)")
	pf.StringVar(&opts.url, "url", "", "postgres connection string (env DATABASE_URL)")
	pf.StringVar(&opts.tableName, "table", "", "table name inside a database (env STORAGE_TABLE_NAME)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level for stderr diagnostics (env LOG_LEVEL)")

	root.AddCommand(
		newViewCmd(opts),
		newColumnsCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
		newAddRowCmd(opts),
		newUpdateRowCmd(opts),
		newDeleteRowCmd(opts),
		newAddColumnCmd(opts),
		newToggleColumnCmd(opts),
		newResetCmd(opts),
	)
	return root
}

// lookup resolves configuration with flags taking precedence over the
// process environment.
func (o *rootOptions) lookup(key string) (string, bool) {
	overrides := map[string]string{
		"STORAGE_DRIVER":     o.driver,
		"STORAGE_PATH":       o.path,
		"DATABASE_URL":       o.url,
		"STORAGE_TABLE_NAME": o.tableName,
		"LOG_LEVEL":          o.logLevel,
	}
	if v := overrides[key]; v != "" {
		return v, true
	}
	return os.LookupEnv(key)
}

// session is an open table plus the store it came from.
type session struct {
	cfg       *config.Config
	store     store.Store
	table     *core.Table
	persister *store.Persister
}

func openSession(ctx context.Context, opts *rootOptions) (*session, error) {
	cfg, err := config.LoadFrom(opts.lookup)
	if err != nil {
		return nil, err
	}

	// Diagnostics go to stderr so stdout stays pipeable.
	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	snap, err := st.Load(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	logger.Debug("table loaded", "driver", cfg.Storage.Driver, "restored", !snap.Empty())

	s := &session{
		cfg:       cfg,
		store:     st,
		table:     core.NewTable(snap),
		persister: store.NewPersister(st, cfg.Storage.SaveTimeout),
	}
	s.persister.Attach(s.table)
	return s, nil
}

// Close saves any pending mutation and releases the store.
func (s *session) Close() error {
	err := s.persister.Close()
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// withSession opens a session, runs fn and closes the session, reporting
// the first error.
func withSession(cmd *cobra.Command, opts *rootOptions, fn func(*session) error) (err error) {
	s, err := openSession(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(s)
}
