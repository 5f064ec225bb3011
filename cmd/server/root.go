package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/notes-api/internal/api"
	"github.com/kuitang/notes-api/internal/config"
	"github.com/kuitang/notes-api/internal/db"
	"github.com/kuitang/notes-api/internal/metrics"
	"github.com/kuitang/notes-api/internal/notes"
	"github.com/kuitang/notes-api/internal/obs"
	"github.com/kuitang/notes-api/internal/ratelimit"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 120 * time.Second
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	verbose bool
	port    int
	envFile string
}

// newRootCmd builds the command tree. Running the root command without a
// subcommand is the same as `serve`.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Initialize the schema and serve the notes API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the notes table if it does not exist, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), opts)
		},
	}

	rootCmd := &cobra.Command{
		Use:           "notes-api",
		Short:         "A JSON CRUD API for notes backed by PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging (overrides LOG_LEVEL)")
	flags.IntVar(&opts.port, "port", 0, "Port to listen on (overrides PORT)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Optional dotenv file to seed the environment from")

	rootCmd.AddCommand(serveCmd, migrateCmd)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		obs.Pkg("main").Error("fatal", "error", err)
		os.Exit(1)
	}
}

// loadConfig seeds the environment, loads configuration and sets up logging.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(opts.port)
	if err != nil {
		return nil, err
	}

	level := cfg.SlogLevel()
	if opts.verbose {
		level = slog.LevelDebug
	}
	obs.Init(level)
	cfg.LogStartupSummary(obs.Pkg("config"))
	return cfg, nil
}

// openStore connects to PostgreSQL and ensures the schema exists.
func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	logger := obs.Pkg("db")

	sqlDB, err := db.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	logger.Info("schema_ready", "db_host", cfg.DBHost, "db_name", cfg.DBName)
	return sqlDB, nil
}

func runMigrate(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	sqlDB, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := obs.Pkg("main")

	sqlDB, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	m := metrics.New()
	if err := m.RegisterDBStats(sqlDB); err != nil {
		return fmt.Errorf("failed to register pool metrics: %w", err)
	}

	routerOpts := api.RouterOptions{Metrics: m}
	if cfg.RateLimitConfig.Enabled() {
		limiter := ratelimit.NewRateLimiter(cfg.RateLimitConfig)
		defer limiter.Stop()
		routerOpts.Limiter = limiter
	}

	handler := api.NewRouter(api.NewHandler(notes.NewStore(sqlDB), sqlDB), routerOpts)
	srv := newHTTPServer(cfg.ListenAddr(), handler)

	return serveUntilDone(ctx, srv, cfg.ShutdownTimeout, logger)
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(obs.Pkg("http").Handler(), slog.LevelError),
	}
}

// serveUntilDone runs srv until it fails or ctx is cancelled, then drains
// in-flight requests for at most shutdownTimeout.
func serveUntilDone(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server_shutting_down", "timeout", shutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server_stopped")
	return nil
}
