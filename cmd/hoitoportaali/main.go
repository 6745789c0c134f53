package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hoitoportaali/internal/access"
	"hoitoportaali/internal/approvals"
	"hoitoportaali/internal/audit"
	"hoitoportaali/internal/auth"
	"hoitoportaali/internal/config"
	"hoitoportaali/internal/db"
	"hoitoportaali/internal/httpserver"
	"hoitoportaali/internal/logging"
	"hoitoportaali/internal/navigation"
	"hoitoportaali/internal/session"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "hoitoportaali",
		Short:         "Clinical portal access control service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(checkAccessCmd())
	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(accountActiveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.LogLevel, cfg.IsDev()), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, logger)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	policy, err := access.ParsePolicy(cfg.UnknownPagePolicy)
	if err != nil {
		return err
	}

	dbConn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer dbConn.Close()

	if err := db.RunMigrations(ctx, dbConn, cfg.SchemaPath); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	accounts := auth.NewStore(dbConn)
	if err := seedAccounts(ctx, accounts, cfg.AccountsPath, logger); err != nil {
		return err
	}

	snapshots, closeSnapshots, err := snapshotStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSnapshots()

	auditStore := audit.NewStore(dbConn)
	sessions := session.NewManager(auth.NewAuthenticator(accounts), snapshots, logger).
		WithTTL(cfg.SessionTTL).
		WithRecorder(auditStore)

	registry := access.NewRegistry(access.NewPGStore(dbConn))
	if err := registry.Reload(ctx); err != nil {
		return err
	}
	if err := seedPagePermissions(ctx, registry, cfg.PagePermissionsPath, logger); err != nil {
		return err
	}
	resolver := access.NewResolver(registry, policy)
	if policy == access.PolicyAllow {
		logger.Warn().Msg("UNKNOWN_PAGE_POLICY=allow: pages without any permission rule are open to all staff")
	}

	workflow := approvals.NewWorkflow(approvals.NewStore(dbConn), resolver, auditStore, logger)

	handler := httpserver.NewRouter(httpserver.Deps{
		Logger:      logger,
		Sessions:    sessions,
		Tokens:      session.NewTokens(cfg.JWTSecret),
		Resolver:    resolver,
		Registry:    registry,
		Menu:        navigation.DefaultMenu(),
		Approvals:   workflow,
		Audit:       auditStore,
		Recorder:    auditStore,
		Diagnostics: cfg.IsDev(),
		CORSOrigins: cfg.CORSOrigins,
	})
	server := httpserver.New(cfg.HTTPAddr, handler, logger)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Run(runCtx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func snapshotStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (session.SnapshotStore, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set: session snapshots are kept in process memory")
		return session.NewMemoryStore(), func() {}, nil
	}
	client, err := session.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return session.NewRedisStore(client), func() { _ = client.Close() }, nil
}

func seedAccounts(ctx context.Context, dst auth.AccountWriter, path string, logger zerolog.Logger) error {
	if path == "" {
		return nil
	}
	n, err := auth.SeedFromFile(ctx, dst, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", path).Msg("accounts file not found, skipping seed")
			return nil
		}
		return fmt.Errorf("seed accounts: %w", err)
	}
	logger.Info().Int("created", n).Str("path", path).Msg("accounts seeded")
	return nil
}

func seedPagePermissions(ctx context.Context, registry *access.Registry, path string, logger zerolog.Logger) error {
	if path == "" {
		return nil
	}
	table, err := access.LoadTableFile(path)
	if err != nil {
		return fmt.Errorf("load page permissions: %w", err)
	}
	n, err := registry.Seed(ctx, table)
	if err != nil {
		return err
	}
	logger.Info().Int("created", n).Str("path", path).Msg("page permissions seeded")
	return nil
}
