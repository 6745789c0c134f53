package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hoitoportaali/internal/access"
	"hoitoportaali/internal/auth"
	"hoitoportaali/internal/db"
	"hoitoportaali/internal/navigation"
	"hoitoportaali/internal/session"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			dbConn, err := db.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer dbConn.Close()
			if err := db.RunMigrations(cmd.Context(), dbConn, cfg.SchemaPath); err != nil {
				return err
			}
			logger.Info().Str("schema", cfg.SchemaPath).Msg("schema applied")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create predefined accounts and page permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			ctx := cmd.Context()
			dbConn, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer dbConn.Close()
			if err := seedAccounts(ctx, auth.NewStore(dbConn), cfg.AccountsPath, logger); err != nil {
				return err
			}
			registry := access.NewRegistry(access.NewPGStore(dbConn))
			if err := registry.Reload(ctx); err != nil {
				return err
			}
			return seedPagePermissions(ctx, registry, cfg.PagePermissionsPath, logger)
		},
	}
}

type checkOptions struct {
	accountsPath string
	pagesPath    string
	username     string
	password     string
	patient      bool
	pages        []string
	policy       string
}

// checkAccessCmd evaluates permissions offline from the YAML files, without
// a database or Redis.
func checkAccessCmd() *cobra.Command {
	opts := checkOptions{}
	cmd := &cobra.Command{
		Use:   "check-access",
		Short: "Log in against the accounts file and print page decisions and navigation",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := runCheck(cmd.Context(), opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.accountsPath, "accounts", "config/accounts.yaml", "accounts YAML file")
	f.StringVar(&opts.pagesPath, "pages", "", "page permissions YAML file")
	f.StringVarP(&opts.username, "username", "u", "", "username")
	f.StringVarP(&opts.password, "password", "p", "", "password")
	f.BoolVar(&opts.patient, "patient", false, "log in as a patient")
	f.StringSliceVar(&opts.pages, "page", nil, "page ids to check (default: every page in the menu)")
	f.StringVar(&opts.policy, "unknown-page-policy", "deny", "decision for pages with no rule: deny or allow")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

type checkResult struct {
	LoggedIn   bool                       `json:"loggedIn"`
	Reason     auth.Reason                `json:"reason"`
	Session    *session.Session           `json:"session,omitempty"`
	Decisions  map[string]access.Decision `json:"decisions,omitempty"`
	Navigation []navigation.Group         `json:"navigation,omitempty"`
}

func runCheck(ctx context.Context, opts checkOptions) (*checkResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	policy, err := access.ParsePolicy(opts.policy)
	if err != nil {
		return nil, err
	}
	accounts := auth.NewMemoryStore()
	if _, err := auth.SeedFromFile(ctx, accounts, opts.accountsPath); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	table := access.Table{}
	if opts.pagesPath != "" {
		if table, err = access.LoadTableFile(opts.pagesPath); err != nil {
			return nil, fmt.Errorf("load page permissions: %w", err)
		}
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	sessions := session.NewManager(auth.NewAuthenticator(accounts), session.NewMemoryStore(), logger)
	clientID := session.NewClientID()

	login := sessions.LoginDiagnostic
	if opts.patient {
		login = sessions.LoginAsPatientDiagnostic
	}
	reason, err := login(ctx, clientID, opts.username, opts.password)
	if err != nil {
		return nil, err
	}
	res := &checkResult{LoggedIn: reason == auth.ReasonOK, Reason: reason}
	if !res.LoggedIn {
		return res, nil
	}
	sess, err := sessions.Restore(ctx, clientID)
	if err != nil {
		return nil, err
	}
	res.Session = sess

	resolver := access.NewResolver(table, policy)
	menu := navigation.DefaultMenu()
	pages := opts.pages
	if len(pages) == 0 {
		for _, g := range menu {
			for _, it := range g.Items {
				pages = append(pages, it.PageID)
			}
		}
	}
	res.Decisions = make(map[string]access.Decision, len(pages))
	for _, p := range pages {
		res.Decisions[p] = resolver.Decide(sess, p)
	}
	res.Navigation = navigation.Filter(menu, sess, resolver)
	return res, nil
}

// accountActiveCmd flips the active flag of an account. Inactive accounts
// fail login without revealing why.
func accountActiveCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:       "account (activate|deactivate) <username>",
		Short:     "Activate or deactivate an account",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"activate", "deactivate"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var active bool
			switch args[0] {
			case "activate":
				active = true
			case "deactivate":
			default:
				return fmt.Errorf("unknown action %q", args[0])
			}
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			ctx := cmd.Context()
			dbConn, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer dbConn.Close()

			store := auth.NewStore(dbConn)
			acc, err := store.GetByUsername(ctx, auth.Kind(kind), args[1])
			if err != nil {
				return err
			}
			if err := store.SetActive(ctx, acc.ID, active); err != nil {
				return err
			}
			logger.Info().Str("username", acc.Username).Bool("active", active).Msg("account updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(auth.KindStaff), "account kind: staff or patient")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
