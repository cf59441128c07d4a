package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/communitycar/schemagraph"
	"github.com/communitycar/schemagraph/internal/config"
)

var (
	dbURL      string
	schemaFile string
	noTx       bool
	noLedger   bool
	logLevel   string
	verbose    bool

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "schemagraph",
	Short: "Create and tear down the CommunityCar database schema",
	Long: `schemagraph builds a relational schema from a dependency graph of entities.
Tables are created in foreign key order, cyclic and self references are added
once every table exists, and down reverses the process. PostgreSQL, SQL Server,
MySQL and SQLite are supported.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "Database URL: postgres://, sqlserver://, mysql:// or sqlite:// (env SCHEMAGRAPH_DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&schemaFile, "schema-file", "", "YAML schema graph (default: built-in CommunityCar graph)")
	rootCmd.PersistentFlags().BoolVar(&noTx, "no-tx", false, "Run statements without a transaction")
	rootCmd.PersistentFlags().BoolVar(&noLedger, "no-ledger", false, "Do not record runs in schema_migrations")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default: info)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every statement (same as --log-level debug)")

	rootCmd.AddCommand(upCmd, downCmd, planCmd, scriptCmd, validateCmd, verifyCmd, statusCmd, historyCmd, docsCmd)
}

// setup fills unset flags from the environment and builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyConfig(cmd, cfg)

	level := cfg.LogLevel
	if logLevel != "" {
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
		}
	}
	if verbose {
		level = slog.LevelDebug
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func applyConfig(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("db-url") {
		dbURL = cfg.DatabaseURL
	}
	if !flags.Changed("schema-file") {
		schemaFile = cfg.SchemaFile
	}
	if !flags.Changed("no-tx") {
		noTx = cfg.NoTx
	}
	if !flags.Changed("no-ledger") {
		noLedger = cfg.NoLedger
	}
}

func options() *schemagraph.Options {
	return &schemagraph.Options{
		SchemaFile:         schemaFile,
		DisableTransaction: noTx,
		DisableLedger:      noLedger,
		Logger:             logger,
	}
}

func requireURL() error {
	if dbURL == "" {
		return fmt.Errorf("--db-url or SCHEMAGRAPH_DATABASE_URL must be specified")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
