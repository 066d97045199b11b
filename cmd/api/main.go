package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"libportal/internal/config"
	"libportal/internal/database"
	"libportal/internal/database/migration"
	"libportal/internal/logger"
)

var (
	// Global flags
	logLevel  string
	logPretty bool

	cfg *config.AppConfig
	log zerolog.Logger
)

// rootCmd starts the API server when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "libportal",
	Short: "University library content service",
	Long: `libportal serves the library site content collections over HTTP.

Run without arguments to start the API server. Configuration is read from
the environment; a .env file in the working directory is loaded if present.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration from environment variables (.env auto-loaded if present)
		cfg = config.Load()
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-pretty") {
			cfg.Log.Pretty = logPretty
		}
		log = logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "log-pretty", false, "Human-readable console logs")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(importCmd)
}

// openDB connects to PostgreSQL and applies pending migrations.
func openDB(ctx context.Context) (*sql.DB, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migration.EnsureMigrated(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// @title Library Portal API
// @version 1.0
// @description Content API for the university library site and its admin dashboard.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
