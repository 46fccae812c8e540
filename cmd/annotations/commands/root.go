package commands

import (
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andressep95/annotations/cmd/annotations/output"
	"github.com/andressep95/annotations/internal/config"
	"github.com/andressep95/annotations/internal/logger"
)

var (
	// Global flags
	configPath string
	dbURL      string
	logLevel   string
	logFormat  string
	jsonOutput bool

	cfg *config.Config
)

// errDrift makes verify exit non-zero once the drift has been reported.
var errDrift = errors.New("schema drift detected")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "annotations",
	Short: "Struct-tag schema catalogs for PostgreSQL",
	Long: `annotations declares relational schemas with Go struct tags, groups them into
catalogs bound to PostgreSQL namespaces, and materializes or verifies them
against a live database.

Catalogs:
  commerce   users, products and their purchases
  academic   faculties and students
  identity   users and their one-to-one profiles`,
	Version:       "0.4.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		log, err := logger.New(os.Stderr, loaded.Log.Level, loaded.Log.Format)
		if err != nil {
			return err
		}
		cfg = loaded
		cmd.SetContext(logger.WithContext(cmd.Context(), log))
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errDrift) {
			output.Error("%v", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: annotations.yaml in ., ./configs or ~/.config/annotations)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (overrides database.url)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: trace, debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: console or json")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

func logFor(cmd *cobra.Command) *zerolog.Logger {
	return zerolog.Ctx(cmd.Context())
}
