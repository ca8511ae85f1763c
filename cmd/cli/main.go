package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kosarica/coupon-planner/config"
	"github.com/kosarica/coupon-planner/internal/catalog"
	"github.com/kosarica/coupon-planner/internal/optimizer"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logger   zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "coupon-planner",
	Short: "Coupon Planner CLI - plan the cheapest use of shop and platform coupons",
	Long: `A CLI tool that splits a shopping cart into checkout groups and assigns
coupons to each group so the total price is as low as possible. Catalogs are
read from JSON or XLSX snapshots, or from an item CSV plus a coupon JSON file.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: persistentPreRun,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override: debug, info, warn, error")
}

// persistentPreRun loads configuration and sets up logging.
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger = initLogger(cmd.ErrOrStderr(), cfg.Logging)
	return nil
}

// initLogger writes to stderr so JSON output on stdout stays clean.
func initLogger(out io.Writer, lc config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if logLevel != "" {
		lc.Level = logLevel
	}
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}

	var output io.Writer = out
	if lc.Format != "json" {
		output = zerolog.ConsoleWriter{Out: out, NoColor: lc.NoColor}
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// exitCode maps command errors to process exit codes.
func exitCode(err error) int {
	var ic optimizer.ErrInvalidConfig
	switch {
	case err == nil:
		return 0
	case errors.Is(err, catalog.ErrInvalidCatalog):
		return 1
	case errors.As(err, &ic):
		return 2
	default:
		return 1
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
