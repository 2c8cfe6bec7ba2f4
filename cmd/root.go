package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/estatefit-cli/internal/config"
	"github.com/KaramelBytes/estatefit-cli/internal/logging"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Input format flags shared by every command that reads a dataset
	flagDelimiter string
	flagDecimal   string
	flagThousands string
	flagSheet     string

	// Loaded configuration
	cfg *cfgpkg.Global
	// Logger built in PersistentPreRunE; never nil.
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "estatefit",
	Short: "estatefit: explore listings data and train a price model",
	Long: `estatefit is a CLI tool for real-estate price regression. It explores a
listings dataset, trains a random forest pipeline, validates it with k-fold
cross-validation and produces batch or single-row price predictions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if cfg != nil && cfg.LogLevel != "" {
			level = cfg.LogLevel
		}
		l, err := logging.New(level, debug)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.estatefit/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.StringVar(&flagDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (default by extension)")
	pf.StringVar(&flagDecimal, "decimal", "", "decimal separator: '.'|'comma'|'auto' (overrides config)")
	pf.StringVar(&flagThousands, "thousands", "", "thousands separator: ','|'.'|'space' (overrides config)")
	pf.StringVar(&flagSheet, "sheet", "", "XLSX: sheet name (default first sheet)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults so 'config set' can repair the file
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c
}
