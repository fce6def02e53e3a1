package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/findash/internal/config"
	"github.com/KaramelBytes/findash/internal/logging"
)

var (
	// Global flags (override config when set)
	cfgFile       string
	debug         bool
	flagDataPath  string
	flagSheetName string
	flagLogLevel  string
	flagLogFormat string

	// Loaded configuration and the logger built from it
	cfg    *cfgpkg.Global
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "findash",
	Short: "findash: prepare the Financial Sample workbook and serve its dashboard",
	Long: `findash loads the "Financial Sample" spreadsheet, fills missing discount bands,
derives the discount percentage, trims column labels, and serves an interactive
sales and profit dashboard over the prepared data.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger(cmd)
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.findash/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagDataPath, "data", "", "path to the workbook (overrides config data_path)")
	rootCmd.PersistentFlags().StringVar(&flagSheetName, "sheet", "", "XLSX sheet name (overrides config sheet_name)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: console|json")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: config show/set can still repair a broken file
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("data") && flagDataPath != "" {
		cfg.DataPath = flagDataPath
	}
	if f.Changed("sheet") {
		cfg.SheetName = flagSheetName
	}
	if f.Changed("log-level") && flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if f.Changed("log-format") && flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if f.Changed("debug") {
		cfg.Debug = debug
	}
}

func setupLogger(cmd *cobra.Command) error {
	level, format := "info", "console"
	if cfg != nil {
		level, format = cfg.LogLevel, cfg.LogFormat
		if cfg.Debug {
			level = "debug"
		}
	}
	l, err := logging.New(level, format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// requireConfig returns the loaded config or the reason it is unavailable.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}
