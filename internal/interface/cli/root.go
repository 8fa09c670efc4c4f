package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/neilberkman/medichat/internal/core/config"
	"github.com/neilberkman/medichat/internal/core/logger"
	"github.com/spf13/cobra"
)

var (
	serverURL   string
	configPath  string
	debug       bool
	scopeID     string
	keepScope   bool
	versionInfo string
	version     = "dev"

	cfg       *config.Config
	logCloser io.Closer
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(v, commit, date string) {
	version = v
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "medichat",
	Short: "Terminal client for the medichat assistant",
	Long: `medichat - chat with the medicine assistant from your terminal

Conversations live on the medichat backend. Replies arrive over a live
connection that reconnects on its own after a network drop.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to the chat UI if no subcommand specified
		return chatCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Backend URL (default from config, then "+config.DefaultServerURL+")")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/medichat/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Write debug output to the log file")
	rootCmd.PersistentFlags().StringVar(&scopeID, "scope", "", "Reuse a stored location scope instead of starting a fresh one")
	rootCmd.PersistentFlags().BoolVar(&keepScope, "keep-scope", false, "Keep this run's location records on exit")
}

// setup loads .env, the config file and the logger before any command runs
func setup(cmd *cobra.Command, args []string) error {
	// A missing .env is fine
	_ = godotenv.Load()

	var err error
	if configPath != "" {
		if _, statErr := os.Stat(configPath); statErr != nil {
			return fmt.Errorf("config file: %w", statErr)
		}
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if debug {
		cfg.Debug = true
	}

	logCloser, err = logger.Init(cfg.LogFile, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logger.Debug("starting", "version", versionInfo, "server", cfg.ServerURL, "command", cmd.Name())
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	return nil
}
