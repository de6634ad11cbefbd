package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/revbot/internal/ai"
	"github.com/joescharf/revbot/internal/gh"
	"github.com/joescharf/revbot/internal/history"
	"github.com/joescharf/revbot/internal/jira"
	"github.com/joescharf/revbot/internal/output"
	"github.com/joescharf/revbot/internal/pipeline"
	"github.com/joescharf/revbot/internal/router"
	"github.com/joescharf/revbot/internal/store"
	"github.com/joescharf/revbot/internal/watchdog"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store
	logger    *slog.Logger

	verbose bool
	dryRun  bool

	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   "revbot",
	Short: "AI pull request review bot for GitHub webhooks",
	Long: `revbot listens for GitHub webhook deliveries, reviews pull requests
with an AI model, posts the review as a PR comment with a merge risk
verdict, and records every outcome in a local database.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/revbot/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "revbot")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REVBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "revbot")

	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "revbot.db"))
	viper.SetDefault("lib_dir", filepath.Join(defaultConfigDir, "lib"))
	viper.SetDefault("watchdog_dir", filepath.Join(defaultConfigDir, "watchdog"))
	viper.SetDefault("report_dir", filepath.Join(defaultConfigDir, "reports"))
	viper.SetDefault("port", 8000)
	viper.SetDefault("github.token", "")
	viper.SetDefault("github.bot_user", "revbot")
	viper.SetDefault("jira.base_url", "")
	viper.SetDefault("jira.token", "")
	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.api_keys", "")
	viper.SetDefault("ai.base_url", "")
	viper.SetDefault("ai.model", "")
	viper.SetDefault("ai.local_api_key", "")
	viper.SetDefault("ai.local_base_url", "")
	viper.SetDefault("ai.local_model", "")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// The store is initialized lazily so config and version commands run
	// without a database.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// buildRouter wires the full review stack from configuration.
func buildRouter() (*router.Router, store.Store, error) {
	s, err := getStore()
	if err != nil {
		return nil, nil, err
	}

	gateway := ai.NewGateway(ai.Config{
		Provider:     viper.GetString("ai.provider"),
		Keys:         ai.SplitKeys(viper.GetString("ai.api_keys")),
		BaseURL:      viper.GetString("ai.base_url"),
		Model:        viper.GetString("ai.model"),
		LocalKey:     viper.GetString("ai.local_api_key"),
		LocalBaseURL: viper.GetString("ai.local_base_url"),
		LocalModel:   viper.GetString("ai.local_model"),
	})

	pipe := pipeline.New(
		gateway,
		viper.GetString("lib_dir"),
		viper.GetString("jira.base_url"),
		watchdog.New(viper.GetString("watchdog_dir")),
		history.New(viper.GetString("report_dir")),
		logger,
	)

	ghc := gh.NewHTTPClient(viper.GetString("github.token"))
	jc := jira.NewHTTPClient(viper.GetString("jira.base_url"), viper.GetString("jira.token"))

	rt := router.New(ghc, jc, pipe, s,
		viper.GetString("github.bot_user"),
		viper.GetString("jira.base_url"),
		logger,
	)
	return rt, s, nil
}
