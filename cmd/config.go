package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "revbot"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage revbot configuration.

Running bare 'revbot config' is the same as 'revbot config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# revbot configuration
# See: revbot config show (for effective values and sources)

# SQLite database path (default: ~/.config/revbot/revbot.db)
# db_path: {{ .DBPath }}

# Rule filter table directory (default: ~/.config/revbot/lib)
# lib_dir: {{ .LibDir }}

# Watchdog log directory (default: ~/.config/revbot/watchdog)
# watchdog_dir: {{ .WatchdogDir }}

# Review history archive root (default: ~/.config/revbot/reports)
# report_dir: {{ .ReportDir }}

# Webhook server port (default: 8000)
# port: {{ .Port }}

# GitHub
github:
  # API token used for diffs, comments and CODEOWNERS lookups
  token: "{{ .GitHubToken }}"

  # Bot account login; comments by this user never re-trigger a review
  bot_user: "{{ .GitHubBotUser }}"

# Jira
jira:
  # Base URL of the Jira instance, e.g. https://jira.example.com
  base_url: "{{ .JiraBaseURL }}"

  # Personal access token (Bearer auth)
  token: "{{ .JiraToken }}"

# AI provider
ai:
  # "openai" or "anthropic"
  provider: "{{ .AIProvider }}"

  # Comma-separated primary API keys, rotated on failure
  api_keys: "{{ .AIKeys }}"

  # Primary endpoint and model
  base_url: "{{ .AIBaseURL }}"
  model: "{{ .AIModel }}"

  # Local fallback model, used when every primary key fails
  local_api_key: "{{ .AILocalKey }}"
  local_base_url: "{{ .AILocalBaseURL }}"
  local_model: "{{ .AILocalModel }}"
`

type configTemplateData struct {
	DBPath         string
	LibDir         string
	WatchdogDir    string
	ReportDir      string
	Port           int
	GitHubToken    string
	GitHubBotUser  string
	JiraBaseURL    string
	JiraToken      string
	AIProvider     string
	AIKeys         string
	AIBaseURL      string
	AIModel        string
	AILocalKey     string
	AILocalBaseURL string
	AILocalModel   string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		DBPath:         viper.GetString("db_path"),
		LibDir:         viper.GetString("lib_dir"),
		WatchdogDir:    viper.GetString("watchdog_dir"),
		ReportDir:      viper.GetString("report_dir"),
		Port:           viper.GetInt("port"),
		GitHubToken:    viper.GetString("github.token"),
		GitHubBotUser:  viper.GetString("github.bot_user"),
		JiraBaseURL:    viper.GetString("jira.base_url"),
		JiraToken:      viper.GetString("jira.token"),
		AIProvider:     viper.GetString("ai.provider"),
		AIKeys:         viper.GetString("ai.api_keys"),
		AIBaseURL:      viper.GetString("ai.base_url"),
		AIModel:        viper.GetString("ai.model"),
		AILocalKey:     viper.GetString("ai.local_api_key"),
		AILocalBaseURL: viper.GetString("ai.local_base_url"),
		AILocalModel:   viper.GetString("ai.local_model"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "db_path", EnvVar: "REVBOT_DB_PATH"},
	{Key: "lib_dir", EnvVar: "REVBOT_LIB_DIR"},
	{Key: "watchdog_dir", EnvVar: "REVBOT_WATCHDOG_DIR"},
	{Key: "report_dir", EnvVar: "REVBOT_REPORT_DIR"},
	{Key: "port", EnvVar: "REVBOT_PORT"},
	{Key: "github.token", EnvVar: "REVBOT_GITHUB_TOKEN"},
	{Key: "github.bot_user", EnvVar: "REVBOT_GITHUB_BOT_USER"},
	{Key: "jira.base_url", EnvVar: "REVBOT_JIRA_BASE_URL"},
	{Key: "jira.token", EnvVar: "REVBOT_JIRA_TOKEN"},
	{Key: "ai.provider", EnvVar: "REVBOT_AI_PROVIDER"},
	{Key: "ai.api_keys", EnvVar: "REVBOT_AI_API_KEYS"},
	{Key: "ai.base_url", EnvVar: "REVBOT_AI_BASE_URL"},
	{Key: "ai.model", EnvVar: "REVBOT_AI_MODEL"},
	{Key: "ai.local_api_key", EnvVar: "REVBOT_AI_LOCAL_API_KEY"},
	{Key: "ai.local_base_url", EnvVar: "REVBOT_AI_LOCAL_BASE_URL"},
	{Key: "ai.local_model", EnvVar: "REVBOT_AI_LOCAL_MODEL"},
}

// secretKeys are masked in config show output.
var secretKeys = map[string]bool{
	"github.token":     true,
	"jira.token":       true,
	"ai.api_keys":      true,
	"ai.local_api_key": true,
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if secretKeys[k.Key] {
			if s, ok := val.(string); ok && s != "" {
				val = "********"
			}
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set, set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'revbot config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
