package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// ProjectDirName is the per-repository config folder
	ProjectDirName = "2DO"
	// UserDirName is the per-user config folder under $HOME
	UserDirName = ".2do"
	// ConfigFileName is the config file inside either folder
	ConfigFileName = "config.toml"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	APIKeys       APIKeysConfig       `toml:"api_keys"`
	Preferences   PreferencesConfig   `toml:"preferences"`
	Scheduler     SchedulerConfig     `toml:"scheduler"`
	GitHub        GitHubConfig        `toml:"github"`
	Notifications NotificationsConfig `toml:"notifications"`
	Logging       LoggingConfig       `toml:"logging"`
}

// GeneralConfig holds storage locations
type GeneralConfig struct {
	DataDir      string `toml:"data_dir"`
	DatabasePath string `toml:"database_path"`
	SchedulesDir string `toml:"schedules_dir"`
}

// APIKeysConfig holds provider credentials
type APIKeysConfig struct {
	OpenAI     string `toml:"openai,omitempty"`
	Anthropic  string `toml:"anthropic,omitempty"`
	Google     string `toml:"google,omitempty"`
	XAI        string `toml:"xai,omitempty"`
	DeepSeek   string `toml:"deepseek,omitempty"`
	Mistral    string `toml:"mistral,omitempty"`
	Cohere     string `toml:"cohere,omitempty"`
	Perplexity string `toml:"perplexity,omitempty"`
	GitHub     string `toml:"github,omitempty"`
}

// PreferencesConfig holds routing and batch preferences
type PreferencesConfig struct {
	DefaultModel       string `toml:"default_model"`
	MaxParallelTasks   int    `toml:"max_parallel_tasks"`
	LoadOnlyFreeModels bool   `toml:"load_only_free_models"`
	DeveloperContext   string `toml:"developer_context,omitempty"`
}

// SchedulerConfig holds scheduled task settings
type SchedulerConfig struct {
	CommandTimeoutSec int `toml:"command_timeout_sec"`
}

// GitHubConfig holds repository settings for gh and git calls
type GitHubConfig struct {
	Repo    string `toml:"repo,omitempty"`
	WorkDir string `toml:"work_dir,omitempty"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook,omitempty"`
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file,omitempty"`
}

var envKeys = map[string][]string{
	"openai":     {"OPENAI_API_KEY"},
	"anthropic":  {"ANTHROPIC_API_KEY"},
	"google":     {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"xai":        {"XAI_API_KEY"},
	"deepseek":   {"DEEPSEEK_API_KEY"},
	"mistral":    {"MISTRAL_API_KEY"},
	"cohere":     {"COHERE_API_KEY"},
	"perplexity": {"PERPLEXITY_API_KEY"},
	"github":     {"GITHUB_TOKEN"},
}

// Default returns a Config rooted at dir
func Default(dir string) *Config {
	return &Config{
		General: GeneralConfig{
			DataDir:      dir,
			DatabasePath: filepath.Join(dir, "todos.db"),
			SchedulesDir: filepath.Join(dir, "schedules"),
		},
		Preferences: PreferencesConfig{
			DefaultModel:       "auto",
			MaxParallelTasks:   5,
			LoadOnlyFreeModels: true,
		},
		Scheduler: SchedulerConfig{
			CommandTimeoutSec: 300,
		},
		Notifications: NotificationsConfig{
			Desktop: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
// rooted at the file's directory
func Load(path string) (*Config, error) {
	cfg := Default(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.General.DataDir = ExpandPath(cfg.General.DataDir)
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.General.SchedulesDir = ExpandPath(cfg.General.SchedulesDir)
	cfg.GitHub.WorkDir = ExpandPath(cfg.GitHub.WorkDir)
	cfg.Logging.File = ExpandPath(cfg.Logging.File)

	return cfg, nil
}

// Save writes the configuration as TOML, creating the directory if needed
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	// Keys live in this file.
	return os.WriteFile(path, data, 0o600)
}

// APIKey returns the key for a provider, preferring the config file over
// the environment
func (c *Config) APIKey(provider string) string {
	if k := c.apiKeyField(provider); k != nil && *k != "" {
		return *k
	}
	for _, env := range envKeys[provider] {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}

// CommandTimeout returns the custom_command timeout, or zero when unset
func (c *Config) CommandTimeout() time.Duration {
	if c.Scheduler.CommandTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.Scheduler.CommandTimeoutSec) * time.Second
}

// SetAPIKey stores a key for a known provider
func (c *Config) SetAPIKey(provider, key string) error {
	k := c.apiKeyField(provider)
	if k == nil {
		return fmt.Errorf("unknown provider %q", provider)
	}
	*k = key
	return nil
}

// Providers lists provider names that have a key configured
func (c *Config) Providers() []string {
	var ps []string
	for _, p := range []string{"openai", "anthropic", "google", "xai", "deepseek", "mistral", "cohere", "perplexity"} {
		if c.APIKey(p) != "" {
			ps = append(ps, p)
		}
	}
	return ps
}

func (c *Config) apiKeyField(provider string) *string {
	switch strings.ToLower(provider) {
	case "openai":
		return &c.APIKeys.OpenAI
	case "anthropic":
		return &c.APIKeys.Anthropic
	case "google", "gemini":
		return &c.APIKeys.Google
	case "xai", "grok":
		return &c.APIKeys.XAI
	case "deepseek":
		return &c.APIKeys.DeepSeek
	case "mistral":
		return &c.APIKeys.Mistral
	case "cohere":
		return &c.APIKeys.Cohere
	case "perplexity":
		return &c.APIKeys.Perplexity
	case "github":
		return &c.APIKeys.GitHub
	}
	return nil
}

// SetPreference updates a preference from its string form
func (c *Config) SetPreference(key, value string) error {
	switch key {
	case "default_model":
		c.Preferences.DefaultModel = value
	case "developer_context":
		c.Preferences.DeveloperContext = value
	case "max_parallel_tasks":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("max_parallel_tasks must be a positive integer, got %q", value)
		}
		c.Preferences.MaxParallelTasks = n
	case "load_only_free_models":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("load_only_free_models must be true or false, got %q", value)
		}
		c.Preferences.LoadOnlyFreeModels = b
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// FindProjectRoot walks up from the working directory looking for a git
// repository. It returns "" when there is none.
func FindProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// DefaultConfigPath returns the project-local config inside a git
// repository, otherwise the per-user one
func DefaultConfigPath() string {
	if root := FindProjectRoot(); root != "" {
		return filepath.Join(root, ProjectDirName, ConfigFileName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, UserDirName, ConfigFileName)
}
