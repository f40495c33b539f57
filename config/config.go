package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// DefaultConfigFile is read from the working directory when no --config path is given.
const DefaultConfigFile = "contento.toml"

// EnvFile is the dotenv file loaded before environment overrides are applied.
var EnvFile = ".env"

// Twitter holds the OAuth 1.0a user-context keys and the app bearer token.
type Twitter struct {
	ConsumerKey       string `toml:"consumer_key"`
	ConsumerSecret    string `toml:"consumer_secret"`
	AccessToken       string `toml:"access_token"`
	AccessTokenSecret string `toml:"access_token_secret"`
	BearerToken       string `toml:"bearer_token"`
	// BaseURL overrides the API host, for proxies and local fakes.
	BaseURL string `toml:"base_url"`
}

// Paths holds the sweep directories and the queue store root.
type Paths struct {
	InputDir     string `toml:"input_dir"`
	ProcessedDir string `toml:"processed_dir"`
	ErrorDir     string `toml:"error_dir"`
	QueueBaseDir string `toml:"queue_base_dir"`
}

// Slack enables sweep summaries when both values are set.
type Slack struct {
	BotToken  string `toml:"bot_token"`
	ChannelID string `toml:"channel_id"`
}

// History selects the publish-history store. An empty DSN disables it.
type History struct {
	DSN string `toml:"dsn"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

type API struct {
	Addr string `toml:"addr"`
}

// Config is the merged result of the TOML file, the .env file and the process
// environment, in increasing order of precedence.
type Config struct {
	Twitter Twitter `toml:"twitter"`
	Paths   Paths   `toml:"paths"`
	Slack   Slack   `toml:"slack"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`
	API     API     `toml:"api"`

	// Source is the TOML file that was read, empty when none was.
	Source string `toml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Paths:   Paths{QueueBaseDir: "data"},
		Logging: Logging{Level: "info", File: "tweet_posting.log"},
		API:     API{Addr: ":8080"},
	}
}

// Load builds the configuration. A non-empty path must exist; an empty path
// falls back to DefaultConfigFile when present. The .env file is optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if exists {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", resolved, err)
		}
		cfg.Source = resolved
	}

	// godotenv never overrides variables already present in the environment.
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", EnvFile, err)
	}
	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			return "", false, fmt.Errorf("config file %s: %w", expanded, err)
		}
		return expanded, true, nil
	}
	if _, err := os.Stat(DefaultConfigFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("config file %s: %w", DefaultConfigFile, err)
	}
	return DefaultConfigFile, true, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"CONSUMER_KEY", &c.Twitter.ConsumerKey},
		{"CONSUMER_SECRET", &c.Twitter.ConsumerSecret},
		{"ACCESS_TOKEN", &c.Twitter.AccessToken},
		{"ACCESS_TOKEN_SECRET", &c.Twitter.AccessTokenSecret},
		{"BEARER_TOKEN", &c.Twitter.BearerToken},
		{"TWITTER_API_URL", &c.Twitter.BaseURL},
		{"INPUT_DIR", &c.Paths.InputDir},
		{"PROCESSED_DIR", &c.Paths.ProcessedDir},
		{"ERROR_DIR", &c.Paths.ErrorDir},
		{"QUEUE_BASE_DIR", &c.Paths.QueueBaseDir},
		{"SLACK_BOT_TOKEN", &c.Slack.BotToken},
		{"SLACK_CHANNEL_ID", &c.Slack.ChannelID},
		{"HISTORY_DSN", &c.History.DSN},
		{"LOG_LEVEL", &c.Logging.Level},
		{"LOG_FORMAT", &c.Logging.Format},
		{"LOG_FILE", &c.Logging.File},
		{"API_ADDR", &c.API.Addr},
	}
	for _, o := range overrides {
		*o.target = getEnv(o.key, *o.target)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) normalize() error {
	c.Twitter.ConsumerKey = strings.TrimSpace(c.Twitter.ConsumerKey)
	c.Twitter.ConsumerSecret = strings.TrimSpace(c.Twitter.ConsumerSecret)
	c.Twitter.AccessToken = strings.TrimSpace(c.Twitter.AccessToken)
	c.Twitter.AccessTokenSecret = strings.TrimSpace(c.Twitter.AccessTokenSecret)
	c.Twitter.BearerToken = strings.TrimSpace(c.Twitter.BearerToken)
	c.Twitter.BaseURL = strings.TrimSpace(c.Twitter.BaseURL)
	c.Slack.BotToken = strings.TrimSpace(c.Slack.BotToken)
	c.Slack.ChannelID = strings.TrimSpace(c.Slack.ChannelID)
	c.History.DSN = strings.TrimSpace(c.History.DSN)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.API.Addr = strings.TrimSpace(c.API.Addr)

	paths := []struct {
		name   string
		target *string
	}{
		{"paths.input_dir", &c.Paths.InputDir},
		{"paths.processed_dir", &c.Paths.ProcessedDir},
		{"paths.error_dir", &c.Paths.ErrorDir},
		{"paths.queue_base_dir", &c.Paths.QueueBaseDir},
		{"logging.file", &c.Logging.File},
	}
	for _, p := range paths {
		expanded, err := expandPath(strings.TrimSpace(*p.target))
		if err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
		*p.target = expanded
	}
	return nil
}

// expandPath resolves a leading ~ to the home directory and cleans the path.
// Relative paths stay relative to the working directory.
func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	return filepath.Clean(pathValue), nil
}

// SlackEnabled reports whether sweep summaries should be posted.
func (c *Config) SlackEnabled() bool {
	return c.Slack.BotToken != "" && c.Slack.ChannelID != ""
}

// HistoryEnabled reports whether publish attempts should be recorded.
func (c *Config) HistoryEnabled() bool {
	return c.History.DSN != ""
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the sample configuration to path without overwriting
// an existing file.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	file, err := os.OpenFile(expanded, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if _, err := file.WriteString(sampleConfig); err != nil {
		_ = file.Close()
		return fmt.Errorf("write config file: %w", err)
	}
	return file.Close()
}
