package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Dialogue   DialogueConfig   `koanf:"dialogue"`
	Session    SessionConfig    `koanf:"session"`
	Goal       GoalConfig       `koanf:"goal"`
	Completion CompletionConfig `koanf:"completion"`
	Directory  DirectoryConfig  `koanf:"directory"`
	Learning   LearningConfig   `koanf:"learning"`
	Gateways   GatewaysConfig   `koanf:"gateways"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type DialogueConfig struct {
	// Length thresholds in runes, ordered extremely-short < very-short < short < adequate.
	ExtremelyShortLen int `koanf:"extremely_short_len"`
	VeryShortLen      int `koanf:"very_short_len"`
	ShortLen          int `koanf:"short_len"`
	AdequateLen       int `koanf:"adequate_len"`
	// Messages at or above this rune count go through the extractor first.
	LongResponseLen int `koanf:"long_response_len"`
	// Attempts at one step before forced progression.
	RetryCeiling int `koanf:"retry_ceiling"`
}

type SessionConfig struct {
	WorkspacePath string `koanf:"workspace_path"`
	TTL           string `koanf:"ttl"`
	LockTimeout   string `koanf:"lock_timeout"`
	LockRetry     string `koanf:"lock_retry"`
	LockMaxRetry  int    `koanf:"lock_max_retry"`
	InboxSize     int    `koanf:"inbox_size"`
}

type GoalConfig struct {
	DatabasePath string `koanf:"database_path"`
}

type CompletionConfig struct {
	Provider       string `koanf:"provider"` // "openai" or "anthropic"
	Model          string `koanf:"model"`
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	RequestTimeout string `koanf:"request_timeout"`
}

type DirectoryConfig struct {
	BaseURL string `koanf:"base_url"`
	Timeout string `koanf:"timeout"`
}

type LearningConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`
	Timeout string `koanf:"timeout"`
}

type GatewaysConfig struct {
	Slack    SlackConfig    `koanf:"slack"`
	Telegram TelegramConfig `koanf:"telegram"`
}

type SlackConfig struct {
	Enabled       bool   `koanf:"enabled"`
	SigningSecret string `koanf:"signing_secret"`
	BotToken      string `koanf:"bot_token"`
}

type TelegramConfig struct {
	Enabled       bool   `koanf:"enabled"`
	BotToken      string `koanf:"bot_token"`
	UpdateTimeout int    `koanf:"update_timeout"`
}

const (
	DefaultServerPort            = 8080
	DefaultServerLogLevel        = "info"
	DefaultServerReadTimeout     = "10s"
	DefaultServerWriteTimeout    = "10s"
	DefaultServerIdleTimeout     = "60s"
	DefaultServerShutdownTimeout = "5s"

	DefaultDialogueExtremelyShortLen = 5
	DefaultDialogueVeryShortLen      = 10
	DefaultDialogueShortLen          = 20
	DefaultDialogueAdequateLen       = 50
	DefaultDialogueLongResponseLen   = 200
	DefaultDialogueRetryCeiling      = 3

	DefaultSessionTTL          = "24h"
	DefaultSessionLockTimeout  = "10s"
	DefaultSessionLockRetry    = "500ms"
	DefaultSessionLockMaxRetry = 20
	DefaultSessionInboxSize    = 256

	DefaultCompletionProvider       = "openai"
	DefaultCompletionModel          = "gpt-4o-mini"
	DefaultCompletionRequestTimeout = "30s"

	DefaultDirectoryTimeout = "5s"
	DefaultLearningTimeout  = "5s"

	DefaultTelegramUpdateTimeout = 60
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                   DefaultServerPort,
		"server.log_level":              DefaultServerLogLevel,
		"server.read_timeout":           DefaultServerReadTimeout,
		"server.write_timeout":          DefaultServerWriteTimeout,
		"server.idle_timeout":           DefaultServerIdleTimeout,
		"server.shutdown_timeout":       DefaultServerShutdownTimeout,
		"dialogue.extremely_short_len":  DefaultDialogueExtremelyShortLen,
		"dialogue.very_short_len":       DefaultDialogueVeryShortLen,
		"dialogue.short_len":            DefaultDialogueShortLen,
		"dialogue.adequate_len":         DefaultDialogueAdequateLen,
		"dialogue.long_response_len":    DefaultDialogueLongResponseLen,
		"dialogue.retry_ceiling":        DefaultDialogueRetryCeiling,
		"session.workspace_path":        filepath.Join(os.Getenv("HOME"), ".mokuhyo", "sessions"),
		"session.ttl":                   DefaultSessionTTL,
		"session.lock_timeout":          DefaultSessionLockTimeout,
		"session.lock_retry":            DefaultSessionLockRetry,
		"session.lock_max_retry":        DefaultSessionLockMaxRetry,
		"session.inbox_size":            DefaultSessionInboxSize,
		"goal.database_path":            filepath.Join(os.Getenv("HOME"), ".mokuhyo", "goals.db"),
		"completion.provider":           DefaultCompletionProvider,
		"completion.model":              DefaultCompletionModel,
		"completion.request_timeout":    DefaultCompletionRequestTimeout,
		"directory.timeout":             DefaultDirectoryTimeout,
		"learning.enabled":              false,
		"learning.timeout":              DefaultLearningTimeout,
		"gateways.telegram.update_timeout": DefaultTelegramUpdateTimeout,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".mokuhyo", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	k.Load(env.Provider("MOKUHYO_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "MOKUHYO_")), "_", ".", -1)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Inject standard env vars if the config file left the key blank.
	if cfg.Completion.APIKey == "" {
		switch cfg.Completion.Provider {
		case "anthropic":
			cfg.Completion.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			cfg.Completion.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.Gateways.Slack.BotToken == "" {
		cfg.Gateways.Slack.BotToken = os.Getenv("SLACK_BOT_TOKEN")
	}
	if cfg.Gateways.Slack.SigningSecret == "" {
		cfg.Gateways.Slack.SigningSecret = os.Getenv("SLACK_SIGNING_SECRET")
	}
	if cfg.Gateways.Telegram.BotToken == "" {
		cfg.Gateways.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}

	return &cfg, nil
}
