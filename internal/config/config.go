// Package config handles wingman configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cloud-shuttle/wingman/internal/llm"
)

// DefaultSystemPrompt is the stock instruction given to the backend
const DefaultSystemPrompt = "You are drafting chat replies on behalf of the operator. " +
	"Answer naturally and keep the conversation going, asking follow-up questions when it helps. " +
	"Don't be too brief, but also avoid writing an essay."

// Config holds the immutable session configuration, resolved once before the
// pipeline starts
type Config struct {
	// Provider selects the generation backend
	Provider llm.ProviderType `yaml:"provider"`

	// Automatic sends candidates without operator confirmation
	Automatic bool `yaml:"automatic"`

	SystemPrompt string `yaml:"system_prompt"`
	HistorySize  int    `yaml:"history_size"`

	Telegram TelegramConfig `yaml:"telegram"`
	Kobold   KoboldConfig   `yaml:"kobold"`
	Gemini   GeminiConfig   `yaml:"gemini"`

	Generation llm.Params `yaml:"generation"`

	// TranscriptPath enables the SQLite session archive when non-empty
	TranscriptPath string `yaml:"transcript_path"`

	LogLevel    string        `yaml:"log_level"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// TelegramConfig holds chat transport settings
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`

	// Chat is the target selector: a numeric chat id or @username
	Chat string `yaml:"chat"`
}

// KoboldConfig holds the flattened-prompt backend settings
type KoboldConfig struct {
	URL string `yaml:"url"`
}

// GeminiConfig holds the role-array backend settings
type GeminiConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// Load loads configuration from defaults, an optional YAML file, and
// environment overrides, in that order. An empty path falls back to
// ~/.wingman/config.yaml when that file exists.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Provider:     llm.ProviderKobold,
		SystemPrompt: DefaultSystemPrompt,
		HistorySize:  20,
		Generation:   llm.DefaultParams(),
		LogLevel:     "info",
		HTTPTimeout:  60 * time.Second,
	}

	if path == "" {
		path = defaultConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WINGMAN_PROVIDER"); v != "" {
		cfg.Provider = llm.ProviderType(v)
	}
	if v := os.Getenv("WINGMAN_AUTO"); v != "" {
		cfg.Automatic = v == "true" || v == "1"
	}
	if v := os.Getenv("WINGMAN_SYSTEM_PROMPT"); v != "" {
		cfg.SystemPrompt = v
	}
	if v := os.Getenv("WINGMAN_HISTORY_SIZE"); v != "" {
		cfg.HistorySize = parseIntOrDefault(v, cfg.HistorySize)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("WINGMAN_CHAT"); v != "" {
		cfg.Telegram.Chat = v
	}
	if v := os.Getenv("KOBOLD_API_URL"); v != "" {
		cfg.Kobold.URL = v
	}
	if v := os.Getenv("GEMINI_BASE_URL"); v != "" {
		cfg.Gemini.BaseURL = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("WINGMAN_TRANSCRIPT_DB"); v != "" {
		cfg.TranscriptPath = v
	}
	if v := os.Getenv("WINGMAN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WINGMAN_HTTP_TIMEOUT"); v != "" {
		cfg.HTTPTimeout = parseDurationOrDefault(v, cfg.HTTPTimeout)
	}
}

// Validate checks that the configuration can start a session
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required (TELEGRAM_BOT_TOKEN)")
	}
	if c.Provider != llm.ProviderKobold && c.Provider != llm.ProviderGemini {
		return fmt.Errorf("unknown provider: %s", c.Provider)
	}
	if c.Provider == llm.ProviderGemini && c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini API key is required (GEMINI_API_KEY)")
	}
	return nil
}

// ProviderConfig assembles the generation client configuration for the
// resolved conversation partner
func (c *Config) ProviderConfig(partnerName string) llm.ProviderConfig {
	pc := llm.ProviderConfig{
		Type:         c.Provider,
		SystemPrompt: c.SystemPrompt,
		PartnerName:  partnerName,
		Params:       c.Generation,
		Timeout:      c.HTTPTimeout,
	}
	switch c.Provider {
	case llm.ProviderKobold:
		pc.Endpoint = c.Kobold.URL
	case llm.ProviderGemini:
		pc.Endpoint = c.Gemini.BaseURL
		pc.Model = c.Gemini.Model
		pc.APIKey = c.Gemini.APIKey
	}
	return pc
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".wingman", "config.yaml")
}

func parseIntOrDefault(s string, def int) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return def
	}
	return i
}

func parseDurationOrDefault(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
