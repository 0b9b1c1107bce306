// Package config provides the Settings struct and loader for compass.yaml
// configuration files, with COMPASS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default values for settings. These are the single source of truth — New()
// references them and no other code should duplicate them.
const (
	DefaultStoragePath = "compass.sqlite"

	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultEmbedModel        = "qwen/qwen3-embedding-8b"
	DefaultChatModel         = "deepseek/deepseek-chat-v3"

	DefaultDiscoveryCutoff = 0.35

	DefaultServerPort = 8080
)

// OpenRouterConfig holds the LLM endpoint settings shared by the embedder
// and the chat collaborators.
type OpenRouterConfig struct {
	BaseURL    string `yaml:"base_url,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	EmbedModel string `yaml:"embed_model,omitempty"`
	ChatModel  string `yaml:"chat_model,omitempty"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port   int    `yaml:"port,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`
}

// Settings is the full compass configuration.
type Settings struct {
	StoragePath     string           `yaml:"storage_path,omitempty"`
	DiscoveryCutoff float64          `yaml:"discovery_cutoff,omitempty"`
	OpenRouter      OpenRouterConfig `yaml:"openrouter,omitempty"`
	Server          ServerConfig     `yaml:"server,omitempty"`
}

// New returns Settings with all hard-coded defaults populated.
func New() *Settings {
	return &Settings{
		StoragePath:     DefaultStoragePath,
		DiscoveryCutoff: DefaultDiscoveryCutoff,
		OpenRouter: OpenRouterConfig{
			BaseURL:    DefaultOpenRouterBaseURL,
			EmbedModel: DefaultEmbedModel,
			ChatModel:  DefaultChatModel,
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
	}
}

// Load reads the YAML file at path (missing file → defaults, nil error),
// overlays its values onto the defaults, then applies COMPASS_* environment
// overrides. An empty path skips the file entirely.
func Load(path string) (*Settings, error) {
	cfg := New()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		if err == nil {
			var fileCfg Settings
			if yerr := yaml.Unmarshal(data, &fileCfg); yerr != nil {
				return nil, fmt.Errorf("parsing %q: %w", path, yerr)
			}
			merge(cfg, &fileCfg)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge overlays non-zero values from src onto dst.
func merge(dst, src *Settings) {
	if src.StoragePath != "" {
		dst.StoragePath = src.StoragePath
	}
	if src.DiscoveryCutoff != 0 {
		dst.DiscoveryCutoff = src.DiscoveryCutoff
	}
	if src.OpenRouter.BaseURL != "" {
		dst.OpenRouter.BaseURL = src.OpenRouter.BaseURL
	}
	if src.OpenRouter.APIKey != "" {
		dst.OpenRouter.APIKey = src.OpenRouter.APIKey
	}
	if src.OpenRouter.EmbedModel != "" {
		dst.OpenRouter.EmbedModel = src.OpenRouter.EmbedModel
	}
	if src.OpenRouter.ChatModel != "" {
		dst.OpenRouter.ChatModel = src.OpenRouter.ChatModel
	}
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if src.Server.APIKey != "" {
		dst.Server.APIKey = src.Server.APIKey
	}
}

// applyEnv overrides settings from COMPASS_* environment variables.
func applyEnv(cfg *Settings) error {
	if v := os.Getenv("COMPASS_STORAGE_PATH"); v != "" {
		cfg.StoragePath = v
	}
	if v := os.Getenv("COMPASS_DISCOVERY_CUTOFF"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("COMPASS_DISCOVERY_CUTOFF: %w", err)
		}
		cfg.DiscoveryCutoff = f
	}
	if v := os.Getenv("COMPASS_OPENROUTER_BASE_URL"); v != "" {
		cfg.OpenRouter.BaseURL = v
	}
	if v := os.Getenv("COMPASS_OPENROUTER_API_KEY"); v != "" {
		cfg.OpenRouter.APIKey = v
	}
	if v := os.Getenv("COMPASS_EMBED_MODEL"); v != "" {
		cfg.OpenRouter.EmbedModel = v
	}
	if v := os.Getenv("COMPASS_CHAT_MODEL"); v != "" {
		cfg.OpenRouter.ChatModel = v
	}
	if v := os.Getenv("COMPASS_SERVER_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COMPASS_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = p
	}
	if v := os.Getenv("COMPASS_SERVER_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	return nil
}

// ValidateLive checks the fields the live LLM path requires.
func (c *Settings) ValidateLive() error {
	if c.OpenRouter.APIKey == "" {
		return errors.New("config: openrouter api key is required unless running offline")
	}
	if c.DiscoveryCutoff <= 0 || c.DiscoveryCutoff >= 1 {
		return fmt.Errorf("config: discovery cutoff %v outside (0,1)", c.DiscoveryCutoff)
	}
	return nil
}
