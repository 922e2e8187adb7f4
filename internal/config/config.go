// Package config loads settings from flags, COPILOT_* environment variables
// and ~/.copilot/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/ashalaginvimeo/AS-test/internal/llm"
)

const (
	EnvPrefix  = "COPILOT"
	dirName    = ".copilot"
	configName = "config"
)

// Config is the decoded application configuration
type Config struct {
	Provider       string        `mapstructure:"provider"`
	Model          string        `mapstructure:"model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	LogFile        string        `mapstructure:"log_file"`
	DataDir        string        `mapstructure:"data_dir"`
	Server         ServerConfig  `mapstructure:"server"`
	LLM            LLMConfig     `mapstructure:"llm"`
}

// ServerConfig holds the serve command settings
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxSessions     int           `mapstructure:"max_sessions"`
}

// LLMConfig holds per-provider credentials from the config file
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig is one entry under llm.providers
type ProviderConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultDataDir is ~/.copilot, or .copilot when the home directory is unknown
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// SetDefaults registers every key so AutomaticEnv can see it
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", "")
	v.SetDefault("model", "")
	v.SetDefault("request_timeout", 90*time.Second)
	v.SetDefault("max_tokens", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_file", "")
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_sessions", 256)
}

// Init points v at the config file and environment. A missing file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		configDir := DefaultDataDir()
		if err := os.MkdirAll(configDir, 0700); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config directory: %v\n", err)
		}
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(configName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly
func (c *Config) Validate() error {
	if c.Provider != "" {
		if _, err := llm.ParseProviderID(c.Provider); err != nil {
			return err
		}
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	if c.Server.MaxSessions < 0 {
		return fmt.Errorf("server.max_sessions must not be negative")
	}
	return nil
}

// ConfigKeys returns the api_key values from llm.providers, keyed by provider id
func (c *Config) ConfigKeys() map[string]string {
	keys := make(map[string]string, len(c.LLM.Providers))
	for id, p := range c.LLM.Providers {
		if p.APIKey != "" {
			keys[id] = p.APIKey
		}
	}
	return keys
}
