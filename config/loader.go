// Package config provides unified configuration loading for swarmchat.
// Precedence: defaults, then YAML file, then environment overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("swarmchat.yaml").
//	    WithEnvPrefix("SWARMCHAT").
//	    Load()
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration with layered precedence.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with no config file and the default
// SWARMCHAT env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "SWARMCHAT"}
}

// WithConfigPath sets the YAML config file path. Missing files are not an
// error; the defaults simply stand.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load builds the configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", l.configPath, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", l.configPath, err)
		}
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides the settings that commonly differ per deployment.
func (l *Loader) applyEnv(cfg *Config) {
	l.stringVar(&cfg.Generation.BaseURL, "GENERATION_BASE_URL")
	l.stringVar(&cfg.Generation.APIKey, "GENERATION_API_KEY")
	l.stringVar(&cfg.Generation.Model, "GENERATION_MODEL")
	l.durationVar(&cfg.Generation.Timeout, "GENERATION_TIMEOUT")
	l.boolVar(&cfg.Cache.Enabled, "CACHE_ENABLED")
	l.stringVar(&cfg.Cache.Addr, "CACHE_ADDR")
	l.stringVar(&cfg.Cache.Password, "CACHE_PASSWORD")
	l.stringVar(&cfg.Server.Addr, "SERVER_ADDR")
	l.stringVar(&cfg.Log.Level, "LOG_LEVEL")
	l.stringVar(&cfg.Log.Format, "LOG_FORMAT")
	l.intVar(&cfg.Orchestrator.MaxCycles, "ORCHESTRATOR_MAX_CYCLES")
	l.intVar(&cfg.Limits.MaxMessagesPerConversation, "LIMITS_MAX_MESSAGES")
}

func (l *Loader) lookup(key string) (string, bool) {
	return os.LookupEnv(l.envPrefix + "_" + key)
}

func (l *Loader) stringVar(dst *string, key string) {
	if v, ok := l.lookup(key); ok {
		*dst = v
	}
}

func (l *Loader) intVar(dst *int, key string) {
	if v, ok := l.lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (l *Loader) boolVar(dst *bool, key string) {
	if v, ok := l.lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func (l *Loader) durationVar(dst *time.Duration, key string) {
	if v, ok := l.lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
