package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Limits.MaxConversations)
	assert.Equal(t, 2, cfg.Limits.MinPersonasPerGroup)
	assert.Equal(t, 5, cfg.Limits.MaxPersonasPerGroup)
	assert.Equal(t, 100, cfg.Limits.MaxMessagesPerConversation)
	assert.Equal(t, 8, cfg.Orchestrator.MaxCycles)
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "swarmchat.yaml")
	data := []byte(`
orchestrator:
  max_cycles: 3
pacing:
  typing_cap: 1s
generation:
  model: test-model
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Orchestrator.MaxCycles)
	assert.Equal(t, time.Second, cfg.Pacing.TypingCap)
	assert.Equal(t, "test-model", cfg.Generation.Model)
	// Untouched sections keep their defaults.
	assert.Equal(t, 10, cfg.Limits.MaxConversations)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader().WithConfigPath("/nonexistent/swarmchat.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Limits, cfg.Limits)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swarmchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generation:\n  model: from-file\n"), 0o600))

	t.Setenv("SWARMCHAT_GENERATION_MODEL", "from-env")
	t.Setenv("SWARMCHAT_ORCHESTRATOR_MAX_CYCLES", "5")
	t.Setenv("SWARMCHAT_CACHE_ENABLED", "true")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Generation.Model)
	assert.Equal(t, 5, cfg.Orchestrator.MaxCycles)
	assert.True(t, cfg.Cache.Enabled)
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"roster min below two", func(c *Config) { c.Limits.MinPersonasPerGroup = 1 }},
		{"roster max below min", func(c *Config) { c.Limits.MaxPersonasPerGroup = 1 }},
		{"zero conversations", func(c *Config) { c.Limits.MaxConversations = 0 }},
		{"zero message cap", func(c *Config) { c.Limits.MaxMessagesPerConversation = 0 }},
		{"unsorted milestones", func(c *Config) { c.Limits.CheckpointMilestones = []int{60, 30} }},
		{"milestone beyond cap", func(c *Config) { c.Limits.CheckpointMilestones = []int{150} }},
		{"zero cycles", func(c *Config) { c.Orchestrator.MaxCycles = 0 }},
		{"negative pacing", func(c *Config) { c.Pacing.InterTurnPause = -time.Second }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
