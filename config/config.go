package config

import (
	"fmt"
	"sort"
	"time"
)

// Config is the complete swarmchat configuration.
type Config struct {
	Limits       LimitsConfig       `yaml:"limits"`
	Pacing       PacingConfig       `yaml:"pacing"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Generation   GenerationConfig   `yaml:"generation"`
	Cache        CacheConfig        `yaml:"cache"`
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
}

// LimitsConfig holds the conversation size limits the orchestrator and
// transcript store must honor.
type LimitsConfig struct {
	// Maximum conversations per workspace.
	MaxConversations int `yaml:"max_conversations"`
	// Minimum roster size to create a conversation.
	MinPersonasPerGroup int `yaml:"min_personas_per_group"`
	// Maximum roster size per conversation.
	MaxPersonasPerGroup int `yaml:"max_personas_per_group"`
	// Absolute message ceiling per conversation.
	MaxMessagesPerConversation int `yaml:"max_messages_per_conversation"`
	// Message counts at which a checkpoint poll is auto-injected.
	CheckpointMilestones []int `yaml:"checkpoint_milestones"`
}

// PacingConfig controls playback timing. The typing delay for a message of
// length n is min(TypingCap, TypingBase + n*TypingPerChar).
type PacingConfig struct {
	TypingBase      time.Duration `yaml:"typing_base"`
	TypingPerChar   time.Duration `yaml:"typing_per_char"`
	TypingCap       time.Duration `yaml:"typing_cap"`
	InterTurnPause  time.Duration `yaml:"inter_turn_pause"`
	InterCyclePause time.Duration `yaml:"inter_cycle_pause"`
	// Delay before autonomous generation resumes after a poll resolves
	// with "continue".
	ResumeAfterPoll time.Duration `yaml:"resume_after_poll"`
	// Opening greetings posted by roster members on conversation creation.
	InitialGreetings bool `yaml:"initial_greetings"`
}

// OrchestratorConfig bounds the discussion cycle loop.
type OrchestratorConfig struct {
	// Maximum generation cycles per invocation.
	MaxCycles int `yaml:"max_cycles"`
	// Recent-history window handed to the generation service.
	HistoryWindow int `yaml:"history_window"`
	// Token budget for the history window; 0 disables token counting.
	HistoryTokenBudget int `yaml:"history_token_budget"`
}

// GenerationConfig configures the HTTP generation client.
type GenerationConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	Temperature       float32       `yaml:"temperature"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// CacheConfig configures the optional redis response cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures zap.
type LogConfig struct {
	// debug, info, warn, error
	Level string `yaml:"level"`
	// json or console
	Format string `yaml:"format"`
	// Development enables zap development mode (stacktraces on warn).
	Development bool `yaml:"development"`
}

// Default returns the default configuration. Limits follow the product
// constants: 10 conversations, rosters of 2-5 personas, 100 messages.
func Default() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxConversations:           10,
			MinPersonasPerGroup:        2,
			MaxPersonasPerGroup:        5,
			MaxMessagesPerConversation: 100,
			CheckpointMilestones:       []int{30, 60, 90},
		},
		Pacing: PacingConfig{
			TypingBase:       600 * time.Millisecond,
			TypingPerChar:    12 * time.Millisecond,
			TypingCap:        2500 * time.Millisecond,
			InterTurnPause:   400 * time.Millisecond,
			InterCyclePause:  500 * time.Millisecond,
			ResumeAfterPoll:  time.Second,
			InitialGreetings: true,
		},
		Orchestrator: OrchestratorConfig{
			MaxCycles:          8,
			HistoryWindow:      40,
			HistoryTokenBudget: 3000,
		},
		Generation: GenerationConfig{
			BaseURL:           "http://localhost:8081",
			Model:             "gpt-4o-mini",
			Temperature:       0.8,
			Timeout:           60 * time.Second,
			RequestsPerMinute: 30,
		},
		Cache: CacheConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			TTL:     5 * time.Minute,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	l := c.Limits
	if l.MinPersonasPerGroup < 2 {
		return fmt.Errorf("limits: min_personas_per_group must be >= 2, got %d", l.MinPersonasPerGroup)
	}
	if l.MaxPersonasPerGroup < l.MinPersonasPerGroup {
		return fmt.Errorf("limits: max_personas_per_group %d < min %d", l.MaxPersonasPerGroup, l.MinPersonasPerGroup)
	}
	if l.MaxConversations <= 0 {
		return fmt.Errorf("limits: max_conversations must be positive, got %d", l.MaxConversations)
	}
	if l.MaxMessagesPerConversation <= 0 {
		return fmt.Errorf("limits: max_messages_per_conversation must be positive, got %d", l.MaxMessagesPerConversation)
	}
	if !sort.IntsAreSorted(l.CheckpointMilestones) {
		return fmt.Errorf("limits: checkpoint_milestones must be ascending")
	}
	for _, m := range l.CheckpointMilestones {
		if m <= 0 || m >= l.MaxMessagesPerConversation {
			return fmt.Errorf("limits: checkpoint milestone %d out of range (0, %d)", m, l.MaxMessagesPerConversation)
		}
	}
	if c.Orchestrator.MaxCycles <= 0 {
		return fmt.Errorf("orchestrator: max_cycles must be positive, got %d", c.Orchestrator.MaxCycles)
	}
	if c.Orchestrator.HistoryWindow <= 0 {
		return fmt.Errorf("orchestrator: history_window must be positive, got %d", c.Orchestrator.HistoryWindow)
	}
	p := c.Pacing
	if p.TypingBase < 0 || p.TypingPerChar < 0 || p.TypingCap < 0 || p.InterTurnPause < 0 || p.InterCyclePause < 0 || p.ResumeAfterPoll < 0 {
		return fmt.Errorf("pacing: durations must be non-negative")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log: format must be json or console, got %q", c.Log.Format)
	}
	return nil
}
