package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Deals    DealsConfig    `mapstructure:"deals"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Server   ServerConfig   `mapstructure:"server"`
	Events   EventsConfig   `mapstructure:"events"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig configures analysis persistence.
type StoreConfig struct {
	// Backend selects the store implementation: sqlite, json or memory.
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	CostPer1KInput  float64       `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64       `mapstructure:"cost_per_1k_output"`
}

// DealsConfig configures where deal files live.
type DealsConfig struct {
	Dir   string `mapstructure:"dir"`
	Inbox string `mapstructure:"inbox"`
}

// PipelineConfig configures analysis execution.
type PipelineConfig struct {
	AgentTimeout   time.Duration `mapstructure:"agent_timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	ResumeAttempts int           `mapstructure:"resume_attempts"`
	MaxCostUSD     float64       `mapstructure:"max_cost_usd"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
