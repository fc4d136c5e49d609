package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate checks the entire configuration, collecting every problem
// rather than stopping at the first.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateStore(&cfg.Store)
	v.validateLLM(&cfg.LLM)
	v.validatePipeline(&cfg.Pipeline)
	v.validateServer(&cfg.Server)
	v.validateEvents(&cfg.Events)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "", "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}
	switch cfg.Format {
	case "", "auto", "text", "json":
	default:
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateStore(cfg *StoreConfig) {
	switch cfg.Backend {
	case "sqlite", "json", "memory":
	default:
		v.addError("store.backend", cfg.Backend, "must be one of: sqlite, json, memory")
	}
	if cfg.Backend != "memory" && cfg.Path == "" {
		v.addError("store.path", cfg.Path, "required for sqlite and json backends")
	}
}

func (v *Validator) validateLLM(cfg *LLMConfig) {
	if cfg.Endpoint == "" {
		v.addError("llm.endpoint", cfg.Endpoint, "must not be empty")
	} else if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		v.addError("llm.endpoint", cfg.Endpoint, "must be an http(s) URL")
	}
	if cfg.Model == "" {
		v.addError("llm.model", cfg.Model, "must not be empty")
	}
	if cfg.MaxTokens <= 0 {
		v.addError("llm.max_tokens", cfg.MaxTokens, "must be positive")
	}
	if cfg.Timeout <= 0 {
		v.addError("llm.timeout", cfg.Timeout, "must be positive")
	}
	if cfg.CostPer1KInput < 0 || cfg.CostPer1KOutput < 0 {
		v.addError("llm.cost_per_1k", fmt.Sprintf("in=%v out=%v", cfg.CostPer1KInput, cfg.CostPer1KOutput), "must not be negative")
	}
}

func (v *Validator) validatePipeline(cfg *PipelineConfig) {
	if cfg.AgentTimeout <= 0 {
		v.addError("pipeline.agent_timeout", cfg.AgentTimeout, "must be positive")
	}
	if cfg.MaxAttempts < 1 {
		v.addError("pipeline.max_attempts", cfg.MaxAttempts, "must be at least 1")
	}
	if cfg.ResumeAttempts < 1 {
		v.addError("pipeline.resume_attempts", cfg.ResumeAttempts, "must be at least 1")
	}
	if cfg.MaxCostUSD < 0 {
		v.addError("pipeline.max_cost_usd", cfg.MaxCostUSD, "must not be negative")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Addr == "" {
		v.addError("server.addr", cfg.Addr, "must not be empty")
	}
	if cfg.ReadTimeout < 0 {
		v.addError("server.read_timeout", cfg.ReadTimeout, "must not be negative")
	}
	if cfg.WriteTimeout < 0 {
		v.addError("server.write_timeout", cfg.WriteTimeout, "must not be negative")
	}
}

func (v *Validator) validateEvents(cfg *EventsConfig) {
	if cfg.BufferSize < 0 {
		v.addError("events.buffer_size", cfg.BufferSize, "must not be negative")
	}
}
