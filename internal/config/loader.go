package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "ANGELDESK",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance
// so CLI flag bindings participate in precedence.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "ANGELDESK",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (bound via viper.BindPFlag)
// 2. Environment variables (ANGELDESK_*)
// 3. Project config (.angeldesk.yaml in current directory)
// 4. User config (~/.config/angeldesk/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".angeldesk")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "angeldesk"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func (l *Loader) setDefaults() {
	// Log defaults
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	// Store defaults
	l.v.SetDefault("store.backend", "sqlite")
	l.v.SetDefault("store.path", ".angeldesk/analyses.db")

	// LLM defaults
	l.v.SetDefault("llm.endpoint", "https://api.openai.com/v1/chat/completions")
	l.v.SetDefault("llm.model", "gpt-4o-mini")
	l.v.SetDefault("llm.max_tokens", 4096)
	l.v.SetDefault("llm.timeout", "90s")
	l.v.SetDefault("llm.cost_per_1k_input", 0.00015)
	l.v.SetDefault("llm.cost_per_1k_output", 0.0006)

	// Deals defaults
	l.v.SetDefault("deals.dir", ".angeldesk/deals")
	l.v.SetDefault("deals.inbox", "")

	// Pipeline defaults
	l.v.SetDefault("pipeline.agent_timeout", "2m")
	l.v.SetDefault("pipeline.max_attempts", 2)
	l.v.SetDefault("pipeline.resume_attempts", 1)
	l.v.SetDefault("pipeline.max_cost_usd", 5.0)

	// Server defaults
	l.v.SetDefault("server.addr", ":8080")
	l.v.SetDefault("server.read_timeout", "30s")
	l.v.SetDefault("server.write_timeout", "10m")
	l.v.SetDefault("server.allowed_origins", []string{"*"})

	// Events defaults
	l.v.SetDefault("events.buffer_size", 100)
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// IsSet checks if a key has been set.
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}
