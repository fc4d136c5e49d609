package store

import (
	"fmt"

	"github.com/sacha-rebbouh/angeldesk/internal/config"
	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

// New creates the AnalysisStore selected by cfg.Backend.
func New(cfg config.StoreConfig) (core.AnalysisStore, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "json":
		return NewJSONStore(cfg.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, core.ErrConfig(core.CodeInvalidConfig,
			fmt.Sprintf("unknown store backend %q (expected sqlite, json or memory)", cfg.Backend))
	}
}

// Closeable is an optional interface for stores that need cleanup.
type Closeable interface {
	Close() error
}

// Close safely closes a store if it implements Closeable.
func Close(s core.AnalysisStore) error {
	if closeable, ok := s.(Closeable); ok {
		return closeable.Close()
	}
	return nil
}
