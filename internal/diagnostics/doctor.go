package diagnostics

import (
	"context"
	"fmt"
	"os"

	"github.com/sacha-rebbouh/angeldesk/internal/adapters/store"
	"github.com/sacha-rebbouh/angeldesk/internal/config"
)

// CheckStatus classifies a doctor check outcome.
type CheckStatus string

const (
	StatusOK   CheckStatus = "ok"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Check is one doctor probe result.
type Check struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// RunChecks probes the configured environment: store backend, deals
// directory, completion endpoint configuration. It never returns an
// error; problems are reported as failed checks.
func RunChecks(ctx context.Context, cfg *config.Config) []Check {
	return []Check{
		checkStore(ctx, cfg.Store),
		checkDealsDir(cfg.Deals),
		checkLLM(cfg.LLM),
	}
}

func checkStore(ctx context.Context, cfg config.StoreConfig) Check {
	check := Check{Name: "store"}

	s, err := store.New(cfg)
	if err != nil {
		check.Status = StatusFail
		check.Detail = err.Error()
		return check
	}
	defer store.Close(s)

	if _, err := s.ListAnalyses(ctx); err != nil {
		check.Status = StatusFail
		check.Detail = fmt.Sprintf("%s backend at %s: %v", cfg.Backend, cfg.Path, err)
		return check
	}
	check.Status = StatusOK
	check.Detail = fmt.Sprintf("%s backend at %s", cfg.Backend, cfg.Path)
	return check
}

func checkDealsDir(cfg config.DealsConfig) Check {
	check := Check{Name: "deals"}

	info, err := os.Stat(cfg.Dir)
	switch {
	case os.IsNotExist(err):
		check.Status = StatusWarn
		check.Detail = fmt.Sprintf("deals directory %s does not exist yet", cfg.Dir)
	case err != nil:
		check.Status = StatusFail
		check.Detail = err.Error()
	case !info.IsDir():
		check.Status = StatusFail
		check.Detail = fmt.Sprintf("%s is not a directory", cfg.Dir)
	default:
		check.Status = StatusOK
		check.Detail = cfg.Dir
	}
	return check
}

func checkLLM(cfg config.LLMConfig) Check {
	check := Check{Name: "llm"}

	if cfg.Endpoint == "" || cfg.Model == "" {
		check.Status = StatusFail
		check.Detail = "llm.endpoint and llm.model must be configured"
		return check
	}
	if cfg.APIKey == "" {
		check.Status = StatusWarn
		check.Detail = "no API key configured (set ANGELDESK_LLM_API_KEY)"
		return check
	}
	check.Status = StatusOK
	check.Detail = fmt.Sprintf("%s via %s", cfg.Model, cfg.Endpoint)
	return check
}
