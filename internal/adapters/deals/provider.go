// Package deals provides file-based deal context loading and the inbox
// watcher that auto-starts analyses on dropped deal files.
package deals

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

// FileProvider serves deal contexts from <dir>/<dealID>.json files. The
// file holds the full DealContext shape: deal metadata, extracted
// document text, pre-extracted facts and external benchmark data.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a provider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

// DealContext loads the full context for a deal.
func (p *FileProvider) DealContext(_ context.Context, dealID string) (*core.DealContext, error) {
	if strings.ContainsAny(dealID, `/\`) || dealID == "" {
		return nil, dealNotFound(dealID)
	}

	data, err := os.ReadFile(filepath.Join(p.dir, dealID+".json"))
	if os.IsNotExist(err) {
		return nil, dealNotFound(dealID)
	}
	if err != nil {
		return nil, core.ErrStorage("reading deal file").WithCause(err)
	}

	var dc core.DealContext
	if err := json.Unmarshal(data, &dc); err != nil {
		return nil, core.ErrValidation(core.CodeDealNotFound,
			fmt.Sprintf("deal file for %q is not valid JSON", dealID)).WithCause(err)
	}
	if dc.Deal.ID == "" {
		dc.Deal.ID = dealID
	}
	return &dc, nil
}

// ListDeals returns the IDs of every deal file in the directory.
func (p *FileProvider) ListDeals() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, core.ErrStorage("reading deals directory").WithCause(err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func dealNotFound(dealID string) error {
	return &core.DomainError{
		Category: core.ErrCatNotFound,
		Code:     core.CodeDealNotFound,
		Message:  fmt.Sprintf("deal not found: %s", dealID),
	}
}

var _ core.DealProvider = (*FileProvider)(nil)
