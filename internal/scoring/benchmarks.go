package scoring

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed benchmarks.yaml
var embeddedBenchmarks []byte

// Range maps a metric value onto [0,100]: floor scores 0, ceiling scores
// 100. A floor above its ceiling inverts the scale (lower is better).
type Range struct {
	Floor   float64 `yaml:"floor"`
	Ceiling float64 `yaml:"ceiling"`
}

// Interpolate returns the clamped linear position of v within the range.
func (r Range) Interpolate(v float64) float64 {
	span := r.Ceiling - r.Floor
	if span == 0 {
		return 50
	}
	score := (v - r.Floor) / span * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

type benchmarkEntry struct {
	Sector  string           `yaml:"sector"`
	Stage   string           `yaml:"stage"`
	Metrics map[string]Range `yaml:"metrics"`
}

type benchmarkFile struct {
	Defaults   map[string]Range `yaml:"defaults"`
	Benchmarks []benchmarkEntry `yaml:"benchmarks"`
}

// BenchmarkTable resolves metric ranges by sector and stage, falling back
// to sector-independent defaults.
type BenchmarkTable struct {
	entries  map[string]map[string]Range
	defaults map[string]Range
}

// LoadBenchmarks parses a YAML benchmark table.
func LoadBenchmarks(data []byte) (*BenchmarkTable, error) {
	var file benchmarkFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing benchmark table: %w", err)
	}
	t := &BenchmarkTable{
		entries:  make(map[string]map[string]Range, len(file.Benchmarks)),
		defaults: file.Defaults,
	}
	for _, e := range file.Benchmarks {
		t.entries[tableKey(e.Sector, e.Stage)] = e.Metrics
	}
	return t, nil
}

// DefaultBenchmarks returns the table embedded in the binary.
func DefaultBenchmarks() *BenchmarkTable {
	t, err := LoadBenchmarks(embeddedBenchmarks)
	if err != nil {
		// The embedded table is validated by tests; a parse failure here is
		// a build defect, not a runtime condition.
		panic(fmt.Sprintf("embedded benchmark table invalid: %v", err))
	}
	return t
}

// Lookup resolves the range for a metric, preferring the exact sector+stage
// entry over the defaults. The boolean reports whether any range was found.
func (t *BenchmarkTable) Lookup(sector, stage, metric string) (Range, bool) {
	if metrics, ok := t.entries[tableKey(sector, stage)]; ok {
		if r, ok := metrics[metric]; ok {
			return r, true
		}
	}
	r, ok := t.defaults[metric]
	return r, ok
}

func tableKey(sector, stage string) string {
	return strings.ToLower(strings.TrimSpace(sector)) + "|" + strings.ToLower(strings.TrimSpace(stage))
}
