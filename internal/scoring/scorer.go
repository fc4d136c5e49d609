// Package scoring computes reproducible 0-100 deal scores from extracted
// metrics and sector/stage benchmark tables. Identical inputs always yield
// identical output; the scorer never synthesizes metrics it was not given.
package scoring

import (
	"math"
	"sort"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

// Criterion maps one metric onto a weighted sub-score.
type Criterion struct {
	Name   string  `yaml:"name" json:"name"`
	Weight float64 `yaml:"weight" json:"weight"`
	Metric string  `yaml:"metric" json:"metric"`
}

// CriterionScore is one breakdown entry.
type CriterionScore struct {
	Criterion   string  `json:"criterion"`
	Metric      string  `json:"metric"`
	Weight      float64 `json:"weight"`
	MetricValue float64 `json:"metric_value,omitempty"`
	SubScore    float64 `json:"sub_score"`
	Missing     bool    `json:"missing,omitempty"`
}

// Result is a weighted score with its per-criterion breakdown.
type Result struct {
	Value     int              `json:"value"`
	Breakdown []CriterionScore `json:"breakdown"`
}

// Scorer evaluates criteria against a benchmark table.
type Scorer struct {
	table *BenchmarkTable
}

// NewScorer creates a scorer over the embedded benchmark table.
func NewScorer() *Scorer {
	return &Scorer{table: DefaultBenchmarks()}
}

// NewScorerWithTable creates a scorer over a custom table.
func NewScorerWithTable(table *BenchmarkTable) *Scorer {
	return &Scorer{table: table}
}

// Score computes the weighted score. The boolean is false when no criterion
// could be evaluated (no matching metric or benchmark); the caller must then
// keep the agent's self-reported score instead.
func (s *Scorer) Score(metrics []core.ExtractedMetric, sector, stage string, criteria []Criterion) (Result, bool) {
	byName := indexMetrics(metrics)

	breakdown := make([]CriterionScore, 0, len(criteria))
	var weighted, totalWeight float64

	for _, c := range criteria {
		entry := CriterionScore{Criterion: c.Name, Metric: c.Metric, Weight: c.Weight}

		m, haveMetric := byName[c.Metric]
		r, haveRange := s.table.Lookup(sector, stage, c.Metric)
		if !haveMetric || !haveRange || c.Weight <= 0 {
			entry.Missing = true
			breakdown = append(breakdown, entry)
			continue
		}

		entry.MetricValue = m.Value
		entry.SubScore = r.Interpolate(m.Value)
		breakdown = append(breakdown, entry)

		weighted += c.Weight * entry.SubScore
		totalWeight += c.Weight
	}

	if totalWeight == 0 {
		return Result{Breakdown: breakdown}, false
	}

	value := int(math.Round(weighted / totalWeight))
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return Result{Value: value, Breakdown: breakdown}, true
}

// indexMetrics picks one metric per name deterministically: verified beats
// declared, then lexicographically smaller source, then smaller value.
func indexMetrics(metrics []core.ExtractedMetric) map[string]core.ExtractedMetric {
	sorted := make([]core.ExtractedMetric, len(metrics))
	copy(sorted, metrics)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Reliability != b.Reliability {
			return a.Reliability == core.ReliabilityVerified
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Value < b.Value
	})

	out := make(map[string]core.ExtractedMetric, len(sorted))
	for _, m := range sorted {
		if _, ok := out[m.Name]; !ok {
			out[m.Name] = m
		}
	}
	return out
}
