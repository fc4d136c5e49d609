package core

import "time"

// Deal holds the structured metadata of an investment opportunity.
type Deal struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Sector      string    `json:"sector"`
	Stage       string    `json:"stage"`
	Geography   string    `json:"geography,omitempty"`
	RaiseUSD    float64   `json:"raise_usd,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Document is one extracted deal document (pitch deck, financial model,
// cap table...). Extraction/OCR happens upstream; agents consume the text.
type Document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// MetricReliability tags how much a metric value can be trusted.
type MetricReliability string

const (
	ReliabilityDeclared MetricReliability = "declared"
	ReliabilityVerified MetricReliability = "verified"
)

// ExtractedMetric is one numeric fact about a deal: either pre-extracted by
// the document pipeline or reported by an agent inside its verdict. It is
// ephemeral scorer input; only the resulting score and breakdown persist.
type ExtractedMetric struct {
	Name        string            `json:"name"`
	Value       float64           `json:"value"`
	Unit        string            `json:"unit,omitempty"`
	Source      string            `json:"source,omitempty"`
	Reliability MetricReliability `json:"reliability,omitempty"`
	Category    string            `json:"category,omitempty"`
}

// DealContext is the read-only input an agent sees: deal metadata, document
// corpus, previously extracted facts and externally supplied benchmark or
// competitive data.
type DealContext struct {
	Deal      Deal              `json:"deal"`
	Documents []Document        `json:"documents,omitempty"`
	Facts     []ExtractedMetric `json:"facts,omitempty"`
	External  map[string]any    `json:"external,omitempty"`
}
