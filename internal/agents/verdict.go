package agents

import (
	"encoding/json"
	"strings"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
	"github.com/sacha-rebbouh/angeldesk/internal/schemaguard"
	"github.com/sacha-rebbouh/angeldesk/internal/scoring"
)

// VerdictShape declares the structured verdict every agent produces.
// Completion output is coerced onto this shape, so downstream consumers
// never see a missing or wrong-typed field.
func VerdictShape() schemaguard.Shape {
	return schemaguard.Shape{
		"score": {Kind: schemaguard.KindNumber, Default: 0, Min: 0, Max: 100, Clamp: true},
		"confidence": {
			Kind: schemaguard.KindEnum,
			Enum: []string{"low", "medium", "high"},
			Default: "low",
		},
		"recommendation": {
			Kind: schemaguard.KindEnum,
			Enum: []string{"strong_no", "no", "neutral", "yes", "strong_yes"},
			Default: "neutral",
		},
		"summary":   {Kind: schemaguard.KindString, Default: ""},
		"strengths": {Kind: schemaguard.KindArray, Elem: &schemaguard.Field{Kind: schemaguard.KindString}},
		"red_flags": {
			Kind: schemaguard.KindArray,
			Elem: &schemaguard.Field{
				Kind: schemaguard.KindObject,
				Fields: schemaguard.Shape{
					"description": {Kind: schemaguard.KindString, Default: ""},
					"severity": {
						Kind: schemaguard.KindEnum,
						Enum: []string{"low", "medium", "high", "critical"},
						Default: "medium",
					},
				},
			},
		},
		"questions": {Kind: schemaguard.KindArray, Elem: &schemaguard.Field{Kind: schemaguard.KindString}},
		"metrics": {
			Kind: schemaguard.KindArray,
			Elem: &schemaguard.Field{
				Kind: schemaguard.KindObject,
				Fields: schemaguard.Shape{
					"name":     {Kind: schemaguard.KindString, Default: ""},
					"value":    {Kind: schemaguard.KindNumber, Default: 0},
					"unit":     {Kind: schemaguard.KindString, Default: ""},
					"source":   {Kind: schemaguard.KindString, Default: ""},
					"verified": {Kind: schemaguard.KindBool, Default: false},
					"category": {Kind: schemaguard.KindString, Default: ""},
				},
			},
		},
	}
}

// DecodeVerdict extracts and decodes the JSON object from a raw
// completion. A completion with no decodable object at all is a
// malformed-completion error, which the runner treats as retryable;
// a decodable object with wrong-typed fields is not an error, the
// Schema Guard absorbs it.
func DecodeVerdict(rawText string) (any, error) {
	jsonText := extractJSON(rawText)
	if jsonText == "" {
		return nil, core.ErrExecution(core.CodeCompletionMalformed, "completion contains no JSON object")
	}
	var decoded any
	if err := json.Unmarshal([]byte(jsonText), &decoded); err != nil {
		return nil, core.ErrExecution(core.CodeCompletionMalformed, "completion JSON does not parse").WithCause(err)
	}
	return decoded, nil
}

// NormalizeVerdict turns a decoded completion value into a complete
// verdict payload: coerced onto VerdictShape, and, when a criteria
// table exists for the agent, the agent's self-reported score is
// replaced by the benchmark score computed from the verdict's
// extracted metrics.
func NormalizeVerdict(agentName string, decoded any, deal core.DealContext, scorer *scoring.Scorer) map[string]any {
	result := schemaguard.Coerce(decoded, VerdictShape())
	data := result.Value
	data["fallback_fields"] = result.FallbackFields
	data["score_source"] = "agent"

	metrics := extractMetrics(data)
	if criteria, ok := scoring.CriteriaFor(agentName); ok && scorer != nil {
		if scored, ok := scorer.Score(metrics, deal.Deal.Sector, deal.Deal.Stage, criteria); ok {
			data["score"] = float64(scored.Value)
			data["score_source"] = "benchmark"
			data["score_breakdown"] = scored.Breakdown
		}
	}
	return data
}

// extractMetrics converts the coerced verdict's metrics array into
// scorer input. Entries without a name are dropped.
func extractMetrics(data map[string]any) []core.ExtractedMetric {
	items, _ := data["metrics"].([]any)
	out := make([]core.ExtractedMetric, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := obj["name"].(string)
		if name == "" {
			continue
		}
		value, _ := obj["value"].(float64)
		unit, _ := obj["unit"].(string)
		source, _ := obj["source"].(string)
		category, _ := obj["category"].(string)
		verified, _ := obj["verified"].(bool)

		reliability := core.ReliabilityDeclared
		if verified {
			reliability = core.ReliabilityVerified
		}
		out = append(out, core.ExtractedMetric{
			Name:        strings.ToLower(strings.TrimSpace(name)),
			Value:       value,
			Unit:        unit,
			Source:      source,
			Reliability: reliability,
			Category:    category,
		})
	}
	return out
}

// extractJSON pulls the JSON object out of a completion that may wrap
// it in markdown fences or prose.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if fenced := betweenFences(text); fenced != "" {
		text = fenced
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func betweenFences(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return ""
	}
	rest := text[start+3:]
	// Skip an optional language tag on the fence line.
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return rest
	}
	return rest[:end]
}
