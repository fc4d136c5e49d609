package schemaguard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verdictShape() Shape {
	return Shape{
		"score":      {Kind: KindNumber, Default: 0, Min: 0, Max: 100, Clamp: true},
		"confidence": {Kind: KindEnum, Enum: []string{"low", "medium", "high"}, Default: "low"},
		"summary":    {Kind: KindString, Default: ""},
		"verified":   {Kind: KindBool, Default: false},
		"red_flags": {Kind: KindArray, Elem: &Field{Kind: KindObject, Fields: Shape{
			"severity":    {Kind: KindEnum, Enum: []string{"critical", "high", "medium", "low"}, Default: "medium"},
			"description": {Kind: KindString, Default: ""},
		}}},
		"questions": {Kind: KindArray, Elem: &Field{Kind: KindString, Default: ""}},
	}
}

func TestCoerceWellFormed(t *testing.T) {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(`{
		"score": 72,
		"confidence": "High",
		"summary": "  solid team  ",
		"verified": true,
		"red_flags": [{"severity": "critical", "description": "runway < 6 months"}],
		"questions": ["churn by cohort?"]
	}`), &raw))

	res := Coerce(raw, verdictShape())

	assert.Empty(t, res.FallbackFields)
	assert.Equal(t, float64(72), res.Value["score"])
	assert.Equal(t, "high", res.Value["confidence"], "enum match is case-insensitive")
	assert.Equal(t, "solid team", res.Value["summary"])
	assert.Equal(t, true, res.Value["verified"])

	flags := res.Value["red_flags"].([]any)
	require.Len(t, flags, 1)
	assert.Equal(t, "critical", flags[0].(map[string]any)["severity"])
}

func TestCoerceEmptyObject(t *testing.T) {
	res := Coerce(map[string]any{}, verdictShape())

	assert.Equal(t, float64(0), res.Value["score"])
	assert.Equal(t, "low", res.Value["confidence"])
	assert.Equal(t, []any{}, res.Value["red_flags"])
	assert.Equal(t, []any{}, res.Value["questions"])

	// Every scalar field fell back.
	assert.Contains(t, res.FallbackFields, "score")
	assert.Contains(t, res.FallbackFields, "confidence")
	assert.Contains(t, res.FallbackFields, "summary")
	assert.Contains(t, res.FallbackFields, "verified")
}

func TestCoerceNilInput(t *testing.T) {
	res := Coerce(nil, verdictShape())
	require.NotNil(t, res.Value)
	assert.Equal(t, float64(0), res.Value["score"])
}

func TestCoerceWrongTypes(t *testing.T) {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(`{
		"score": "eighty",
		"confidence": 3,
		"summary": ["not", "a", "string"],
		"verified": "yes",
		"red_flags": "none",
		"questions": {"q": 1}
	}`), &raw))

	res := Coerce(raw, verdictShape())

	assert.Equal(t, float64(0), res.Value["score"])
	assert.Equal(t, "low", res.Value["confidence"])
	assert.Equal(t, "", res.Value["summary"])
	assert.Equal(t, false, res.Value["verified"])
	assert.Equal(t, []any{}, res.Value["red_flags"])
	assert.Equal(t, []any{}, res.Value["questions"])
	assert.Len(t, res.FallbackFields, 6)
}

func TestCoerceClampsWithoutFlagging(t *testing.T) {
	res := Coerce(map[string]any{"score": 250.0}, verdictShape())
	assert.Equal(t, float64(100), res.Value["score"])
	assert.NotContains(t, res.FallbackFields, "score")

	res = Coerce(map[string]any{"score": -5.0}, verdictShape())
	assert.Equal(t, float64(0), res.Value["score"])
}

func TestCoerceNumericString(t *testing.T) {
	res := Coerce(map[string]any{"score": "85"}, verdictShape())
	assert.Equal(t, float64(85), res.Value["score"])
	assert.NotContains(t, res.FallbackFields, "score")

	// Percent suffix is common in completion output.
	res = Coerce(map[string]any{"score": "85%"}, verdictShape())
	assert.Equal(t, float64(85), res.Value["score"])
}

func TestCoerceNestedElementPaths(t *testing.T) {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(`{
		"red_flags": [
			{"severity": "critical", "description": "ok"},
			{"severity": "catastrophic", "description": 42}
		]
	}`), &raw))

	res := Coerce(raw, verdictShape())

	flags := res.Value["red_flags"].([]any)
	require.Len(t, flags, 2)
	assert.Equal(t, "medium", flags[1].(map[string]any)["severity"])
	assert.Contains(t, res.FallbackFields, "red_flags[1].severity")
	assert.Contains(t, res.FallbackFields, "red_flags[1].description")
	assert.NotContains(t, res.FallbackFields, "red_flags[0].severity")
}

func TestCoerceNullFields(t *testing.T) {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(`{"score": null, "summary": null, "red_flags": null}`), &raw))

	res := Coerce(raw, verdictShape())
	assert.Equal(t, float64(0), res.Value["score"])
	assert.Equal(t, "", res.Value["summary"])
	assert.Equal(t, []any{}, res.Value["red_flags"])
}

func TestCoerceDeterministicFallbackOrder(t *testing.T) {
	a := Coerce(map[string]any{}, verdictShape())
	b := Coerce(map[string]any{}, verdictShape())
	assert.Equal(t, a.FallbackFields, b.FallbackFields)
}
