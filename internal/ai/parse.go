package ai

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var resultSchema string

var schemaLoader = gojsonschema.NewStringLoader(resultSchema)

// ParseResult decodes the model output into a ScoreResult. Text around the
// JSON object is tolerated; anything else that does not fit the schema is an error.
func ParseResult(raw string) (ScoreResult, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return ScoreResult{}, fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}

	validation, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return ScoreResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !validation.Valid() {
		issues := make([]string, 0, len(validation.Errors()))
		for _, desc := range validation.Errors() {
			issues = append(issues, desc.String())
		}
		return ScoreResult{}, fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(issues, "; "))
	}

	var payload struct {
		OverallScore any      `json:"overall_score"`
		Strengths    []string `json:"key_strengths"`
		Weaknesses   []string `json:"key_weaknesses"`
		Summary      *string  `json:"summary"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return ScoreResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	result := ScoreResult{
		OverallScore: clampScore(coerceFloat(payload.OverallScore)),
		Strengths:    nonNil(payload.Strengths),
		Weaknesses:   nonNil(payload.Weaknesses),
		Summary:      noSummary,
	}
	if payload.Summary != nil && strings.TrimSpace(*payload.Summary) != "" {
		result.Summary = strings.TrimSpace(*payload.Summary)
	}

	return result, nil
}

// extractJSON strips code fences and any prose around the outermost object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func clampScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	score = math.Round(score)
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return int(score)
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
