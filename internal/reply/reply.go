// Package reply normalizes free-form generative replies into tagged outcomes.
package reply

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedReply is returned when a reply cannot be turned into the expected structure.
var ErrMalformedReply = errors.New("malformed remote reply")

type Kind int

const (
	Malformed Kind = iota
	Structured
	PlainText
)

func (k Kind) String() string {
	switch k {
	case Structured:
		return "structured"
	case PlainText:
		return "plain_text"
	default:
		return "malformed"
	}
}

// Reply is the outcome of Parse. Fields is set for Structured, Text for PlainText.
type Reply struct {
	Kind   Kind
	Fields map[string]any
	Text   string
}

// Parse classifies raw. A JSON object (optionally fenced) is Structured, any
// other non-empty text that does not look like broken JSON is PlainText.
func Parse(raw string) Reply {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return Reply{Kind: Malformed}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err == nil && fields != nil {
		return Reply{Kind: Structured, Fields: fields}
	}

	if looksLikeJSON(raw, cleaned) {
		return Reply{Kind: Malformed}
	}

	return Reply{Kind: PlainText, Text: cleaned}
}

// MatchDetail is the structured scoring reply.
type MatchDetail struct {
	Score         int      `json:"score"`
	MissingSkills []string `json:"missing_skills"`
	Remarks       string   `json:"remarks"`
}

// ParseMatchDetail decodes a scoring reply. The score must be a number (or a
// numeric string) within [0,100]; anything else is ErrMalformedReply.
func ParseMatchDetail(raw string) (MatchDetail, error) {
	r := Parse(raw)
	if r.Kind != Structured {
		return MatchDetail{}, fmt.Errorf("%w: expected a json object, got %s", ErrMalformedReply, r.Kind)
	}

	score, ok := coerceFloat(r.Fields["score"])
	if !ok {
		return MatchDetail{}, fmt.Errorf("%w: score is missing or not numeric", ErrMalformedReply)
	}
	if score < 0 || score > 100 {
		return MatchDetail{}, fmt.Errorf("%w: score %v is outside [0,100]", ErrMalformedReply, score)
	}

	return MatchDetail{
		Score:         int(math.Round(score)),
		MissingSkills: coerceStrings(r.Fields["missing_skills"]),
		Remarks:       coerceString(r.Fields["remarks"]),
	}, nil
}

// StripFences removes a surrounding Markdown code fence, optionally tagged json.
func StripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```JSON")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func looksLikeJSON(raw, cleaned string) bool {
	if strings.HasPrefix(strings.TrimSpace(raw), "```") {
		return true
	}
	return strings.HasPrefix(cleaned, "{") || strings.HasPrefix(cleaned, "[")
}

// String returns a string field from a Structured reply.
func (r Reply) String(key string) string {
	if r.Kind != Structured {
		return ""
	}
	return coerceString(r.Fields[key])
}

func coerceFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val) && !math.IsInf(val, 0)
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStrings(v any) []string {
	var out []string

	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, item := range strings.Split(val, ",") {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	}

	if out == nil {
		return []string{}
	}
	return out
}
