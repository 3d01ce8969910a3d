package matching

// Method tags recorded in Detail.Method.
const (
	MethodLexical           = "lexical_local"
	MethodRemote            = "remote_structured"
	MethodLexicalFallback   = "lexical_local_fallback"
	MethodExtractionFailed  = "extraction_failed"
	MethodUnsupportedFormat = "unsupported_format"
	MethodTooLarge          = "too_large"
)

// Result is the score of one résumé against a job description. Score is
// always on the 0-100 scale.
type Result struct {
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
	Detail   Detail  `json:"detail"`
}

type Detail struct {
	Method          string   `json:"method"`
	TopOverlapTerms []string `json:"top_overlap_terms,omitempty"`
	MissingSkills   []string `json:"missing_skills,omitempty"`
	Remarks         string   `json:"remarks,omitempty"`
}
