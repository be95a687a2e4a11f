package models

// ClaimPoint is one evaluated point extracted from the claim.
type ClaimPoint struct {
	Point       string `json:"point"`
	Assessment  string `json:"assessment"` // "likely_true", "uncertain", "likely_false"
	Explanation string `json:"explanation"`
}

// SourceAnalysis describes where a claim likely originated and how it spreads.
type SourceAnalysis struct {
	LikelyOrigin  string   `json:"likely_origin"`
	SpreadPattern string   `json:"spread_pattern"`
	RedFlags      []string `json:"red_flags"`
}

// FactCheckResult is the structured verdict returned by the analysis model.
// Field names are part of the public API contract and must not change.
type FactCheckResult struct {
	CredibilityScore float64        `json:"credibility_score"`
	CredibilityLevel string         `json:"credibility_level"` // "high", "medium", "low"
	Summary          string         `json:"summary"`
	KeyPoints        []ClaimPoint   `json:"key_points"`
	Contradictions   []string       `json:"contradictions"`
	SourceAnalysis   SourceAnalysis `json:"source_analysis"`
	Disclaimer       string         `json:"disclaimer"`
}
