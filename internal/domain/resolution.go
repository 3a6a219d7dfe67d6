package domain

// Candidate is one search hit scraped from the streaming catalog.
type Candidate struct {
	ExternalID   string `json:"externalId"`
	DisplayTitle string `json:"displayTitle"`
}

// ScoredCandidate is a Candidate with its ranking signals.
// TotalScore is additive over Similarity and the bonuses/penalties and may be
// negative.
type ScoredCandidate struct {
	Candidate
	NormalizedTitle string  `json:"normalizedTitle"`
	Similarity      float64 `json:"similarity"`
	TypeMatch       bool    `json:"typeMatch"`
	YearMatch       bool    `json:"yearMatch"`
	SeasonMatch     bool    `json:"seasonMatch"`
	TotalScore      float64 `json:"totalScore"`
}

// Confidence tiers. A higher tier always comes from an earlier strategy.
const (
	ConfidenceDirect     = 0.9
	ConfidenceAlternate  = 0.8
	ConfidenceSimplified = 0.7
	ConfidenceNone       = 0.0

	// PlayableConfidence is the floor above which episodes may be fetched.
	PlayableConfidence = 0.5
)

// Resolution is the outcome of mapping a title to a catalog id. An empty
// ExternalID with ConfidenceNone means no confident match. MatchedTitle is
// the query label that succeeded; CatalogTitle is the catalog's own title
// for the picked entry.
type Resolution struct {
	ExternalID   string  `json:"externalId,omitempty"`
	Confidence   float64 `json:"confidence"`
	MatchedTitle string  `json:"matchedTitle,omitempty"`
	CatalogTitle string  `json:"catalogTitle,omitempty"`
	Strategy     string  `json:"strategy,omitempty"`
}

// Resolved reports whether a catalog id was found.
func (r Resolution) Resolved() bool { return r.ExternalID != "" }

// Playable reports whether the resolution is confident enough to list
// episodes for.
func (r Resolution) Playable() bool {
	return r.ExternalID != "" && r.Confidence > PlayableConfidence
}
