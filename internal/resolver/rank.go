package resolver

import (
	"sort"
	"strings"

	"github.com/example/animelink/internal/domain"
	"github.com/example/animelink/internal/matching"
)

// AcceptThreshold is the minimum TotalScore for a confident pick.
const AcceptThreshold = 0.4

// Scoring weights. The total is additive and may go negative.
const (
	weightSimilarity = 0.6
	weightType       = 0.2
	weightYear       = 0.1
	weightSeason     = 0.1
	mismatchPenalty  = 0.3
)

// Score computes the ranking signals for one candidate against the raw
// query title.
func Score(title string, c domain.Candidate, md *domain.ContentMetadata) domain.ScoredCandidate {
	var (
		expectedType   domain.ContentType
		expectedYear   int
		expectedSeason string
	)
	if md != nil {
		expectedType, expectedYear, expectedSeason = md.Type, md.Year, md.Season
	}

	sc := domain.ScoredCandidate{
		Candidate:       c,
		NormalizedTitle: matching.Normalize(c.DisplayTitle),
	}
	sc.Similarity = matching.Similarity(sc.NormalizedTitle, matching.Normalize(title))
	sc.TypeMatch = matching.TypeMatch(c.DisplayTitle, expectedType)
	sc.YearMatch = matching.YearMatch(c.DisplayTitle, expectedYear)
	sc.SeasonMatch = matching.SeasonMatch(c.DisplayTitle, expectedSeason, title)

	total := weightSimilarity * sc.Similarity
	if sc.TypeMatch {
		total += weightType
	}
	if sc.YearMatch {
		total += weightYear
	}
	if sc.SeasonMatch {
		total += weightSeason
	}
	if expectedType == domain.TypeMovie && matching.IsSeasonTitle(c.DisplayTitle) {
		total -= mismatchPenalty
	}
	if expectedType == domain.TypeTV && matching.IsMovieTitle(c.DisplayTitle) {
		total -= mismatchPenalty
	}
	sc.TotalScore = total
	return sc
}

// Rank scores every usable candidate and sorts them by TotalScore,
// highest first. Ties keep discovery order.
func Rank(title string, candidates []domain.Candidate, md *domain.ContentMetadata) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.ExternalID) == "" || strings.TrimSpace(c.DisplayTitle) == "" {
			continue
		}
		out = append(out, Score(title, c, md))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	return out
}

// Accept reports whether a score clears AcceptThreshold.
func Accept(score float64) bool { return score >= AcceptThreshold }

// Pick returns the top ranked candidate when it is confident enough.
func Pick(ranked []domain.ScoredCandidate) (domain.ScoredCandidate, bool) {
	if len(ranked) == 0 || !Accept(ranked[0].TotalScore) {
		return domain.ScoredCandidate{}, false
	}
	return ranked[0], true
}
