package resolver

import (
	"github.com/example/animelink/internal/domain"
	"github.com/example/animelink/internal/fetch"
)

// Outcome is the typed result a caller acts on.
type Outcome int

const (
	// OutcomeResolved: a catalog id was found.
	OutcomeResolved Outcome = iota
	// OutcomeNoConfidentMatch: a normal negative result, not an error.
	OutcomeNoConfidentMatch
	// OutcomeTransientFailure: a network failure; retrying later may help.
	OutcomeTransientFailure
	// OutcomeFailed: cancellation or another non-retryable error.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeNoConfidentMatch:
		return "no_confident_match"
	case OutcomeTransientFailure:
		return "transient_failure"
	default:
		return "failed"
	}
}

// Classify maps a resolution call's return values onto an Outcome.
func Classify(res domain.Resolution, err error) Outcome {
	switch {
	case err != nil && fetch.Transient(err):
		return OutcomeTransientFailure
	case err != nil:
		return OutcomeFailed
	case res.Resolved():
		return OutcomeResolved
	default:
		return OutcomeNoConfidentMatch
	}
}
