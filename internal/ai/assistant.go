package ai

import (
	"context"

	"github.com/spigell/hr-pilot/internal/recruiting"
)

// OutreachRequest is everything a drafter may use to write the first message
// to a candidate.
type OutreachRequest struct {
	Candidate *recruiting.Candidate
	Vacancy   *recruiting.Vacancy
	// Tone is a short style hint, for example "friendly" or "formal".
	Tone string
	// Instructions are free-form advice from the recruiter.
	Instructions string
}

type Drafter interface {
	Draft(ctx context.Context, req *OutreachRequest) (string, error)
}
