package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/recruiting"
)

const maxScore = 100

type minScoreFilter struct {
	disabled bool
	reason   string
	min      float64
}

// NewMinScore creates a filter that removes candidates scored below the configured minimum.
func NewMinScore() Filter {
	return &minScoreFilter{}
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *minScoreFilter) IsEnabled() bool { return !f.disabled }

func (f *minScoreFilter) Validate(cfg *Config) error {
	f.min = 0
	if cfg != nil {
		f.min = cfg.MinScore
	}
	if f.min < 0 || f.min > maxScore {
		return fmt.Errorf("minimum score must be between 0 and %d, got %.2f", maxScore, f.min)
	}
	return nil
}

func (f *minScoreFilter) Apply(_ context.Context, deps Deps, c *recruiting.Candidates) (*recruiting.Candidates, Step, error) {
	initial := c.Len()
	if f.min == 0 {
		return c, Step{Initial: initial, Left: initial}, nil
	}

	dropped := keep(c, func(candidate *recruiting.Candidate) bool {
		return candidate.Score >= f.min
	})
	if len(dropped) > 0 {
		deps.Logger.Info("excluding candidates below minimum score",
			zap.Float64("min_score", f.min),
			zap.Ints("excluded_candidates", dropped),
			zap.Int("candidates_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(dropped), Left: c.Len()}, nil
}

func (f *minScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"min_score": fmt.Sprintf("%.2f", f.min)},
	}
}
