package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/recruiting"
)

type reviewedFileFilter struct {
	path string
}

// NewReviewedFile creates a filter that removes candidates listed in the reviewed file.
func NewReviewedFile() Filter {
	return &reviewedFileFilter{}
}

func (f *reviewedFileFilter) Name() string { return "reviewed_file" }

func (f *reviewedFileFilter) Disable(string) {}

func (f *reviewedFileFilter) IsEnabled() bool { return true }

func (f *reviewedFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ReviewedFile)
	}
	return nil
}

func (f *reviewedFileFilter) Apply(_ context.Context, deps Deps, c *recruiting.Candidates) (*recruiting.Candidates, Step, error) {
	initial := c.Len()
	if f.path == "" {
		return c, Step{Initial: initial, Left: initial}, nil
	}

	reviewed, err := recruiting.ReviewedFromFile(f.path)
	if err != nil {
		return c, Step{}, fmt.Errorf("reading reviewed candidates from file: %w", err)
	}

	ids := reviewed.IDs()
	dropped := keep(c, func(candidate *recruiting.Candidate) bool {
		for _, id := range ids {
			if candidate.ID == id {
				return false
			}
		}
		return true
	})
	if len(dropped) > 0 {
		deps.Logger.Info("excluding candidates based on reviewed file",
			zap.String("path", f.path),
			zap.Ints("excluded_candidates", dropped),
			zap.Int("candidates_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(dropped), Left: c.Len()}, nil
}

func (f *reviewedFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
