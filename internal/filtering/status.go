package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/recruiting"
)

type statusFilter struct {
	allowed map[string]bool
	names   []string
}

// NewStatus creates a filter that keeps candidates in the configured statuses.
func NewStatus() Filter {
	return &statusFilter{}
}

func (f *statusFilter) Name() string { return "status" }

func (f *statusFilter) Disable(string) {}

func (f *statusFilter) IsEnabled() bool { return true }

func (f *statusFilter) Validate(cfg *Config) error {
	f.allowed = make(map[string]bool)
	f.names = nil
	if cfg == nil {
		return nil
	}

	for _, status := range cfg.Statuses {
		status = strings.ToUpper(strings.TrimSpace(status))
		if status == "" || f.allowed[status] {
			continue
		}
		f.allowed[status] = true
		f.names = append(f.names, status)
	}
	return nil
}

func (f *statusFilter) Apply(_ context.Context, deps Deps, c *recruiting.Candidates) (*recruiting.Candidates, Step, error) {
	initial := c.Len()
	if len(f.allowed) == 0 {
		return c, Step{Initial: initial, Left: initial}, nil
	}

	dropped := keep(c, func(candidate *recruiting.Candidate) bool {
		return f.allowed[strings.ToUpper(candidate.Status)]
	})
	if len(dropped) > 0 {
		deps.Logger.Info("excluding candidates by status",
			zap.Strings("allowed_statuses", f.names),
			zap.Ints("excluded_candidates", dropped),
			zap.Int("candidates_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(dropped), Left: c.Len()}, nil
}

func (f *statusFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["statuses"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
