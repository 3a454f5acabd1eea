package recruiting

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

// ReviewedCandidates is the local record of candidates that were already
// looked at, kept as a JSON file between runs.
type ReviewedCandidates struct {
	Items []*ReviewedCandidate
}

type ReviewedCandidate struct {
	ID         int
	VacancyID  int
	Filename   string
	ReviewedAt time.Time
}

func (c *Candidates) ToReviewed() *ReviewedCandidates {
	reviewed := &ReviewedCandidates{}
	for _, candidate := range c.Items {
		reviewed.Items = append(reviewed.Items, &ReviewedCandidate{
			ID:         candidate.ID,
			VacancyID:  candidate.VacancyID,
			Filename:   candidate.Filename,
			ReviewedAt: time.Now().UTC(),
		})
	}
	return reviewed
}

// ReviewedFromFile reads the record at path. A missing or empty file is an
// empty record.
func ReviewedFromFile(path string) (*ReviewedCandidates, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ReviewedCandidates{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ReviewedCandidates{}, nil
	}

	var reviewed ReviewedCandidates
	if err := json.NewDecoder(file).Decode(&reviewed); err != nil {
		return nil, err
	}
	return &reviewed, nil
}

// Append adds entries whose id is not recorded yet.
func (r *ReviewedCandidates) Append(other *ReviewedCandidates) {
	seen := make(map[int]bool, len(r.Items))
	for _, item := range r.Items {
		seen[item.ID] = true
	}

	for _, item := range other.Items {
		if !seen[item.ID] {
			r.Items = append(r.Items, item)
			seen[item.ID] = true
		}
	}
}

func (r *ReviewedCandidates) IDs() []int {
	ids := make([]int, 0, len(r.Items))
	for _, item := range r.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (r *ReviewedCandidates) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
