package recruiting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/api"
)

const (
	apiCandidatesPath = "/candidates/"
	uploadFileField   = "file"

	CandidateStatusNew = "NEW"
)

type Candidates struct {
	Items []*Candidate
}

type Candidate struct {
	ID             int      `json:"id"`
	VacancyID      int      `json:"vacancy_id"`
	Filename       string   `json:"filename"`
	Content        string   `json:"content"`
	Summary        string   `json:"summary"`
	Recommendation string   `json:"recommendation"`
	Score          float64  `json:"score"`
	Status         string   `json:"status"`
	SkillsMatch    []string `json:"skills_match"`
	MissingSkills  []string `json:"missing_skills"`
}

// OutreachDraft is a message generated for a candidate.
type OutreachDraft struct {
	Message string `json:"message"`
}

// OutreachResult is the backend's answer to a send. Mock is set when the
// backend only simulated delivery.
type OutreachResult struct {
	Error string `json:"error"`
	Mock  bool   `json:"mock"`
}

// Candidates lists candidates, optionally limited to one vacancy (vacancyID > 0).
func (c *Client) Candidates(ctx context.Context, vacancyID int) (*Candidates, error) {
	path := apiCandidatesPath
	if vacancyID > 0 {
		path += "?" + url.Values{"vacancy_id": {strconv.Itoa(vacancyID)}}.Encode()
	}

	var items []*Candidate
	if err := c.get(ctx, path, &items); err != nil {
		return nil, err
	}

	return &Candidates{Items: items}, nil
}

func (c *Client) Candidate(ctx context.Context, id int) (*Candidate, error) {
	var candidate Candidate
	if err := c.get(ctx, fmt.Sprintf("%s%d", apiCandidatesPath, id), &candidate); err != nil {
		return nil, err
	}

	return &candidate, nil
}

// UploadResume creates a candidate for the vacancy from a resume file.
func (c *Client) UploadResume(ctx context.Context, vacancyID int, filename string, content io.Reader) (*Candidate, error) {
	if vacancyID <= 0 {
		return nil, errors.New("vacancy id is required")
	}

	if strings.TrimSpace(filename) == "" || content == nil {
		return nil, errors.New("resume file is required")
	}

	payload := &api.MultipartBody{}
	payload.AddFile(uploadFileField, filename, content)

	path := apiCandidatesPath + "upload?" + url.Values{"vacancy_id": {strconv.Itoa(vacancyID)}}.Encode()

	raw, err := c.api.Upload(ctx, path, payload)
	if err != nil {
		return nil, err
	}

	var candidate Candidate
	if err := decode(raw, &candidate); err != nil {
		return nil, err
	}

	c.logger.Debug("resume uploaded",
		zap.Int("candidate_id", candidate.ID),
		zap.Int("vacancy_id", vacancyID),
		zap.String("filename", filename),
	)

	return &candidate, nil
}

// Analyze triggers AI analysis and returns the updated candidate.
func (c *Client) Analyze(ctx context.Context, id int) (*Candidate, error) {
	var candidate Candidate
	if err := c.post(ctx, fmt.Sprintf("%s%d/analyze", apiCandidatesPath, id), nil, &candidate); err != nil {
		return nil, err
	}

	return &candidate, nil
}

func (c *Client) GenerateOutreach(ctx context.Context, id int) (*OutreachDraft, error) {
	var draft OutreachDraft
	if err := c.post(ctx, fmt.Sprintf("%s%d/generate_outreach", apiCandidatesPath, id), nil, &draft); err != nil {
		return nil, err
	}

	return &draft, nil
}

// SendOutreach delivers message to the candidate. A delivery error reported
// inside a successful response is returned as an error.
func (c *Client) SendOutreach(ctx context.Context, id int, message string) (*OutreachResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.New("outreach message must not be empty")
	}

	body := api.JSONBody{Value: map[string]string{"message": message}}

	var result OutreachResult
	if err := c.post(ctx, fmt.Sprintf("%s%d/send_outreach", apiCandidatesPath, id), body, &result); err != nil {
		return nil, err
	}

	if result.Error != "" {
		return &result, fmt.Errorf("sending outreach: %s", result.Error)
	}

	return &result, nil
}

func (c *Candidates) Len() int {
	return len(c.Items)
}

func (c *Candidates) FindByID(id int) *Candidate {
	for _, candidate := range c.Items {
		if candidate.ID == id {
			return candidate
		}
	}
	return nil
}

// Exclude removes candidates whose id is in ids and returns the removed ids.
// Order is not preserved.
func (c *Candidates) Exclude(ids []int) []int {
	var excluded []int
	for _, id := range ids {
		for idx, candidate := range c.Items {
			if candidate.ID == id {
				c.RemoveByIndex(idx)
				excluded = append(excluded, id)
				break
			}
		}
	}
	return excluded
}

// RemoveByIndex remove candidate from list by index. Do not preserve order.
func (c *Candidates) RemoveByIndex(idx int) {
	c.Items[idx] = c.Items[len(c.Items)-1]
	c.Items = c.Items[:len(c.Items)-1]
}

// IDs returns candidate ids in list order.
func (c *Candidates) IDs() []int {
	ids := make([]int, 0, len(c.Items))
	for _, candidate := range c.Items {
		ids = append(ids, candidate.ID)
	}
	return ids
}
