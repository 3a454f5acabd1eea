package recruiting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spigell/hr-pilot/internal/api"
)

const (
	apiVacanciesPath = "/vacancies/"
)

type Vacancies struct {
	Items []*Vacancy
}

type Vacancy struct {
	ID              int    `json:"id"`
	OwnerID         int    `json:"owner_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	RequiredSkills  string `json:"required_skills"`
	ExperienceLevel string `json:"experience_level"`
	SalaryRange     string `json:"salary_range"`
	HHID            string `json:"hh_id"`
	HHStatus        string `json:"hh_status"`
}

// NewVacancy is the payload for creating a vacancy.
type NewVacancy struct {
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	RequiredSkills  string             `json:"required_skills,omitempty"`
	ExperienceLevel string             `json:"experience_level,omitempty"`
	SalaryRange     string             `json:"salary_range,omitempty"`
	SkillWeights    map[string]float64 `json:"-"`
}

// MarshalJSON sends skill weights the way the backend stores them: as a JSON
// encoded string.
func (v NewVacancy) MarshalJSON() ([]byte, error) {
	type plain NewVacancy

	payload := struct {
		plain
		SkillWeights string `json:"skill_weights,omitempty"`
	}{plain: plain(v)}

	if len(v.SkillWeights) > 0 {
		weights, err := json.Marshal(v.SkillWeights)
		if err != nil {
			return nil, err
		}
		payload.SkillWeights = string(weights)
	}

	return json.Marshal(payload)
}

func (c *Client) Vacancies(ctx context.Context) (*Vacancies, error) {
	var items []*Vacancy
	if err := c.get(ctx, apiVacanciesPath, &items); err != nil {
		return nil, err
	}

	return &Vacancies{Items: items}, nil
}

func (c *Client) Vacancy(ctx context.Context, id int) (*Vacancy, error) {
	var vacancy Vacancy
	if err := c.get(ctx, fmt.Sprintf("%s%d", apiVacanciesPath, id), &vacancy); err != nil {
		return nil, err
	}

	return &vacancy, nil
}

// CreateVacancy posts a vacancy and, when publish is set, immediately
// publishes it to the demo board.
func (c *Client) CreateVacancy(ctx context.Context, v *NewVacancy, publish bool) (*Vacancy, error) {
	if v == nil || strings.TrimSpace(v.Title) == "" {
		return nil, fmt.Errorf("vacancy title is required")
	}

	var created Vacancy
	if err := c.post(ctx, apiVacanciesPath, api.JSONBody{Value: v}, &created); err != nil {
		return nil, err
	}

	if !publish {
		return &created, nil
	}

	return c.PublishDemo(ctx, created.ID)
}

func (c *Client) PublishDemo(ctx context.Context, id int) (*Vacancy, error) {
	return c.publish(ctx, id, "publish-demo")
}

func (c *Client) PublishHH(ctx context.Context, id int) (*Vacancy, error) {
	return c.publish(ctx, id, "publish-hh")
}

func (c *Client) publish(ctx context.Context, id int, target string) (*Vacancy, error) {
	var vacancy Vacancy
	if err := c.post(ctx, fmt.Sprintf("%s%d/%s", apiVacanciesPath, id, target), nil, &vacancy); err != nil {
		return nil, err
	}

	return &vacancy, nil
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

func (v *Vacancies) FindByID(id int) *Vacancy {
	for _, vacancy := range v.Items {
		if vacancy.ID == id {
			return vacancy
		}
	}
	return nil
}

// Labels returns one "id title (experience)" line per vacancy for pickers.
func (v *Vacancies) Labels() []string {
	labels := make([]string, 0, len(v.Items))
	for _, vacancy := range v.Items {
		label := fmt.Sprintf("%d %s", vacancy.ID, vacancy.Title)
		if vacancy.ExperienceLevel != "" {
			label = fmt.Sprintf("%s (%s)", label, vacancy.ExperienceLevel)
		}
		labels = append(labels, label)
	}
	return labels
}
