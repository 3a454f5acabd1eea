package recruiting

import (
	"context"

	"github.com/spigell/hr-pilot/internal/api"
)

const apiAISettingsPath = "/ai-settings/"

type AISettings struct {
	ID           int     `json:"id"`
	UserID       int     `json:"user_id"`
	AIRole       string  `json:"ai_role"`
	SystemPrompt string  `json:"system_prompt"`
	ModelName    string  `json:"model_name"`
	Temperature  float64 `json:"temperature"`
}

// AISettingsUpdate changes only the fields that are set.
type AISettingsUpdate struct {
	AIRole       *string  `json:"ai_role,omitempty"`
	SystemPrompt *string  `json:"system_prompt,omitempty"`
	ModelName    *string  `json:"model_name,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

func (c *Client) AISettings(ctx context.Context) (*AISettings, error) {
	var settings AISettings
	if err := c.get(ctx, apiAISettingsPath, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

func (c *Client) UpdateAISettings(ctx context.Context, update *AISettingsUpdate) (*AISettings, error) {
	if update == nil {
		update = &AISettingsUpdate{}
	}

	var settings AISettings
	if err := c.post(ctx, apiAISettingsPath, api.JSONBody{Value: update}, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}
