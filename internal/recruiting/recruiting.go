package recruiting

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/api"
)

// Client exposes the backend endpoints as typed calls on top of api.Client.
type Client struct {
	api    *api.Client
	logger *zap.Logger
}

func New(apiClient *api.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		api:    apiClient,
		logger: logger,
	}
}

// API returns the underlying API client.
func (c *Client) API() *api.Client {
	return c.api
}

func (c *Client) get(ctx context.Context, path string, target any) error {
	raw, err := c.api.Get(ctx, path)
	if err != nil {
		return err
	}

	return decode(raw, target)
}

func (c *Client) post(ctx context.Context, path string, body api.Body, target any) error {
	raw, err := c.api.Post(ctx, path, body)
	if err != nil {
		return err
	}

	if target == nil {
		return nil
	}

	return decode(raw, target)
}

// decode maps a generic JSON value onto target using the json tags.
func decode(input, target any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
