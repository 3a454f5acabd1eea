package recruiting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hr-pilot/internal/api"
)

const (
	apiAuthLoginPath    = "/auth/login"
	apiAuthRegisterPath = "/auth/register"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type User struct {
	ID          int    `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	IsActive    bool   `json:"is_active"`
	HHConnected bool   `json:"hh_connected"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	// ConfirmPassword is checked locally and never sent.
	ConfirmPassword string `json:"-"`
}

// Login submits credentials as a form, the way OAuth2 password flow expects
// them, and stores the returned access token in the session.
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	form := api.FormBody{
		"username": {strings.TrimSpace(email)},
		"password": {strings.TrimSpace(password)},
	}

	var token Token
	if err := c.post(ctx, apiAuthLoginPath, form, &token); err != nil {
		return nil, err
	}

	if token.AccessToken == "" {
		return nil, errors.New("login response has no access_token")
	}

	if err := c.api.SetToken(token.AccessToken); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	c.logger.Debug("logged in", zap.String("token_type", token.TokenType))

	return &token, nil
}

func (c *Client) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	if req == nil || strings.TrimSpace(req.Email) == "" {
		return nil, errors.New("email is required")
	}

	if req.Password == "" {
		return nil, errors.New("password is required")
	}

	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		return nil, ErrPasswordMismatch
	}

	var user User
	if err := c.post(ctx, apiAuthRegisterPath, api.JSONBody{Value: req}, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (c *Client) Logout() error {
	return c.api.Logout()
}
