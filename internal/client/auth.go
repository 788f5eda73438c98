package client

import (
	"context"
	"fmt"

	"github.com/Rrens/flexy-chat/internal/domain"
)

// Register creates an account and stores the issued token
func (c *Client) Register(ctx context.Context, input domain.UserCreate) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := c.post(ctx, "/auth/register", input, &resp); err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}
	if err := c.creds.SetToken(ctx, resp.Token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	return &resp, nil
}

// Login authenticates and stores the issued token
func (c *Client) Login(ctx context.Context, input domain.UserLogin) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := c.post(ctx, "/auth/login", input, &resp); err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	if err := c.creds.SetToken(ctx, resp.Token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	return &resp, nil
}

// Refresh exchanges the current token for a new one
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/auth/refresh", nil, &resp); err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	if err := c.creds.SetToken(ctx, resp.Token); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return resp.Token, nil
}

// Profile returns the authenticated user
func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.get(ctx, "/auth/profile", &user); err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &user, nil
}

// Logout forgets the stored token
func (c *Client) Logout(ctx context.Context) error {
	return c.creds.Clear(ctx)
}
