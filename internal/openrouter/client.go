// Package openrouter is a small client for the OpenRouter chat-completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"txtforge/internal/config"
	"txtforge/pkg/logger"
)

const maxResponseBytes = 10 * 1024 * 1024

var (
	ErrNoAPIKey     = errors.New("openrouter api key is not set")
	ErrEmptyContent = errors.New("openrouter returned no completion")
)

// APIError is a non-200 answer from OpenRouter.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openrouter request failed with status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	referer    string
	title      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func New(cfg config.OpenRouterConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		referer: cfg.Referer,
		title:   cfg.Title,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a single user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, apiKey, model, prompt string) (string, error) {
	if apiKey == "" {
		return "", ErrNoAPIKey
	}

	payload, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	body, err := c.do(ctx, http.MethodPost, "/chat/completions", apiKey, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("openrouter error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyContent
	}

	content := resp.Choices[0].Message.Content
	logger.Debug("completion received",
		logger.String("model", model),
		logger.Int("length", len(content)),
		logger.Duration("took", time.Since(start)),
	)
	return content, nil
}

// Model is one entry of the OpenRouter catalogue.
type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ContextLength int    `json:"context_length,omitempty"`
	Pricing       struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
	} `json:"pricing"`
}

// ListModels returns the models available to apiKey.
func (c *Client) ListModels(ctx context.Context, apiKey string) ([]Model, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	body, err := c.do(ctx, http.MethodGet, "/models", apiKey, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []Model `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse models: %w", err)
	}
	return resp.Data, nil
}

// ValidateKey reports whether OpenRouter accepts apiKey. Transport failures are returned as errors.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) (bool, error) {
	_, err := c.ListModels(ctx, apiKey)
	if err == nil {
		return true, nil
	}

	var apiErr *APIError
	if errors.Is(err, ErrNoAPIKey) || (errors.As(err, &apiErr) && apiErr.StatusCode < 500) {
		return false, nil
	}
	return false, err
}

func (c *Client) do(ctx context.Context, method, path, apiKey string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}
