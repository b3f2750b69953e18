// Package chat is a scoring backend for OpenAI-compatible chat-completions APIs (Mistral by default).
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kellatirupathi/darwinbox/internal/ai"
)

const (
	DefaultEndpoint    = "https://api.mistral.ai/v1/chat/completions"
	DefaultModel       = "mistral-medium-latest"
	DefaultTemperature = 0.1

	provider = "mistral"
	// Error bodies beyond this size are cut before being reported.
	maxErrorBody = 4 << 10
)

type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatCompletionMsg `json:"messages"`
	ResponseFormat responseFormat      `json:"response_format"`
	Temperature    float64             `json:"temperature"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client calls a chat-completions endpoint with a bearer credential per request.
type Client struct {
	endpoint    string
	model       string
	temperature float64
	logger      *zap.Logger
	HTTPClient  *http.Client
}

// New builds a client. Per-attempt timeouts are applied by the caller's context.
func New(endpoint, model string, logger *zap.Logger) *Client {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		endpoint:    endpoint,
		model:       model,
		temperature: DefaultTemperature,
		logger:      logger,
		HTTPClient:  &http.Client{},
	}
}

func (c *Client) Provider() string { return provider }

func (c *Client) Model() string { return c.model }

// Complete sends prompt as a single user message and returns the message content.
// Non-200 answers become *ai.StatusError; unusable 200 bodies wrap ai.ErrMalformedResponse.
func (c *Client) Complete(ctx context.Context, credential, prompt string) (string, error) {
	payload, err := json.Marshal(chatCompletionRequest{
		Model:          c.model,
		Messages:       []chatCompletionMsg{{Role: "user", Content: prompt}},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	c.logger.Debug("make request", zap.String("url", c.endpoint))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &ai.StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ai.ErrMalformedResponse, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ai.ErrMalformedResponse)
	}

	return chatResp.Choices[0].Message.Content, nil
}
