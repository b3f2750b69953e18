// Package gemini is a scoring backend that calls Gemini through the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kellatirupathi/darwinbox/internal/ai"
)

const (
	defaultModel = "gemini-2.5-flash"
	provider     = "gemini"
)

// contentGenerator is satisfied by *genai.Models.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator keeps one genai client per credential, since the SDK binds the key at construction.
type Generator struct {
	modelName string
	logger    *zap.Logger
	newModels func(ctx context.Context, apiKey string) (contentGenerator, error)

	mu      sync.Mutex
	clients map[string]contentGenerator
}

func NewGenerator(model string, logger *zap.Logger) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		modelName: model,
		logger:    logger,
		newModels: newGenaiModels,
		clients:   make(map[string]contentGenerator),
	}
}

func newGenaiModels(ctx context.Context, apiKey string) (contentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client.Models, nil
}

func (g *Generator) Provider() string { return provider }

func (g *Generator) Model() string { return g.modelName }

// Complete asks Gemini for a JSON answer to prompt and joins the returned text parts.
func (g *Generator) Complete(ctx context.Context, credential, prompt string) (string, error) {
	models, err := g.models(ctx, credential)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.1),
	}

	resp, err := models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", classify(err)
	}

	output := joinText(resp)
	if output == "" {
		return "", fmt.Errorf("%w: gemini api returned empty response", ai.ErrMalformedResponse)
	}

	return output, nil
}

func (g *Generator) models(ctx context.Context, credential string) (contentGenerator, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, &ai.StatusError{Code: 401, Body: "gemini api key is required"}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if models, ok := g.clients[credential]; ok {
		return models, nil
	}

	models, err := g.newModels(ctx, credential)
	if err != nil {
		return nil, err
	}
	g.clients[credential] = models

	return models, nil
}

// classify maps API errors onto the status errors the scorer understands.
// Transport errors pass through untouched and are retried.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ai.StatusError{Code: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ai.StatusError{Code: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return fmt.Errorf("generate content: %w", err)
}

func joinText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}
