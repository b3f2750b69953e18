package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"google.golang.org/genai"

	"github.com/kellatirupathi/darwinbox/internal/ai"
)

type fakeModels struct {
	mu      sync.Mutex
	resp    *genai.GenerateContentResponse
	err     error
	configs []*genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs = append(f.configs, config)
	return f.resp, f.err
}

func newTestGenerator(models *fakeModels, created *[]string) *Generator {
	g := NewGenerator("", nil)
	g.newModels = func(_ context.Context, apiKey string) (contentGenerator, error) {
		*created = append(*created, apiKey)
		return models, nil
	}
	return g
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestCompleteJoinsParts(t *testing.T) {
	models := &fakeModels{resp: textResponse(`{"overall_score": 70,`, ` "summary": "ok"}`)}
	var created []string
	g := newTestGenerator(models, &created)

	got, err := g.Complete(context.Background(), "key-a", "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "{\"overall_score\": 70,\n\"summary\": \"ok\"}" {
		t.Fatalf("unexpected content %q", got)
	}

	cfg := models.configs[0]
	if cfg.ResponseMIMEType != "application/json" {
		t.Fatalf("expected json response type, got %q", cfg.ResponseMIMEType)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.1 {
		t.Fatalf("expected temperature 0.1")
	}
}

func TestCompleteReusesClientPerCredential(t *testing.T) {
	models := &fakeModels{resp: textResponse("{}")}
	var created []string
	g := newTestGenerator(models, &created)

	for _, key := range []string{"a", "b", "a", "b", "a"} {
		if _, err := g.Complete(context.Background(), key, "prompt"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(created) != 2 {
		t.Fatalf("expected one client per key, got %v", created)
	}
}

func TestCompleteMapsAPIErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "rate limited", err: genai.APIError{Code: http.StatusTooManyRequests, Message: "quota"}, wantCode: 429},
		{name: "forbidden", err: genai.APIError{Code: http.StatusForbidden, Message: "bad key"}, wantCode: 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created []string
			g := newTestGenerator(&fakeModels{err: tt.err}, &created)

			_, err := g.Complete(context.Background(), "k", "prompt")

			var statusErr *ai.StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected status error, got %v", err)
			}
			if statusErr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, statusErr.Code)
			}
		})
	}
}

func TestCompleteTransportErrorIsRetryable(t *testing.T) {
	var created []string
	g := newTestGenerator(&fakeModels{err: errors.New("connection reset")}, &created)

	_, err := g.Complete(context.Background(), "k", "prompt")

	var statusErr *ai.StatusError
	if err == nil || errors.As(err, &statusErr) || errors.Is(err, ai.ErrMalformedResponse) {
		t.Fatalf("expected plain transport error, got %v", err)
	}
}

func TestCompleteEmptyResponse(t *testing.T) {
	var created []string
	g := newTestGenerator(&fakeModels{resp: textResponse("  ")}, &created)

	_, err := g.Complete(context.Background(), "k", "prompt")
	if !errors.Is(err, ai.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}
