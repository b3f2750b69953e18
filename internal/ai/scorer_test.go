package ai

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type reply struct {
	text string
	err  error
}

// scriptedBackend returns replies in order and repeats the last one.
type scriptedBackend struct {
	mu          sync.Mutex
	replies     []reply
	calls       int
	credentials []string
	prompts     []string
}

func (b *scriptedBackend) Complete(_ context.Context, credential, prompt string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.credentials = append(b.credentials, credential)
	b.prompts = append(b.prompts, prompt)
	idx := b.calls
	if idx >= len(b.replies) {
		idx = len(b.replies) - 1
	}
	b.calls++
	return b.replies[idx].text, b.replies[idx].err
}

func (b *scriptedBackend) Provider() string { return "test" }
func (b *scriptedBackend) Model() string    { return "test-model" }

// newTestScorer records requested delays instead of sleeping.
func newTestScorer(backend Backend, log *zap.Logger) (*Scorer, *[]time.Duration) {
	if log == nil {
		log = zap.NewNop()
	}
	s := NewScorer(backend, Options{}, log)
	delays := &[]time.Duration{}
	s.wait = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	s.jitter = func() time.Duration { return 250 * time.Millisecond }
	return s, delays
}

func TestScoreRoundTrip(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{text: `{
		"overall_score": 72,
		"key_strengths": ["Go", "Kubernetes", "Postgres"],
		"key_weaknesses": ["No AWS"],
		"summary": "Solid backend engineer."
	}`}}}
	s, delays := newTestScorer(backend, nil)

	got := s.Score(context.Background(), "resume", "jd", "key-1234")

	assert.Equal(t, ScoreResult{
		OverallScore: 72,
		Strengths:    []string{"Go", "Kubernetes", "Postgres"},
		Weaknesses:   []string{"No AWS"},
		Summary:      "Solid backend engineer.",
	}, got)
	assert.Empty(t, *delays)
	assert.Equal(t, 1, backend.calls)
	assert.Contains(t, backend.prompts[0], "<RESUME_TEXT>\nresume\n</RESUME_TEXT>")
	assert.Contains(t, backend.prompts[0], "<JOB_DESCRIPTION>\njd\n</JOB_DESCRIPTION>")
}

func TestScorePartialPayload(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{text: `{"overall_score": 87, "summary": "Strong match"}`}}}
	s, _ := newTestScorer(backend, nil)

	got := s.Score(context.Background(), "resume", "jd", "k1")

	assert.Equal(t, 87, got.OverallScore)
	assert.Equal(t, "Strong match", got.Summary)
	assert.Empty(t, got.Strengths)
}

func TestScoreIsIdempotent(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{text: "```json\n{\"overall_score\": \"64\", \"key_strengths\": [\"SQL\"], \"summary\": \"ok\"}\n```"}}}
	s, _ := newTestScorer(backend, nil)

	first := s.Score(context.Background(), "resume", "jd", "k1")
	second := s.Score(context.Background(), "resume", "jd", "k1")

	assert.Equal(t, first, second)
	assert.Equal(t, 64, first.OverallScore)
}

func TestScoreRateLimitExhaustsAttempts(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{err: &StatusError{Code: 429, Body: "slow down"}}}}
	s, delays := newTestScorer(backend, nil)

	got := s.Score(context.Background(), "resume", "jd", "key-abcd")

	assert.Equal(t, Failure(FailedAfterRetries), got)
	assert.Equal(t, 3, backend.calls)
	assert.Equal(t, []string{"key-abcd", "key-abcd", "key-abcd"}, backend.credentials, "credential must not rotate")

	require.Len(t, *delays, 2)
	assert.Equal(t, 2250*time.Millisecond, (*delays)[0])
	assert.Equal(t, 4250*time.Millisecond, (*delays)[1])
	assert.Less(t, (*delays)[0], (*delays)[1])
}

func TestScoreRetriesNetworkErrors(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{
		{err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}},
		{err: &StatusError{Code: 429}},
		{text: `{"overall_score": 55, "summary": "Partial fit"}`},
	}}
	s, delays := newTestScorer(backend, nil)

	got := s.Score(context.Background(), "resume", "jd", "k1")

	assert.Equal(t, 55, got.OverallScore)
	assert.Equal(t, 3, backend.calls)
	assert.Len(t, *delays, 2)
}

func TestScoreClientErrorIsTerminal(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{err: &StatusError{Code: 401, Body: `{"message":"Unauthorized"}`}}}}
	s, delays := newTestScorer(backend, nil)

	got := s.Score(context.Background(), "resume", "jd", "k1")

	assert.Equal(t, 0, got.OverallScore)
	assert.Equal(t, `API Client Error: 401 - {"message":"Unauthorized"}`, got.Summary)
	assert.Equal(t, 1, backend.calls)
	assert.Empty(t, *delays)
}

func TestScoreParseFailureIsTerminal(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{text: "Here is my analysis: the candidate is great."}}}
	s, delays := newTestScorer(backend, nil)

	got := s.Score(context.Background(), "resume", "jd", "k1")

	assert.Equal(t, Failure(FailedAfterRetries), got)
	assert.Equal(t, 1, backend.calls)
	assert.Empty(t, *delays)
}

func TestScoreMalformedEnvelopeIsTerminal(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{err: ErrMalformedResponse}}}
	s, _ := newTestScorer(backend, nil)

	got := s.Score(context.Background(), "resume", "jd", "k1")

	assert.Equal(t, FailedAfterRetries, got.Summary)
	assert.Equal(t, 1, backend.calls)
}

func TestScoreStopsWhenCancelled(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{err: &StatusError{Code: 429}}}}
	s, _ := newTestScorer(backend, nil)
	s.wait = func(context.Context, time.Duration) error { return context.Canceled }

	got := s.Score(context.Background(), "resume", "jd", "k1")

	assert.Equal(t, FailedAfterRetries, got.Summary)
	assert.Equal(t, 1, backend.calls)
}

func TestScoreNeverLogsFullCredential(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	backend := &scriptedBackend{replies: []reply{{err: &StatusError{Code: 429}}}}
	s, _ := newTestScorer(backend, zap.New(core))

	s.Score(context.Background(), "resume", "jd", "sk-super-secret-7777")

	require.NotEmpty(t, observed.All())
	for _, entry := range observed.All() {
		for key, value := range entry.ContextMap() {
			if str, ok := value.(string); ok {
				assert.False(t, strings.Contains(str, "sk-super-secret"), "field %s leaked credential", key)
			}
		}
		assert.Equal(t, "...7777", entry.ContextMap()["credential"])
	}
}

func TestBackoffGrowsExponentially(t *testing.T) {
	s := NewScorer(&scriptedBackend{replies: []reply{{}}}, Options{BackoffBase: time.Second}, nil)
	s.jitter = func() time.Duration { return 0 }

	assert.Equal(t, time.Second, s.backoff(0))
	assert.Equal(t, 2*time.Second, s.backoff(1))
	assert.Equal(t, 4*time.Second, s.backoff(2))
}

func TestThrottlePerCredential(t *testing.T) {
	s := NewScorer(&scriptedBackend{replies: []reply{{}}}, Options{RequestsPerMinute: 60}, nil)

	require.NoError(t, s.throttle(context.Background(), "a"))
	require.NoError(t, s.throttle(context.Background(), "b"))
	assert.Len(t, s.limiters, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, s.throttle(ctx, "a"), "second call on the same key must wait for a token")
}
