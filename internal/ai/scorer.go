package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kellatirupathi/darwinbox/internal/logger"
	"github.com/kellatirupathi/darwinbox/internal/utils"
)

const (
	DefaultMaxAttempts  = 3
	DefaultBackoffBase  = 2 * time.Second
	DefaultTimeout      = 120 * time.Second
	defaultMaxLogLength = 200
)

// Options tunes the retry state machine.
type Options struct {
	MaxAttempts int
	BackoffBase time.Duration
	// Timeout bounds every single attempt.
	Timeout time.Duration
	// RequestsPerMinute paces calls per credential. Zero disables pacing.
	RequestsPerMinute float64
	MaxLogLength      int
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = DefaultBackoffBase
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxLogLength <= 0 {
		o.MaxLogLength = defaultMaxLogLength
	}
	return o
}

// Scorer wraps a Backend with prompt construction, retries and result parsing.
// It is safe for concurrent use.
type Scorer struct {
	backend Backend
	opts    Options
	logger  *zap.Logger

	wait   func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewScorer(backend Backend, opts Options, log *zap.Logger) *Scorer {
	return &Scorer{
		backend:  backend,
		opts:     opts.withDefaults(),
		logger:   logger.WithCommonFields(log, backend.Provider(), backend.Model()),
		wait:     utils.WaitFor,
		jitter:   func() time.Duration { return time.Duration(rand.Int64N(int64(time.Second))) },
		limiters: make(map[string]*rate.Limiter),
	}
}

// Score evaluates resumeText against jobDescription using credential for every
// attempt. It never fails: all errors resolve to a zero-score result.
func (s *Scorer) Score(ctx context.Context, resumeText, jobDescription, credential string) ScoreResult {
	prompt := BuildPrompt(jobDescription, resumeText)
	log := s.logger.With(logger.Credential(credential))

	log.Debug("scoring request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.opts.MaxLogLength)),
	)

	for attempt := 0; attempt < s.opts.MaxAttempts; attempt++ {
		if err := s.throttle(ctx, credential); err != nil {
			log.Warn("scoring interrupted", zap.Error(err))
			return Failure(FailedAfterRetries)
		}

		raw, err := s.complete(ctx, credential, prompt)
		if err == nil {
			log.Debug("scoring response",
				zap.Int("attempt", attempt+1),
				zap.Int("response_length", utf8.RuneCountInString(raw)),
				zap.String("response_preview", utils.TruncateForLog(raw, s.opts.MaxLogLength)),
			)

			result, perr := ParseResult(raw)
			if perr != nil {
				log.Error("could not parse scoring response", zap.Error(perr))
				return Failure(FailedAfterRetries)
			}
			return result
		}

		var statusErr *StatusError
		switch {
		case errors.As(err, &statusErr) && statusErr.Code == http.StatusTooManyRequests:
			log.Warn("rate limit hit", zap.Int("attempt", attempt+1), zap.Int("attempts", s.opts.MaxAttempts))
		case errors.As(err, &statusErr):
			log.Error("scoring api client error",
				zap.Int("status", statusErr.Code),
				zap.String("body", utils.TruncateForLog(utils.RedactSecrets(statusErr.Body), s.opts.MaxLogLength)),
			)
			return Failure(fmt.Sprintf("API Client Error: %d - %s", statusErr.Code, utils.RedactSecrets(strings.TrimSpace(statusErr.Body))))
		case errors.Is(err, ErrMalformedResponse):
			log.Error("malformed scoring response", zap.Error(err))
			return Failure(FailedAfterRetries)
		case ctx.Err() != nil:
			log.Warn("scoring interrupted", zap.Error(ctx.Err()))
			return Failure(FailedAfterRetries)
		default:
			log.Warn("scoring request failed",
				zap.Int("attempt", attempt+1),
				zap.Int("attempts", s.opts.MaxAttempts),
				zap.String("error", utils.RedactSecrets(err.Error())),
			)
		}

		if attempt == s.opts.MaxAttempts-1 {
			break
		}

		delay := s.backoff(attempt)
		log.Info("retrying scoring request", zap.Duration("delay", delay), zap.Int("next_attempt", attempt+2))
		if err := s.wait(ctx, delay); err != nil {
			log.Warn("scoring interrupted", zap.Error(err))
			return Failure(FailedAfterRetries)
		}
	}

	log.Error("scoring failed after retries", zap.Int("attempts", s.opts.MaxAttempts))
	return Failure(FailedAfterRetries)
}

func (s *Scorer) complete(ctx context.Context, credential, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	raw, err := s.backend.Complete(callCtx, credential, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}
	return raw, nil
}

// backoff returns base*2^attempt plus up to one second of jitter.
func (s *Scorer) backoff(attempt int) time.Duration {
	return s.opts.BackoffBase*time.Duration(1<<attempt) + s.jitter()
}

func (s *Scorer) throttle(ctx context.Context, credential string) error {
	if s.opts.RequestsPerMinute <= 0 {
		return ctx.Err()
	}

	s.mu.Lock()
	limiter, ok := s.limiters[credential]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.opts.RequestsPerMinute/60), 1)
		s.limiters[credential] = limiter
	}
	s.mu.Unlock()

	return limiter.Wait(ctx)
}

// Provider names the backend in use.
func (s *Scorer) Provider() string {
	return s.backend.Provider()
}

func (s *Scorer) Model() string {
	return s.backend.Model()
}
