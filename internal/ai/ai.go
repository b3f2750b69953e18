// Package ai scores resumes against a job description with a remote language model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	FailedAfterRetries = "AI analysis failed after multiple retries."
	noSummary          = "No summary generated."
)

// ErrMalformedResponse marks a successful call whose payload could not be used.
var ErrMalformedResponse = errors.New("malformed response")

// ScoreResult is the structured evaluation of one resume.
type ScoreResult struct {
	OverallScore int      `json:"overall_score"`
	Strengths    []string `json:"key_strengths"`
	Weaknesses   []string `json:"key_weaknesses"`
	Summary      string   `json:"summary"`
}

// Failure is the zero-score result carrying a reason in the summary.
func Failure(reason string) ScoreResult {
	return ScoreResult{
		OverallScore: 0,
		Strengths:    []string{},
		Weaknesses:   []string{},
		Summary:      reason,
	}
}

// Backend performs a single completion call under one credential.
type Backend interface {
	Complete(ctx context.Context, credential, prompt string) (string, error)
	Provider() string
	Model() string
}

// StatusError is returned by backends for non-success HTTP statuses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API Client Error: %d - %s", e.Code, strings.TrimSpace(e.Body))
}
