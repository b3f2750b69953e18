package darwinbox

import (
	"context"
	"fmt"
	"strings"
)

const (
	ShortlistPath = "/JobsApiv3/candidatetag"
	RejectPath    = "/JobsApiv3/RejectCandidate"

	shortlistTag     = "Shortlisted"
	shortlistRemarks = "Shortlisted via AI Screening Tool"

	DefaultRejectionReason = "Rejected based on screening"
)

type Verdict string

const (
	Selected Verdict = "Selected"
	Rejected Verdict = "Rejected"
	Pending  Verdict = "Pending"
)

// Decision is the reviewer's verdict for a single candidate.
type Decision struct {
	CandidateID   string
	CandidateName string
	Verdict       Verdict
	Remarks       string
}

// RejectionReason falls back to a generic reason when remarks are blank.
func (d Decision) RejectionReason() string {
	if r := strings.TrimSpace(d.Remarks); r != "" {
		return r
	}
	return DefaultRejectionReason
}

type SubmitReport struct {
	Succeeded int
	Errors    []string
}

func (c *Client) Shortlist(ctx context.Context, jobID, candidateID string) error {
	creds := c.cfg.Decisions
	_, err := c.postJSON(ctx, ShortlistPath,
		basicAuth{username: creds.Username, password: creds.Password},
		map[string]any{
			"api_key":      creds.ShortlistAPIKey,
			"job_id":       jobID,
			"candidate_id": candidateID,
			"status_tag":   shortlistTag,
			"remarks":      shortlistRemarks,
		},
		decisionTimeout,
	)
	if err != nil {
		return fmt.Errorf("shortlist candidate %s: %w", candidateID, err)
	}
	return nil
}

func (c *Client) Reject(ctx context.Context, jobID, candidateID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = DefaultRejectionReason
	}

	creds := c.cfg.Decisions
	_, err := c.postJSON(ctx, RejectPath,
		basicAuth{username: creds.Username, password: creds.Password},
		map[string]any{
			"api_key":          creds.RejectAPIKey,
			"job_id":           jobID,
			"candidate_id":     candidateID,
			"rejection_reason": reason,
		},
		decisionTimeout,
	)
	if err != nil {
		return fmt.Errorf("reject candidate %s: %w", candidateID, err)
	}
	return nil
}
