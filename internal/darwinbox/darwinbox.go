// Package darwinbox talks to the Darwinbox recruitment API.
package darwinbox

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	baseURLFormat = "https://%s.darwinbox.in"
	userAgent     = "darwinbox-screener"

	// DefaultWindow is how far back candidate applications are fetched.
	DefaultWindow = 180 * 24 * time.Hour

	listTimeout     = 20 * time.Second
	candidatesLimit = 60 * time.Second
	decisionTimeout = 20 * time.Second
)

// Credentials is a basic-auth pair plus the api_key sent in the request body.
type Credentials struct {
	Username string
	Password string
	APIKey   string
}

// DecisionCredentials share one basic-auth pair across two endpoint keys.
type DecisionCredentials struct {
	Username        string
	Password        string
	ShortlistAPIKey string
	RejectAPIKey    string
}

type Config struct {
	Subdomain string
	// BaseURL overrides the subdomain-derived address.
	BaseURL    string
	Jobs       Credentials
	Candidates Credentials
	Decisions  DecisionCredentials
	Window     time.Duration
}

type Client struct {
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = fmt.Sprintf(baseURLFormat, cfg.Subdomain)
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		HTTPClient: &http.Client{
			Timeout: candidatesLimit,
		},
		UserAgent: userAgent,
		BaseURL:   base,
	}
}

// Submit pushes decisions one by one. Failures are collected per candidate
// and never stop the remaining submissions.
func (c *Client) Submit(ctx context.Context, jobID string, decisions []Decision) SubmitReport {
	var report SubmitReport
	for i, d := range decisions {
		c.logger.Info("submitting decision",
			zap.Int("index", i+1),
			zap.Int("total", len(decisions)),
			zap.String("candidate_id", d.CandidateID),
			zap.String("verdict", string(d.Verdict)),
		)

		var err error
		switch d.Verdict {
		case Selected:
			err = c.Shortlist(ctx, jobID, d.CandidateID)
		case Rejected:
			err = c.Reject(ctx, jobID, d.CandidateID, d.RejectionReason())
		default:
			continue
		}

		if err != nil {
			c.logger.Warn("decision failed", zap.String("candidate_id", d.CandidateID), zap.Error(err))
			report.Errors = append(report.Errors, fmt.Sprintf("Failed on '%s': %v", d.CandidateName, err))
			continue
		}
		report.Succeeded++
	}
	return report
}
