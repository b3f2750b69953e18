// Package candidates holds the candidate records fed into a screening run.
package candidates

import (
	"strings"
)

// Candidate is the identity and resume location of a single applicant.
type Candidate struct {
	ID        string            `json:"id" yaml:"id" mapstructure:"id"`
	Name      string            `json:"name" yaml:"name" mapstructure:"name"`
	ResumeURL string            `json:"resume_url,omitempty" yaml:"resume_url,omitempty" mapstructure:"resume_url"`
	Details   map[string]string `json:"details,omitempty" yaml:"details,omitempty" mapstructure:"details"`
}

// HasResume reports whether the candidate carries a usable resume URL.
func (c Candidate) HasResume() bool {
	return strings.TrimSpace(c.ResumeURL) != ""
}

// DisplayName falls back to "N/A" for unnamed candidates.
func (c Candidate) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return "N/A"
}

type Candidates []Candidate

func (c Candidates) Len() int {
	return len(c)
}

func (c Candidates) IDs() []string {
	ids := make([]string, 0, len(c))
	for _, candidate := range c {
		ids = append(ids, candidate.ID)
	}
	return ids
}

// WithResume counts candidates that will go through the full pipeline.
func (c Candidates) WithResume() int {
	n := 0
	for _, candidate := range c {
		if candidate.HasResume() {
			n++
		}
	}
	return n
}
