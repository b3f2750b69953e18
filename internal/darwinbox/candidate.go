package darwinbox

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kellatirupathi/darwinbox/internal/candidates"
)

const (
	CandidatesPath = "/JobsApiv3/BulkCandidatesData"
	dateLayout     = "02-01-2006 15:04:05"
)

// Keys of the flattened Details map.
const (
	DetailCandidateID          = "candidate_id"
	DetailEmail                = "email"
	DetailExperienceLevel      = "experience_level"
	DetailTotalExperience      = "total_experience"
	DetailNoticePeriod         = "notice_period"
	DetailHighestQualification = "highest_qualification"
	DetailWorkExperience       = "work_experience_titles"
	DetailEducation            = "education_degrees"
)

var biographicalFields = map[string]string{
	DetailExperienceLevel:      "Are you a Fresher or Experienced?",
	DetailTotalExperience:      "Total Work Experience (in months)?",
	DetailNoticePeriod:         "Notice period",
	DetailHighestQualification: "Highest Educational Qualification",
}

type applicant struct {
	CandidateID     string         `json:"candidate_id"`
	UniqueID        string         `json:"candidate_unique_id"`
	FirstName       string         `json:"firstname"`
	LastName        string         `json:"lastname"`
	Email           string         `json:"email"`
	ApplicationData map[string]any `json:"-"`
}

// GetCandidates fetches applications for jobID created within the configured window.
func (c *Client) GetCandidates(ctx context.Context, jobID string) (candidates.Candidates, error) {
	creds := c.cfg.Candidates
	to := c.now()
	from := to.Add(-c.cfg.Window)

	data, err := c.postJSON(ctx, CandidatesPath,
		basicAuth{username: creds.Username, password: creds.Password},
		map[string]any{
			"api_key":      creds.APIKey,
			"job_id":       jobID,
			"created_from": from.Format(dateLayout),
			"created_to":   to.Format(dateLayout),
		},
		candidatesLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("get candidates for job %s: %w", jobID, err)
	}

	items, err := decodeItems(data)
	if err != nil {
		return nil, fmt.Errorf("get candidates for job %s: %w", jobID, err)
	}

	list := make(candidates.Candidates, 0, len(items))
	for i, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			c.logger.Debug("skipping malformed candidate entry", zap.Int("index", i))
			continue
		}

		var a applicant
		if err := decode(raw, &a); err != nil {
			c.logger.Warn("could not decode candidate", zap.Int("index", i), zap.Error(err))
			continue
		}
		a.ApplicationData, _ = raw["application_data"].(map[string]any)
		list = append(list, a.toCandidate())
	}

	c.logger.Info("got candidates from darwinbox",
		zap.String("job_id", jobID),
		zap.Int("candidates", len(list)),
		zap.Int("with_resume", list.WithResume()),
	)
	return list, nil
}

func (a applicant) toCandidate() candidates.Candidate {
	id := a.UniqueID
	if id == "" {
		id = a.CandidateID
	}

	details := map[string]string{}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			details[key] = value
		}
	}

	set(DetailCandidateID, a.CandidateID)
	set(DetailEmail, a.Email)

	bio, _ := a.ApplicationData["Biographical"].(map[string]any)
	for key, field := range biographicalFields {
		if v, ok := bio[field]; ok && v != nil {
			set(key, fmt.Sprint(v))
		}
	}
	set(DetailWorkExperience, strings.Join(collect(a.ApplicationData["Work Experience"], "Job Title"), ", "))
	set(DetailEducation, strings.Join(collect(a.ApplicationData["Education"], "Education Degree"), ", "))

	return candidates.Candidate{
		ID:        id,
		Name:      strings.TrimSpace(a.FirstName + " " + a.LastName),
		ResumeURL: resumeURL(a.ApplicationData),
		Details:   details,
	}
}

func resumeURL(appData map[string]any) string {
	resume, ok := appData["Resume"].(map[string]any)
	if !ok {
		return ""
	}
	url, _ := resume["Resume"].(string)
	return strings.TrimSpace(url)
}

// collect pulls a named string field out of a list of sections.
func collect(section any, field string) []string {
	entries, ok := section.([]any)
	if !ok {
		return nil
	}

	var out []string
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if v, ok := m[field].(string); ok && strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}
