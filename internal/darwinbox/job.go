package darwinbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const JobListPath = "/JobsApiv3/Joblist"

type Jobs struct {
	Items []*Job
}

type Job struct {
	ID         string         `json:"job_id"`
	Code       string         `json:"job_code"`
	Title      string         `json:"job_title"`
	Department string         `json:"department,omitempty"`
	Location   string         `json:"location,omitempty"`
	Extra      map[string]any `json:",remain"`
}

// Label is the human-readable form used in tables and prompts.
func (j *Job) Label() string {
	return fmt.Sprintf("%s (ID: %s)", j.Title, j.Code)
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

// Find looks a job up by id or code.
func (j *Jobs) Find(key string) *Job {
	key = strings.TrimSpace(key)
	for _, job := range j.Items {
		if job.ID == key || job.Code == key {
			return job
		}
	}
	return nil
}

// GetJobs lists the jobs visible to the jobs credentials.
func (c *Client) GetJobs(ctx context.Context) (*Jobs, error) {
	creds := c.cfg.Jobs
	data, err := c.postJSON(ctx, JobListPath,
		basicAuth{username: creds.Username, password: creds.Password},
		map[string]any{"api_key": creds.APIKey},
		listTimeout,
	)
	if err != nil {
		return nil, fmt.Errorf("get jobs: %w", err)
	}

	items, err := decodeItems(data)
	if err != nil {
		return nil, fmt.Errorf("get jobs: %w", err)
	}

	var jobs []*Job
	if err := decode(items, &jobs); err != nil {
		return nil, fmt.Errorf("get jobs: %w", err)
	}

	c.logger.Debug("got jobs from darwinbox", zap.Int("jobs", len(jobs)))
	return &Jobs{Items: jobs}, nil
}

func decodeItems(data json.RawMessage) ([]any, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return items, nil
}

func decode(input any, result any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}
