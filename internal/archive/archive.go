// Package archive persists run artifacts: local CSV/JSON files and the
// optional Sheets, Postgres and SFTP destinations.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kellatirupathi/darwinbox/internal/screening"
)

// Folder names under the archive base directory.
const (
	FolderJobs       = "job_list"
	FolderCandidates = "candidates_data"
	FolderScores     = "candidates_analyzed_scores"
	FolderResumes    = "Candidates_resumes"
)

// Run identifies one screening run across every sink.
type Run struct {
	ID      uuid.UUID
	JobID   string
	JobCode string
	At      time.Time
}

func NewRun(jobID, jobCode string) Run {
	return Run{ID: uuid.New(), JobID: jobID, JobCode: jobCode, At: time.Now()}
}

// Prefix is used for file names; it falls back to "manual" for runs without a job.
func (r Run) Prefix() string {
	code := strings.TrimSpace(r.JobCode)
	if code == "" {
		code = strings.TrimSpace(r.JobID)
	}
	if code == "" {
		return "manual"
	}
	return sanitize(code)
}

// Sink receives the scored results of a run.
type Sink interface {
	Name() string
	Write(ctx context.Context, run Run, records []screening.Record) error
}

// Publish writes records to every sink. A failing sink is logged and does
// not stop the others; the joined error is returned.
func Publish(ctx context.Context, logger *zap.Logger, run Run, records []screening.Record, sinks ...Sink) error {
	var errs []error
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		if err := sink.Write(ctx, run, records); err != nil {
			logger.Warn("archive sink failed", zap.String("sink", sink.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		logger.Info("results archived", zap.String("sink", sink.Name()), zap.Int("rows", len(records)))
	}
	return errors.Join(errs...)
}

// Table is the tabular form shared by CSV and Sheets.
type Table struct {
	Columns []string
	Rows    [][]string
}

// RecordsTable renders records with run metadata in front.
func RecordsTable(run Run, records []screening.Record, timeLayout string) Table {
	columns := append([]string{"run_timestamp", "run_id"}, screening.Columns...)
	rows := make([][]string, 0, len(records))
	stamp := run.At.Format(timeLayout)
	for _, r := range records {
		rows = append(rows, append([]string{stamp, run.ID.String()}, r.Row()...))
	}
	return Table{Columns: columns, Rows: rows}
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
