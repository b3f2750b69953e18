package archive

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kellatirupathi/darwinbox/internal/screening"
)

const DefaultTable = "screening_results"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

var postgresColumns = []string{
	"run_id", "run_at", "job_id", "job_code",
	"candidate_id", "candidate_name", "score", "resume_link", "remarks", "failed",
}

// PostgresSink copies results into a table keyed by run.
type PostgresSink struct {
	pool  *pgxpool.Pool
	table string
}

func ConnectPostgres(ctx context.Context, dsn, table string) (*PostgresSink, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresSink{pool: pool, table: table}, nil
}

func (s *PostgresSink) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Write(ctx context.Context, run Run, records []screening.Record) error {
	if _, err := s.pool.Exec(ctx, createTableSQL(s.table)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.table}, postgresColumns, pgx.CopyFromRows(postgresRows(run, records)))
	if err != nil {
		return fmt.Errorf("failed to copy results: %w", err)
	}
	if int(n) != len(records) {
		return fmt.Errorf("copied %d of %d results", n, len(records))
	}
	return nil
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id         UUID        NOT NULL,
	run_at         TIMESTAMPTZ NOT NULL,
	job_id         TEXT        NOT NULL DEFAULT '',
	job_code       TEXT        NOT NULL DEFAULT '',
	candidate_id   TEXT        NOT NULL,
	candidate_name TEXT        NOT NULL,
	score          INTEGER     NOT NULL,
	resume_link    TEXT        NOT NULL,
	remarks        TEXT        NOT NULL,
	failed         BOOLEAN     NOT NULL,
	PRIMARY KEY (run_id, candidate_id)
)`, pgx.Identifier{table}.Sanitize())
}

func postgresRows(run Run, records []screening.Record) [][]any {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			run.ID, run.At, run.JobID, run.JobCode,
			r.ID, r.Name, r.OverallScore, r.ResumeLink, r.Remarks, r.Failed(),
		})
	}
	return rows
}
