// Package screening drives candidates through download, extraction and
// scoring in credential-bound batches.
package screening

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kellatirupathi/darwinbox/internal/ai"
	"github.com/kellatirupathi/darwinbox/internal/candidates"
	"github.com/kellatirupathi/darwinbox/internal/extract"
	"github.com/kellatirupathi/darwinbox/internal/logger"
)

// ErrNoCredentials is returned before any work when the pool is empty.
var ErrNoCredentials = errors.New("no scoring credentials configured")

type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) bool
}

type Extractor interface {
	Extract(ctx context.Context, path string) extract.Text
}

type Scorer interface {
	Score(ctx context.Context, resumeText, jobDescription, credential string) ai.ScoreResult
}

// ProgressFunc receives the number of processed candidates after each batch.
type ProgressFunc func(processed, total int)

type Options struct {
	BatchSize int
	// ResumeDir holds downloaded resumes. A temporary directory is used when empty.
	ResumeDir   string
	KeepResumes bool
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return o
}

// BatchError describes a batch that did not finish normally.
type BatchError struct {
	Batch int
	Err   error
}

func (e BatchError) Error() string {
	return fmt.Sprintf("batch %d: %v", e.Batch, e.Err)
}

func (e BatchError) Unwrap() error {
	return e.Err
}

// Result holds records in completion order. Use Finalize for ranking.
type Result struct {
	Records     []Record
	BatchErrors []BatchError
}

type Pipeline struct {
	fetcher   Fetcher
	extractor Extractor
	scorer    Scorer
	opts      Options
	logger    *zap.Logger

	Progress ProgressFunc
}

func New(fetcher Fetcher, extractor Extractor, scorer Scorer, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		scorer:    scorer,
		opts:      opts.withDefaults(),
		logger:    logger,
	}
}

type batchOutcome struct {
	index   int
	records []Record
	err     error
}

// Run scores every candidate and returns one record per candidate. Concurrency
// equals the number of credentials; each worker takes the next batch in index
// order. When ctx is cancelled no further batches start, in-flight batches
// finish, and the partial result is returned together with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, list []candidates.Candidate, jobDescription string, credentials []string) (Result, error) {
	if len(credentials) == 0 {
		return Result{}, ErrNoCredentials
	}

	dir, cleanup, err := p.resumeDir()
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	batches := AssignCredentials(Partition(list, p.opts.BatchSize), credentials)
	total := len(list)

	p.logger.Info("screening started",
		zap.Int("candidates", total),
		zap.Int("batches", len(batches)),
		zap.Int("workers", len(credentials)),
	)

	queue := make(chan Batch)
	outcomes := make(chan batchOutcome)
	drainCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(queue)
		for i, b := range batches {
			select {
			case queue <- b:
			case <-ctx.Done():
				for _, rest := range batches[i:] {
					outcomes <- notStarted(rest, ctx.Err())
				}
				return
			}
		}
	}()

	var g errgroup.Group
	for range credentials {
		g.Go(func() error {
			for b := range queue {
				if err := ctx.Err(); err != nil {
					outcomes <- notStarted(b, err)
					continue
				}
				outcomes <- p.runBatch(drainCtx, dir, jobDescription, b)
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(outcomes)
	}()

	var result Result
	processed := 0
	for out := range outcomes {
		result.Records = append(result.Records, out.records...)
		processed += len(out.records)
		if out.err != nil {
			result.BatchErrors = append(result.BatchErrors, BatchError{Batch: out.index, Err: out.err})
		}
		p.logger.Info("batch finished",
			zap.Int("batch", out.index),
			zap.Int("processed", processed),
			zap.Int("total", total),
		)
		if p.Progress != nil {
			p.Progress(processed, total)
		}
	}

	summary := Summarize(result.Records)
	p.logger.Info("screening finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)

	return result, ctx.Err()
}

func (p *Pipeline) runBatch(ctx context.Context, dir, jobDescription string, b Batch) (out batchOutcome) {
	log := p.logger.With(zap.Int("batch", b.Index), logger.Credential(b.Credential))
	log.Debug("batch started", zap.Int("size", len(b.Candidates)))

	records := make([]Record, 0, len(b.Candidates))
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("batch aborted: %v", r)
			log.Error("batch panicked", zap.Any("panic", r), zap.Int("completed", len(records)))
			for _, c := range b.Candidates[len(records):] {
				records = append(records, errorRecord(c, err))
			}
			out = batchOutcome{index: b.Index, records: records, err: err}
		}
	}()

	for i, c := range b.Candidates {
		records = append(records, p.processCandidate(ctx, resumePath(dir, b.Index, i, c), b.Credential, jobDescription, c))
	}
	return batchOutcome{index: b.Index, records: records}
}

func notStarted(b Batch, cause error) batchOutcome {
	err := fmt.Errorf("batch not started: %w", cause)
	records := make([]Record, 0, len(b.Candidates))
	for _, c := range b.Candidates {
		records = append(records, errorRecord(c, err))
	}
	return batchOutcome{index: b.Index, records: records, err: err}
}

func errorRecord(c candidates.Candidate, err error) Record {
	link := NotAvailable
	if c.HasResume() {
		link = c.ResumeURL
	}
	return Record{
		Name:       c.DisplayName(),
		ID:         c.ID,
		ResumeLink: link,
		Remarks:    "Error: " + err.Error(),
	}
}

func (p *Pipeline) resumeDir() (string, func(), error) {
	if p.opts.ResumeDir != "" {
		if err := os.MkdirAll(p.opts.ResumeDir, 0o755); err != nil {
			return "", nil, fmt.Errorf("create resume dir: %w", err)
		}
		return p.opts.ResumeDir, func() {}, nil
	}

	dir, err := os.MkdirTemp("", "resumes-*")
	if err != nil {
		return "", nil, fmt.Errorf("create resume dir: %w", err)
	}
	return dir, func() {
		if p.opts.KeepResumes {
			return
		}
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Warn("could not remove resume dir", zap.String("path", dir), zap.Error(err))
		}
	}, nil
}
