package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/kellatirupathi/darwinbox/internal/screening"
)

const (
	minScore = 0
	maxScore = 100
)

type scoreRangeFilter struct {
	min, max int
}

// NewScoreRange keeps records whose score lies in [min, max], both inclusive.
func NewScoreRange() Filter {
	return &scoreRangeFilter{min: minScore, max: maxScore}
}

func (f *scoreRangeFilter) Name() string { return "score_range" }

func (f *scoreRangeFilter) Disable(string) {}

func (f *scoreRangeFilter) IsEnabled() bool { return true }

func (f *scoreRangeFilter) Validate(cfg *Config) error {
	f.min, f.max = minScore, maxScore
	if cfg == nil {
		return nil
	}
	if cfg.MinScore != nil {
		f.min = *cfg.MinScore
	}
	if cfg.MaxScore != nil {
		f.max = *cfg.MaxScore
	}

	if f.min < minScore || f.max > maxScore {
		return fmt.Errorf("score range must be within %d..%d", minScore, maxScore)
	}
	if f.min > f.max {
		return fmt.Errorf("minimum score %d is greater than maximum %d", f.min, f.max)
	}
	return nil
}

func (f *scoreRangeFilter) Apply(_ context.Context, deps Deps, records []screening.Record) ([]screening.Record, Step, error) {
	if f.min == minScore && f.max == maxScore {
		return records, Step{Initial: len(records), Left: len(records)}, nil
	}

	kept, step := keep(records, func(r screening.Record) bool {
		return r.OverallScore >= f.min && r.OverallScore <= f.max
	})
	if deps.Logger != nil {
		deps.Logger.Debug("score range applied", zap.Int("min", f.min), zap.Int("max", f.max))
	}
	return kept, step, nil
}

func (f *scoreRangeFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{
			"min": strconv.Itoa(f.min),
			"max": strconv.Itoa(f.max),
		},
	}
}
