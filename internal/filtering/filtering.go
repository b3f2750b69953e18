// Package filtering narrows screening results for review.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kellatirupathi/darwinbox/internal/screening"
)

// Filter represents a single filtering step applied to scored records.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, records []screening.Record) ([]screening.Record, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains the review criteria. Empty strings and nil bounds match everything.
type Config struct {
	NameContains    string
	IDContains      string
	RemarksContains string
	MinScore        *int
	MaxScore        *int
	HideFailed      bool
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// Default returns the review filters in the order they are applied.
func Default() []Filter {
	return []Filter{
		NewNameContains(),
		NewIDContains(),
		NewRemarksContains(),
		NewScoreRange(),
		NewHideFailed(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially. The input slice is never modified.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, records []screening.Record) ([]screening.Record, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	current := make([]screening.Record, len(records))
	copy(current, records)

	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		next, info, err := step.Apply(ctx, deps, current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil && info.Dropped > 0 {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		current = next
	}

	return current, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

func keep(records []screening.Record, match func(screening.Record) bool) ([]screening.Record, Step) {
	initial := len(records)
	kept := records[:0:0]
	for _, r := range records {
		if match(r) {
			kept = append(kept, r)
		}
	}
	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}
}
