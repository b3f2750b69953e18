package filtering

import (
	"context"
	"strconv"

	"github.com/kellatirupathi/darwinbox/internal/screening"
)

type hideFailedFilter struct {
	enabled bool
}

// NewHideFailed drops records whose remarks describe a failure.
func NewHideFailed() Filter {
	return &hideFailedFilter{}
}

func (f *hideFailedFilter) Name() string { return "hide_failed" }

func (f *hideFailedFilter) Disable(string) {}

func (f *hideFailedFilter) IsEnabled() bool { return true }

func (f *hideFailedFilter) Validate(cfg *Config) error {
	f.enabled = cfg != nil && cfg.HideFailed
	return nil
}

func (f *hideFailedFilter) Apply(_ context.Context, _ Deps, records []screening.Record) ([]screening.Record, Step, error) {
	if !f.enabled {
		return records, Step{Initial: len(records), Left: len(records)}, nil
	}

	kept, step := keep(records, func(r screening.Record) bool { return !r.Failed() })
	return kept, step, nil
}

func (f *hideFailedFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{"hide_failed": strconv.FormatBool(f.enabled)},
	}
}
