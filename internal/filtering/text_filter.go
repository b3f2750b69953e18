package filtering

import (
	"context"
	"strings"

	"github.com/kellatirupathi/darwinbox/internal/screening"
)

type containsFilter struct {
	name     string
	field    func(screening.Record) string
	option   func(*Config) string
	needle   string
	disabled bool
	reason   string
}

// NewNameContains keeps records whose candidate name contains the configured text.
func NewNameContains() Filter {
	return &containsFilter{
		name:   "name_contains",
		field:  func(r screening.Record) string { return r.Name },
		option: func(c *Config) string { return c.NameContains },
	}
}

// NewIDContains keeps records whose candidate id contains the configured text.
func NewIDContains() Filter {
	return &containsFilter{
		name:   "id_contains",
		field:  func(r screening.Record) string { return r.ID },
		option: func(c *Config) string { return c.IDContains },
	}
}

// NewRemarksContains keeps records whose remarks contain the configured text.
func NewRemarksContains() Filter {
	return &containsFilter{
		name:   "remarks_contains",
		field:  func(r screening.Record) string { return r.Remarks },
		option: func(c *Config) string { return c.RemarksContains },
	}
}

func (f *containsFilter) Name() string { return f.name }

func (f *containsFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *containsFilter) IsEnabled() bool { return !f.disabled }

func (f *containsFilter) Validate(cfg *Config) error {
	f.needle = ""
	if cfg != nil {
		f.needle = strings.ToLower(strings.TrimSpace(f.option(cfg)))
	}
	return nil
}

func (f *containsFilter) Apply(_ context.Context, _ Deps, records []screening.Record) ([]screening.Record, Step, error) {
	if f.needle == "" {
		return records, Step{Initial: len(records), Left: len(records)}, nil
	}

	kept, step := keep(records, func(r screening.Record) bool {
		return strings.Contains(strings.ToLower(f.field(r)), f.needle)
	})
	return kept, step, nil
}

func (f *containsFilter) Status() Status {
	details := map[string]string{}
	if f.needle != "" {
		details["contains"] = f.needle
	}
	return Status{Name: f.name, Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
