// Package report builds exportable status documents from the schedule and
// settings files.
package report

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openso2/camctl/internal/crontab"
	"github.com/openso2/camctl/internal/schedule"
	"github.com/openso2/camctl/internal/settings"
)

// ScheduleReport is the exportable view of a schedule file.
type ScheduleReport struct {
	Path        string                 `yaml:"path,omitempty"`
	GeneratedAt time.Time              `yaml:"generated_at"`
	Entries     []schedule.EntryStatus `yaml:"entries"`
}

// FromCrontab builds a schedule report directly from a parsed schedule file.
// Next activations are computed from now; disabled entries report none.
func FromCrontab(path string, file *crontab.File, now time.Time) ScheduleReport {
	r := ScheduleReport{
		Path:        path,
		GeneratedAt: now,
		Entries:     make([]schedule.EntryStatus, 0, len(file.Entries)),
	}

	for _, entry := range file.Entries {
		status := schedule.EntryStatus{
			Command:  entry.Command,
			Spec:     entry.Spec(),
			Disabled: entry.Disabled,
		}
		if !entry.Disabled {
			if next, err := entry.Next(now); err == nil {
				status.Next = next
			}
		}
		r.Entries = append(r.Entries, status)
	}

	return r
}

// FromRunner builds a schedule report from a live runner, including previous
// activations.
func FromRunner(path string, statuses []schedule.EntryStatus, now time.Time) ScheduleReport {
	return ScheduleReport{
		Path:        path,
		GeneratedAt: now,
		Entries:     statuses,
	}
}

// SettingsEntry is one settings key with its decoded value.
type SettingsEntry struct {
	Key   string `yaml:"key"`
	Kind  string `yaml:"kind"`
	Value any    `yaml:"value"`
}

// SettingsReport is the exportable view of a settings file.
type SettingsReport struct {
	Path        string          `yaml:"path,omitempty"`
	GeneratedAt time.Time       `yaml:"generated_at"`
	Keys        []SettingsEntry `yaml:"keys"`
}

// FromSettings builds a settings report from a parsed document, in file
// order.
func FromSettings(path string, doc *settings.Document, now time.Time) SettingsReport {
	r := SettingsReport{
		Path:        path,
		GeneratedAt: now,
		Keys:        make([]SettingsEntry, 0, doc.Len()),
	}

	for _, key := range doc.Keys() {
		v, _ := doc.Lookup(key)
		r.Keys = append(r.Keys, SettingsEntry{
			Key:   key,
			Kind:  v.Kind.String(),
			Value: v.Interface(),
		})
	}

	return r
}

// WriteYAML marshals the report to the writer.
func (r ScheduleReport) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	enc.SetIndent(2)
	return enc.Encode(r)
}

// WriteYAML marshals the report to the writer.
func (r SettingsReport) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	enc.SetIndent(2)
	return enc.Encode(r)
}
