// Package crontab parses, validates and writes POSIX crontab schedule files.
// A schedule file consists of comment lines starting with '#', environment
// assignments such as PATH=..., and schedule entries of five timing fields
// followed by a command string. Field syntax is validated with the
// robfig/cron/v3 parser, so standard notation including '*' and '*/N' steps
// is supported.
package crontab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPath is the executable search path written into generated schedule
// files, matching the instrument's shell environment.
const DefaultPath = "/usr/local/sbin:/usr/local/bin:/sbin:/bin:/usr/sbin:/usr/bin"

// fieldParser accepts the five standard crontab timing fields.
var fieldParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Entry represents a single schedule line.
type Entry struct {
	Minute   string // Minute field (0-59, '*', '*/N', ...)
	Hour     string // Hour field (0-23, '*', '*/N', ...)
	Dom      string // Day-of-month field
	Month    string // Month field
	Dow      string // Day-of-week field
	Command  string // Command string executed verbatim by the shell
	Disabled bool   // True when the line is commented out

	lineNum int // 1-based line number in the source file, 0 for new entries
}

// Spec returns the five timing fields joined as a cron expression.
func (e Entry) Spec() string {
	return strings.Join([]string{e.Minute, e.Hour, e.Dom, e.Month, e.Dow}, " ")
}

// Schedule parses the entry's timing fields into a cron schedule.
func (e Entry) Schedule() (cron.Schedule, error) {
	sched, err := fieldParser.Parse(e.Spec())
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", e.Spec(), err)
	}
	return sched, nil
}

// Next returns the next activation time of the entry after the given time.
func (e Entry) Next(after time.Time) (time.Time, error) {
	sched, err := e.Schedule()
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(after), nil
}

// String renders the entry as a crontab line.
func (e Entry) String() string {
	line := e.Spec() + " " + e.Command
	if e.Disabled {
		return "# " + line
	}
	return line
}

// lineKind classifies a preserved file line.
type lineKind int

const (
	lineBlank lineKind = iota
	lineComment
	lineEnv
	lineEntry
)

// fileLine preserves the original line order so Write can reproduce the file.
type fileLine struct {
	kind  lineKind
	text  string // Raw text for comments and blanks, "KEY=VALUE" for env lines
	entry int    // Index into File.Entries for lineEntry
}

// File is the in-memory model of a crontab schedule file.
type File struct {
	Entries []Entry

	env   []string // Environment assignments in file order, "KEY=VALUE"
	lines []fileLine
}

// ClockTime is an (hour, minute) start time derived from a schedule entry.
type ClockTime struct {
	Hour   int
	Minute int
}

// Parse reads a crontab schedule file from r.
// Parsing is structural: schedule lines must split into at least six
// whitespace-separated fields, but timing field syntax is checked by Validate.
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		raw := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(raw)

		switch {
		case trimmed == "":
			f.lines = append(f.lines, fileLine{kind: lineBlank})

		case strings.HasPrefix(trimmed, "#"):
			// A commented-out schedule line is kept as a disabled entry so
			// Lookup can still find the command it names.
			body := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if entry, ok := parseEntryLine(body, lineNum); ok {
				entry.Disabled = true
				f.Entries = append(f.Entries, entry)
				f.lines = append(f.lines, fileLine{kind: lineEntry, entry: len(f.Entries) - 1})
			} else {
				f.lines = append(f.lines, fileLine{kind: lineComment, text: raw})
			}

		case isEnvAssignment(trimmed):
			f.env = append(f.env, trimmed)
			f.lines = append(f.lines, fileLine{kind: lineEnv, text: trimmed})

		default:
			entry, ok := parseEntryLine(trimmed, lineNum)
			if !ok {
				return nil, fmt.Errorf("line %d: expected 5 timing fields and a command, got %q", lineNum, trimmed)
			}
			f.Entries = append(f.Entries, entry)
			f.lines = append(f.lines, fileLine{kind: lineEntry, entry: len(f.Entries) - 1})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read crontab: %w", err)
	}

	return f, nil
}

// ParseFile reads and parses the crontab schedule file at path.
func ParseFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open crontab file: %w", err)
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// parseEntryLine splits a candidate schedule line into an Entry.
// Returns false if the line does not have six fields or the timing fields do
// not look like cron syntax at all (used to distinguish disabled entries from
// plain comments).
func parseEntryLine(line string, lineNum int) (Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return Entry{}, false
	}
	entry := Entry{
		Minute:  fields[0],
		Hour:    fields[1],
		Dom:     fields[2],
		Month:   fields[3],
		Dow:     fields[4],
		Command: strings.Join(fields[5:], " "),
		lineNum: lineNum,
	}
	for _, field := range fields[:5] {
		if !looksLikeCronField(field) {
			return Entry{}, false
		}
	}
	return entry, true
}

// looksLikeCronField is a cheap structural check used during parsing.
// Full syntax validation happens in Validate via the cron parser.
func looksLikeCronField(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '*' || r == '/' || r == ',' || r == '-':
		default:
			return false
		}
	}
	return s != ""
}

// isEnvAssignment reports whether the line is a NAME=VALUE assignment.
func isEnvAssignment(s string) bool {
	idx := strings.Index(s, "=")
	if idx <= 0 {
		return false
	}
	name := s[:idx]
	for i, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	// Require no whitespace before '=': a schedule line never matches.
	return !strings.ContainsAny(name, " \t")
}

// Validate checks every entry's timing fields against standard cron syntax
// and returns all problems found. It also reports, by convention, an
// environment assignment appearing after the first schedule entry.
func (f *File) Validate() []error {
	var errs []error

	for _, entry := range f.Entries {
		if _, err := fieldParser.Parse(entry.Spec()); err != nil {
			errs = append(errs, fmt.Errorf("line %d: invalid schedule %q: %w", entry.lineNum, entry.Spec(), err))
		}
		if entry.Command == "" {
			errs = append(errs, fmt.Errorf("line %d: empty command", entry.lineNum))
		}
	}

	seenEntry := false
	for _, line := range f.lines {
		switch line.kind {
		case lineEntry:
			seenEntry = true
		case lineEnv:
			if seenEntry {
				errs = append(errs, fmt.Errorf("environment assignment %q appears after a schedule entry", line.text))
			}
		}
	}

	return errs
}

// Env returns the value of an environment assignment in the file, if present.
func (f *File) Env(name string) (string, bool) {
	prefix := name + "="
	for _, assignment := range f.env {
		if strings.HasPrefix(assignment, prefix) {
			return strings.TrimPrefix(assignment, prefix), true
		}
	}
	return "", false
}

// Path returns the PATH assignment value, or the instrument default when the
// file carries none.
func (f *File) Path() string {
	if path, ok := f.Env("PATH"); ok {
		return path
	}
	return DefaultPath
}

// SetEnv sets or replaces an environment assignment. New assignments are
// placed before the first schedule entry.
func (f *File) SetEnv(name, value string) {
	assignment := name + "=" + value
	prefix := name + "="

	for i, existing := range f.env {
		if strings.HasPrefix(existing, prefix) {
			f.env[i] = assignment
			for j, line := range f.lines {
				if line.kind == lineEnv && strings.HasPrefix(line.text, prefix) {
					f.lines[j].text = assignment
				}
			}
			return
		}
	}

	f.env = append(f.env, assignment)
	newLine := fileLine{kind: lineEnv, text: assignment}
	for i, line := range f.lines {
		if line.kind == lineEntry {
			f.lines = append(f.lines[:i], append([]fileLine{newLine}, f.lines[i:]...)...)
			return
		}
	}
	f.lines = append(f.lines, newLine)
}

// Lookup finds, for each given command, the entry whose command string
// contains it and derives the entry's (hour, minute) start time.
//
// The derivation keeps the conventions of the instrument's schedule reader:
// when the hour field is '*' the entry runs on a minute interval, so hour is
// reported as 0 and the minute carries the interval, with '0 * * * *'
// (hourly) reported as minute 60 and '*/N' reported as N. Disabled entries
// report (0, 0).
func (f *File) Lookup(commands ...string) map[string]ClockTime {
	times := make(map[string]ClockTime)

	for _, entry := range f.Entries {
		for _, cmd := range commands {
			if !strings.Contains(entry.Command, cmd) {
				continue
			}

			if entry.Disabled {
				times[cmd] = ClockTime{}
				continue
			}

			minute := entry.Minute
			hour := entry.Hour
			if hour == "*" {
				hour = "0"
				if minute == "0" {
					minute = "60"
				} else if idx := strings.LastIndex(minute, "/"); idx >= 0 {
					minute = minute[idx+1:]
				}
			}

			var ct ClockTime
			fmt.Sscanf(hour, "%d", &ct.Hour)
			fmt.Sscanf(minute, "%d", &ct.Minute)
			times[cmd] = ct
		}
	}

	return times
}

// SetTime sets the daily start time of the entry whose command contains the
// given command string, appending a new entry when none matches.
func (f *File) SetTime(command string, t time.Time) {
	f.setFields(command, t.Format("4"), t.Format("15"))
}

// SetSpec replaces the full five-field schedule of the entry whose command
// contains the given command string, appending a new entry when none matches.
func (f *File) SetSpec(command, spec string) error {
	fields := strings.Fields(spec)
	if len(fields) != 5 {
		return fmt.Errorf("schedule %q must have exactly 5 fields", spec)
	}
	if _, err := fieldParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	for i := range f.Entries {
		if strings.Contains(f.Entries[i].Command, command) {
			f.Entries[i].Minute = fields[0]
			f.Entries[i].Hour = fields[1]
			f.Entries[i].Dom = fields[2]
			f.Entries[i].Month = fields[3]
			f.Entries[i].Dow = fields[4]
			return nil
		}
	}

	f.Entries = append(f.Entries, Entry{
		Minute:  fields[0],
		Hour:    fields[1],
		Dom:     fields[2],
		Month:   fields[3],
		Dow:     fields[4],
		Command: command,
	})
	f.lines = append(f.lines, fileLine{kind: lineEntry, entry: len(f.Entries) - 1})
	return nil
}

// setFields updates minute and hour for the matching entry, keeping the
// remaining fields daily ('* * *'), or appends a new daily entry.
func (f *File) setFields(command, minute, hour string) {
	for i := range f.Entries {
		if strings.Contains(f.Entries[i].Command, command) {
			f.Entries[i].Minute = minute
			f.Entries[i].Hour = hour
			f.Entries[i].Dom = "*"
			f.Entries[i].Month = "*"
			f.Entries[i].Dow = "*"
			return
		}
	}
	f.Entries = append(f.Entries, Entry{
		Minute:  minute,
		Hour:    hour,
		Dom:     "*",
		Month:   "*",
		Dow:     "*",
		Command: command,
	})
	f.lines = append(f.lines, fileLine{kind: lineEntry, entry: len(f.Entries) - 1})
}

// Write serializes the file, reproducing preserved comments, blank lines and
// environment assignments in their original order.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for _, line := range f.lines {
		var text string
		switch line.kind {
		case lineBlank:
			text = ""
		case lineComment, lineEnv:
			text = line.text
		case lineEntry:
			text = f.Entries[line.entry].String()
		}
		if _, err := fmt.Fprintln(bw, text); err != nil {
			return fmt.Errorf("failed to write crontab: %w", err)
		}
	}

	return bw.Flush()
}

// WriteFile serializes the schedule to the given path.
func (f *File) WriteFile(path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create crontab file: %w", err)
	}
	defer fh.Close()

	if err := f.Write(fh); err != nil {
		return err
	}
	return fh.Close()
}

// New creates an empty schedule file with the standard header comment and
// PATH assignment, the shape the instrument deployment scripts generate.
func New() *File {
	f := &File{}
	f.lines = append(f.lines, fileLine{kind: lineComment, text: "# Crontab schedule file written by camctl"})
	f.SetEnv("PATH", DefaultPath)
	return f
}
