// Package watchdog checks that the instrument is acquiring all three data
// products (on-band images, off-band images, co-added spectra) during its
// scheduled acquisition window, and restarts the acquisition when products
// are missing.
package watchdog

import (
	"fmt"
	"time"

	"github.com/openso2/camctl/internal/crontab"
)

// Window is the daily acquisition window derived from the schedule file's
// start and stop entries. Overnight windows (start after stop) are valid.
type Window struct {
	Start time.Time
	Stop  time.Time
}

// WindowFromSchedule derives today's acquisition window from the crontab
// entries whose commands contain startScript and stopScript. Equal start and
// stop times are rejected: the instrument would never settle into a defined
// state.
func WindowFromSchedule(file *crontab.File, startScript, stopScript string, now time.Time) (Window, error) {
	times := file.Lookup(startScript, stopScript)

	start, ok := times[startScript]
	if !ok {
		return Window{}, fmt.Errorf("schedule has no entry for start script %q", startScript)
	}
	stop, ok := times[stopScript]
	if !ok {
		return Window{}, fmt.Errorf("schedule has no entry for stop script %q", stopScript)
	}

	w := Window{
		Start: time.Date(now.Year(), now.Month(), now.Day(), start.Hour, start.Minute, 0, 0, now.Location()),
		Stop:  time.Date(now.Year(), now.Month(), now.Day(), stop.Hour, stop.Minute, 0, 0, now.Location()),
	}

	if w.Start.Equal(w.Stop) {
		return Window{}, fmt.Errorf("start and stop times are the same (%s), this is likely to lead to unexpected behaviour", w.Start.Format("15:04"))
	}

	return w, nil
}

// Contains reports whether t falls inside the acquisition window. For
// overnight windows the period wraps midnight.
func (w Window) Contains(t time.Time) bool {
	if w.Start.Before(w.Stop) {
		return !t.Before(w.Start) && !t.After(w.Stop)
	}
	// Overnight: acquiring from Start through midnight until Stop.
	return !t.Before(w.Start) || !t.After(w.Stop)
}

// Until returns the duration from t until the window next opens, or zero
// when t is already inside the window.
func (w Window) Until(t time.Time) time.Duration {
	if w.Contains(t) {
		return 0
	}
	start := w.Start
	if start.Before(t) {
		start = start.Add(24 * time.Hour)
	}
	return start.Sub(t)
}
