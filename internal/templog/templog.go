// Package templog reads the instrument's temperature log. Each line holds a
// timestamp and a temperature, e.g. "2024-06-01 12:00:00 23.5°C". Logs
// written on the instrument frequently come back with the degree sign
// mangled ("Â°C"): the sensor script writes UTF-8 but transfer tools on the
// way re-encode the file as Latin-1. Both forms are accepted.
package templog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// TimeLayout is the timestamp layout used in temperature log lines.
const TimeLayout = "2006-01-02 15:04:05"

// Reading is one temperature measurement.
type Reading struct {
	Time    time.Time
	Celsius float64
}

// Parse reads temperature log lines. Blank lines and lines that do not parse
// are skipped; a log rarely survives a power cut without a torn line at the
// end.
func Parse(r io.Reader) ([]Reading, error) {
	var readings []Reading

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := decodeLine(scanner.Bytes())
		if strings.TrimSpace(line) == "" {
			continue
		}
		reading, err := parseLine(line)
		if err != nil {
			continue
		}
		readings = append(readings, reading)
	}
	if err := scanner.Err(); err != nil {
		return readings, fmt.Errorf("failed to read temperature log: %w", err)
	}

	return readings, nil
}

// ParseFile reads a temperature log from disk.
func ParseFile(path string) ([]Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Latest returns the most recent reading in the log file.
func Latest(path string) (Reading, error) {
	readings, err := ParseFile(path)
	if err != nil {
		return Reading{}, err
	}
	if len(readings) == 0 {
		return Reading{}, fmt.Errorf("no readings in %s", path)
	}
	return readings[len(readings)-1], nil
}

// Stats summarizes a temperature log.
type Stats struct {
	Latest Reading
	Min    Reading
	Max    Reading
	Count  int
}

// Summarize computes the latest, minimum and maximum readings.
func Summarize(readings []Reading) (Stats, error) {
	if len(readings) == 0 {
		return Stats{}, fmt.Errorf("no readings")
	}

	stats := Stats{
		Latest: readings[len(readings)-1],
		Min:    readings[0],
		Max:    readings[0],
		Count:  len(readings),
	}
	for _, r := range readings[1:] {
		if r.Celsius < stats.Min.Celsius {
			stats.Min = r
		}
		if r.Celsius > stats.Max.Celsius {
			stats.Max = r
		}
	}
	return stats, nil
}

// decodeLine returns the line as valid UTF-8, re-decoding Latin-1 bytes when
// the raw line is not valid UTF-8.
func decodeLine(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

func parseLine(line string) (Reading, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Reading{}, fmt.Errorf("expected timestamp and temperature, got %q", line)
	}

	ts, err := time.ParseInLocation(TimeLayout, fields[0]+" "+fields[1], time.Local)
	if err != nil {
		return Reading{}, fmt.Errorf("bad timestamp in %q: %w", line, err)
	}

	// Strip the unit along with whatever the degree sign got mangled into.
	value := strings.TrimRightFunc(fields[2], func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != '-'
	})
	celsius, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("bad temperature in %q: %w", line, err)
	}

	return Reading{Time: ts, Celsius: celsius}, nil
}
