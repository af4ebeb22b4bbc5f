package settings

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// lineKind classifies a preserved document line.
type lineKind int

const (
	lineBlank lineKind = iota
	lineComment
	linePair
)

// docLine preserves original line order so Write can reproduce the file.
type docLine struct {
	kind  lineKind
	text  string // Raw text for comments
	key   string
	value Value
}

// Document is the ordered in-memory model of a settings file.
type Document struct {
	lines []docLine
	index map[string]int // key -> index of last occurrence in lines
}

// NewDocument creates an empty settings document.
func NewDocument() *Document {
	return &Document{index: make(map[string]int)}
}

// Parse reads a settings file from r. Lines are key=value pairs with the key
// before the first '='; comments start with '#' and may trail a value; blank
// lines separate sections. Duplicate keys are preserved in the line list but
// the last occurrence wins, matching the consuming worker's loader.
func Parse(r io.Reader) (*Document, error) {
	doc := NewDocument()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		raw := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(raw)

		switch {
		case trimmed == "":
			doc.lines = append(doc.lines, docLine{kind: lineBlank})

		case strings.HasPrefix(trimmed, "#"):
			doc.lines = append(doc.lines, docLine{kind: lineComment, text: raw})

		default:
			idx := strings.Index(trimmed, "=")
			if idx <= 0 {
				return nil, fmt.Errorf("line %d: expected key=value, got %q", lineNum, trimmed)
			}

			key := strings.TrimSpace(trimmed[:idx])
			rest := trimmed[idx+1:]

			// Strip a trailing comment. Quoted values may legitimately
			// contain '#', so only strip outside quotes.
			rest = stripTrailingComment(rest)

			value, err := parseValue(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: key %q: %w", lineNum, key, err)
			}

			doc.lines = append(doc.lines, docLine{kind: linePair, key: key, value: value})
			doc.index[key] = len(doc.lines) - 1
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	return doc, nil
}

// ParseFile reads and parses the settings file at path.
func ParseFile(path string) (*Document, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings file: %w", err)
	}
	defer fh.Close()

	doc, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// stripTrailingComment removes a '#' comment that is not inside quotes.
func stripTrailingComment(s string) string {
	inQuote := false
	for i, r := range s {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == '#' && !inQuote:
			return strings.TrimSpace(s[:i])
		}
	}
	return strings.TrimSpace(s)
}

// Lookup returns the value bound to key, if present.
func (d *Document) Lookup(key string) (Value, bool) {
	idx, ok := d.index[key]
	if !ok {
		return Value{}, false
	}
	return d.lines[idx].value, true
}

// Keys returns all bound keys in file order. For duplicate keys only the
// winning occurrence is listed.
func (d *Document) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for i, line := range d.lines {
		if line.kind != linePair {
			continue
		}
		if d.index[line.key] != i || seen[line.key] {
			continue
		}
		seen[line.key] = true
		keys = append(keys, line.key)
	}
	return keys
}

// Len returns the number of distinct bound keys.
func (d *Document) Len() int { return len(d.index) }

// get fetches a value, reporting a missing key with its name.
func (d *Document) get(key string) (Value, error) {
	value, ok := d.Lookup(key)
	if !ok {
		return Value{}, fmt.Errorf("key %q not found", key)
	}
	return value, nil
}

// Str returns the string value bound to key.
func (d *Document) Str(key string) (string, error) {
	value, err := d.get(key)
	if err != nil {
		return "", err
	}
	s, err := value.Str()
	if err != nil {
		return "", fmt.Errorf("key %q: %w", key, err)
	}
	return s, nil
}

// StrList returns the string-list value bound to key.
func (d *Document) StrList(key string) ([]string, error) {
	value, err := d.get(key)
	if err != nil {
		return nil, err
	}
	list, err := value.StrList()
	if err != nil {
		return nil, fmt.Errorf("key %q: %w", key, err)
	}
	return list, nil
}

// Int returns the integer value bound to key.
func (d *Document) Int(key string) (int64, error) {
	value, err := d.get(key)
	if err != nil {
		return 0, err
	}
	i, err := value.Int()
	if err != nil {
		return 0, fmt.Errorf("key %q: %w", key, err)
	}
	return i, nil
}

// Float returns the float value bound to key. Integer literals are accepted.
func (d *Document) Float(key string) (float64, error) {
	value, err := d.get(key)
	if err != nil {
		return 0, err
	}
	f, err := value.Float()
	if err != nil {
		return 0, fmt.Errorf("key %q: %w", key, err)
	}
	return f, nil
}

// Flag returns the 0/1 flag value bound to key.
func (d *Document) Flag(key string) (bool, error) {
	value, err := d.get(key)
	if err != nil {
		return false, err
	}
	b, err := value.Flag()
	if err != nil {
		return false, fmt.Errorf("key %q: %w", key, err)
	}
	return b, nil
}

// IntList returns the bracketed integer list bound to key.
func (d *Document) IntList(key string) ([]int, error) {
	value, err := d.get(key)
	if err != nil {
		return nil, err
	}
	ints, err := value.IntList()
	if err != nil {
		return nil, fmt.Errorf("key %q: %w", key, err)
	}
	return ints, nil
}

// Set binds key to value, replacing the winning occurrence in place or
// appending a new line when the key is absent.
func (d *Document) Set(key string, value Value) {
	if idx, ok := d.index[key]; ok {
		d.lines[idx].value = value
		return
	}
	d.lines = append(d.lines, docLine{kind: linePair, key: key, value: value})
	d.index[key] = len(d.lines) - 1
}

// SetRaw parses a raw literal and binds it to key.
func (d *Document) SetRaw(key, raw string) error {
	value, err := parseValue(raw)
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	d.Set(key, value)
	return nil
}

// AppendComment appends a comment line to the document.
func (d *Document) AppendComment(text string) {
	d.lines = append(d.lines, docLine{kind: lineComment, text: "# " + text})
}

// AppendBlank appends a blank separator line.
func (d *Document) AppendBlank() {
	d.lines = append(d.lines, docLine{kind: lineBlank})
}

// Write serializes the document, reproducing comments and blank lines in
// their original order. Pairs are written as key=value with no spaces around
// the '='.
func (d *Document) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for _, line := range d.lines {
		var text string
		switch line.kind {
		case lineBlank:
			text = ""
		case lineComment:
			text = line.text
		case linePair:
			text = line.key + "=" + line.value.Raw()
		}
		if _, err := fmt.Fprintln(bw, text); err != nil {
			return fmt.Errorf("failed to write settings: %w", err)
		}
	}

	return bw.Flush()
}

// WriteFile serializes the document to the given path.
func (d *Document) WriteFile(path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer fh.Close()

	if err := d.Write(fh); err != nil {
		return err
	}
	return fh.Close()
}
