// Package settings implements the flat key=value settings format consumed by
// the plume-processing worker. Each line binds a name to a literal: a
// single-quoted string (comma-separated when multi-valued), a bare integer or
// float (scientific notation included), a 0/1 flag, or a bracketed integer
// list such as a rectangular image region. The grammar is ad hoc rather than
// INI/JSON, so values of different types share one flat namespace.
package settings

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the literal type of a settings value.
type Kind int

const (
	KindString Kind = iota
	KindStringList
	KindInt
	KindFloat
	KindIntList
)

// String returns a human-readable kind name for error messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindStringList:
		return "string list"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindIntList:
		return "int list"
	default:
		return "unknown"
	}
}

// Value is a decoded settings literal together with its raw source form.
type Value struct {
	Kind Kind

	raw  string
	str  string
	strs []string
	i    int64
	f    float64
	ints []int
}

// parseValue classifies and decodes a raw literal.
func parseValue(raw string) (Value, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Value{Kind: KindString, raw: trimmed}, nil
	}

	switch {
	case strings.HasPrefix(trimmed, "'"):
		return parseQuoted(trimmed)
	case strings.HasPrefix(trimmed, "["):
		return parseIntList(trimmed)
	default:
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return Value{Kind: KindInt, raw: trimmed, i: i, f: float64(i)}, nil
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Value{Kind: KindFloat, raw: trimmed, f: f}, nil
		}
		// The consuming worker treated anything else as an opaque string.
		return Value{Kind: KindString, raw: trimmed, str: trimmed, strs: []string{trimmed}}, nil
	}
}

// parseQuoted decodes one or more single-quoted strings separated by commas.
func parseQuoted(raw string) (Value, error) {
	items, err := splitQuotedList(raw)
	if err != nil {
		return Value{}, err
	}

	if len(items) == 1 {
		return Value{Kind: KindString, raw: raw, str: items[0], strs: items}, nil
	}
	return Value{Kind: KindStringList, raw: raw, str: items[0], strs: items}, nil
}

// splitQuotedList splits on commas outside quotes and unquotes each item.
func splitQuotedList(raw string) ([]string, error) {
	var items []string
	var current strings.Builder
	inQuote := false

	for _, r := range raw {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			items = append(items, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote in %q", raw)
	}
	items = append(items, strings.TrimSpace(current.String()))

	return items, nil
}

// parseIntList decodes a bracketed comma-separated integer list.
func parseIntList(raw string) (Value, error) {
	if !strings.HasSuffix(raw, "]") {
		return Value{}, fmt.Errorf("unterminated list in %q", raw)
	}

	body := strings.TrimSpace(raw[1 : len(raw)-1])
	if body == "" {
		return Value{Kind: KindIntList, raw: raw}, nil
	}

	parts := strings.Split(body, ",")
	ints := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Value{}, fmt.Errorf("list element %q is not an integer", strings.TrimSpace(part))
		}
		ints = append(ints, n)
	}

	return Value{Kind: KindIntList, raw: raw, ints: ints}, nil
}

// Raw returns the literal as written in the file.
func (v Value) Raw() string { return v.raw }

// Str returns the value as a string.
func (v Value) Str() (string, error) {
	if v.Kind != KindString {
		return "", fmt.Errorf("value is %s, not string", v.Kind)
	}
	return v.str, nil
}

// StrList returns the value as a list of strings. A single quoted string is
// returned as a one-element list.
func (v Value) StrList() ([]string, error) {
	if v.Kind != KindString && v.Kind != KindStringList {
		return nil, fmt.Errorf("value is %s, not string list", v.Kind)
	}
	return v.strs, nil
}

// Int returns the value as an integer.
func (v Value) Int() (int64, error) {
	if v.Kind != KindInt {
		return 0, fmt.Errorf("value is %s, not int", v.Kind)
	}
	return v.i, nil
}

// Float returns the value as a float. Integer literals are accepted.
func (v Value) Float() (float64, error) {
	if v.Kind != KindFloat && v.Kind != KindInt {
		return 0, fmt.Errorf("value is %s, not float", v.Kind)
	}
	return v.f, nil
}

// Flag returns the value as a boolean. Flags are written as integers and must
// be exactly 0 or 1.
func (v Value) Flag() (bool, error) {
	if v.Kind != KindInt {
		return false, fmt.Errorf("value is %s, not a 0/1 flag", v.Kind)
	}
	switch v.i {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("flag value must be 0 or 1, got %d", v.i)
	}
}

// IntList returns the value as a list of integers.
func (v Value) IntList() ([]int, error) {
	if v.Kind != KindIntList {
		return nil, fmt.Errorf("value is %s, not int list", v.Kind)
	}
	return v.ints, nil
}

// Interface returns the decoded value as a plain Go value, for report and
// export output.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.str
	case KindStringList:
		return v.strs
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindIntList:
		return v.ints
	default:
		return v.raw
	}
}

// String constructs a single-quoted string value.
func String(s string) Value {
	return Value{Kind: KindString, raw: "'" + s + "'", str: s, strs: []string{s}}
}

// StringList constructs a comma-separated quoted string list value.
func StringList(items ...string) Value {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	v := Value{Kind: KindStringList, raw: strings.Join(quoted, ","), strs: items}
	if len(items) > 0 {
		v.str = items[0]
	}
	if len(items) == 1 {
		v.Kind = KindString
	}
	return v
}

// Int constructs an integer value. Flags are integers with value 0 or 1.
func Int(i int64) Value {
	return Value{Kind: KindInt, raw: strconv.FormatInt(i, 10), i: i, f: float64(i)}
}

// Flag constructs a 0/1 flag value.
func Flag(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// Float constructs a float value. The literal uses the shortest form that
// round-trips, so large magnitudes keep scientific notation (5e+16).
func Float(f float64) Value {
	return Value{Kind: KindFloat, raw: strconv.FormatFloat(f, 'g', -1, 64), f: f}
}

// IntList constructs a bracketed integer list value.
func IntList(items ...int) Value {
	parts := make([]string, len(items))
	for i, n := range items {
		parts[i] = strconv.Itoa(n)
	}
	return Value{Kind: KindIntList, raw: "[" + strings.Join(parts, ", ") + "]", ints: items}
}
