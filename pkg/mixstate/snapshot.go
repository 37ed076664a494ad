package mixstate

import (
	"fmt"
	"strconv"
	"strings"
)

// Separator joins values in frames and persisted snapshots
const Separator = "|"

// FrameTerminator ends every outbound serial frame
const FrameTerminator = "\r\n"

// Snapshot is an ordered copy of the five channel values
type Snapshot [NumChannels]int

// DefaultSnapshot has every channel at its maximum value
func DefaultSnapshot() Snapshot {
	var s Snapshot
	for i := range s {
		s[i] = MaxValue
	}
	return s
}

// String renders the snapshot as v0|v1|v2|v3|v4
func (s Snapshot) String() string {
	parts := make([]string, NumChannels)
	for i, v := range s {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, Separator)
}

// Frame renders the snapshot as a serial frame terminated by CRLF
func (s Snapshot) Frame() string {
	return s.String() + FrameTerminator
}

// FieldError describes one field that could not be used
type FieldError struct {
	Index  int
	Token  string
	Reason string
}

// ParseError lists every field a fail-soft parse had to skip.
// The snapshot returned alongside it is still usable.
type ParseError struct {
	Line   string
	Fields []FieldError
}

func (e *ParseError) Error() string {
	reasons := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		reasons[i] = fmt.Sprintf("field %d %q: %s", f.Index, f.Token, f.Reason)
	}
	return fmt.Sprintf("malformed snapshot %q: %s", e.Line, strings.Join(reasons, "; "))
}

// ParseSnapshot assigns the integers of line positionally over defaults.
// Non-numeric tokens and missing fields keep the default, values are clamped
// and extra fields are ignored. A *ParseError is returned when anything had
// to be skipped; the snapshot is valid either way.
func ParseSnapshot(line string, defaults Snapshot) (Snapshot, error) {
	snap := defaults
	line = strings.TrimRight(line, "\r\n")

	var fieldErrs []FieldError
	tokens := strings.Split(line, Separator)
	if strings.TrimSpace(line) == "" {
		tokens = nil
	}

	for i, tok := range tokens {
		if i >= NumChannels {
			fieldErrs = append(fieldErrs, FieldError{Index: i, Token: tok, Reason: "extra field ignored"})
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			fieldErrs = append(fieldErrs, FieldError{Index: i, Token: tok, Reason: "not an integer"})
			continue
		}
		if v != Clamp(v) {
			fieldErrs = append(fieldErrs, FieldError{Index: i, Token: tok, Reason: "out of range, clamped"})
		}
		snap[i] = Clamp(v)
	}
	for i := len(tokens); i < NumChannels; i++ {
		fieldErrs = append(fieldErrs, FieldError{Index: i, Reason: "missing, default kept"})
	}

	if len(fieldErrs) > 0 {
		return snap, &ParseError{Line: line, Fields: fieldErrs}
	}
	return snap, nil
}

// ParseFrame strictly parses a serial frame. Exactly five in-range integers
// are required; the CRLF terminator is optional.
func ParseFrame(frame string) (Snapshot, error) {
	snap, err := ParseSnapshot(frame, Snapshot{})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
