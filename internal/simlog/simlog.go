// Package simlog scrapes assertion and report messages out of simulator
// transcripts.
package simlog

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity is a VHDL assertion severity level.
type Severity int

const (
	Note Severity = iota
	Warning
	Error
	Failure
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Failure:
		return "failure"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalText makes severities readable in JSON reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSeverity accepts a severity name in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "note":
		return Note, nil
	case "warning":
		return Warning, nil
	case "error":
		return Error, nil
	case "failure":
		return Failure, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// Message is one scraped simulator message.
type Message struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
	// TimePS is the simulation time in picoseconds, 0 when the log does not
	// carry one.
	TimePS int64  `json:"time_ps"`
	Source string `json:"source,omitempty"`
}

// Scraper extracts messages from one simulator's transcript format.
type Scraper interface {
	// Messages returns every assertion or report in log order.
	Messages(log string) []Message
	// BuildErrors returns compile-time error lines.
	BuildErrors(log string) []string
}

// ForBackend returns the scraper for a backend name.
func ForBackend(name string) (Scraper, error) {
	switch strings.ToLower(name) {
	case "modelsim", "questa":
		return Modelsim{}, nil
	case "sonata", "symphony":
		return Symphony{}, nil
	}
	return nil, fmt.Errorf("no log scraper for backend %q", name)
}

// Filter returns the messages of severity sev.
func Filter(msgs []Message, sev Severity) []Message {
	var out []Message
	for _, m := range msgs {
		if m.Severity == sev {
			out = append(out, m)
		}
	}
	return out
}

// Count returns the number of messages per severity.
func Count(msgs []Message) map[Severity]int {
	out := make(map[Severity]int, 4)
	for _, m := range msgs {
		out[m.Severity]++
	}
	return out
}

var unitScale = map[string]int64{
	"ps":  1,
	"ns":  1_000,
	"us":  1_000_000,
	"ms":  1_000_000_000,
	"sec": 1_000_000_000_000,
	"s":   1_000_000_000_000,
}

// ToPicoseconds converts value in unit to picoseconds. Femtoseconds are
// truncated.
func ToPicoseconds(value int64, unit string) (int64, error) {
	unit = strings.ToLower(unit)
	if unit == "fs" {
		return value / 1_000, nil
	}
	scale, ok := unitScale[unit]
	if !ok {
		return 0, fmt.Errorf("unknown time unit %q", unit)
	}
	return value * scale, nil
}

// parseTime reads "<n> <unit>" (or "<n><unit>").
func parseTime(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	value, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(s[i:])
	if len(fields) == 0 {
		return 0, false
	}
	ps, err := ToPicoseconds(value, fields[0])
	if err != nil {
		return 0, false
	}
	return ps, true
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
