package simlog

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// A vsim transcript message is a "** Severity: text" header, any number
// of continuation lines, then a "Time:" line naming the process or
// instance that raised it. A header followed by another header before any
// Time line is a compile or load error, not an assertion.
var (
	modelsimHeader = regexp.MustCompile(`^(?:# )?\*\* (Note|Warning|Error|Failure): (.+)$`)
	modelsimTime   = regexp.MustCompile(`^#    Time: (\d+) (\w+) .+(Process|Instance): ([\w/]+)`)
)

// Modelsim scrapes vsim -c transcripts.
type Modelsim struct{}

func (Modelsim) Messages(log string) []Message {
	msgs, _ := scanModelsim(log)
	return msgs
}

// BuildErrors returns "** Error" headers that have no Time line attached.
func (Modelsim) BuildErrors(log string) []string {
	_, errs := scanModelsim(log)
	return errs
}

func scanModelsim(log string) ([]Message, []string) {
	var (
		msgs    []Message
		errs    []string
		pending *Message
	)
	orphan := func() {
		if pending != nil && pending.Severity == Error {
			errs = append(errs, pending.Text)
		}
		pending = nil
	}

	sc := bufio.NewScanner(strings.NewReader(normalizeNewlines(log)))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if m := modelsimHeader.FindStringSubmatch(line); m != nil {
			orphan()
			sev, err := ParseSeverity(m[1])
			if err != nil {
				continue
			}
			pending = &Message{Severity: sev, Text: m[2]}
			continue
		}
		if pending == nil {
			continue
		}
		if m := modelsimTime.FindStringSubmatch(line); m != nil {
			msg := *pending
			msg.Source = m[3] + ":" + m[4]
			if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				if ps, err := ToPicoseconds(v, m[2]); err == nil {
					msg.TimePS = ps
				}
			}
			msgs = append(msgs, msg)
			pending = nil
		}
	}
	orphan()
	return msgs, errs
}
