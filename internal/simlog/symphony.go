package simlog

import "regexp"

var (
	symphonyMessage    = regexp.MustCompile(`(REPORT|ASSERT): (NOTE|WARNING|ERROR|FAILURE) at (.+): (..+)`)
	symphonyBuildError = regexp.MustCompile(`(Error): (.+)`)
)

// Symphony scrapes the combined output of `make runsim` for the Sonata
// toolchain (vhdlp/vhdle).
type Symphony struct{}

func (Symphony) Messages(log string) []Message {
	log = normalizeNewlines(log)
	var out []Message
	for _, m := range symphonyMessage.FindAllStringSubmatch(log, -1) {
		sev, err := ParseSeverity(m[2])
		if err != nil {
			continue
		}
		msg := Message{Severity: sev, Text: m[4], Source: m[1]}
		if ps, ok := parseTime(m[3]); ok {
			msg.TimePS = ps
		}
		out = append(out, msg)
	}
	return out
}

func (Symphony) BuildErrors(log string) []string {
	log = normalizeNewlines(log)
	var out []string
	for _, m := range symphonyBuildError.FindAllStringSubmatch(log, -1) {
		out = append(out, m[2])
	}
	return out
}
