package makegen

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/robert-at-pretension-io/vhdl-make/internal/backend"
)

// Rule groups beyond the three manifest groups.
const (
	GroupAggregate = "aggregate"
	GroupBootstrap = "bootstrap"
)

// Aggregate target names.
const (
	TargetAll    = "all"
	TargetHW     = "hw"
	TargetComp   = "comp"
	TargetSim    = "sim"
	TargetRunSim = "runsim"
	TargetRun    = "run"
	TargetClean  = "clean"
)

// Rule is one Makefile rule block.
type Rule struct {
	Target  string   `json:"target"`
	Prereqs []string `json:"prereqs"`
	Recipe  []string `json:"recipe,omitempty"`
	Group   string   `json:"group"`
	Source  string   `json:"source,omitempty"`
	Library string   `json:"library,omitempty"`
	Phony   bool     `json:"phony,omitempty"`
}

// Script is a complete generated Makefile: header variables followed by
// ordered rule blocks. It is rendered once and never patched.
type Script struct {
	Backend   string             `json:"backend"`
	TopLevel  string             `json:"toplevel"`
	Variables []backend.Variable `json:"variables"`
	Libraries []string           `json:"libraries"`
	Rules     []Rule             `json:"rules"`
}

// Rule returns the rule producing target.
func (s *Script) Rule(target string) (Rule, bool) {
	for _, r := range s.Rules {
		if r.Target == target {
			return r, true
		}
	}
	return Rule{}, false
}

// PhonyTargets lists phony targets in rule order.
func (s *Script) PhonyTargets() []string {
	var out []string
	for _, r := range s.Rules {
		if r.Phony {
			out = append(out, r.Target)
		}
	}
	return out
}

// WriteTo renders the Makefile text.
func (s *Script) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	for _, v := range s.Variables {
		fmt.Fprintf(bw, "%s=%s\n", v.Name, v.Value)
	}
	if phony := s.PhonyTargets(); len(phony) > 0 {
		fmt.Fprintf(bw, "\n.PHONY: %s\n", strings.Join(phony, " "))
	}
	for _, r := range s.Rules {
		bw.WriteString("\n")
		writeRule(bw, r)
	}

	if err := bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// Bytes renders the Makefile text into memory.
func (s *Script) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = s.WriteTo(&buf)
	return buf.Bytes()
}

func writeRule(w *bufio.Writer, r Rule) {
	w.WriteString(r.Target)
	w.WriteString(":")
	if len(r.Prereqs) > 0 {
		w.WriteString(" ")
		w.WriteString(strings.Join(r.Prereqs, " "))
	}
	w.WriteString("\n")
	for _, line := range r.Recipe {
		w.WriteString("\t")
		w.WriteString(line)
		w.WriteString("\n")
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
