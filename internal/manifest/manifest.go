// Package manifest parses the line-oriented source list (sim.files) that
// drives Makefile generation.
//
// Format:
//
//	hw:                 # switch to the hardware group (the initial group)
//	rtl/core.vhd        # source compiled into the default work library
//	rtl/fifo.vhd libA   # source compiled into library libA
//	comp:               # switch to the component/testbench group
//	sim:                # switch to the simulation group
//	toplevel: tb_core   # top-level unit for the run target
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultName is the manifest file looked up in a simulation directory.
const DefaultName = "sim.files"

// Group identifies one of the three ordered source groups.
type Group string

const (
	GroupHW   Group = "hw"
	GroupComp Group = "comp"
	GroupSim  Group = "sim"
)

// Entry is one source file with its optional target library.
type Entry struct {
	Path    string `json:"path"`
	Library string `json:"library,omitempty"`
}

// HasLibrary reports whether the entry names an explicit library.
func (e Entry) HasLibrary() bool {
	return e.Library != ""
}

// Manifest is the parsed source list.
type Manifest struct {
	HW       []Entry `json:"hw"`
	Comp     []Entry `json:"comp"`
	Sim      []Entry `json:"sim"`
	TopLevel string  `json:"toplevel,omitempty"`
}

// Entries returns the entries of one group.
func (m *Manifest) Entries(g Group) []Entry {
	switch g {
	case GroupComp:
		return m.Comp
	case GroupSim:
		return m.Sim
	default:
		return m.HW
	}
}

// Len is the total number of entries across groups.
func (m *Manifest) Len() int {
	return len(m.HW) + len(m.Comp) + len(m.Sim)
}

// ParseError reports a malformed manifest line.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse reads a manifest. Group switch lines may appear in any order and
// any number of times; entries before the first switch belong to hw.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{}
	current := &m.HW

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			continue
		case line == "hw:":
			current = &m.HW
		case line == "comp:":
			current = &m.Comp
		case line == "sim:":
			current = &m.Sim
		case strings.HasPrefix(line, "toplevel:"):
			m.TopLevel = strings.TrimSpace(strings.TrimPrefix(line, "toplevel:"))
		default:
			fields := strings.Fields(line)
			if len(fields) > 2 {
				return nil, &ParseError{Line: lineNum, Text: line, Msg: "expected <path> [library]"}
			}
			entry := Entry{Path: fields[0]}
			if len(fields) == 2 {
				entry.Library = fields[1]
			}
			*current = append(*current, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return m, nil
}
