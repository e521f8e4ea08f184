package graph

import (
	"strconv"
	"strings"
)

// Delta captures rules and libraries that differ between two exports.
// A rule whose prerequisites or recipe changed shows up in both lists.
type Delta struct {
	AddedRules       []Rule   `json:"added_rules" yaml:"added_rules"`
	RemovedRules     []Rule   `json:"removed_rules" yaml:"removed_rules"`
	AddedLibraries   []string `json:"added_libraries" yaml:"added_libraries"`
	RemovedLibraries []string `json:"removed_libraries" yaml:"removed_libraries"`
}

// Empty reports whether the two graphs were equivalent.
func (d Delta) Empty() bool {
	return len(d.AddedRules) == 0 && len(d.RemovedRules) == 0 &&
		len(d.AddedLibraries) == 0 && len(d.RemovedLibraries) == 0
}

// ComputeDelta compares prev with next.
func ComputeDelta(prev, next *BuildGraph) Delta {
	if prev == nil {
		prev = &BuildGraph{}
	}
	if next == nil {
		next = &BuildGraph{}
	}
	return Delta{
		AddedRules:       diffRows(prev.Rules, next.Rules, ruleKey),
		RemovedRules:     diffRows(next.Rules, prev.Rules, ruleKey),
		AddedLibraries:   diffRows(prev.Libraries, next.Libraries, libraryKey),
		RemovedLibraries: diffRows(next.Libraries, prev.Libraries, libraryKey),
	}
}

func ruleKey(r Rule) string {
	return r.Target + "|" + strings.Join(r.Prereqs, " ") + "|" + strings.Join(r.Recipe, "\n") +
		"|" + r.Library + "|" + strconv.FormatBool(r.Phony)
}

func libraryKey(s string) string { return s }

// diffRows returns the rows of to that have no key-equal row in from.
func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]struct{}, len(from))
	for _, row := range from {
		fromSet[key(row)] = struct{}{}
	}
	diff := []T{}
	for _, row := range to {
		if _, ok := fromSet[key(row)]; !ok {
			diff = append(diff, row)
		}
	}
	return diff
}
