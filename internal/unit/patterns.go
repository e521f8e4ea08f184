package unit

import (
	"regexp"
	"strings"
)

var (
	// Pattern: entity <name> is
	entityPattern = regexp.MustCompile(`(?i)\bentity\s+(\w+)\s+is\b`)

	// Pattern: architecture <name> of <entity> is
	archPattern = regexp.MustCompile(`(?i)\barchitecture\s+(\w+)\s+of\s+(\w+)\s+is\b`)

	// Pattern: package <name> is
	// "package body <name> is" never matches: "body" is followed by a name, not "is".
	packagePattern = regexp.MustCompile(`(?i)\bpackage\s+(\w+)\s+is\b`)

	// Pattern: -- comment to end of line
	commentPattern = regexp.MustCompile(`--[^\n]*`)
)

// stripComments blanks out VHDL line comments so keywords inside them
// are not mistaken for declarations.
func stripComments(text string) string {
	if !strings.Contains(text, "--") {
		return text
	}
	return commentPattern.ReplaceAllString(text, "")
}

// matchEntities returns the names of all entity declarations in order
func matchEntities(text string) []string {
	var names []string
	for _, m := range entityPattern.FindAllStringSubmatch(text, -1) {
		names = append(names, m[1])
	}
	return names
}

// matchArchitectures returns [name, entity] pairs for all architecture bodies
func matchArchitectures(text string) []architecture {
	var archs []architecture
	for _, m := range archPattern.FindAllStringSubmatch(text, -1) {
		archs = append(archs, architecture{Name: m[1], Entity: m[2]})
	}
	return archs
}

// matchPackages returns the names of all package declarations in order
func matchPackages(text string) []string {
	var names []string
	for _, m := range packagePattern.FindAllStringSubmatch(text, -1) {
		names = append(names, m[1])
	}
	return names
}
