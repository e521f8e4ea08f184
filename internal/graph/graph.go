// Package graph is the machine-readable form of a generated build script.
// It is what the validator and policy checks consume and what `graph`
// writes next to the Makefile.
package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robert-at-pretension-io/vhdl-make/internal/makegen"
)

// Format selects the serialization of an exported graph.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown graph format %q", s)
}

// FormatForPath picks the format from a file extension, JSON by default.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// BuildGraph is one generated script as data.
type BuildGraph struct {
	Backend   string   `json:"backend" yaml:"backend"`
	TopLevel  string   `json:"toplevel" yaml:"toplevel"`
	Libraries []string `json:"libraries" yaml:"libraries"`
	Rules     []Rule   `json:"rules" yaml:"rules"`
}

// Rule mirrors makegen.Rule.
type Rule struct {
	Target  string   `json:"target" yaml:"target"`
	Prereqs []string `json:"prereqs" yaml:"prereqs"`
	Recipe  []string `json:"recipe,omitempty" yaml:"recipe,omitempty"`
	Group   string   `json:"group" yaml:"group"`
	Source  string   `json:"source,omitempty" yaml:"source,omitempty"`
	Library string   `json:"library,omitempty" yaml:"library,omitempty"`
	Phony   bool     `json:"phony,omitempty" yaml:"phony,omitempty"`
}

// FromScript copies a generated script into a BuildGraph.
func FromScript(s *makegen.Script) *BuildGraph {
	g := &BuildGraph{
		Backend:   s.Backend,
		TopLevel:  s.TopLevel,
		Libraries: append([]string{}, s.Libraries...),
		Rules:     make([]Rule, 0, len(s.Rules)),
	}
	for _, r := range s.Rules {
		g.Rules = append(g.Rules, Rule{
			Target:  r.Target,
			Prereqs: append([]string{}, r.Prereqs...),
			Recipe:  append([]string(nil), r.Recipe...),
			Group:   r.Group,
			Source:  r.Source,
			Library: r.Library,
			Phony:   r.Phony,
		})
	}
	return g
}

// Rule returns the rule producing target.
func (g *BuildGraph) Rule(target string) (Rule, bool) {
	for _, r := range g.Rules {
		if r.Target == target {
			return r, true
		}
	}
	return Rule{}, false
}

// Targets returns every rule target in order.
func (g *BuildGraph) Targets() []string {
	out := make([]string, 0, len(g.Rules))
	for _, r := range g.Rules {
		out = append(out, r.Target)
	}
	return out
}

// Encode writes g to w in the given format.
func Encode(w io.Writer, g *BuildGraph, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(g); err != nil {
			return fmt.Errorf("encode graph yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(g); err != nil {
			return fmt.Errorf("encode graph json: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown graph format %q", format)
}

// Decode reads a graph written by Encode.
func Decode(r io.Reader, format Format) (*BuildGraph, error) {
	var g BuildGraph
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&g); err != nil {
			return nil, fmt.Errorf("decode graph yaml: %w", err)
		}
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&g); err != nil {
			return nil, fmt.Errorf("decode graph json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown graph format %q", format)
	}
	for i := range g.Rules {
		if g.Rules[i].Prereqs == nil {
			g.Rules[i].Prereqs = []string{}
		}
	}
	return &g, nil
}

// Load reads a graph file, choosing the format from its extension.
func Load(path string) (*BuildGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := Decode(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// WriteFile encodes g by the extension of path and replaces the file
// atomically.
func WriteFile(path string, g *BuildGraph) error {
	var buf bytes.Buffer
	if err := Encode(&buf, g, FormatForPath(path)); err != nil {
		return err
	}
	return makegen.WriteAtomic(path, buf.Bytes())
}
