// Package policy runs rego checks over an exported build graph.
package policy

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/robert-at-pretension-io/vhdl-make/internal/graph"
)

//go:embed rules/*.rego
var rulesFS embed.FS

const (
	violationsQuery = "data.vhdlmake.checks.violations"
	summaryQuery    = "data.vhdlmake.checks.summary"
)

// Engine evaluates the build-graph checks.
type Engine struct {
	queries map[string]rego.PreparedEvalQuery
}

// Violation is one failed check.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Target   string `json:"target"`
	Message  string `json:"message"`
}

// Result contains the evaluation results.
type Result struct {
	Violations []Violation `json:"violations"`
	Summary    Summary     `json:"summary"`
}

// Summary provides aggregate counts.
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// HasErrors reports whether any error-severity violation was found.
func (r *Result) HasErrors() bool {
	return r.Summary.Errors > 0
}

// New prepares the embedded checks plus every .rego file found in
// extraDirs. Extra modules must use package vhdlmake.checks to add to the
// violation set.
func New(ctx context.Context, extraDirs ...string) (*Engine, error) {
	var modules []func(*rego.Rego)

	embedded, err := rulesFS.ReadDir("rules")
	if err != nil {
		return nil, fmt.Errorf("listing embedded policies: %w", err)
	}
	for _, e := range embedded {
		name := "rules/" + e.Name()
		content, err := rulesFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		modules = append(modules, rego.Module(name, string(content)))
	}

	for _, dir := range extraDirs {
		files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
		if err != nil {
			return nil, fmt.Errorf("finding policy files: %w", err)
		}
		for _, f := range files {
			content, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", f, err)
			}
			modules = append(modules, rego.Module(f, string(content)))
		}
	}

	engine := &Engine{queries: make(map[string]rego.PreparedEvalQuery)}
	for key, q := range map[string]string{"violations": violationsQuery, "summary": summaryQuery} {
		opts := append(append([]func(*rego.Rego){}, modules...), rego.Query(q))
		query, err := rego.New(opts...).PrepareForEval(ctx)
		if err != nil {
			return nil, fmt.Errorf("preparing %s query: %w", key, err)
		}
		engine.queries[key] = query
	}
	return engine, nil
}

// Evaluate runs the checks against g.
func (e *Engine) Evaluate(ctx context.Context, g *graph.BuildGraph) (*Result, error) {
	inputMap, err := structToMap(g)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	result := &Result{Violations: []Violation{}}

	rs, err := e.queries["violations"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if violations, ok := rs[0].Expressions[0].Value.([]interface{}); ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				result.Violations = append(result.Violations, Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					Target:   getString(vmap, "target"),
					Message:  getString(vmap, "message"),
				})
			}
		}
	}
	sort.Slice(result.Violations, func(i, j int) bool {
		a, b := result.Violations[i], result.Violations[j]
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Message < b.Message
	})

	rs, err = e.queries["summary"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating summary: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if smap, ok := rs[0].Expressions[0].Value.(map[string]interface{}); ok {
			result.Summary = Summary{
				TotalViolations: getInt(smap, "total_violations"),
				Errors:          getInt(smap, "errors"),
				Warnings:        getInt(smap, "warnings"),
				Info:            getInt(smap, "info"),
			}
		}
	}

	return result, nil
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
