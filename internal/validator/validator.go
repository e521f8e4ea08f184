// Package validator guards the exported build graph with a CUE contract.
//
// Anything that reads the graph (the policy checks, external tooling)
// gets a document whose shape is fixed: a renamed field or a stray group
// name fails here, loudly, instead of making a rego rule quietly match
// nothing.
package validator

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed graph_schema.cue
var schemaFS embed.FS

const graphDefinition = "#BuildGraph"

// Validator checks build graphs against the embedded schema.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile("graph_schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	return &Validator{ctx: ctx, schema: schema}, nil
}

// Validate marshals data to JSON and unifies it with #BuildGraph.
func (v *Validator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling graph to JSON: %w", err)
	}
	return v.ValidateJSON(jsonBytes)
}

// ValidateJSON validates an already encoded graph.
func (v *Validator) ValidateJSON(jsonBytes []byte) error {
	unified, err := v.unify(jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("graph schema validation failed: %w", err)
	}
	return nil
}

// ValidationErrors returns one message per schema violation, or nil.
func (v *Validator) ValidationErrors(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}
	unified, err := v.unify(jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

func (v *Validator) unify(jsonBytes []byte) (cue.Value, error) {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling graph as CUE: %w", dataValue.Err())
	}

	def := v.schema.LookupPath(cue.ParsePath(graphDefinition))
	if def.Err() != nil {
		return cue.Value{}, fmt.Errorf("looking up %s definition: %w", graphDefinition, def.Err())
	}
	return def.Unify(dataValue), nil
}
