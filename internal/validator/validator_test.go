package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/vhdl-make/internal/graph"
)

func validGraph() *graph.BuildGraph {
	return &graph.BuildGraph{
		Backend:   "modelsim",
		TopLevel:  "tb",
		Libraries: []string{"work", "libA"},
		Rules: []graph.Rule{
			{Target: "all", Prereqs: []string{"hw", "comp", "sim"}, Group: "aggregate", Phony: true},
			{Target: "libA/foo/rtl.dat", Prereqs: []string{"libA/touched", "a.vhd"}, Recipe: []string{"mkdir -p libA", "$(VHDLC) -work libA a.vhd"}, Group: "hw", Source: "a.vhd", Library: "libA"},
			{Target: "hw", Prereqs: []string{"libA/foo/rtl.dat"}, Group: "aggregate", Phony: true},
			{Target: "comp", Prereqs: []string{}, Group: "aggregate", Phony: true},
			{Target: "sim", Prereqs: []string{}, Group: "aggregate", Phony: true},
			{Target: "libA/touched", Prereqs: []string{}, Recipe: []string{"$(VHDLL) libA", "touch libA/touched"}, Group: "bootstrap", Library: "libA"},
		},
	}
}

func TestBuildGraphContract(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(g *graph.BuildGraph)
		wantErr bool
	}{
		{name: "valid", mutate: func(*graph.BuildGraph) {}},
		{name: "empty toplevel allowed", mutate: func(g *graph.BuildGraph) { g.TopLevel = "" }},
		{name: "unknown backend", mutate: func(g *graph.BuildGraph) { g.Backend = "ghdl" }, wantErr: true},
		{name: "unknown group", mutate: func(g *graph.BuildGraph) { g.Rules[1].Group = "lib" }, wantErr: true},
		{name: "empty target", mutate: func(g *graph.BuildGraph) { g.Rules[1].Target = "" }, wantErr: true},
		{name: "bad library name", mutate: func(g *graph.BuildGraph) { g.Rules[1].Library = "lib-a" }, wantErr: true},
		{name: "no libraries", mutate: func(g *graph.BuildGraph) { g.Libraries = []string{} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGraph()
			tt.mutate(g)
			err := v.Validate(g)
			if tt.wantErr {
				assert.Error(t, err)
				assert.NotEmpty(t, v.ValidationErrors(g))
			} else {
				assert.NoError(t, err)
				assert.Nil(t, v.ValidationErrors(g))
			}
		})
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	err = v.ValidateJSON([]byte(`{"backend":"sonata","toplevel":"","libraries":["work"],"rules":[],"extra":1}`))
	assert.Error(t, err)

	err = v.ValidateJSON([]byte(`{"backend":"sonata","toplevel":"","libraries":["work"],"rules":[{"target":"all","prereqs":[],"group":"aggregate","deps":[]}]}`))
	assert.Error(t, err)
}

func TestMalformedJSON(t *testing.T) {
	v, err := New()
	require.NoError(t, err)
	assert.Error(t, v.ValidateJSON([]byte(`{"backend":`)))
}
