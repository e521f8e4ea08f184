package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/vhdl-make/internal/unit"
)

var (
	design = unit.Identity{BaseName: "a", EntityName: "foo", ArchitectureName: "rtl"}
	pkg    = unit.Identity{BaseName: "types", PackageName: "types_pkg", IsPackage: true}
)

func TestSonataPaths(t *testing.T) {
	s := NewSonata(Toolchain{})

	tests := []struct {
		name    string
		id      unit.Identity
		library string
		want    Artifact
	}{
		{name: "design_default", id: design, want: Artifact{Target: "$(WORKDIR)/a/_rtl.var"}},
		{name: "design_library", id: design, library: "libA", want: Artifact{Target: "libA.sym/a/_rtl.var", Library: "libA"}},
		{name: "package_default", id: pkg, want: Artifact{Target: "$(WORKDIR)/types/prim.var"}},
		{name: "package_library", id: pkg, library: "libA", want: Artifact{Target: "libA.sym/types/prim.var", Library: "libA"}},
		{name: "explicit_work_is_default", id: design, library: "work", want: Artifact{Target: "$(WORKDIR)/a/_rtl.var"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ResolvePath(tt.id, tt.library))
		})
	}
}

func TestModelsimPaths(t *testing.T) {
	m := NewModelsim(Toolchain{})

	tests := []struct {
		name    string
		id      unit.Identity
		library string
		want    Artifact
	}{
		{name: "design_default", id: design, want: Artifact{Target: "$(WORKDIR)/foo/rtl.dat"}},
		{name: "design_library", id: design, library: "libA", want: Artifact{Target: "libA/foo/rtl.dat", Library: "libA"}},
		{name: "package_default", id: pkg, want: Artifact{Target: "$(WORKDIR)/types/body.dat"}},
		{name: "package_library", id: pkg, library: "libA", want: Artifact{Target: "libA/types/body.dat", Library: "libA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.ResolvePath(tt.id, tt.library))
		})
	}
}

func TestResolvePathDeterministic(t *testing.T) {
	for _, name := range []string{"sonata", "modelsim"} {
		conv, err := New(name, Toolchain{})
		require.NoError(t, err)
		first := conv.ResolvePath(design, "libB")
		second := conv.ResolvePath(design, "libB")
		assert.Equal(t, first.Target, second.Target, name)
	}
}

func TestRecipes(t *testing.T) {
	s := NewSonata(Toolchain{})
	assert.Equal(t, []string{"$(VHDLC) -vital2000 a.vhd"}, s.CompileRecipe("a.vhd", ""))
	assert.Equal(t, []string{"$(VHDLC) -vital2000 -work libA a.vhd"}, s.CompileRecipe("a.vhd", "libA"))
	assert.Equal(t, []string{"rm -Rf *.sym"}, s.CleanRecipe([]string{"work", "libA"}))
	assert.False(t, s.NeedsLibraryBootstrap())

	m := NewModelsim(Toolchain{CompilerFlags: "-2008"})
	assert.Equal(t, []string{"mkdir -p $(WORKDIR)", "$(VHDLC) -2008 a.vhd"}, m.CompileRecipe("a.vhd", ""))
	assert.Equal(t, []string{"mkdir -p libA", "$(VHDLC) -2008 -work libA a.vhd"}, m.CompileRecipe("a.vhd", "libA"))
	assert.Equal(t, []string{"$(VHDLL) libA", "touch libA/touched"}, m.BootstrapRecipe("libA"))
	assert.Equal(t, []string{"rm -Rf $(WORKDIR) libA"}, m.CleanRecipe([]string{"work", "libA"}))
	assert.Equal(t, "$(WORKDIR)/touched", m.SentinelPath(""))
	assert.True(t, m.NeedsLibraryBootstrap())
	assert.Equal(t, []string{"$(VHDLS) $(TOPLEVEL)"}, m.RunRecipe())
}

func TestToolchainOverrides(t *testing.T) {
	m := NewModelsim(Toolchain{Compiler: "qcom", WorkLibrary: "scratch"})
	vars := m.Variables("top")
	assert.Contains(t, vars, Variable{Name: "VHDLC", Value: "qcom"})
	assert.Contains(t, vars, Variable{Name: "WORKDIR", Value: "scratch"})
	assert.Contains(t, vars, Variable{Name: "TOPLEVEL", Value: "top"})
	assert.Equal(t, "$(WORKDIR)", m.LibraryRoot("scratch"))

	s := NewSonata(Toolchain{})
	assert.Equal(t, "work.sym", s.WorkDir())
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("ghdl", Toolchain{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modelsim")

	conv, err := New("Symphony", Toolchain{})
	require.NoError(t, err)
	assert.Equal(t, "sonata", conv.Name())
	assert.Equal(t, unit.ByFile, conv.Strategy())
}
