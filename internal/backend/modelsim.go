package backend

import (
	"path"
	"strings"

	"github.com/robert-at-pretension-io/vhdl-make/internal/unit"
)

// Modelsim is the Mentor Modelsim/Questa convention (vcom/vsim/vlib).
// Each unit gets a directory named after its entity; libraries must be
// created with vlib before the first compile.
type Modelsim struct {
	tc Toolchain
}

// NewModelsim creates the Modelsim convention with tc's overrides applied.
func NewModelsim(tc Toolchain) *Modelsim {
	tc.Compiler = orDefault(tc.Compiler, "vcom")
	tc.Simulator = orDefault(tc.Simulator, "vsim")
	tc.LibraryTool = orDefault(tc.LibraryTool, "vlib")
	tc.WorkLibrary = orDefault(tc.WorkLibrary, DefaultWorkLibrary)
	return &Modelsim{tc: tc}
}

func (m *Modelsim) Name() string { return "modelsim" }

func (m *Modelsim) Strategy() unit.Strategy { return unit.ByEntity }

func (m *Modelsim) WorkLibrary() string { return m.tc.WorkLibrary }

func (m *Modelsim) WorkDir() string { return m.tc.WorkLibrary }

func (m *Modelsim) LibraryRoot(library string) string {
	if IsDefaultLibrary(library, m.tc.WorkLibrary) {
		return WorkDirVar
	}
	return library
}

// ResolvePath returns <root>/<entity>/<arch>.dat for designs and
// <root>/<file>/body.dat for packages.
func (m *Modelsim) ResolvePath(id unit.Identity, library string) Artifact {
	root := m.LibraryRoot(library)
	var target string
	if id.IsPackage {
		target = path.Join(root, id.BaseName, "body.dat")
	} else {
		entity := id.EntityName
		if entity == "" {
			entity = id.BaseName
		}
		target = path.Join(root, strings.ToLower(entity), strings.ToLower(id.ArchitectureName)+".dat")
	}
	lib := library
	if IsDefaultLibrary(library, m.tc.WorkLibrary) {
		lib = ""
	}
	return Artifact{Target: target, Library: lib}
}

func (m *Modelsim) NeedsLibraryBootstrap() bool { return true }

func (m *Modelsim) SentinelPath(library string) string {
	return path.Join(m.LibraryRoot(library), "touched")
}

func (m *Modelsim) Variables(toplevel string) []Variable {
	return []Variable{
		{Name: "VHDLC", Value: m.tc.Compiler},
		{Name: "VHDLS", Value: m.tc.Simulator},
		{Name: "VHDLL", Value: m.tc.LibraryTool},
		{Name: "WORKDIR", Value: m.WorkDir()},
		{Name: "TOPLEVEL", Value: toplevel},
	}
}

func (m *Modelsim) CompileRecipe(file, library string) []string {
	work := ""
	if !IsDefaultLibrary(library, m.tc.WorkLibrary) {
		work = "-work " + library
	}
	return []string{
		"mkdir -p " + m.LibraryRoot(library),
		joinArgs("$(VHDLC)", m.tc.CompilerFlags, work, file),
	}
}

func (m *Modelsim) BootstrapRecipe(library string) []string {
	root := m.LibraryRoot(library)
	return []string{
		"$(VHDLL) " + root,
		"touch " + m.SentinelPath(library),
	}
}

func (m *Modelsim) CleanRecipe(libraries []string) []string {
	roots := make([]string, 0, len(libraries))
	for _, lib := range libraries {
		roots = append(roots, m.LibraryRoot(lib))
	}
	return []string{"rm -Rf " + strings.Join(roots, " ")}
}

func (m *Modelsim) RunRecipe() []string {
	return []string{joinArgs("$(VHDLS)", m.tc.SimulatorFlags, "$(TOPLEVEL)")}
}
