package backend

import (
	"path"
	"strings"

	"github.com/robert-at-pretension-io/vhdl-make/internal/unit"
)

// packageArchitecture is the artifact stem Sonata uses for a package,
// which has no governing architecture.
const packageArchitecture = "prim"

// Sonata is the Symphony EDA convention (vhdlp/vhdle). Libraries are
// <name>.sym directories created implicitly by the first compile.
type Sonata struct {
	tc Toolchain
}

// NewSonata creates the Sonata convention with tc's overrides applied.
func NewSonata(tc Toolchain) *Sonata {
	tc.Compiler = orDefault(tc.Compiler, "vhdlp")
	tc.Simulator = orDefault(tc.Simulator, "vhdle")
	tc.CompilerFlags = orDefault(tc.CompilerFlags, "-vital2000")
	tc.WorkLibrary = orDefault(tc.WorkLibrary, DefaultWorkLibrary)
	return &Sonata{tc: tc}
}

func (s *Sonata) Name() string { return "sonata" }

func (s *Sonata) Strategy() unit.Strategy { return unit.ByFile }

func (s *Sonata) WorkLibrary() string { return s.tc.WorkLibrary }

func (s *Sonata) WorkDir() string { return s.tc.WorkLibrary + ".sym" }

func (s *Sonata) LibraryRoot(library string) string {
	if IsDefaultLibrary(library, s.tc.WorkLibrary) {
		return WorkDirVar
	}
	return library + ".sym"
}

// ResolvePath keys every unit by its file name:
// <root>/<file>/_<arch>.var for designs, <root>/<file>/prim.var for packages.
func (s *Sonata) ResolvePath(id unit.Identity, library string) Artifact {
	root := s.LibraryRoot(library)
	var target string
	if id.IsPackage {
		target = path.Join(root, id.BaseName, packageArchitecture+".var")
	} else {
		target = path.Join(root, id.BaseName, "_"+strings.ToLower(id.ArchitectureName)+".var")
	}
	return Artifact{Target: target, Library: s.libraryName(library)}
}

func (s *Sonata) NeedsLibraryBootstrap() bool { return false }

func (s *Sonata) SentinelPath(library string) string {
	return path.Join(s.LibraryRoot(library), "touched")
}

func (s *Sonata) Variables(toplevel string) []Variable {
	return []Variable{
		{Name: "VHDLC", Value: s.tc.Compiler},
		{Name: "VHDLS", Value: s.tc.Simulator},
		{Name: "WORKDIR", Value: s.WorkDir()},
		{Name: "TOPLEVEL", Value: toplevel},
	}
}

func (s *Sonata) CompileRecipe(file, library string) []string {
	work := ""
	if !IsDefaultLibrary(library, s.tc.WorkLibrary) {
		work = "-work " + library
	}
	return []string{joinArgs("$(VHDLC)", s.tc.CompilerFlags, work, file)}
}

func (s *Sonata) BootstrapRecipe(string) []string { return nil }

func (s *Sonata) CleanRecipe([]string) []string {
	return []string{"rm -Rf *.sym"}
}

func (s *Sonata) RunRecipe() []string {
	return []string{joinArgs("$(VHDLS)", s.tc.SimulatorFlags, "$(TOPLEVEL)")}
}

func (s *Sonata) libraryName(library string) string {
	if IsDefaultLibrary(library, s.tc.WorkLibrary) {
		return ""
	}
	return library
}
