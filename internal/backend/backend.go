// Package backend holds the per-toolchain naming policies: where a
// compiled unit lands on disk, how a file is compiled and how libraries
// are created.
package backend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/vhdl-make/internal/unit"
)

// WorkDirVar is the Makefile variable naming the default work directory.
const WorkDirVar = "$(WORKDIR)"

// DefaultWorkLibrary is the logical name of the default library.
const DefaultWorkLibrary = "work"

// Artifact is the on-disk marker a toolchain produces after compiling a
// unit. Library is empty for the default work library.
type Artifact struct {
	Target  string `json:"target"`
	Library string `json:"library,omitempty"`
}

// Variable is a Makefile variable definition.
type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Toolchain carries the executable names and flags for a backend. Empty
// fields take the backend's defaults.
type Toolchain struct {
	Compiler       string
	Simulator      string
	LibraryTool    string
	CompilerFlags  string
	SimulatorFlags string
	WorkLibrary    string
}

// Convention is one backend's naming and bootstrap policy. Both backends
// share the generator; only this interface differs.
type Convention interface {
	// Name is the backend name used in configuration.
	Name() string

	// Strategy selects how units are introspected.
	Strategy() unit.Strategy

	// WorkLibrary is the logical name of the default library.
	WorkLibrary() string

	// WorkDir is the on-disk directory of the default library.
	WorkDir() string

	// LibraryRoot is the directory a library compiles into, as written in
	// the Makefile. The default library maps to WorkDirVar.
	LibraryRoot(library string) string

	// ResolvePath returns the artifact a unit compiles to.
	ResolvePath(id unit.Identity, library string) Artifact

	// NeedsLibraryBootstrap reports whether libraries must be created by an
	// explicit rule before anything compiles into them.
	NeedsLibraryBootstrap() bool

	// SentinelPath is the marker file a bootstrap rule creates for a library.
	SentinelPath(library string) string

	// Variables are the Makefile header definitions.
	Variables(toplevel string) []Variable

	// CompileRecipe returns the recipe lines compiling one source file.
	CompileRecipe(path, library string) []string

	// BootstrapRecipe returns the recipe lines creating a library.
	BootstrapRecipe(library string) []string

	// CleanRecipe returns the recipe lines removing all generated libraries.
	CleanRecipe(libraries []string) []string

	// RunRecipe returns the recipe lines starting the simulator.
	RunRecipe() []string
}

var registry = map[string]func(Toolchain) Convention{
	"sonata":   func(tc Toolchain) Convention { return NewSonata(tc) },
	"symphony": func(tc Toolchain) Convention { return NewSonata(tc) },
	"modelsim": func(tc Toolchain) Convention { return NewModelsim(tc) },
	"questa":   func(tc Toolchain) Convention { return NewModelsim(tc) },
}

// New returns the convention registered under name.
func New(name string, tc Toolchain) (Convention, error) {
	ctor, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(tc), nil
}

// Names lists the registered backend names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsDefaultLibrary reports whether library refers to the default work
// library.
func IsDefaultLibrary(library, workLibrary string) bool {
	return library == "" || strings.EqualFold(library, workLibrary)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func joinArgs(args ...string) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a != "" {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, " ")
}
