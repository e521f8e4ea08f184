// Package makegen turns a source manifest into a Makefile whose rules
// compile each unit in a correct order for one backend.
//
// Generation runs three straight-line phases over the manifest groups:
//
//	hw    every entry depends on the artifacts of all earlier hw entries
//	comp  entries are independent
//	sim   entries are independent
//
// followed by the aggregate targets (all, runsim, run, clean) and, for
// backends that need it, one library bootstrap rule per library.
package makegen

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/robert-at-pretension-io/vhdl-make/internal/backend"
	"github.com/robert-at-pretension-io/vhdl-make/internal/ctxlog"
	"github.com/robert-at-pretension-io/vhdl-make/internal/manifest"
	"github.com/robert-at-pretension-io/vhdl-make/internal/observability"
	"github.com/robert-at-pretension-io/vhdl-make/internal/unit"
)

// ErrDuplicateArtifact is matched by every DuplicateArtifactError.
var ErrDuplicateArtifact = errors.New("duplicate artifact")

// DuplicateArtifactError reports two manifest entries that compile to the
// same artifact. make would pick one rule nondeterministically.
type DuplicateArtifactError struct {
	Target string
	First  string
	Second string
}

func (e *DuplicateArtifactError) Error() string {
	return fmt.Sprintf("%s and %s both produce %s", e.First, e.Second, e.Target)
}

func (e *DuplicateArtifactError) Unwrap() error {
	return ErrDuplicateArtifact
}

// ConfigurationWarning is a non-fatal problem with the manifest. The
// script is still complete but some target will not do anything useful.
type ConfigurationWarning struct {
	Message string `json:"message"`
}

func (w ConfigurationWarning) String() string {
	return w.Message
}

// Emitted pairs a manifest entry with the artifact its rule produces.
type Emitted struct {
	Entry    manifest.Entry
	Artifact backend.Artifact
}

// Result is the outcome of one generation run.
type Result struct {
	Script   *Script
	HW       []backend.Artifact
	Comp     []backend.Artifact
	Sim      []backend.Artifact
	Warnings []ConfigurationWarning
}

// Option configures a Generator.
type Option func(*Generator)

// WithRoot resolves relative manifest paths against dir when reading
// sources. Paths written into the Makefile are left as given.
func WithRoot(dir string) Option {
	return func(g *Generator) { g.root = dir }
}

// WithIntrospector shares in, and its declaration cache, with the Generator.
func WithIntrospector(in *unit.Introspector) Option {
	return func(g *Generator) { g.intro = in }
}

// Generator builds Makefiles for one backend. Each Generate call starts
// from fresh state; a Generator must not be shared between goroutines.
type Generator struct {
	conv  backend.Convention
	intro *unit.Introspector
	root  string

	registry *Registry
	owners   map[string]string
	script   *Script
}

// New creates a Generator for the given backend convention.
func New(conv backend.Convention, opts ...Option) *Generator {
	g := &Generator{conv: conv, intro: unit.New()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Registry returns the library registry of the last run.
func (g *Generator) Registry() *Registry {
	return g.registry
}

func (g *Generator) reset(toplevel string) {
	g.registry = NewRegistry(g.conv.WorkLibrary())
	g.owners = make(map[string]string)
	g.script = &Script{
		Backend:   g.conv.Name(),
		TopLevel:  toplevel,
		Variables: g.conv.Variables(toplevel),
	}
}

// Generate builds the script for m. Any source that cannot be
// introspected aborts the run and no script is returned.
func (g *Generator) Generate(ctx context.Context, m *manifest.Manifest) (res *Result, err error) {
	ctx, span := observability.StartSpan(ctx, "makegen.Generate",
		attribute.String("backend", g.conv.Name()),
		attribute.Int("entries", m.Len()),
	)
	defer func() { observability.EndSpan(span, err) }()

	logger := ctxlog.FromContext(ctx)
	toplevel := strings.TrimSpace(m.TopLevel)
	g.reset(toplevel)
	res = &Result{Script: g.script}

	if toplevel == "" {
		w := ConfigurationWarning{Message: "no toplevel specified in manifest; the run target has nothing to simulate"}
		res.Warnings = append(res.Warnings, w)
		logger.Warn(w.Message)
	}

	g.addRule(Rule{
		Target:  TargetAll,
		Prereqs: []string{TargetHW, TargetComp, TargetSim},
		Group:   GroupAggregate,
		Phony:   true,
	})

	// Every hw entry, library-scoped or not, joins the chain so later hw
	// rules are elaborated after all earlier ones.
	var chain []Emitted
	for _, entry := range m.HW {
		art, err := g.emit(ctx, entry, chain, manifest.GroupHW)
		if err != nil {
			return nil, err
		}
		chain = append(chain, Emitted{Entry: entry, Artifact: art})
		res.HW = append(res.HW, art)
	}
	g.aggregate(TargetHW, res.HW)

	for _, entry := range m.Comp {
		art, err := g.emit(ctx, entry, nil, manifest.GroupComp)
		if err != nil {
			return nil, err
		}
		res.Comp = append(res.Comp, art)
	}
	g.aggregate(TargetComp, res.Comp)

	for _, entry := range m.Sim {
		art, err := g.emit(ctx, entry, nil, manifest.GroupSim)
		if err != nil {
			return nil, err
		}
		res.Sim = append(res.Sim, art)
	}
	g.aggregate(TargetSim, res.Sim)

	g.finalize()

	logger.Debug("generated build script",
		"backend", g.conv.Name(),
		"rules", len(g.script.Rules),
		"libraries", g.registry.Len(),
	)
	return res, nil
}

// emit introspects entry, appends its rule and returns the artifact.
func (g *Generator) emit(ctx context.Context, entry manifest.Entry, deps []Emitted, group manifest.Group) (backend.Artifact, error) {
	id, err := g.intro.Identify(g.sourcePath(entry.Path), g.conv.Strategy())
	if err != nil {
		return backend.Artifact{}, fmt.Errorf("%s group: %w", group, err)
	}

	art := g.conv.ResolvePath(id, entry.Library)
	if owner, ok := g.owners[art.Target]; ok {
		return backend.Artifact{}, &DuplicateArtifactError{Target: art.Target, First: owner, Second: entry.Path}
	}
	g.owners[art.Target] = entry.Path
	g.registry.Register(entry.Library)

	prereqs := make([]string, 0, len(deps)+2)
	if g.conv.NeedsLibraryBootstrap() {
		prereqs = append(prereqs, g.conv.SentinelPath(entry.Library))
	}
	for _, dep := range deps {
		prereqs = append(prereqs, dep.Artifact.Target)
	}
	prereqs = append(prereqs, entry.Path)

	g.addRule(Rule{
		Target:  art.Target,
		Prereqs: prereqs,
		Recipe:  g.conv.CompileRecipe(entry.Path, entry.Library),
		Group:   string(group),
		Source:  entry.Path,
		Library: art.Library,
	})

	ctxlog.FromContext(ctx).Debug("emitted rule",
		"group", string(group),
		"source", entry.Path,
		"target", art.Target,
		"deps", len(deps),
	)
	return art, nil
}

func (g *Generator) aggregate(target string, arts []backend.Artifact) {
	prereqs := make([]string, 0, len(arts))
	for _, a := range arts {
		prereqs = append(prereqs, a.Target)
	}
	g.addRule(Rule{Target: target, Prereqs: prereqs, Group: GroupAggregate, Phony: true})
}

func (g *Generator) finalize() {
	libs := g.registry.All()
	g.script.Libraries = libs

	g.addRule(Rule{
		Target:  TargetRunSim,
		Prereqs: []string{TargetAll},
		Recipe:  g.conv.RunRecipe(),
		Group:   GroupAggregate,
		Phony:   true,
	})
	g.addRule(Rule{
		Target:  TargetRun,
		Prereqs: []string{TargetRunSim},
		Group:   GroupAggregate,
		Phony:   true,
	})
	g.addRule(Rule{
		Target: TargetClean,
		Recipe: g.conv.CleanRecipe(libs),
		Group:  GroupAggregate,
		Phony:  true,
	})

	if !g.conv.NeedsLibraryBootstrap() {
		return
	}
	for _, lib := range libs {
		library := lib
		if backend.IsDefaultLibrary(lib, g.conv.WorkLibrary()) {
			library = ""
		}
		g.addRule(Rule{
			Target:  g.conv.SentinelPath(lib),
			Recipe:  g.conv.BootstrapRecipe(lib),
			Group:   GroupBootstrap,
			Library: library,
		})
	}
}

func (g *Generator) addRule(r Rule) {
	if r.Prereqs == nil {
		r.Prereqs = []string{}
	}
	g.script.Rules = append(g.script.Rules, r)
}

func (g *Generator) sourcePath(p string) string {
	if g.root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(g.root, p)
}
