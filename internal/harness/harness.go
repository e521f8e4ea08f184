// Package harness runs VHDL testbenches through a simulator and turns the
// transcript into a pass/fail verdict.
//
// Each test module lives in <base>/<module> with a Makefile (or a
// sim.files manifest the harness turns into one) whose toplevel is
// <module>test. A test fails when the build exits non-zero, the build
// prints errors, or the simulation raises any error-severity assertion.
// A failure-severity assertion is how a testbench ends the simulation and
// only fails the test when FailOnFailure is set.
package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/vhdl-make/internal/backend"
	"github.com/robert-at-pretension-io/vhdl-make/internal/ctxlog"
	"github.com/robert-at-pretension-io/vhdl-make/internal/makegen"
	"github.com/robert-at-pretension-io/vhdl-make/internal/manifest"
	"github.com/robert-at-pretension-io/vhdl-make/internal/observability"
	"github.com/robert-at-pretension-io/vhdl-make/internal/simlog"
	"github.com/robert-at-pretension-io/vhdl-make/internal/unit"
)

// Log file names written into each module directory.
const (
	CleanLog = "clean.log"
	MakeLog  = "make.log"
	SimLog   = "sim.log"
)

// Case is one regression test.
type Case struct {
	Module   string            `json:"module"`
	BaseDir  string            `json:"base_dir"`
	Generics map[string]string `json:"generics,omitempty"`
}

// Dir is the module's working directory.
func (c Case) Dir() string {
	return filepath.Join(c.BaseDir, c.Module)
}

// TopLevel is the testbench unit simulated for the module.
func (c Case) TopLevel() string {
	return c.Module + "test"
}

// Result is the verdict for one Case.
type Result struct {
	Case        Case             `json:"case"`
	Passed      bool             `json:"passed"`
	Reason      string           `json:"reason,omitempty"`
	BuildStatus int              `json:"build_status"`
	BuildErrors []string         `json:"build_errors,omitempty"`
	Messages    []simlog.Message `json:"messages,omitempty"`
	Duration    time.Duration    `json:"duration"`
}

// Errors returns the error-severity messages.
func (r *Result) Errors() []simlog.Message {
	return simlog.Filter(r.Messages, simlog.Error)
}

// Options configure a runner.
type Options struct {
	// Make is the make executable.
	Make string
	// Simulator is the command-line simulator (modelsim only).
	Simulator string
	// SimulatorArgs are passed before "-do test.do".
	SimulatorArgs []string
	// Timeout bounds each external command. Zero means no limit.
	Timeout time.Duration
	// FailOnFailure also fails tests on failure-severity assertions.
	FailOnFailure bool
	// Convention, when set, regenerates the module Makefile from its
	// sim.files manifest before building.
	Convention backend.Convention
	// Introspector is shared by every regeneration so sources common to
	// several modules are scanned once.
	Introspector *unit.Introspector
	// Timing records per-stage durations.
	Timing *TimingRecorder
}

func (o Options) withDefaults() Options {
	if o.Make == "" {
		o.Make = "make"
	}
	if o.Simulator == "" {
		o.Simulator = "vsim"
	}
	if o.SimulatorArgs == nil {
		o.SimulatorArgs = []string{"-c"}
	}
	if o.Convention != nil && o.Introspector == nil {
		o.Introspector = unit.New()
	}
	return o
}

// Runner executes one test case. Tool failures are reported in the
// Result, never as a Go error; Run only errors when ctx is done.
type Runner interface {
	Name() string
	Run(ctx context.Context, c Case) (*Result, error)
}

// NewRunner returns the runner for a backend name.
func NewRunner(backendName string, opts Options) (Runner, error) {
	switch strings.ToLower(backendName) {
	case "modelsim", "questa":
		return NewModelsimRunner(opts), nil
	case "sonata", "symphony":
		return NewSymphonyRunner(opts), nil
	}
	return nil, fmt.Errorf("no test runner for backend %q", backendName)
}

// Suite is the outcome of RunAll.
type Suite struct {
	Results  []*Result     `json:"results"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether every test passed.
func (s *Suite) OK() bool {
	return s.Failed == 0
}

// RunAll runs cases with at most jobs in flight and returns results in
// case order.
func RunAll(ctx context.Context, r Runner, cases []Case, jobs int, timing *TimingRecorder) (*Suite, error) {
	start := time.Now()
	if jobs < 1 {
		jobs = 1
	}
	results := make([]*Result, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, c := range cases {
		g.Go(func() error {
			res, err := r.Run(gctx, c)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Module, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	suite := &Suite{Results: results, Duration: time.Since(start)}
	for _, res := range results {
		if res.Passed {
			suite.Passed++
		} else {
			suite.Failed++
		}
	}
	status := "ok"
	if !suite.OK() {
		status = "failed"
	}
	timing.RecordSuite(status, start)
	return suite, nil
}

// run wraps one Case with tracing, logging and the common verdict.
func run(ctx context.Context, name string, opts Options, c Case, body func(ctx context.Context, res *Result) error) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, "harness.Run",
		attribute.String("runner", name),
		attribute.String("module", c.Module),
	)
	start := time.Now()
	res := &Result{Case: c}
	logger := ctxlog.FromContext(ctx).With("module", c.Module, "runner", name)

	err := prepare(ctx, opts, c)
	if err != nil {
		res.Reason = fmt.Sprintf("regenerate Makefile: %v", err)
	} else {
		err = body(ctx, res)
	}
	res.Duration = time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		observability.EndSpan(span, ctxErr)
		return nil, ctxErr
	}
	if err == nil {
		judge(res, opts.FailOnFailure)
	} else if res.Reason == "" {
		res.Reason = err.Error()
	}
	span.SetAttributes(attribute.Bool("passed", res.Passed))
	observability.EndSpan(span, nil)

	if res.Passed {
		logger.Info("test passed", "duration", res.Duration, "messages", len(res.Messages))
	} else {
		logger.Warn("test failed", "reason", res.Reason, "duration", res.Duration)
	}
	return res, nil
}

// prepare regenerates <dir>/Makefile when the module carries a manifest.
func prepare(ctx context.Context, opts Options, c Case) error {
	if opts.Convention == nil {
		return nil
	}
	manifestPath := filepath.Join(c.Dir(), manifest.DefaultName)
	if _, err := os.Stat(manifestPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	_, err := makegen.GenerateFile(ctx, opts.Convention, manifestPath, "",
		makegen.WithIntrospector(opts.Introspector))
	return err
}

// judge sets Passed and Reason from what the runner collected.
func judge(res *Result, failOnFailure bool) {
	var reasons []string
	if res.BuildStatus != 0 {
		reasons = append(reasons, fmt.Sprintf("build exited with status %d", res.BuildStatus))
	}
	if n := len(res.BuildErrors); n > 0 {
		reasons = append(reasons, fmt.Sprintf("%d build error(s), first: %s", n, res.BuildErrors[0]))
	}
	if errs := res.Errors(); len(errs) > 0 {
		reasons = append(reasons, fmt.Sprintf("%d error assertion(s), first: %s", len(errs), errs[0].Text))
	}
	if failOnFailure {
		if fails := simlog.Filter(res.Messages, simlog.Failure); len(fails) > 0 {
			reasons = append(reasons, fmt.Sprintf("failure assertion: %s", fails[0].Text))
		}
	}
	res.Passed = len(reasons) == 0
	res.Reason = strings.Join(reasons, "; ")
}

// sortedGenerics renders generics as name=value pairs in name order.
func sortedGenerics(generics map[string]string) []string {
	names := make([]string, 0, len(generics))
	for name := range generics {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, name+"="+generics[name])
	}
	return out
}
