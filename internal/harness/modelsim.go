package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robert-at-pretension-io/vhdl-make/internal/simlog"
)

// DoFile is the script the modelsim runner hands to vsim.
const DoFile = "test.do"

// ModelsimRunner builds a module with make, then runs its testbench in
// vsim in command-line mode.
type ModelsimRunner struct {
	opts    Options
	scraper simlog.Modelsim
}

// NewModelsimRunner creates a modelsim runner.
func NewModelsimRunner(opts Options) *ModelsimRunner {
	return &ModelsimRunner{opts: opts.withDefaults()}
}

func (r *ModelsimRunner) Name() string { return "modelsim" }

func (r *ModelsimRunner) Run(ctx context.Context, c Case) (*Result, error) {
	return run(ctx, r.Name(), r.opts, c, func(ctx context.Context, res *Result) error {
		dir := c.Dir()
		tr := r.opts.Timing

		start := time.Now()
		// clean failing on an already clean tree is expected.
		_, _, err := execute(ctx, command{dir: dir, name: r.opts.Make, args: []string{"clean"}, logFile: CleanLog, timeout: r.opts.Timeout})
		tr.RecordStage("clean", c.Module, statusText(err), start)
		if err != nil {
			return err
		}

		start = time.Now()
		status, buildOut, err := execute(ctx, command{dir: dir, name: r.opts.Make, logFile: MakeLog, timeout: r.opts.Timeout})
		tr.RecordStage("build", c.Module, statusText(err), start)
		if err != nil {
			return err
		}
		res.BuildStatus = status

		if err := WriteDoFile(dir, c); err != nil {
			return err
		}

		start = time.Now()
		args := append(append([]string{}, r.opts.SimulatorArgs...), "-do", DoFile)
		_, simOut, err := execute(ctx, command{dir: dir, name: r.opts.Simulator, args: args, logFile: SimLog, timeout: r.opts.Timeout})
		tr.RecordStage("simulate", c.Module, statusText(err), start)
		if err != nil {
			return err
		}

		start = time.Now()
		res.Messages = r.scraper.Messages(simOut)
		res.BuildErrors = append(r.scraper.BuildErrors(buildOut), r.scraper.BuildErrors(simOut)...)
		tr.RecordStage("scrape", c.Module, "ok", start)
		return nil
	})
}

// DoFileContent renders the vsim script for c. Assertions of severity
// failure break the run, and any break or error quits vsim.
func DoFileContent(c Case) string {
	vsim := []string{"vsim", "-t", "1ps"}
	for _, g := range sortedGenerics(c.Generics) {
		vsim = append(vsim, "-g"+g)
	}
	vsim = append(vsim, c.TopLevel())

	lines := []string{
		strings.Join(vsim, " "),
		"set BreakOnAssertion 3",
		"disablebp",
		"onerror quit",
		"onbreak quit",
		"run -All",
		"quit",
	}
	return strings.Join(lines, "\n") + "\n"
}

// WriteDoFile writes test.do into dir.
func WriteDoFile(dir string, c Case) error {
	if err := os.WriteFile(filepath.Join(dir, DoFile), []byte(DoFileContent(c)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", DoFile, err)
	}
	return nil
}

func statusText(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
