package harness

import (
	"context"
	"time"

	"github.com/robert-at-pretension-io/vhdl-make/internal/ctxlog"
	"github.com/robert-at-pretension-io/vhdl-make/internal/simlog"
)

// SymphonyRunner drives the Sonata toolchain entirely through the
// generated Makefile: `make runsim` compiles and simulates in one go.
type SymphonyRunner struct {
	opts    Options
	scraper simlog.Symphony
}

// NewSymphonyRunner creates a symphony runner.
func NewSymphonyRunner(opts Options) *SymphonyRunner {
	return &SymphonyRunner{opts: opts.withDefaults()}
}

func (r *SymphonyRunner) Name() string { return "symphony" }

func (r *SymphonyRunner) Run(ctx context.Context, c Case) (*Result, error) {
	return run(ctx, r.Name(), r.opts, c, func(ctx context.Context, res *Result) error {
		dir := c.Dir()
		tr := r.opts.Timing

		if len(c.Generics) > 0 {
			ctxlog.FromContext(ctx).Warn("generics are ignored by the symphony runner", "module", c.Module, "generics", len(c.Generics))
		}

		start := time.Now()
		_, _, err := execute(ctx, command{dir: dir, name: r.opts.Make, args: []string{"clean"}, logFile: CleanLog, timeout: r.opts.Timeout})
		tr.RecordStage("clean", c.Module, statusText(err), start)
		if err != nil {
			return err
		}

		start = time.Now()
		status, out, err := execute(ctx, command{dir: dir, name: r.opts.Make, args: []string{"runsim"}, logFile: SimLog, timeout: r.opts.Timeout})
		tr.RecordStage("simulate", c.Module, statusText(err), start)
		if err != nil {
			return err
		}

		start = time.Now()
		res.Messages = r.scraper.Messages(out)
		res.BuildErrors = r.scraper.BuildErrors(out)
		// vhdle stops with a non-zero status on a failure assertion, which
		// is the normal end of a testbench.
		if len(simlog.Filter(res.Messages, simlog.Failure)) == 0 {
			res.BuildStatus = status
		}
		tr.RecordStage("scrape", c.Module, "ok", start)
		return nil
	})
}
