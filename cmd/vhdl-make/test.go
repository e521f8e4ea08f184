package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/vhdl-make/internal/config"
	"github.com/robert-at-pretension-io/vhdl-make/internal/harness"
)

func newTestCmd(a *app) *cobra.Command {
	var (
		jobs          int
		timingPath    string
		regenerate    bool
		failOnFailure bool
		jsonOut       bool
	)

	cmd := &cobra.Command{
		Use:   "test [modules...]",
		Short: "Build and simulate each test module and report pass/fail",
		Long: `Runs the regression suite. Each module directory under harness.base_dir
is cleaned, built with make and simulated with <module>test as toplevel.
Modules default to harness.tests, or to every directory matched by
harness.discover.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			tests, err := a.cfg.ResolveTests(root)
			if err != nil {
				return err
			}
			tests = selectTests(tests, args)
			if len(tests) == 0 {
				return fmt.Errorf("no test modules found under %s", a.cfg.HarnessBaseDir(root))
			}

			timeout, err := a.cfg.HarnessTimeout()
			if err != nil {
				return err
			}
			if timingPath == "" {
				timingPath = a.cfg.Harness.Timing
			}
			timing := harness.NewTimingRecorder(timingPath)
			defer timing.Close()

			opts := harness.Options{
				Make:          a.cfg.Toolchain.Make,
				Simulator:     a.cfg.Toolchain.Simulator,
				Timeout:       timeout,
				FailOnFailure: failOnFailure || a.cfg.Harness.FailOnFailure,
				Timing:        timing,
			}
			if regenerate {
				conv, err := a.cfg.Convention()
				if err != nil {
					return err
				}
				opts.Convention = conv
			}
			runner, err := harness.NewRunner(a.cfg.Backend, opts)
			if err != nil {
				return err
			}

			if jobs == 0 {
				jobs = a.cfg.Harness.Jobs
			}
			base := a.cfg.HarnessBaseDir(root)
			cases := make([]harness.Case, 0, len(tests))
			for _, tc := range tests {
				cases = append(cases, harness.Case{Module: tc.Module, BaseDir: base, Generics: tc.Generics})
			}

			suite, err := harness.RunAll(a.ctx, runner, cases, jobs, timing)
			if err != nil {
				return err
			}
			if err := timing.Err(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: timing log: %v\n", err)
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(suite); err != nil {
					return err
				}
			} else {
				printSuite(suite)
			}
			if !suite.OK() {
				return fmt.Errorf("%d of %d tests failed", suite.Failed, len(suite.Results))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Modules run concurrently (default: harness.jobs)")
	cmd.Flags().StringVar(&timingPath, "timing", "", "Write per-stage timings to this JSONL file")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "Regenerate each module's Makefile from its sim.files first")
	cmd.Flags().BoolVar(&failOnFailure, "fail-on-failure", false, "Also fail on failure-severity assertions")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	return cmd
}

// selectTests keeps the named modules in the order given. Names that are
// not configured still run, with no generics.
func selectTests(tests []config.TestConfig, modules []string) []config.TestConfig {
	if len(modules) == 0 {
		return tests
	}
	byName := make(map[string]config.TestConfig, len(tests))
	for _, tc := range tests {
		byName[tc.Module] = tc
	}
	selected := make([]config.TestConfig, 0, len(modules))
	for _, m := range modules {
		if tc, ok := byName[m]; ok {
			selected = append(selected, tc)
			continue
		}
		selected = append(selected, config.TestConfig{Module: m})
	}
	return selected
}

func printSuite(s *harness.Suite) {
	for _, res := range s.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		fmt.Printf("%s  %-24s %s\n", status, res.Case.Module, res.Duration.Round(time.Millisecond))
		if res.Passed {
			continue
		}
		if res.Reason != "" {
			fmt.Printf("      %s\n", res.Reason)
		}
		for _, e := range res.BuildErrors {
			fmt.Printf("      build: %s\n", e)
		}
		for _, m := range res.Errors() {
			fmt.Printf("      %s at %d ps: %s\n", m.Severity, m.TimePS, m.Text)
		}
	}
	fmt.Printf("\n%d passed, %d failed in %s\n", s.Passed, s.Failed, s.Duration.Round(time.Millisecond))
}
