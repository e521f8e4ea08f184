package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/vhdl-make/internal/ctxlog"
	"github.com/robert-at-pretension-io/vhdl-make/internal/graph"
	"github.com/robert-at-pretension-io/vhdl-make/internal/makegen"
	"github.com/robert-at-pretension-io/vhdl-make/internal/manifest"
	"github.com/robert-at-pretension-io/vhdl-make/internal/policy"
	"github.com/robert-at-pretension-io/vhdl-make/internal/validator"
)

// generate builds the script for manifestPath without writing anything.
func (a *app) generate(ctx context.Context, manifestPath string) (*makegen.Result, *graph.BuildGraph, error) {
	conv, err := a.cfg.Convention()
	if err != nil {
		return nil, nil, err
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, nil, err
	}
	res, err := makegen.New(conv, makegen.WithRoot(filepath.Dir(manifestPath))).Generate(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	return res, graph.FromScript(res.Script), nil
}

func newGenCmd(a *app) *cobra.Command {
	var output, graphOut string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "gen [manifest]",
		Short: "Generate the Makefile from a sim.files manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifestPath := a.manifestPath(args)
			res, g, err := a.generate(a.ctx, manifestPath)
			if err != nil {
				return err
			}
			logger := ctxlog.FromContext(a.ctx)
			for _, w := range res.Warnings {
				logger.Warn("configuration", "warning", w.String())
			}

			if output == "" {
				output = outputPath(manifestPath, a.cfg.Output.Makefile)
			}
			if graphOut == "" {
				graphOut = outputPath(manifestPath, a.cfg.Output.Graph)
			}

			if graphOut != "" {
				v, err := validator.New()
				if err != nil {
					return err
				}
				if err := v.Validate(g); err != nil {
					return fmt.Errorf("build graph does not match contract: %w", err)
				}
			}

			if err := makegen.WriteFile(output, res.Script); err != nil {
				return err
			}
			if graphOut != "" {
				if err := graph.WriteFile(graphOut, g); err != nil {
					return err
				}
			}

			if verbose {
				fmt.Printf("Backend:   %s\n", g.Backend)
				fmt.Printf("Toplevel:  %s\n", orNone(g.TopLevel))
				fmt.Printf("Libraries: %s\n", strings.Join(g.Libraries, ", "))
				fmt.Printf("Units:     %d hw, %d comp, %d sim\n", len(res.HW), len(res.Comp), len(res.Sim))
				fmt.Printf("Rules:     %d\n", len(g.Rules))
			}
			fmt.Printf("Wrote %s\n", output)
			if graphOut != "" {
				fmt.Printf("Wrote %s\n", graphOut)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Makefile path (default: next to the manifest)")
	cmd.Flags().StringVar(&graphOut, "graph", "", "Also write the build graph (.json or .yaml)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print a summary of the generated graph")
	return cmd
}

func newGraphCmd(a *app) *cobra.Command {
	var format, previous string

	cmd := &cobra.Command{
		Use:   "graph [manifest]",
		Short: "Print the build graph, or its delta against a previous export",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := graph.ParseFormat(format)
			if err != nil {
				return err
			}
			_, g, err := a.generate(a.ctx, a.manifestPath(args))
			if err != nil {
				return err
			}
			for _, c := range g.Cycles() {
				ctxlog.FromContext(a.ctx).Warn("dependency cycle", "cycle", c)
			}

			if previous == "" {
				return graph.Encode(os.Stdout, g, f)
			}
			prev, err := graph.Load(previous)
			if err != nil {
				return err
			}
			delta := graph.ComputeDelta(prev, g)
			if delta.Empty() {
				fmt.Println("No changes.")
				return nil
			}
			printDelta(delta)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVar(&previous, "previous", "", "Compare against a previously exported graph")
	return cmd
}

func printDelta(d graph.Delta) {
	for _, l := range d.AddedLibraries {
		fmt.Printf("+ library %s\n", l)
	}
	for _, l := range d.RemovedLibraries {
		fmt.Printf("- library %s\n", l)
	}
	for _, r := range d.AddedRules {
		fmt.Printf("+ %s: %s\n", r.Target, strings.Join(r.Prereqs, " "))
	}
	for _, r := range d.RemovedRules {
		fmt.Printf("- %s: %s\n", r.Target, strings.Join(r.Prereqs, " "))
	}
}

func newImpactCmd(a *app) *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "impact <source-or-target>",
		Short: "List the targets rebuilt when a source file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if manifestPath == "" {
				manifestPath = a.cfg.Manifest
			}
			_, g, err := a.generate(a.ctx, manifestPath)
			if err != nil {
				return err
			}
			fmt.Print(g.Impact(args[0]).Format())
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest to read (default: from config)")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [manifest]",
		Short: "Check the generated build graph against the structural policies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, err := a.generate(a.ctx, a.manifestPath(args))
			if err != nil {
				return err
			}

			v, err := validator.New()
			if err != nil {
				return err
			}
			problems := v.ValidationErrors(g)
			for _, p := range problems {
				fmt.Printf("error   contract: %s\n", p)
			}

			engine, err := policy.New(a.ctx, a.cfg.Policy.Dirs...)
			if err != nil {
				return err
			}
			res, err := engine.Evaluate(a.ctx, g)
			if err != nil {
				return err
			}
			for _, viol := range res.Violations {
				target := ""
				if viol.Target != "" {
					target = " [" + viol.Target + "]"
				}
				fmt.Printf("%-7s %s%s: %s\n", viol.Severity, viol.Rule, target, viol.Message)
			}
			cycles := g.Cycles()
			for _, c := range cycles {
				fmt.Printf("error   cycle: %s\n", c)
			}

			errs := res.Summary.Errors + len(problems) + len(cycles)
			fmt.Printf("\n%d errors, %d warnings\n", errs, res.Summary.Warnings)
			if errs > 0 {
				return fmt.Errorf("%d check(s) failed", errs)
			}
			return nil
		},
	}
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
