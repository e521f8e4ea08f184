// vhdl-make generates dependency-ordered Makefiles for VHDL projects and
// runs testbench regressions through them.
//
//	sim.files ──> manifest ──> unit introspection ──> backend naming
//	          ──> makegen rules ──> Makefile (+ build graph export)
//	                                   └─> CUE contract, rego checks
//
// The test command drives make and the simulator per module and scrapes
// the transcript for assertion messages.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/vhdl-make/internal/config"
	"github.com/robert-at-pretension-io/vhdl-make/internal/ctxlog"
	"github.com/robert-at-pretension-io/vhdl-make/internal/observability"
)

var version = "dev"

// app is the state shared by every subcommand after config loading.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	backend    string

	cfg    *config.Config
	ctx    context.Context
	tracer *observability.TracerProvider
}

func main() {
	a := &app{}
	root := newRootCmd(a)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "vhdl-make",
		Short:         "Makefile generator and regression runner for VHDL simulation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: search vhdl_make.json/.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text or json")
	root.PersistentFlags().StringVarP(&a.backend, "backend", "b", "", "Backend: sonata, symphony, modelsim, questa")

	root.AddCommand(
		newGenCmd(a),
		newGraphCmd(a),
		newImpactCmd(a),
		newCheckCmd(a),
		newTestCmd(a),
		newInitCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
		if err != nil {
			return fmt.Errorf("loading config %s: %w", a.configPath, err)
		}
	} else {
		a.cfg, err = config.Load(".")
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	if a.backend != "" {
		a.cfg.Backend = a.backend
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.Log.Format = a.logFormat
	}

	logger := ctxlog.New(os.Stderr, a.cfg.Log.Format, a.cfg.Log.Level)
	for _, w := range a.cfg.Validate() {
		logger.Warn("config", "warning", w)
	}

	ctx := ctxlog.WithLogger(cmd.Context(), logger)
	a.tracer, err = observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    a.cfg.Tracing.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   a.cfg.Tracing.Endpoint,
		SampleRate:     a.cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.ctx = ctx
	return nil
}

func (a *app) teardown() error {
	if a.tracer == nil {
		return nil
	}
	return a.tracer.Shutdown(context.Background())
}

// manifestPath returns the manifest named on the command line, or the
// configured one.
func (a *app) manifestPath(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return a.cfg.Manifest
}

// outputPath resolves a configured output file next to the manifest.
func outputPath(manifestPath, configured string) string {
	if configured == "" || filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(filepath.Dir(manifestPath), configured)
}
