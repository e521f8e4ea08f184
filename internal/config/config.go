package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/robert-at-pretension-io/vhdl-make/internal/backend"
)

// EnvPrefix prefixes environment overrides, e.g. VHDLMAKE_BACKEND or
// VHDLMAKE_TOOLCHAIN_COMPILER.
const EnvPrefix = "VHDLMAKE"

// Config is the top-level configuration for vhdl-make
type Config struct {
	// Backend selects the toolchain convention: "sonata" (alias "symphony")
	// or "modelsim" (alias "questa")
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Manifest is the source manifest read by gen, graph, impact and check
	Manifest string `json:"manifest" yaml:"manifest" mapstructure:"manifest"`

	Toolchain ToolchainConfig `json:"toolchain" yaml:"toolchain" mapstructure:"toolchain"`
	Output    OutputConfig    `json:"output" yaml:"output" mapstructure:"output"`
	Policy    PolicyConfig    `json:"policy" yaml:"policy" mapstructure:"policy"`
	Harness   HarnessConfig   `json:"harness" yaml:"harness" mapstructure:"harness"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// ToolchainConfig overrides executable names and flags. Empty values take
// the backend's defaults.
type ToolchainConfig struct {
	Compiler       string `json:"compiler,omitempty" yaml:"compiler,omitempty" mapstructure:"compiler"`
	Simulator      string `json:"simulator,omitempty" yaml:"simulator,omitempty" mapstructure:"simulator"`
	LibraryTool    string `json:"library_tool,omitempty" yaml:"library_tool,omitempty" mapstructure:"library_tool"`
	CompilerFlags  string `json:"compiler_flags,omitempty" yaml:"compiler_flags,omitempty" mapstructure:"compiler_flags"`
	SimulatorFlags string `json:"simulator_flags,omitempty" yaml:"simulator_flags,omitempty" mapstructure:"simulator_flags"`
	WorkLibrary    string `json:"work_library,omitempty" yaml:"work_library,omitempty" mapstructure:"work_library"`

	// Make is the make executable the harness calls
	Make string `json:"make" yaml:"make" mapstructure:"make"`
}

// OutputConfig names generated files
type OutputConfig struct {
	// Makefile is written next to the manifest when relative
	Makefile string `json:"makefile" yaml:"makefile" mapstructure:"makefile"`

	// Graph, when set, also writes the build graph (.json or .yaml)
	Graph string `json:"graph,omitempty" yaml:"graph,omitempty" mapstructure:"graph"`
}

// PolicyConfig adds rego modules to the built-in checks
type PolicyConfig struct {
	Dirs []string `json:"dirs,omitempty" yaml:"dirs,omitempty" mapstructure:"dirs"`
}

// HarnessConfig controls the regression runner
type HarnessConfig struct {
	// BaseDir contains one directory per test module
	BaseDir string `json:"base_dir" yaml:"base_dir" mapstructure:"base_dir"`

	// Jobs is the number of modules run concurrently
	Jobs int `json:"jobs" yaml:"jobs" mapstructure:"jobs"`

	// Timeout bounds each external command ("10m", "90s"; empty for none)
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`

	// FailOnFailure also fails tests on failure-severity assertions
	FailOnFailure bool `json:"fail_on_failure,omitempty" yaml:"fail_on_failure,omitempty" mapstructure:"fail_on_failure"`

	// Timing is a JSONL file receiving per-stage durations
	Timing string `json:"timing,omitempty" yaml:"timing,omitempty" mapstructure:"timing"`

	// Discover lists glob patterns, relative to BaseDir, whose matches mark
	// test module directories. Used when Tests is empty.
	Discover []string `json:"discover,omitempty" yaml:"discover,omitempty" mapstructure:"discover"`

	Tests []TestConfig `json:"tests,omitempty" yaml:"tests,omitempty" mapstructure:"tests"`
}

// TestConfig is one regression test module
type TestConfig struct {
	Module string `json:"module" yaml:"module" mapstructure:"module"`

	// Generics are passed to the simulator as -g<name>=<value>
	Generics map[string]string `json:"generics,omitempty" yaml:"generics,omitempty" mapstructure:"generics"`
}

// TracingConfig enables OTLP export of generation and test spans
type TracingConfig struct {
	Endpoint    string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	ServiceName string  `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate" mapstructure:"sample_rate"`
}

// LogConfig sets the structured logger
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Backend:  "modelsim",
		Manifest: "sim.files",
		Toolchain: ToolchainConfig{
			Make: "make",
		},
		Output: OutputConfig{
			Makefile: "Makefile",
		},
		Harness: HarnessConfig{
			BaseDir:  ".",
			Jobs:     1,
			Timeout:  "30m",
			Discover: []string{"*/sim.files", "*/Makefile"},
		},
		Tracing: TracingConfig{
			ServiceName: "vhdl-make",
			SampleRate:  1.0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// FileNames are the config file names looked for in a directory
var FileNames = []string{"vhdl_make.json", ".vhdl_make.json", "vhdl_make.yaml", "vhdl_make.yml"}

// Load finds and loads the configuration file
// Search order:
//  1. ./vhdl_make.{json,yaml,yml} and ./.vhdl_make.json
//  2. the same names under rootPath (if different from cwd)
//  3. ~/.config/vhdl_make/config.{json,yaml}
//
// Returns DefaultConfig (with environment overrides) if no file is found
func Load(rootPath string) (*Config, error) {
	if path := Find(rootPath); path != "" {
		return LoadFile(path)
	}
	return load("")
}

// Find returns the first config file in the search order, or "".
func Find(rootPath string) string {
	cwd, _ := os.Getwd()

	var searchPaths []string
	for _, name := range FileNames {
		searchPaths = append(searchPaths, filepath.Join(cwd, name))
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			for _, name := range FileNames {
				searchPaths = append(searchPaths, filepath.Join(rootPath, name))
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "vhdl_make", "config.json"),
			filepath.Join(home, ".config", "vhdl_make", "config.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadFile loads configuration from a specific JSON or YAML file.
// Environment variables override file values.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext == "yml" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// setDefaults registers every scalar key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("backend", d.Backend)
	v.SetDefault("manifest", d.Manifest)
	v.SetDefault("toolchain.compiler", d.Toolchain.Compiler)
	v.SetDefault("toolchain.simulator", d.Toolchain.Simulator)
	v.SetDefault("toolchain.library_tool", d.Toolchain.LibraryTool)
	v.SetDefault("toolchain.compiler_flags", d.Toolchain.CompilerFlags)
	v.SetDefault("toolchain.simulator_flags", d.Toolchain.SimulatorFlags)
	v.SetDefault("toolchain.work_library", d.Toolchain.WorkLibrary)
	v.SetDefault("toolchain.make", d.Toolchain.Make)
	v.SetDefault("output.makefile", d.Output.Makefile)
	v.SetDefault("output.graph", d.Output.Graph)
	v.SetDefault("harness.base_dir", d.Harness.BaseDir)
	v.SetDefault("harness.jobs", d.Harness.Jobs)
	v.SetDefault("harness.timeout", d.Harness.Timeout)
	v.SetDefault("harness.fail_on_failure", d.Harness.FailOnFailure)
	v.SetDefault("harness.timing", d.Harness.Timing)
	v.SetDefault("harness.discover", d.Harness.Discover)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.Manifest == "" {
		c.Manifest = d.Manifest
	}
	if c.Toolchain.Make == "" {
		c.Toolchain.Make = d.Toolchain.Make
	}
	if c.Output.Makefile == "" {
		c.Output.Makefile = d.Output.Makefile
	}
	if c.Harness.BaseDir == "" {
		c.Harness.BaseDir = d.Harness.BaseDir
	}
	if c.Harness.Jobs == 0 {
		c.Harness.Jobs = d.Harness.Jobs
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = d.Tracing.ServiceName
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if _, err := backend.New(c.Backend, backend.Toolchain{}); err != nil {
		warnings = append(warnings, err.Error())
	}
	if c.Harness.Jobs < 1 {
		warnings = append(warnings, fmt.Sprintf("harness jobs %d is below 1; running one test at a time", c.Harness.Jobs))
	}
	if _, err := c.HarnessTimeout(); err != nil {
		warnings = append(warnings, err.Error())
	}
	for i, tc := range c.Harness.Tests {
		if strings.TrimSpace(tc.Module) == "" {
			warnings = append(warnings, fmt.Sprintf("harness test %d has no module", i))
		}
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}

	return warnings
}

// HarnessTimeout parses Harness.Timeout; empty means no limit.
func (c *Config) HarnessTimeout() (time.Duration, error) {
	if strings.TrimSpace(c.Harness.Timeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Harness.Timeout)
	if err != nil {
		return 0, fmt.Errorf("harness timeout %q: %w", c.Harness.Timeout, err)
	}
	return d, nil
}

// BackendToolchain converts the toolchain section for backend.New.
func (c *Config) BackendToolchain() backend.Toolchain {
	return backend.Toolchain{
		Compiler:       c.Toolchain.Compiler,
		Simulator:      c.Toolchain.Simulator,
		LibraryTool:    c.Toolchain.LibraryTool,
		CompilerFlags:  c.Toolchain.CompilerFlags,
		SimulatorFlags: c.Toolchain.SimulatorFlags,
		WorkLibrary:    c.Toolchain.WorkLibrary,
	}
}

// Convention builds the configured backend.
func (c *Config) Convention() (backend.Convention, error) {
	return backend.New(c.Backend, c.BackendToolchain())
}

// Save writes the configuration to a file, as YAML for .yaml/.yml paths
// and JSON otherwise
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
