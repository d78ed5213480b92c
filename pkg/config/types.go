package config

import (
	"github.com/auton8n-git/auton8n/pkg/engine"
	"github.com/auton8n-git/auton8n/pkg/telemetry"
)

// Config is the complete auton8n configuration.
type Config struct {
	// Workflows is the directory scanned recursively for *.json records.
	Workflows string `mapstructure:"workflows" yaml:"workflows" validate:"required"`

	// Tables is an optional YAML, JSON or CUE file merged over the built-in
	// reference tables.
	Tables string `mapstructure:"tables" yaml:"tables" validate:"omitempty,file"`

	// Database is the SQLite index path, or ":memory:".
	Database string `mapstructure:"database" yaml:"database" validate:"required"`

	// Output is the directory that receives reports and bucket lists.
	Output string `mapstructure:"output" yaml:"output" validate:"required"`

	// ListPrefix is prepended to every ref in the bucket lists, usually the
	// workflows directory as seen by the host that imports them.
	ListPrefix string `mapstructure:"list_prefix" yaml:"list_prefix"`

	// Workers is the worker pool size. Zero means one per CPU.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=0,lte=256"`

	// WriteBack saves the metadata block of every record analyzed by watch.
	// categorize always writes unless run with --dry-run.
	WriteBack bool `mapstructure:"write_back" yaml:"write_back"`

	// Backup keeps a one-time .json.bak copy before the first write-back.
	Backup bool `mapstructure:"backup" yaml:"backup"`

	// Recategorize resolves categories even for records that have one.
	Recategorize bool `mapstructure:"recategorize" yaml:"recategorize"`

	// FailOn lists verdicts that make a command exit non-zero.
	FailOn []string `mapstructure:"fail_on" yaml:"fail_on" validate:"dive,verdict"`

	// Policies configures advisory policy evaluation.
	Policies PoliciesConfig `mapstructure:"policies" yaml:"policies"`

	Logging telemetry.LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Tracing telemetry.TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	Metrics telemetry.MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// PoliciesConfig configures the policy engine.
type PoliciesConfig struct {
	// Enabled turns advisory evaluation on.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Paths are extra .rego or .json policy files and directories.
	Paths []string `mapstructure:"paths" yaml:"paths"`

	// Disabled names policies to switch off.
	Disabled []string `mapstructure:"disabled" yaml:"disabled"`

	// MaxNodes is the large-workflow threshold.
	MaxNodes int `mapstructure:"max_nodes" yaml:"max_nodes" validate:"gte=1"`
}

// Default returns the built-in configuration. Booleans default to false so
// that merging defaults never overrides an explicit false.
func Default() *Config {
	tel := telemetry.DefaultConfig()
	tel.Metrics.Enabled = false
	tel.Tracing.Insecure = false

	return &Config{
		Workflows: "workflows",
		Database:  "auton8n.db",
		Output:    "workflow_lists",
		Workers:   0,
		FailOn:    []string{},
		Policies: PoliciesConfig{
			MaxNodes: 50,
		},
		Logging: tel.Logging,
		Tracing: tel.Tracing,
		Metrics: tel.Metrics,
	}
}

// Telemetry returns the telemetry configuration carried by c.
func (c *Config) Telemetry(version string) *telemetry.Config {
	tel := telemetry.DefaultConfig()
	tel.ServiceVersion = version
	tel.Logging = c.Logging
	tel.Tracing = c.Tracing
	tel.Metrics = c.Metrics
	return tel
}

// RunnerConfig returns the batch runner settings carried by c.
func (c *Config) RunnerConfig() engine.RunnerConfig {
	return engine.RunnerConfig{
		Workers:      c.Workers,
		WriteBack:    c.WriteBack,
		Recategorize: c.Recategorize,
	}
}

// FailVerdicts parses FailOn.
func (c *Config) FailVerdicts() ([]engine.Verdict, error) {
	out := make([]engine.Verdict, 0, len(c.FailOn))
	for _, s := range c.FailOn {
		v, err := engine.ParseVerdict(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
