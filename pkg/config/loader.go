package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/auton8n-git/auton8n/pkg/engine"
)

// EnvPrefix prefixes every environment variable read by the loader, for
// example AUTON8N_WORKERS or AUTON8N_POLICIES_MAX_NODES.
const EnvPrefix = "AUTON8N"

// keys lists every configuration key so that environment variables are
// picked up even when no config file mentions them.
var keys = []string{
	"workflows",
	"tables",
	"database",
	"output",
	"list_prefix",
	"workers",
	"write_back",
	"backup",
	"recategorize",
	"fail_on",
	"policies.enabled",
	"policies.paths",
	"policies.disabled",
	"policies.max_nodes",
	"logging.level",
	"logging.format",
	"logging.output",
	"logging.caller",
	"logging.time_format",
	"tracing.enabled",
	"tracing.exporter",
	"tracing.endpoint",
	"tracing.sampling_rate",
	"tracing.insecure",
	"metrics.enabled",
	"metrics.listen_address",
	"metrics.path",
	"metrics.namespace",
}

// Loader reads configuration from a YAML file, the environment and bound
// command-line flags, in increasing order of precedence.
type Loader struct {
	v        *viper.Viper
	validate *validator.Validate
}

// NewLoader creates a loader with environment binding set up.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		// BindEnv only fails without a key.
		_ = v.BindEnv(k)
	}

	return &Loader{v: v, validate: NewValidator()}
}

// Viper exposes the underlying viper instance, for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads path, when not empty, and returns the merged and validated
// configuration. Unset fields take their value from Default.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		l.v.SetConfigFile(path)
		l.v.SetConfigType("yaml")
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := mergo.Merge(&cfg, Default()); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	if err := l.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and the telemetry settings.
func (l *Loader) Validate(cfg *Config) error {
	if err := l.validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("configuration validation failed: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := cfg.Telemetry("dev").Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// NewValidator returns a validator with the auton8n tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for an empty tag or a nil function.
	_ = v.RegisterValidation("verdict", func(fl validator.FieldLevel) bool {
		return engine.Verdict(fl.Field().String()).Validate() == nil
	})
	return v
}

// Load is a shortcut for NewLoader().Load(path).
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}
