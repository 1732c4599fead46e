// Package config loads run settings from flags, QTERMPI_* variables and a YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"qtermpi/internal/quantum"
	"qtermpi/internal/sampler"
)

// EnvPrefix prefixes every environment override, e.g. QTERMPI_SHOTS.
const EnvPrefix = "QTERMPI"

// DefaultMinQubits is the sweep's lower bound when none is configured. A
// smaller N pulls it down to N.
const DefaultMinQubits = 2

// Largest counting-register size the simulator accepts.
const maxCountingQubits = quantum.MaxQubits - 1

// Config is the resolved run configuration. Values come from, in order of
// precedence: flags, QTERMPI_* environment variables, the config file,
// defaults.
type Config struct {
	// Qubits lists explicit counting-qubit counts. When empty the sweep
	// runs MinQubits..MaxQubits.
	Qubits    []int `mapstructure:"qubits" validate:"omitempty,dive,min=1,max=23"`
	MinQubits int   `mapstructure:"min_qubits" validate:"min=1,max=23"`
	MaxQubits int   `mapstructure:"max_qubits" validate:"omitempty,min=1,max=23"`

	Shots   int    `mapstructure:"shots" validate:"gt=0"`
	Seed    uint64 `mapstructure:"seed"`
	HasSeed bool   `mapstructure:"-"`
	Workers int    `mapstructure:"workers" validate:"min=0"`
	Exact   bool   `mapstructure:"exact"`

	Format  string `mapstructure:"format" validate:"oneof=text json yaml"`
	Monitor bool   `mapstructure:"monitor"`

	Verbose     int  `mapstructure:"verbose" validate:"min=0"`
	VeryVerbose bool `mapstructure:"very_verbose"`

	Telemetry Telemetry `mapstructure:"telemetry"`
}

// Telemetry selects where traces and metrics go.
type Telemetry struct {
	Exporter     string `mapstructure:"exporter" validate:"oneof=none stdout otlp prometheus"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" validate:"required_if=Exporter otlp"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	MetricsAddr  string `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("shots", sampler.DefaultShots)
	v.SetDefault("workers", 1)
	v.SetDefault("exact", false)
	v.SetDefault("format", "text")
	v.SetDefault("monitor", false)
	v.SetDefault("verbose", 0)
	v.SetDefault("very_verbose", false)

	v.SetDefault("telemetry.exporter", "none")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.otlp_insecure", true)
	v.SetDefault("telemetry.metrics_addr", "localhost:9464")
}

// NewViper returns a viper instance with defaults and environment
// overrides configured.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// flagKeys maps CLI flag names to config keys where the two differ.
var flagKeys = map[string]string{
	"min-qubits":    "min_qubits",
	"very-verbose":  "very_verbose",
	"telemetry":     "telemetry.exporter",
	"otlp-endpoint": "telemetry.otlp_endpoint",
	"metrics-addr":  "telemetry.metrics_addr",
}

// unbound flags never reach the config.
var unbound = map[string]bool{"help": true, "config": true, "version": true}

// BindFlags binds every flag in fs to its config key so a flag set on the
// command line overrides the environment and the file.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if unbound[f.Name] || err != nil {
			return
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			key = f.Name
		}
		if bindErr := v.BindPFlag(key, f); bindErr != nil {
			err = fmt.Errorf("bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

// Load reads file (if non-empty, otherwise an optional qtermpi.yaml in the
// working directory), decodes v into a Config and validates it.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("qtermpi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", quantum.ErrInvalidConfiguration, err)
	}
	cfg.HasSeed = v.IsSet("seed")
	if !v.IsSet("min_qubits") {
		cfg.MinQubits = DefaultMinQubits
		if cfg.MaxQubits > 0 {
			cfg.MinQubits = min(cfg.MinQubits, cfg.MaxQubits)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// QubitCounts returns the sweep's counting-qubit counts in order.
func (c *Config) QubitCounts() []int {
	if len(c.Qubits) > 0 {
		return c.Qubits
	}
	counts := make([]int, 0, c.MaxQubits-c.MinQubits+1)
	for n := c.MinQubits; n <= c.MaxQubits; n++ {
		counts = append(counts, n)
	}
	return counts
}

// LogLevel folds -v counts and --very-verbose into 0 (warn), 1 (info) or
// 2 (debug).
func (c *Config) LogLevel() int {
	if c.VeryVerbose {
		return 2
	}
	return min(c.Verbose, 2)
}
