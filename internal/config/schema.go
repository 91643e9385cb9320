package config

import (
	"time"

	"modbusmgr/internal/logger"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Registry  RegistryConfig  `yaml:"registry"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	State     StateConfig     `yaml:"state"`
	Log       logger.Config   `yaml:"log"`
}

// RegistryConfig locates the peripheral registry
type RegistryConfig struct {
	// Endpoint is the registry origin, e.g. https://nuvla.io
	Endpoint string `yaml:"endpoint"`
	// Path is the peripheral collection under Endpoint
	Path      string   `yaml:"path"`
	Insecure  bool     `yaml:"insecure"`
	Timeout   Duration `yaml:"timeout"`
	Namespace string   `yaml:"namespace"`
}

// BootstrapConfig says where the host publishes activation and readiness
type BootstrapConfig struct {
	ActivationFile string   `yaml:"activation_file"`
	ContextFile    string   `yaml:"context_file"`
	HealthURL      string   `yaml:"health_url"`
	HealthInterval Duration `yaml:"health_interval"`
	RouteFile      string   `yaml:"route_file"`
}

// ScannerConfig holds nmap settings
type ScannerConfig struct {
	// Target overrides the default gateway as scan target
	Target            string   `yaml:"target,omitempty"`
	BinaryPath        string   `yaml:"binary_path,omitempty"`
	Script            string   `yaml:"script"`
	Ports             string   `yaml:"ports"`
	Posture           Posture  `yaml:"posture"`
	Timing            *int     `yaml:"timing,omitempty"`     // nil = posture default
	Aggressive        *bool    `yaml:"aggressive,omitempty"` // nil = posture default
	SkipHostDiscovery bool     `yaml:"skip_host_discovery"`
	Timeout           Duration `yaml:"timeout,omitempty"`
	// ScriptArgs are extra NSE arguments, for example modbus-discover.timeout
	ScriptArgs map[string]string `yaml:"script_args,omitempty"`
}

// DiscoveryConfig holds loop settings
type DiscoveryConfig struct {
	Interval Duration `yaml:"interval"`
	// TriggerFile wakes the loop early when written
	TriggerFile string `yaml:"trigger_file,omitempty"`
}

// StateConfig selects the reconciler's state source
type StateConfig struct {
	Source StateSource `yaml:"source"`
	// LedgerPath is the SQLite ledger; required for the ledger source,
	// optional snapshot cache otherwise
	LedgerPath string `yaml:"ledger_path,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
