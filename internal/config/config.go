// Package config provides configuration management for modbusmgr.
//
// One explicit Config is built at startup and passed down; no component
// reads the environment on its own.
//
// Config file locations (priority order):
//  1. $MODBUSMGR_CONFIG
//  2. ./modbusmgr.yaml
//  3. /srv/nuvlabox/shared/modbusmgr.yaml
//  4. /etc/modbusmgr/config.yaml
//
// Environment overrides applied after the file: NUVLA_ENDPOINT,
// NUVLA_ENDPOINT_INSECURE, LOG_LEVEL and DEBUG.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"modbusmgr/internal/domain"
)

const (
	DefaultEndpoint       = "https://nuvla.io"
	DefaultRegistryPath   = "/api/nuvlabox-peripheral"
	DefaultActivationFile = "/srv/nuvlabox/shared/.activated"
	DefaultContextFile    = "/srv/nuvlabox/shared/.context"
	DefaultHealthURL      = "http://agent/api/healthcheck"
	DefaultRouteFile      = "/proc/net/route"
	DefaultScript         = "modbus-discover"
	DefaultPorts          = "1-65535"

	DefaultInterval        = 90 * time.Second
	DefaultRegistryTimeout = 20 * time.Second
	DefaultHealthInterval  = 5 * time.Second
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid config")

// Load finds and loads the config file, or returns defaults if none found.
// Environment overrides are applied in both cases.
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the settings of a stock edge installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}

	if c.Registry.Endpoint == "" {
		c.Registry.Endpoint = DefaultEndpoint
	}
	if c.Registry.Path == "" {
		c.Registry.Path = DefaultRegistryPath
	}
	if c.Registry.Timeout == 0 {
		c.Registry.Timeout = Duration(DefaultRegistryTimeout)
	}
	if c.Registry.Namespace == "" {
		c.Registry.Namespace = domain.DefaultNamespace
	}

	if c.Bootstrap.ActivationFile == "" {
		c.Bootstrap.ActivationFile = DefaultActivationFile
	}
	if c.Bootstrap.ContextFile == "" {
		c.Bootstrap.ContextFile = DefaultContextFile
	}
	if c.Bootstrap.HealthURL == "" {
		c.Bootstrap.HealthURL = DefaultHealthURL
	}
	if c.Bootstrap.HealthInterval == 0 {
		c.Bootstrap.HealthInterval = Duration(DefaultHealthInterval)
	}
	if c.Bootstrap.RouteFile == "" {
		c.Bootstrap.RouteFile = DefaultRouteFile
	}

	if c.Scanner.Script == "" {
		c.Scanner.Script = DefaultScript
	}
	if c.Scanner.Ports == "" {
		c.Scanner.Ports = DefaultPorts
	}
	if c.Scanner.Posture == "" {
		c.Scanner.Posture = PostureBalanced
	}

	if c.Discovery.Interval == 0 {
		c.Discovery.Interval = Duration(DefaultInterval)
	}

	if c.State.Source == "" {
		c.State.Source = StateSourceRegistry
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
}

// applyEnv applies the environment overrides
func (c *Config) applyEnv() {
	if endpoint := os.Getenv("NUVLA_ENDPOINT"); endpoint != "" {
		c.Registry.Endpoint = endpoint
	}
	c.Registry.Endpoint = NormalizeEndpoint(c.Registry.Endpoint)

	if insecure := os.Getenv("NUVLA_ENDPOINT_INSECURE"); insecure != "" {
		c.Registry.Insecure = parseBool(insecure)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if debug := os.Getenv("DEBUG"); debug != "" {
		c.Log.Debug = parseBool(debug)
	}
}

// NormalizeEndpoint trims trailing slashes and adds https:// when the
// endpoint has no scheme
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return ""
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	return endpoint
}

// RegistryURL returns the peripheral collection URL
func (c *Config) RegistryURL() string {
	return NormalizeEndpoint(c.Registry.Endpoint) + "/" + strings.Trim(c.Registry.Path, "/")
}

// EffectiveScan returns the posture's scan profile with overrides applied
func (c *Config) EffectiveScan() ScanProfile {
	profile := c.Scanner.Posture.GetProfile()

	if c.Scanner.Timing != nil {
		profile.Timing = *c.Scanner.Timing
	}
	if c.Scanner.Aggressive != nil {
		profile.Aggressive = *c.Scanner.Aggressive
	}

	return profile
}

// Validate rejects settings the agent cannot run with
func (c *Config) Validate() error {
	var errs []error

	if NormalizeEndpoint(c.Registry.Endpoint) == "" {
		errs = append(errs, errors.New("registry.endpoint is empty"))
	}
	if c.Registry.Timeout.Duration() <= 0 {
		errs = append(errs, errors.New("registry.timeout must be positive"))
	}
	if c.Discovery.Interval.Duration() <= 0 {
		errs = append(errs, errors.New("discovery.interval must be positive"))
	}
	if !c.State.Source.Valid() {
		errs = append(errs, fmt.Errorf("state.source %q is not one of registry, ledger", c.State.Source))
	}
	if c.State.Source == StateSourceLedger && c.State.LedgerPath == "" {
		errs = append(errs, errors.New("state.ledger_path is required for the ledger source"))
	}
	if t := c.EffectiveScan().Timing; t < 0 || t > 5 {
		errs = append(errs, fmt.Errorf("scanner.timing %d is outside 0-5", t))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	scan := c.EffectiveScan()

	target := c.Scanner.Target
	if target == "" {
		target = "default gateway"
	}

	summary := fmt.Sprintf("Registry: %s (namespace %s, state from %s)\n",
		c.RegistryURL(), c.Registry.Namespace, c.State.Source)
	summary += fmt.Sprintf("Scan: %s every %s, script %s, posture %s (T%d, aggressive=%v)",
		target, c.Discovery.Interval.Duration(), c.Scanner.Script, c.Scanner.Posture, scan.Timing, scan.Aggressive)

	return summary
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
