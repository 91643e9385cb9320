package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStateSourceValid(t *testing.T) {
	tests := []struct {
		input StateSource
		want  bool
	}{
		{StateSourceRegistry, true},
		{StateSourceLedger, true},
		{"LEDGER", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.input.Valid(); got != tt.want {
			t.Errorf("StateSource(%q).Valid() = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestPostureGetProfile(t *testing.T) {
	postures := []Posture{PostureStealth, PostureCautious, PostureBalanced, PostureAggressive}

	for _, p := range postures {
		profile := p.GetProfile()
		if profile.Timing < 0 || profile.Timing > 5 {
			t.Errorf("Posture(%s).GetProfile().Timing = %d, outside 0-5", p, profile.Timing)
		}
	}

	if got := Posture("unknown").GetProfile(); got != PostureProfiles[PostureBalanced] {
		t.Errorf("unknown posture profile = %+v, want balanced", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Discovery.Interval.Duration() != 90*time.Second {
		t.Errorf("Discovery.Interval = %s, want 90s", cfg.Discovery.Interval.Duration())
	}
	if cfg.Registry.Namespace != "modbus" {
		t.Errorf("Registry.Namespace = %s, want modbus", cfg.Registry.Namespace)
	}
	if cfg.State.Source != StateSourceRegistry {
		t.Errorf("State.Source = %s, want registry", cfg.State.Source)
	}
	if got := cfg.RegistryURL(); got != "https://nuvla.io/api/nuvlabox-peripheral" {
		t.Errorf("RegistryURL() = %s", got)
	}

	scan := cfg.EffectiveScan()
	if scan.Timing != 4 || !scan.Aggressive {
		t.Errorf("EffectiveScan() = %+v, want T4 aggressive", scan)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestEffectiveScan(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scanner.Posture = PostureStealth

	if got := cfg.EffectiveScan(); got.Timing != 1 || got.Aggressive {
		t.Errorf("stealth EffectiveScan() = %+v", got)
	}

	timing := 2
	aggressive := true
	cfg.Scanner.Timing = &timing
	cfg.Scanner.Aggressive = &aggressive

	if got := cfg.EffectiveScan(); got.Timing != 2 || !got.Aggressive {
		t.Errorf("overridden EffectiveScan() = %+v", got)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"nuvla.io", "https://nuvla.io"},
		{"https://nuvla.io/", "https://nuvla.io"},
		{"http://localhost:8200///", "http://localhost:8200"},
		{"  nuvla.io  ", "https://nuvla.io"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeEndpoint(tt.input); got != tt.want {
			t.Errorf("NormalizeEndpoint(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NUVLA_ENDPOINT", "edge.example.org/")
	t.Setenv("NUVLA_ENDPOINT_INSECURE", "True")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	cfg.applyEnv()

	if cfg.Registry.Endpoint != "https://edge.example.org" {
		t.Errorf("Registry.Endpoint = %s", cfg.Registry.Endpoint)
	}
	if !cfg.Registry.Insecure {
		t.Error("Registry.Insecure should be true")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"empty endpoint", func(c *Config) { c.Registry.Endpoint = "" }, "registry.endpoint"},
		{"zero interval", func(c *Config) { c.Discovery.Interval = 0 }, "discovery.interval"},
		{"unknown source", func(c *Config) { c.State.Source = "file" }, "state.source"},
		{"ledger without path", func(c *Config) { c.State.Source = StateSourceLedger }, "state.ledger_path"},
		{"bad timing", func(c *Config) {
			timing := 7
			c.Scanner.Timing = &timing
		}, "scanner.timing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("NUVLA_ENDPOINT", "")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Scanner.Posture = PostureAggressive
	cfg.Scanner.Target = "10.0.0.1"
	cfg.Discovery.Interval = Duration(2 * time.Minute)
	cfg.State.Source = StateSourceLedger
	cfg.State.LedgerPath = filepath.Join(tmpDir, "ledger.db")

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}

	if loaded.Scanner.Posture != PostureAggressive {
		t.Errorf("Posture = %s, want %s", loaded.Scanner.Posture, PostureAggressive)
	}
	if loaded.Scanner.Target != "10.0.0.1" {
		t.Errorf("Scanner.Target = %s, want 10.0.0.1", loaded.Scanner.Target)
	}
	if loaded.Discovery.Interval.Duration() != 2*time.Minute {
		t.Errorf("Discovery.Interval = %s, want 2m", loaded.Discovery.Interval.Duration())
	}
	if loaded.State.Source != StateSourceLedger {
		t.Errorf("State.Source = %s, want ledger", loaded.State.Source)
	}
}

func TestLoadFromPath_Partial(t *testing.T) {
	t.Setenv("NUVLA_ENDPOINT", "")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "registry:\n  endpoint: nuvla.example.com/\ndiscovery:\n  interval: 30s\n" +
		"scanner:\n  script_args:\n    modbus-discover.timeout: 2s\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}

	if cfg.Registry.Endpoint != "https://nuvla.example.com" {
		t.Errorf("Registry.Endpoint = %s", cfg.Registry.Endpoint)
	}
	if cfg.Discovery.Interval.Duration() != 30*time.Second {
		t.Errorf("Discovery.Interval = %s, want 30s", cfg.Discovery.Interval.Duration())
	}
	if cfg.Scanner.Script != DefaultScript {
		t.Errorf("Scanner.Script = %s, want default", cfg.Scanner.Script)
	}
	if got := cfg.Scanner.ScriptArgs["modbus-discover.timeout"]; got != "2s" {
		t.Errorf("Scanner.ScriptArgs[modbus-discover.timeout] = %q, want 2s", got)
	}
}

func TestLoadFromPath_BadDuration(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("discovery:\n  interval: soon\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, _, err := LoadFromPath(configPath); err == nil {
		t.Error("LoadFromPath() should reject an unparsable duration")
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	t.Chdir(tmpDir)

	found := FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should find config in working directory")
	}

	// Explicit path doesn't exist, should fall back
	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	found = FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should fall back when env path doesn't exist")
	}

	explicit := filepath.Join(t.TempDir(), "explicit.yaml")
	if err := cfg.Save(explicit); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	t.Setenv(EnvConfigPath, explicit)
	if found := FindConfigPath(); found != explicit {
		t.Errorf("FindConfigPath() = %s, want %s", found, explicit)
	}
}

func useSharedDir(t *testing.T, dir string) {
	t.Helper()
	prev := sharedDir
	sharedDir = dir
	t.Cleanup(func() { sharedDir = prev })
}

func TestFindConfigPath_SharedVolume(t *testing.T) {
	shared := t.TempDir()
	useSharedDir(t, shared)
	t.Setenv(EnvConfigPath, "")
	t.Chdir(t.TempDir())

	// A directory carrying the config file name is skipped
	if err := os.Mkdir(ConfigFileName, 0o755); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(shared, ConfigFileName)
	if err := DefaultConfig().Save(want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	if found := FindConfigPath(); found != want {
		t.Errorf("FindConfigPath() = %s, want %s", found, want)
	}
}

func TestSearchPaths(t *testing.T) {
	useSharedDir(t, "/srv/nuvlabox/shared")

	t.Setenv(EnvConfigPath, "")
	want := []string{ConfigFileName, "/srv/nuvlabox/shared/modbusmgr.yaml", SystemConfigPath}
	if got := SearchPaths(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("SearchPaths() = %v, want %v", got, want)
	}

	t.Setenv(EnvConfigPath, "/opt/modbusmgr.yaml")
	if got := SearchPaths(); got[0] != "/opt/modbusmgr.yaml" {
		t.Errorf("SearchPaths()[0] = %s, want the explicit path", got[0])
	}
}

func TestDefaultConfigPath(t *testing.T) {
	shared := t.TempDir()
	useSharedDir(t, shared)

	if got := DefaultConfigPath(); got != filepath.Join(shared, ConfigFileName) {
		t.Errorf("DefaultConfigPath() = %s, want the shared volume", got)
	}

	useSharedDir(t, filepath.Join(shared, "unmounted"))
	if got := DefaultConfigPath(); got != ConfigFileName {
		t.Errorf("DefaultConfigPath() = %s, want %s", got, ConfigFileName)
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}
