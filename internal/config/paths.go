package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "MODBUSMGR_CONFIG"
	// ConfigFileName is the file looked up in the working and shared directories
	ConfigFileName = "modbusmgr.yaml"
	// SystemConfigPath is the config baked into the agent image
	SystemConfigPath = "/etc/modbusmgr/config.yaml"
)

// sharedDir is the volume the edge agent shares with its peripheral managers.
// Operators drop modbusmgr.yaml there next to the activation files.
var sharedDir = filepath.Dir(DefaultActivationFile)

// SearchPaths lists the config candidates in priority order:
// $MODBUSMGR_CONFIG, ./modbusmgr.yaml, <shared volume>/modbusmgr.yaml and
// /etc/modbusmgr/config.yaml.
func SearchPaths() []string {
	var paths []string
	if path := os.Getenv(EnvConfigPath); path != "" {
		paths = append(paths, path)
	}
	return append(paths,
		ConfigFileName,
		filepath.Join(sharedDir, ConfigFileName),
		SystemConfigPath,
	)
}

// FindConfigPath returns the first existing candidate from SearchPaths,
// or "" when there is none
func FindConfigPath() string {
	for _, path := range SearchPaths() {
		if !fileExists(path) {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// DefaultConfigPath is where `config init` writes: the shared volume when
// it is mounted, the working directory otherwise
func DefaultConfigPath() string {
	if info, err := os.Stat(sharedDir); err == nil && info.IsDir() {
		return filepath.Join(sharedDir, ConfigFileName)
	}
	return ConfigFileName
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
