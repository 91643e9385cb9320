package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modbusmgr/internal/config"
	"modbusmgr/internal/logger"
)

var (
	configPath string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "modbusmgr",
	Short: "Modbus peripheral discovery agent",
	Long: `modbusmgr scans the host's default gateway for Modbus slaves with nmap
and keeps the peripheral registry in step with what it finds.

Without a subcommand it runs the discovery loop.`,
	SilenceUsage: true,
	RunE:         runLoop,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: search $MODBUSMGR_CONFIG, ./modbusmgr.yaml, /srv/nuvlabox/shared/modbusmgr.yaml, /etc/modbusmgr/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

// loadConfig resolves, loads and validates the configuration
func loadConfig() (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)

	if configPath != "" {
		cfg, path, err = config.LoadFromPath(configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, path, err
	}

	if debugMode {
		cfg.Log.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// setup loads the configuration and builds the root logger
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("init logger: %w", err)
	}

	if path == "" {
		path = "defaults"
	}
	log.Debug().Str("config", path).Msg("Configuration loaded")

	return cfg, log, nil
}
