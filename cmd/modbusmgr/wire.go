package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"modbusmgr/internal/adapter"
	"modbusmgr/internal/config"
	"modbusmgr/internal/core/bootstrap"
	"modbusmgr/internal/discovery"
	"modbusmgr/internal/domain"
	"modbusmgr/internal/logger"
	"modbusmgr/internal/registry"
	"modbusmgr/internal/repository/sqlite"
	"modbusmgr/internal/service"
)

// newNmapScanner builds the nmap scanner from the scanner settings
func newNmapScanner(cfg *config.Config, log zerolog.Logger) *adapter.NmapScanner {
	scan := cfg.EffectiveScan()
	return adapter.NewNmapScanner(logger.WithComponent(log, "scanner"),
		adapter.WithScript(cfg.Scanner.Script),
		adapter.WithScriptArgs(cfg.Scanner.ScriptArgs),
		adapter.WithPorts(cfg.Scanner.Ports),
		adapter.WithTiming(scan.Timing),
		adapter.WithAggressive(scan.Aggressive),
		adapter.WithBinaryPath(cfg.Scanner.BinaryPath),
		adapter.WithSkipHostDiscovery(cfg.Scanner.SkipHostDiscovery),
		adapter.WithTimeout(cfg.Scanner.Timeout.Duration()),
	)
}

// newScanner returns a replaying scanner when fromXML is set, nmap otherwise,
// with a parser reading the tables of the script it runs
func newScanner(cfg *config.Config, fromXML string, log zerolog.Logger) (adapter.Scanner, *discovery.Parser) {
	script := cfg.Scanner.Script

	var scanner adapter.Scanner
	if fromXML != "" {
		scanner = adapter.NewFileScanner(fromXML, logger.WithComponent(log, "scanner"))
	} else {
		nmapScanner := newNmapScanner(cfg, log)
		script = nmapScanner.Script()
		scanner = nmapScanner
	}

	return scanner, discovery.NewParser(logger.WithComponent(log, "parser"), discovery.WithScript(script))
}

// newReconciler builds the registry client and the configured state source.
// The returned closer releases the ledger, if one was opened.
func newReconciler(cfg *config.Config, creds bootstrap.Credentials, rc domain.Context, log zerolog.Logger) (*service.ReconcileService, io.Closer, error) {
	client, err := registry.NewClient(registry.Config{
		BaseURL:   cfg.RegistryURL(),
		Insecure:  cfg.Registry.Insecure,
		Timeout:   cfg.Registry.Timeout.Duration(),
		APIKey:    creds.APIKey,
		APISecret: creds.SecretKey,
		Context:   rc,
	}, logger.WithComponent(log, "registry"))
	if err != nil {
		return nil, nil, fmt.Errorf("create registry client: %w", err)
	}

	var (
		state  service.StateSource
		closer io.Closer = nopCloser{}
		opts   = []service.ReconcileOption{service.WithNamespace(cfg.Registry.Namespace)}
	)

	switch cfg.State.Source {
	case config.StateSourceLedger:
		ledger, err := sqlite.New(cfg.State.LedgerPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open ledger: %w", err)
		}
		state, closer = ledger, ledger

	default:
		state = service.NewRegistryState(client)

		if cfg.State.LedgerPath != "" {
			ledger, err := sqlite.New(cfg.State.LedgerPath)
			if err != nil {
				return nil, nil, fmt.Errorf("open ledger: %w", err)
			}
			opts = append(opts, service.WithRecorder(ledger))
			closer = ledger
		}
	}

	log.Info().
		Str("registry", cfg.RegistryURL()).
		Str("state", string(cfg.State.Source)).
		Str("namespace", cfg.Registry.Namespace).
		Msg("Reconciler ready")

	svc := service.NewReconcileService(state, client, logger.WithComponent(log, "reconciler"), opts...)
	return svc, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
