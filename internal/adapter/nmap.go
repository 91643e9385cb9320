package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/rs/zerolog"
)

var (
	// ErrNoTarget is returned when a scan is requested without a target
	ErrNoTarget = errors.New("no scan target")
	// ErrNmapUnavailable means the nmap binary cannot be run
	ErrNmapUnavailable = errors.New("nmap binary not available")
)

// NmapScanner runs nmap with the Modbus discovery script against one target
type NmapScanner struct {
	script            string
	scriptArgs        map[string]string
	ports             string
	timing            nmap.Timing
	binaryPath        string
	skipHostDiscovery bool
	timeout           time.Duration
	log               zerolog.Logger
}

// NewNmapScanner creates a scanner with the Modbus discovery defaults:
// modbus-discover in aggressive mode over every port at timing T4.
func NewNmapScanner(log zerolog.Logger, opts ...NmapOption) *NmapScanner {
	n := &NmapScanner{
		script: "modbus-discover",
		scriptArgs: map[string]string{
			"modbus-discover.aggressive": "true",
		},
		ports:  "1-65535",
		timing: nmap.TimingAggressive,
		log:    log,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Name returns the scanner identifier
func (n *NmapScanner) Name() string {
	return "nmap"
}

// Script returns the NSE script id whose output carries the slaves
func (n *NmapScanner) Script() string {
	return n.script
}

// Available checks that nmap can be started with the configured binary
func (n *NmapScanner) Available(ctx context.Context) error {
	opts := []nmap.Option{
		nmap.WithTargets("localhost"),
		nmap.WithListScan(),
	}
	if n.binaryPath != "" {
		opts = append(opts, nmap.WithBinaryPath(n.binaryPath))
	}

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNmapUnavailable, err)
	}

	if _, _, err := scanner.Run(); err != nil {
		return fmt.Errorf("%w: %w", ErrNmapUnavailable, err)
	}
	return nil
}

// Scan runs the discovery script against target and returns the decoded
// result. Without a configured timeout the scan is bounded only by ctx.
func (n *NmapScanner) Scan(ctx context.Context, target string) (*nmap.Run, error) {
	if target == "" {
		return nil, ErrNoTarget
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	scanner, err := nmap.NewScanner(ctx, n.options(target)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	n.log.Debug().
		Str("target", target).
		Str("script", n.script).
		Str("ports", n.ports).
		Msg("Running nmap")

	result, warnings, err := scanner.Run()
	if warnings != nil && len(*warnings) > 0 {
		n.log.Warn().Strs("warnings", *warnings).Str("target", target).Msg("Nmap reported warnings")
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s failed: %w", target, err)
	}

	return result, nil
}

func (n *NmapScanner) options(target string) []nmap.Option {
	opts := []nmap.Option{
		nmap.WithTargets(target),
		nmap.WithPorts(n.ports),
		nmap.WithScripts(n.script),
		nmap.WithTimingTemplate(n.timing),
	}

	if len(n.scriptArgs) > 0 {
		opts = append(opts, nmap.WithScriptArguments(n.scriptArgs))
	}

	// Gateways often drop ICMP
	if n.skipHostDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}

	if n.binaryPath != "" {
		opts = append(opts, nmap.WithBinaryPath(n.binaryPath))
	}

	return opts
}
