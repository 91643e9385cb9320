package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"modbusmgr/internal/codec"
	"modbusmgr/internal/core/bootstrap"
	"modbusmgr/internal/discovery"
	"modbusmgr/internal/domain"
	"modbusmgr/internal/logger"
	"modbusmgr/internal/service"
)

var (
	scanFromXML string
	scanFormat  string
	scanTarget  string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan once and print the discovered peripherals",
	Long: `Scan once and print the normalized peripherals without touching the
registry. --from-xml replays a saved nmap XML document instead of scanning.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanFromXML, "from-xml", "", "read a saved nmap XML document instead of scanning")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "json", "output format (json, yaml)")
	scanCmd.Flags().StringVar(&scanTarget, "target", "", "scan target (default: scanner.target or the default gateway)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	exporter, err := codec.ForFormat(scanFormat)
	if err != nil {
		return err
	}

	target := scanTarget
	if target == "" {
		target = cfg.Scanner.Target
	}
	if target == "" && scanFromXML == "" {
		if target, err = bootstrap.DefaultGateway(cfg.Bootstrap.RouteFile); err != nil {
			return fmt.Errorf("resolve scan target: %w", err)
		}
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	scanner, parser := newScanner(cfg, scanFromXML, log)
	loop := discovery.NewLoop(
		scanner,
		nil,
		target,
		logger.WithComponent(log, "discovery"),
		discovery.WithParser(parser),
	)

	report := loop.RunOnce(ctx)
	if report.Err != nil {
		return report.Err
	}

	obs := &domain.Observation{
		Peripherals: service.MintIdentifiers(report.Peripherals, cfg.Registry.Namespace),
		Dropped:     report.Dropped + report.Rejected,
	}

	if err := exporter.Export(obs, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
