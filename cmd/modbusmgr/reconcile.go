package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"modbusmgr/internal/core/bootstrap"
	"modbusmgr/internal/discovery"
	"modbusmgr/internal/logger"
)

var (
	reconcileFromXML string
	reconcileTarget  string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one full discovery cycle against the registry",
	Long: `Run one scan → parse → normalize → reconcile cycle and print its report.
Credentials and context are read from the bootstrap files without waiting.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileFromXML, "from-xml", "", "read a saved nmap XML document instead of scanning")
	reconcileCmd.Flags().StringVar(&reconcileTarget, "target", "", "scan target (default: scanner.target or the default gateway)")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	creds, err := bootstrap.LoadCredentials(ctx, cfg.Bootstrap.ActivationFile)
	if err != nil {
		return err
	}
	rc, err := bootstrap.LoadContext(ctx, cfg.Bootstrap.ContextFile)
	if err != nil {
		return err
	}

	target := reconcileTarget
	if target == "" {
		target = cfg.Scanner.Target
	}
	if target == "" && reconcileFromXML == "" {
		if target, err = bootstrap.DefaultGateway(cfg.Bootstrap.RouteFile); err != nil {
			return fmt.Errorf("resolve scan target: %w", err)
		}
	}

	reconciler, closer, err := newReconciler(cfg, creds, rc, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	scanner, parser := newScanner(cfg, reconcileFromXML, log)
	loop := discovery.NewLoop(
		scanner,
		reconciler,
		target,
		logger.WithComponent(log, "discovery"),
		discovery.WithParser(parser),
	)

	report := loop.RunOnce(ctx)

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return err
	}

	return report.Err
}
