package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"modbusmgr/internal/core/bootstrap"
	"modbusmgr/internal/discovery"
	"modbusmgr/internal/logger"
	"modbusmgr/internal/watcher"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the discovery loop until interrupted",
	RunE:  runLoop,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runLoop(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Msg("Starting Modbus peripheral manager")
	log.Debug().Msg(cfg.Summary())

	scanner := newNmapScanner(cfg, log)
	if err := scanner.Available(ctx); err != nil {
		log.Error().Err(err).Str("binary", cfg.Scanner.BinaryPath).Msg("Cannot run nmap, no scan would succeed")
		return err
	}

	boot, err := bootstrap.Run(ctx, bootstrap.Options{
		ActivationFile: cfg.Bootstrap.ActivationFile,
		ContextFile:    cfg.Bootstrap.ContextFile,
		HealthURL:      cfg.Bootstrap.HealthURL,
		HealthInterval: cfg.Bootstrap.HealthInterval.Duration(),
		Target:         cfg.Scanner.Target,
		RouteFile:      cfg.Bootstrap.RouteFile,
	}, logger.WithComponent(log, "bootstrap"))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		log.Error().Err(err).Msg("Bootstrap failed")
		return err
	}

	reconciler, closer, err := newReconciler(cfg, boot.Credentials, boot.Context, log)
	if err != nil {
		log.Error().Err(err).Msg("Cannot build reconciler")
		return err
	}
	defer closer.Close()

	loop := discovery.NewLoop(
		scanner,
		reconciler,
		boot.Target,
		logger.WithComponent(log, "discovery"),
		discovery.WithInterval(cfg.Discovery.Interval.Duration()),
		discovery.WithParser(discovery.NewParser(logger.WithComponent(log, "parser"), discovery.WithScript(scanner.Script()))),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(ctx)
	})

	if cfg.Discovery.TriggerFile != "" {
		w := watcher.New(cfg.Discovery.TriggerFile, loop.Wake, logger.WithComponent(log, "trigger"))
		g.Go(func() error {
			return w.Watch(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Stopped with error")
		return err
	}

	log.Info().Msg("Shutdown complete")
	return nil
}
