package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"modbusmgr/internal/codec"
	"modbusmgr/internal/domain"
	"modbusmgr/internal/repository"
	"modbusmgr/internal/repository/sqlite"
)

var ledgerFormat string

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Print the peripherals recorded in the local ledger",
	Long: `Print every peripheral the agent has registered, as recorded in the
SQLite ledger at state.ledger_path.`,
	RunE: runLedger,
}

func init() {
	ledgerCmd.Flags().StringVarP(&ledgerFormat, "format", "f", "json", "output format (json, yaml)")
	rootCmd.AddCommand(ledgerCmd)
}

func runLedger(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.State.LedgerPath == "" {
		return errors.New("state.ledger_path is not set")
	}

	exporter, err := codec.ForFormat(ledgerFormat)
	if err != nil {
		return err
	}

	var ledger repository.Ledger
	if ledger, err = sqlite.New(cfg.State.LedgerPath); err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer ledger.Close()

	peripherals, err := ledger.Peripherals(cmd.Context())
	if err != nil {
		return err
	}

	obs := domain.NewObservation()
	for _, p := range peripherals {
		obs.AddPeripheral(p)
	}
	return exporter.Export(obs, cmd.OutOrStdout())
}
