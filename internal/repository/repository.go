package repository

import (
	"context"

	"modbusmgr/internal/domain"
)

// Ledger records the peripherals this agent has registered
type Ledger interface {
	// Known lists recorded entries whose identifier matches pattern ("ns.*")
	Known(ctx context.Context, pattern string) ([]domain.RegistryEntry, error)

	// Recorded stores a peripheral after the registry accepted it
	Recorded(ctx context.Context, entry domain.RegistryEntry, p domain.Peripheral) error
	// Forgotten removes a peripheral after the registry dropped it
	Forgotten(ctx context.Context, identifier string) error

	// Peripherals returns every recorded peripheral ordered by identifier
	Peripherals(ctx context.Context) ([]domain.Peripheral, error)

	// Close releases resources
	Close() error
}
