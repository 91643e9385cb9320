package service

import (
	"context"

	"modbusmgr/internal/domain"
)

// StateSource reports the registry entries currently known in a namespace.
// Implementations decide where "previously known" comes from.
type StateSource interface {
	Known(ctx context.Context, pattern string) ([]domain.RegistryEntry, error)
}

// Recorder is notified of applied mutations.
// A local ledger implements it to stay in step with the registry.
type Recorder interface {
	Recorded(ctx context.Context, entry domain.RegistryEntry, p domain.Peripheral) error
	Forgotten(ctx context.Context, identifier string) error
}

// Lister queries registry entries matching an identifier pattern
type Lister interface {
	List(ctx context.Context, pattern string) ([]domain.RegistryEntry, error)
}

// RegistryState reads current state straight from the registry
type RegistryState struct {
	lister Lister
}

// NewRegistryState creates a state source backed by a registry query
func NewRegistryState(lister Lister) *RegistryState {
	return &RegistryState{lister: lister}
}

// Known lists the registry entries matching pattern
func (s *RegistryState) Known(ctx context.Context, pattern string) ([]domain.RegistryEntry, error) {
	return s.lister.List(ctx, pattern)
}
