package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"modbusmgr/internal/domain"
)

// ErrStateUnavailable aborts a reconciliation before any mutation
var ErrStateUnavailable = errors.New("current registry state unavailable")

// Operation names a registry mutation
type Operation string

const (
	OpCreate          Operation = "create"
	OpDelete          Operation = "delete"
	OpMarkUnavailable Operation = "mark_unavailable"
)

// Registry applies peripheral mutations
type Registry interface {
	// Create submits a peripheral and returns its registry resource id
	Create(ctx context.Context, p domain.Peripheral) (string, error)
	// Delete removes the entry with the given identifier
	Delete(ctx context.Context, identifier string) error
	// MarkUnavailable flags an entry that could not be deleted
	MarkUnavailable(ctx context.Context, identifier string) error
}

// Failure records one mutation that did not succeed
type Failure struct {
	Identifier string    `json:"identifier"`
	Op         Operation `json:"op"`
	Err        error     `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Op, f.Identifier, f.Err)
}

// Result is the outcome of one reconciliation
type Result struct {
	// Kept were observed and already registered
	Kept []string `json:"kept,omitempty"`
	// Created were observed and newly registered
	Created []string `json:"created,omitempty"`
	// Deleted were registered, not observed, and are now gone
	Deleted []string `json:"deleted,omitempty"`
	// Retired could not be deleted and were marked unavailable instead
	Retired []string  `json:"retired,omitempty"`
	Failed  []Failure `json:"failed,omitempty"`
}

// Changed reports whether any mutation was applied
func (r Result) Changed() bool {
	return len(r.Created) > 0 || len(r.Deleted) > 0 || len(r.Retired) > 0
}

// ReconcileService converges the registry to the observed peripherals
type ReconcileService struct {
	state     StateSource
	registry  Registry
	recorders []Recorder
	namespace string
	log       zerolog.Logger
}

// ReconcileOption configures a ReconcileService
type ReconcileOption func(*ReconcileService)

// WithNamespace sets the identifier namespace this service owns
func WithNamespace(ns string) ReconcileOption {
	return func(r *ReconcileService) {
		if ns != "" {
			r.namespace = ns
		}
	}
}

// WithRecorder adds a recorder notified of every applied create and delete
func WithRecorder(rec Recorder) ReconcileOption {
	return func(r *ReconcileService) {
		r.addRecorder(rec)
	}
}

// NewReconcileService creates a reconcile service.
// A state source that also implements Recorder is fed automatically.
func NewReconcileService(state StateSource, registry Registry, log zerolog.Logger, opts ...ReconcileOption) *ReconcileService {
	r := &ReconcileService{
		state:     state,
		registry:  registry,
		namespace: domain.DefaultNamespace,
		log:       log,
	}

	if rec, ok := state.(Recorder); ok {
		r.addRecorder(rec)
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *ReconcileService) addRecorder(rec Recorder) {
	if rec == nil {
		return
	}
	for _, existing := range r.recorders {
		if existing == rec {
			return
		}
	}
	r.recorders = append(r.recorders, rec)
}

// Namespace returns the identifier namespace
func (r *ReconcileService) Namespace() string {
	return r.namespace
}

// Reconcile diffs observed peripherals against the current registry state and
// applies creates, then deletes. Individual mutation failures are collected in
// the result; only a state fetch failure (ErrStateUnavailable) or context
// cancellation is returned as an error.
func (r *ReconcileService) Reconcile(ctx context.Context, observed []domain.Peripheral) (Result, error) {
	var result Result

	// Step 1: mint identifiers
	wanted := MintIdentifiers(observed, r.namespace)

	// Step 2: fetch current state
	known, err := r.state.Known(ctx, domain.NamespacePattern(r.namespace))
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrStateUnavailable, err)
	}

	// Step 3: diff
	toCreate, toDelete, kept := r.diff(wanted, known)
	result.Kept = kept

	r.log.Debug().
		Int("observed", len(wanted)).
		Int("known", len(known)).
		Int("create", len(toCreate)).
		Int("delete", len(toDelete)).
		Msg("Computed reconciliation plan")

	// Step 4: creates
	for _, p := range toCreate {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		r.create(ctx, p, &result)
	}

	// Step 5: deletes
	for _, identifier := range toDelete {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		r.delete(ctx, identifier, &result)
	}

	return result, nil
}

// diff partitions wanted peripherals and known entries by identifier.
// Duplicate identifiers on either side collapse to their first occurrence.
func (r *ReconcileService) diff(wanted []domain.Peripheral, known []domain.RegistryEntry) (toCreate []domain.Peripheral, toDelete, kept []string) {
	knownSet := make(map[string]bool, len(known))
	for _, entry := range known {
		if !domain.InNamespace(entry.Identifier, r.namespace) {
			r.log.Debug().Str("identifier", entry.Identifier).Msg("Ignoring entry outside namespace")
			continue
		}
		knownSet[entry.Identifier] = true
	}

	seen := make(map[string]bool, len(wanted))
	for _, p := range wanted {
		if seen[p.Identifier] {
			r.log.Warn().Str("identifier", p.Identifier).Msg("Duplicate peripheral in observation")
			continue
		}
		seen[p.Identifier] = true

		if knownSet[p.Identifier] {
			kept = append(kept, p.Identifier)
			continue
		}
		toCreate = append(toCreate, p)
	}

	for identifier := range knownSet {
		if !seen[identifier] {
			toDelete = append(toDelete, identifier)
		}
	}
	sort.Strings(toDelete)

	return toCreate, toDelete, kept
}

func (r *ReconcileService) create(ctx context.Context, p domain.Peripheral, result *Result) {
	resourceID, err := r.registry.Create(ctx, p)
	if err != nil {
		r.log.Error().Err(err).Str("identifier", p.Identifier).Msg("Cannot create Modbus peripheral, moving on")
		result.Failed = append(result.Failed, Failure{Identifier: p.Identifier, Op: OpCreate, Err: err})
		return
	}

	r.log.Info().
		Str("identifier", p.Identifier).
		Str("resource_id", resourceID).
		Msg("Created Modbus peripheral")
	result.Created = append(result.Created, p.Identifier)

	entry := domain.RegistryEntry{ID: resourceID, Identifier: p.Identifier}
	for _, rec := range r.recorders {
		if err := rec.Recorded(ctx, entry, p); err != nil {
			r.log.Warn().Err(err).Str("identifier", p.Identifier).Msg("Failed to record created peripheral")
		}
	}
}

func (r *ReconcileService) delete(ctx context.Context, identifier string, result *Result) {
	err := r.registry.Delete(ctx, identifier)

	switch {
	case err == nil:
		r.log.Info().Str("identifier", identifier).Msg("Deleted Modbus peripheral")
	case errors.Is(err, domain.ErrNotFound):
		r.log.Info().Str("identifier", identifier).Msg("Peripheral no longer exists in registry, moving on")
	default:
		r.log.Error().Err(err).Str("identifier", identifier).Msg("Cannot delete Modbus peripheral, marking it unavailable")
		result.Failed = append(result.Failed, Failure{Identifier: identifier, Op: OpDelete, Err: err})

		if err := r.registry.MarkUnavailable(ctx, identifier); err != nil {
			r.log.Error().Err(err).Str("identifier", identifier).Msg("Cannot mark peripheral unavailable, will retry next cycle")
			result.Failed = append(result.Failed, Failure{Identifier: identifier, Op: OpMarkUnavailable, Err: err})
			return
		}
		result.Retired = append(result.Retired, identifier)
		return
	}

	result.Deleted = append(result.Deleted, identifier)

	for _, rec := range r.recorders {
		if err := rec.Forgotten(ctx, identifier); err != nil {
			r.log.Warn().Err(err).Str("identifier", identifier).Msg("Failed to forget deleted peripheral")
		}
	}
}

// MintIdentifiers returns copies of peripherals with their registry
// identifiers set for namespace ns
func MintIdentifiers(peripherals []domain.Peripheral, ns string) []domain.Peripheral {
	minted := make([]domain.Peripheral, len(peripherals))
	for i, p := range peripherals {
		p.Identifier = p.MintIdentifier(ns)
		minted[i] = p
	}
	return minted
}
