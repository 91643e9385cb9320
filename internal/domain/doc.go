// Package domain defines the core types of the Modbus peripheral manager.
//
// The types here describe one pass of the discovery pipeline, from what the
// scanner reported to what the registry should hold.
//
// # Core Types
//
// RawFinding is one Modbus slave reported by the scanner under a scanned port,
// with the attributes the discovery script extracted for it.
//
// Peripheral is the canonical, registry-ready record derived from a finding.
// Its Identifier is minted from (namespace, port, interface, slave id) and is
// the only key used to match observations against registry state.
//
// Observation is the set of peripherals seen during a single cycle. It is
// rebuilt from scratch every cycle and never persisted.
//
// RegistryEntry is the registry's view of a previously created peripheral:
// an opaque resource id plus its identifier.
//
// # Design Principles
//
// - No network, registry or scanner dependencies
// - Absent values are omitted from serialized records, never sent as null
// - Identifiers are deterministic so reconciliation is idempotent
package domain
