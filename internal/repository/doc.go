// Package repository defines local persistence for registered peripherals.
//
// The Ledger mirrors what the agent created in the registry. It can stand in
// for the remote registry query as the reconciler's state source, or serve as
// a snapshot cache next to it. The sqlite subpackage implements it on SQLite
// in WAL mode and migrates its schema on open.
package repository
