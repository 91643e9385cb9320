// Package service implements reconciliation of observed Modbus peripherals
// against the peripheral registry.
//
// ReconcileService owns the diff algorithm. Where "currently registered" comes
// from is a swappable StateSource: the remote registry query (RegistryState)
// or the local SQLite ledger. Sources that also implement Recorder are told
// about every create and delete that succeeds.
//
// Failure isolation is explicit. A state fetch failure aborts the pass before
// any mutation and is returned as ErrStateUnavailable. Individual create and
// delete failures are collected in Result.Failed and never stop their
// siblings.
package service
