package domain

import "errors"

// ErrNotFound is returned when a registry entry no longer exists
var ErrNotFound = errors.New("registry entry not found")

// RegistryEntry is a peripheral as the registry knows it
type RegistryEntry struct {
	// ID is the registry-assigned resource id
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
}

// Context is the ownership information attached to every created record.
// It comes from the host's bootstrap context file.
type Context struct {
	ParentID string `json:"id"`
	Version  int    `json:"version"`
}
