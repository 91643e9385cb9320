// Package bootstrap prepares the agent before its first discovery cycle.
//
// It waits for the host to drop the activation and context files, reads the
// registry credentials and the parent context, waits for the readiness
// endpoint, and resolves the scan target from the default gateway.
package bootstrap
