package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"modbusmgr/internal/domain"
	"modbusmgr/internal/watcher"
)

// Options says where the host exposes what the agent needs before it can run
type Options struct {
	// ActivationFile holds the registry credentials
	ActivationFile string
	// ContextFile holds the parent id and version attached to created records
	ContextFile string

	// HealthURL is polled until it answers; empty skips the check
	HealthURL      string
	HealthInterval time.Duration
	HTTPClient     *http.Client

	// Target overrides the gateway lookup
	Target    string
	RouteFile string
}

// Result contains everything bootstrap resolved
type Result struct {
	Timestamp   time.Time
	Duration    time.Duration
	Credentials Credentials
	Context     domain.Context
	Target      string
}

// Run executes the full bootstrap sequence. It blocks until the host is
// ready and returns only on success, cancellation, or an unusable file.
func Run(ctx context.Context, opts Options, log zerolog.Logger) (*Result, error) {
	log.Info().Msg("Bootstrap: starting")
	start := time.Now()

	result := &Result{}

	// Phase 1: wait for activation
	var files []string
	for _, path := range []string{opts.ActivationFile, opts.ContextFile} {
		if path != "" {
			files = append(files, path)
		}
	}
	if len(files) > 0 {
		log.Info().Msg("Bootstrap: phase 1 - waiting for activation")
		if err := watcher.WaitFor(ctx, files, log); err != nil {
			return nil, fmt.Errorf("wait for activation: %w", err)
		}
	}

	// Phase 2: credentials and context
	if opts.ActivationFile != "" {
		log.Info().Msg("Bootstrap: phase 2 - reading credentials")
		creds, err := LoadCredentials(ctx, opts.ActivationFile)
		if err != nil {
			return nil, err
		}
		result.Credentials = creds
	}
	if opts.ContextFile != "" {
		rc, err := LoadContext(ctx, opts.ContextFile)
		if err != nil {
			return nil, err
		}
		result.Context = rc
	}

	// Phase 3: readiness
	if opts.HealthURL != "" {
		log.Info().Str("url", opts.HealthURL).Msg("Bootstrap: phase 3 - waiting for readiness")
		if err := WaitReady(ctx, opts.HTTPClient, opts.HealthURL, opts.HealthInterval, log); err != nil {
			return nil, err
		}
	}

	// Phase 4: scan target
	result.Target = opts.Target
	if result.Target == "" {
		log.Info().Msg("Bootstrap: phase 4 - resolving default gateway")
		gw, err := DefaultGateway(opts.RouteFile)
		if err != nil {
			return nil, err
		}
		result.Target = gw
	}

	result.Timestamp = time.Now()
	result.Duration = time.Since(start)

	log.Info().
		Dur("duration", result.Duration).
		Str("target", result.Target).
		Str("parent", result.Context.ParentID).
		Msg("Bootstrap: complete")

	return result, nil
}
