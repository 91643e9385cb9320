package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// DefaultHealthInterval is the fixed wait between readiness probes
const DefaultHealthInterval = 5 * time.Second

// WaitReady polls url until it answers with a 2xx status. It never gives up
// on its own and returns only on success or when ctx is cancelled.
func WaitReady(ctx context.Context, client *http.Client, url string, interval time.Duration, log zerolog.Logger) error {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if interval <= 0 {
		interval = DefaultHealthInterval
	}

	probe := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return struct{}{}, fmt.Errorf("health check returned %d", resp.StatusCode)
		}
		return struct{}{}, nil
	}

	notify := func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retry_in", next).Msg("Not ready yet")
	}

	_, err := backoff.Retry(ctx, probe,
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return fmt.Errorf("wait for readiness: %w", err)
	}

	log.Info().Str("url", url).Msg("Ready")
	return nil
}
