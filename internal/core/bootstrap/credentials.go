package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"

	"modbusmgr/internal/domain"
)

// ErrMissingCredentials means the activation file lacks an api key or secret
var ErrMissingCredentials = errors.New("activation file has no api credentials")

// decodeRetryDelay covers a file caught mid-write by its producer
var decodeRetryDelay = time.Second

// Credentials authenticate the agent against the registry
type Credentials struct {
	APIKey    string `json:"api-key"`
	SecretKey string `json:"secret-key"`
}

// LoadCredentials reads the activation file
func LoadCredentials(ctx context.Context, path string) (Credentials, error) {
	creds, err := loadJSON[Credentials](ctx, path)
	if err != nil {
		return Credentials{}, err
	}
	if creds.APIKey == "" || creds.SecretKey == "" {
		return Credentials{}, fmt.Errorf("%w: %s", ErrMissingCredentials, path)
	}
	return creds, nil
}

// LoadContext reads the context file carrying the parent id and version
func LoadContext(ctx context.Context, path string) (domain.Context, error) {
	return loadJSON[domain.Context](ctx, path)
}

// loadJSON decodes path, retrying once after decodeRetryDelay when the
// content is not valid JSON yet
func loadJSON[T any](ctx context.Context, path string) (T, error) {
	operation := func() (T, error) {
		var v T

		data, err := os.ReadFile(path)
		if err != nil {
			return v, backoff.Permanent(fmt.Errorf("read %s: %w", path, err))
		}

		if err := json.Unmarshal(data, &v); err != nil {
			return v, fmt.Errorf("decode %s: %w", path, err)
		}
		return v, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(decodeRetryDelay)),
		backoff.WithMaxTries(2),
	)
}
