package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modbusmgr/internal/logger"
)

func TestWatcher_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trigger")

	var calls atomic.Int32
	changed := make(chan struct{}, 4)

	w := New(path, func() {
		calls.Add(1)
		changed <- struct{}{}
	}, logger.NewTestLogger()).WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Watch(ctx)
	}()

	// give the watcher time to register the directory
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("scan"), 0o600)
		select {
		case <-changed:
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	// writes to other files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other"), []byte("x"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, changed)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestWatcher_Watch_MissingDirectory(t *testing.T) {
	t.Run("cancelled while waiting", func(t *testing.T) {
		w := New(filepath.Join(t.TempDir(), "absent", "trigger"), func() {}, logger.NewTestLogger())

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		assert.NoError(t, w.Watch(ctx))
	})

	t.Run("directory appears later", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "late")
		path := filepath.Join(dir, "trigger")

		changed := make(chan struct{}, 1)
		w := New(path, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		}, logger.NewTestLogger()).WithDebounce(10 * time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errCh := make(chan error, 1)
		go func() {
			errCh <- w.Watch(ctx)
		}()

		require.NoError(t, os.MkdirAll(dir, 0o755))

		assert.Eventually(t, func() bool {
			_ = os.WriteFile(path, []byte("wake"), 0o600)
			select {
			case <-changed:
				return true
			default:
				return false
			}
		}, 5*time.Second, 100*time.Millisecond)

		cancel()
		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not stop after cancellation")
		}
	})
}

func TestWaitFor(t *testing.T) {
	t.Run("already present", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "activated")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

		require.NoError(t, WaitFor(context.Background(), []string{path}, logger.NewTestLogger()))
	})

	t.Run("appears later", func(t *testing.T) {
		dir := t.TempDir()
		first := filepath.Join(dir, "activated")
		second := filepath.Join(dir, "context")

		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = os.WriteFile(first, []byte("{}"), 0o600)
			time.Sleep(50 * time.Millisecond)
			_ = os.WriteFile(second, []byte("{}"), 0o600)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		require.NoError(t, WaitFor(ctx, []string{first, second}, logger.NewTestLogger()))
	})

	t.Run("directory created later", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "shared")
		path := filepath.Join(dir, ".peripherals", "activated")

		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = os.MkdirAll(filepath.Dir(path), 0o755)
			_ = os.WriteFile(path, []byte("{}"), 0o600)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		require.NoError(t, WaitFor(ctx, []string{path}, logger.NewTestLogger()))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := WaitFor(ctx, []string{filepath.Join(t.TempDir(), "never")}, logger.NewTestLogger())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
