package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrTimeout is returned by Retry when fn never succeeded in time
var ErrTimeout = errors.New("timed out")

// WaitForFile polls until path exists.
// Returns true if the file appeared, false on timeout or cancellation.
func WaitForFile(ctx context.Context, path string, timeout, interval time.Duration) bool {
	return poll(ctx, timeout, interval, func() bool {
		_, err := os.Stat(path)
		return err == nil
	})
}

// WaitForExit polls until the process with pid is no longer running.
// Returns true if it exited, false on timeout or cancellation.
func WaitForExit(ctx context.Context, pid int, timeout, interval time.Duration) bool {
	if pid <= 0 {
		return true
	}
	return poll(ctx, timeout, interval, func() bool {
		return !Alive(pid)
	})
}

// Retry calls fn until it succeeds or timeout elapses. On timeout the last error is wrapped.
func Retry(ctx context.Context, timeout, interval time.Duration, fn func() error) error {
	var last error
	ok := poll(ctx, timeout, interval, func() bool {
		last = fn()
		return last == nil
	})
	if ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, last)
}

func poll(ctx context.Context, timeout, interval time.Duration, done func() bool) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if done() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
