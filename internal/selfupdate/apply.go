package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/leszamis/modsync/internal/process"
)

// ErrMarkerTimeout means the original process never signalled it was exiting
var ErrMarkerTimeout = errors.New("timed out waiting for readiness marker")

// LogName is the helper's log file, kept next to the executable it replaces
const LogName = "modsync-update.log"

var (
	rename       = os.Rename
	osExecutable = os.Executable
)

// ApplyOptions tells the helper what to replace
type ApplyOptions struct {
	Target    string
	Payload   string
	Marker    string
	ParentPID int
	// Timeout bounds both the marker wait and the rename retries. Default 30s.
	Timeout time.Duration
	// Interval is the polling period. Default 100ms.
	Interval time.Duration
	Launch   Launcher
	Logger   *log.Logger
}

// ApplyUpdate runs in the helper process: it waits for the original to exit,
// swaps the payload in for the target and relaunches it. If the new file cannot
// be put in place the original is restored.
func ApplyUpdate(ctx context.Context, opts ApplyOptions) error {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	if opts.Launch == nil {
		opts.Launch = process.StartAttached
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	logger.Info("waiting for modsync to exit", "marker", opts.Marker)
	if !process.WaitForFile(ctx, opts.Marker, opts.Timeout, opts.Interval) {
		logger.Error("original process never became ready; nothing was changed")
		return ErrMarkerTimeout
	}
	// On Unix the original replaces itself with the helper, so the pid is ours
	if opts.ParentPID != os.Getpid() && !process.WaitForExit(ctx, opts.ParentPID, opts.Timeout, opts.Interval) {
		logger.Warn("original process still running, trying anyway", "pid", opts.ParentPID)
	}

	payloadInfo, err := os.Stat(opts.Payload)
	if err != nil {
		return fmt.Errorf("failed to find update payload: %w", err)
	}

	oldPath := opts.Target + ".old"
	_ = os.Remove(oldPath)

	// Windows keeps the executable locked for a moment after exit
	err = process.Retry(ctx, opts.Timeout, opts.Interval, func() error {
		return rename(opts.Target, oldPath)
	})
	if err != nil {
		return fmt.Errorf("failed to move %s aside: %w", filepath.Base(opts.Target), err)
	}

	var result error
	if err := install(opts.Payload, opts.Target, payloadInfo.Size()); err != nil {
		logger.Error("failed to install update, restoring previous version", "err", err)
		_ = os.Remove(opts.Target)
		if rbErr := rename(oldPath, opts.Target); rbErr != nil {
			return fmt.Errorf("failed to install update: %w (rollback failed: %v)", err, rbErr)
		}
		result = fmt.Errorf("failed to install update, previous version restored: %w", err)
	} else {
		logger.Info("update installed", "target", opts.Target)
	}

	_ = os.Remove(opts.Marker)

	logger.Info("restarting modsync", "target", opts.Target)
	if _, err := opts.Launch(opts.Target, nil, []string{CleanupEnv + "=1"}); err != nil {
		return errors.Join(result, fmt.Errorf("failed to relaunch %s: %w", opts.Target, err))
	}
	return result
}

func install(payload, target string, size int64) error {
	if err := rename(payload, target); err != nil {
		return err
	}
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("failed to verify %s: %w", target, err)
	}
	if info.Size() != size {
		return fmt.Errorf("size mismatch for %s: got %d bytes, want %d", target, info.Size(), size)
	}
	return nil
}

// OpenLog opens the helper log next to target for appending
func OpenLog(target string) (*os.File, error) {
	path := filepath.Join(filepath.Dir(target), LogName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open update log: %w", err)
	}
	return f, nil
}

// CleanupOld removes the .old backup and the helper copy if CleanupEnv is set,
// then clears the variable so child processes don't inherit it.
func CleanupOld(helperName string) {
	if os.Getenv(CleanupEnv) != "1" {
		return
	}
	defer os.Unsetenv(CleanupEnv)

	exePath, err := executablePath()
	if err != nil {
		return
	}

	_ = os.Remove(exePath + ".old")
	if helperName != "" {
		_ = os.Remove(filepath.Join(filepath.Dir(exePath), helperName))
	}
}

// executablePath returns the running binary with symlinks resolved, so the
// swap and its leftovers happen next to the real file
func executablePath() (string, error) {
	exe, err := osExecutable()
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(exe)
}
