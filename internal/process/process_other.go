//go:build !windows

package process

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// StartAttached replaces the current process with path, keeping its pid,
// terminal and standard streams. It only returns on failure; the shell that
// started modsync keeps waiting on the same pid and hands the terminal over.
// env entries are added to the current environment.
func StartAttached(path string, args []string, env []string) (int, error) {
	argv := append([]string{path}, args...)
	if err := syscall.Exec(path, argv, append(os.Environ(), env...)); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", path, err)
	}
	return os.Getpid(), nil
}

// Alive reports whether a process with pid is running
func Alive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
