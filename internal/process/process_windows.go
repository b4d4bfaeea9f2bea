//go:build windows

package process

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

const (
	processQueryLimitedInformation = 0x1000
	stillActive                    = 259
)

// StartAttached starts path on this process's console and standard streams
// and returns its pid. The console window stays open while any process is
// attached to it, so the child keeps it after the caller exits.
// env entries are added to the current environment.
func StartAttached(path string, args []string, env []string) (int, error) {
	cmd := attachedCommand(path, args, env)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", path, err)
	}

	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}

func attachedCommand(path string, args []string, env []string) *exec.Cmd {
	cmd := exec.Command(path, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// Alive reports whether a process with pid is running
func Alive(pid int) bool {
	h, err := syscall.OpenProcess(processQueryLimitedInformation, false, uint32(pid))
	if err != nil {
		return false
	}
	defer syscall.CloseHandle(h)

	var code uint32
	if err := syscall.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == stillActive
}
