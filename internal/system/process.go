// Package system holds the host-facing collaborators of the apply step:
// links, daemon processes and files.
package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

var ErrInvalidPID = errors.New("invalid pid")

// Runner executes an external command.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// StartStopDaemon supervises daemon instances through start-stop-daemon.
type StartStopDaemon struct {
	Binary string
	Daemon string
	Run    Runner
}

func NewStartStopDaemon(binary, daemon string) *StartStopDaemon {
	return &StartStopDaemon{Binary: binary, Daemon: daemon, Run: execRunner}
}

// ReadPID parses a pid file. A missing file yields 0 and no error.
func ReadPID(pidfile string) (int, error) {
	data, err := os.ReadFile(pidfile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w in %s", ErrInvalidPID, pidfile)
	}
	return pid, nil
}

// Alive reports whether a process with pid exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Running returns the pid recorded in pidfile when that process is alive.
func (s *StartStopDaemon) Running(pidfile string) (int, bool) {
	pid, err := ReadPID(pidfile)
	if err != nil || !Alive(pid) {
		return 0, false
	}
	return pid, true
}

// Stop stops the instance recorded in pidfile if it is still running.
func (s *StartStopDaemon) Stop(ctx context.Context, pidfile string) error {
	if _, ok := s.Running(pidfile); !ok {
		return nil
	}
	return s.Run(ctx, s.Binary, "--stop", "--quiet", "--pidfile", pidfile)
}

// Start launches the daemon detached under the given name.
func (s *StartStopDaemon) Start(ctx context.Context, pidfile, name, configFile string) error {
	return s.Run(ctx, s.Binary,
		"--start", "--quiet",
		"--pidfile", pidfile,
		"--exec", s.Daemon,
		"--",
		"--daemon", name,
		"--config", configFile,
	)
}
