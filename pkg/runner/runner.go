// Package runner executes the system management commands zone configuration
// operations are composed from. Commands are addressed by logical name so
// callers never hardcode binary paths and tests can substitute scripted
// output for real executions.
package runner

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Runner is the capability the configuration engine consumes to reach the
// host's management binaries
type Runner interface {
	// Run executes a command and returns its stdout as individual lines.
	// A nonzero exit is an ExecutionError.
	Run(name string, args ...string) ([]string, error)
	// RunTolerant is Run for callers that handle nonzero exits
	// themselves; the status is reported instead of wrapped in an error
	RunTolerant(name string, args ...string) ([]string, int, error)
	// Exec replaces the current process image with the command. It only
	// returns on failure, and is reserved for interactive sub-programs
	// such as a console attach.
	Exec(name string, args ...string) error
}

type (
	// CommandNotFoundError indicates an unregistered logical command name
	CommandNotFoundError struct {
		Name string
	}

	// ExecutionError carries the exit status of a failed command
	ExecutionError struct {
		Name   string
		Status int
		Stderr string
	}
)

func (e CommandNotFoundError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Name)
}

func (e ExecutionError) Error() string {
	msg := fmt.Sprintf("%s exited %d", e.Name, e.Status)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// DefaultCommands maps logical names to the usual binary locations
var DefaultCommands = map[string]string{
	"zoneadm":   "/usr/sbin/zoneadm",
	"zonecfg":   "/usr/sbin/zonecfg",
	"zlogin":    "/usr/sbin/zlogin",
	"dladm":     "/usr/sbin/dladm",
	"zfs":       "/usr/sbin/zfs",
	"swap":      "/usr/sbin/swap",
	"dispadmin": "/usr/sbin/dispadmin",
}

// ExecRunner runs real binaries from a fixed name to path table built at
// process start
type ExecRunner struct {
	paths map[string]string
}

// New creates an ExecRunner. A nil table gets DefaultCommands.
func New(paths map[string]string) *ExecRunner {
	if paths == nil {
		paths = DefaultCommands
	}
	table := make(map[string]string, len(paths))
	for name, path := range paths {
		table[name] = path
	}
	return &ExecRunner{paths: table}
}

func (r *ExecRunner) path(name string) (string, error) {
	path, ok := r.paths[name]
	if !ok {
		return "", CommandNotFoundError{Name: name}
	}
	return path, nil
}

// Run executes a command, capturing stdout lines
func (r *ExecRunner) Run(name string, args ...string) ([]string, error) {
	lines, status, stderr, err := r.run(name, args...)
	if err != nil {
		return nil, err
	}
	if status != 0 {
		return nil, ExecutionError{Name: name, Status: status, Stderr: stderr}
	}
	return lines, nil
}

// RunTolerant executes a command, reporting a nonzero exit via the status
// return rather than an error
func (r *ExecRunner) RunTolerant(name string, args ...string) ([]string, int, error) {
	lines, status, _, err := r.run(name, args...)
	return lines, status, err
}

func (r *ExecRunner) run(name string, args ...string) ([]string, int, string, error) {
	path, err := r.path(name)
	if err != nil {
		return nil, 0, "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, 0, "", ExecutionError{Name: name, Status: -1, Stderr: err.Error()}
		}
		return splitLines(stdout.String()), exitErr.ExitCode(), strings.TrimSpace(stderr.String()), nil
	}
	return splitLines(stdout.String()), 0, "", nil
}

// Exec replaces the current process image. It never returns on success.
func (r *ExecRunner) Exec(name string, args ...string) error {
	path, err := r.path(name)
	if err != nil {
		return err
	}
	return syscall.Exec(path, append([]string{path}, args...), os.Environ())
}

func splitLines(out string) []string {
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}
