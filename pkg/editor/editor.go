// Package editor launches an interactive editor on a file and reports
// whether the user changed it, isolating callers from the mechanics of
// spawning a sub-program.
package editor

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
)

// Outcome is the tri-state result of an editor invocation
type Outcome int

const (
	// Unchanged means the editor exited without modifying the file
	Unchanged Outcome = iota
	// Changed means the file content differs from before the invocation
	Changed
	// LaunchFailed means the editor could not be run at all
	LaunchFailed
)

// Editor is the interactive edit capability
type Editor interface {
	Invoke(path string) (Outcome, error)
}

// ExecEditor runs a real external editor attached to the caller's terminal
type ExecEditor struct {
	// Command may carry arguments ("code -w"); the file path is appended
	Command string
}

// New resolves the editor from $VISUAL then $EDITOR, falling back to vi
func New() *ExecEditor {
	command := os.Getenv("VISUAL")
	if command == "" {
		command = os.Getenv("EDITOR")
	}
	if command == "" {
		command = "vi"
	}
	return &ExecEditor{Command: command}
}

// Invoke opens path in the editor and reports whether the content changed
func (e *ExecEditor) Invoke(path string) (Outcome, error) {
	before, err := os.ReadFile(path)
	if err != nil {
		return LaunchFailed, err
	}

	parts := strings.Fields(e.Command)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return LaunchFailed, err
	}

	after, err := os.ReadFile(path)
	if err != nil {
		return LaunchFailed, err
	}
	if bytes.Equal(before, after) {
		return Unchanged, nil
	}
	return Changed, nil
}
