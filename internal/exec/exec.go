// Package exec abstracts execution of external commands so callers can be
// tested against a recorded fake instead of real processes.
package exec

import (
	"bytes"
	"context"
	"io"
	"os"
	osexec "os/exec"
)

// Result holds the output of a completed command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// RunOptions configures one command invocation.
type RunOptions struct {
	Name   string    // command name or path (required)
	Args   []string  // command arguments
	Dir    string    // working directory (empty = current)
	Env    []string  // additional environment, KEY=VALUE form
	Stdin  io.Reader // stdin source (nil = none)
	Stdout io.Writer // if set, stdout streams here instead of being captured
	Stderr io.Writer // if set, stderr streams here instead of being captured
}

// Executor runs external commands.
type Executor interface {
	// Run executes a command and returns its output. When Stdout/Stderr
	// writers are set, output streams there and the corresponding Result
	// field is nil. A non-zero exit surfaces as *os/exec.ExitError.
	Run(ctx context.Context, opts *RunOptions) (*Result, error)

	// LookPath searches PATH for an executable.
	LookPath(name string) (string, error)
}

type executor struct{}

// New returns an Executor backed by os/exec.
func New() Executor {
	return &executor{}
}

func (e *executor) Run(ctx context.Context, opts *RunOptions) (*Result, error) {
	// The whole point of this package is running caller-specified commands;
	// validation of name and arguments is the caller's job.
	cmd := osexec.CommandContext(ctx, opts.Name, opts.Args...) //nolint:gosec // intentional subprocess execution

	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}

	var stdout, stderr bytes.Buffer
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	} else {
		cmd.Stdout = &stdout
	}
	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	} else {
		cmd.Stderr = &stderr
	}

	err := cmd.Run()

	result := &Result{}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if opts.Stdout == nil {
		result.Stdout = stdout.Bytes()
	}
	if opts.Stderr == nil {
		result.Stderr = stderr.Bytes()
	}
	return result, err
}

func (e *executor) LookPath(name string) (string, error) {
	return osexec.LookPath(name)
}
