package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Result holds the captured stderr and exit status of one invocation
type Result struct {
	Program  string
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

// Options configures a single command execution
type Options struct {
	// Stdout receives the command's standard output; nil discards it
	Stdout io.Writer
	// Console receives a copy of stderr as it is produced
	Console io.Writer
	// Env is appended to the current environment
	Env map[string]string
}

// Option modifies Options
type Option func(*Options)

// WithStdout routes standard output to w
func WithStdout(w io.Writer) Option {
	return func(o *Options) { o.Stdout = w }
}

// WithConsole mirrors stderr to w
func WithConsole(w io.Writer) Option {
	return func(o *Options) { o.Console = w }
}

// WithEnvVar adds one environment variable
func WithEnvVar(key, value string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		o.Env[key] = value
	}
}

// CommandExecutor runs one program with fixed arguments. It blocks until the program exits.
type CommandExecutor struct {
	program string
	args    []string
}

// NewCommand creates a new CommandExecutor
func NewCommand(program string, args ...string) *CommandExecutor {
	return &CommandExecutor{program: program, args: args}
}

// Execute runs the command. A non-zero exit is returned as an error alongside the Result.
func (c *CommandExecutor) Execute(ctx context.Context, opts ...Option) (*Result, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	cmd := exec.CommandContext(ctx, c.program, c.args...)
	if len(options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}
	if options.Stdout != nil {
		cmd.Stdout = options.Stdout
	}

	var stderrBuf bytes.Buffer
	if options.Console != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, options.Console)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()

	result := &Result{
		Program: c.program,
		Args:    c.args,
		Stderr:  stderrBuf.String(),
		Err:     err,
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
	}

	if err != nil {
		return result, fmt.Errorf("command %s failed: %w", c.program, err)
	}
	return result, nil
}
