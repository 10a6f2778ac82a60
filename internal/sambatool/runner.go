package sambatool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/isometry/terraform-provider-dccon/internal/logging"
)

// Command is one process invocation.
type Command struct {
	Path string
	Args []string
	Dir  string
	// Secrets are argument values replaced by *** wherever the command is
	// logged or reported.
	Secrets []string
}

// String renders the command line with secrets masked.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Path)
	for _, arg := range logging.RedactArgs(c.Args) {
		for _, s := range c.Secrets {
			if s != "" {
				arg = strings.ReplaceAll(arg, s, "***")
			}
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Result is the captured outcome of a command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands as local processes.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner creates a runner bounding each process by timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run starts cmd and waits for it. A non-zero exit is reported through
// Result.ExitCode, not as an error; the error is reserved for processes that
// could not be run or were cancelled.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return res, fmt.Errorf("running %s: %w", cmd.Path, ctx.Err())
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("running %s: %w", cmd.Path, err)
	}
	return res, nil
}
