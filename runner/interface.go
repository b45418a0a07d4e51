package runner

import (
	"context"
	"io"
)

// Runner composes the remote commands of a deployment and runs them over a
// connector.Executor.
type Runner interface {
	// Run executes a command, streaming its output into stdout and stderr.
	// A nonzero exit code is not an error.
	Run(ctx context.Context, command string, stdout, stderr io.Writer) (exitCode int, err error)

	// RunScript makes remotePath executable and invokes it as one
	// conjunctive command. It returns the command it issued.
	RunScript(ctx context.Context, remotePath string, stdout, stderr io.Writer) (command string, exitCode int, err error)

	// Remove deletes remotePath. A nonzero exit of rm is returned as an error.
	Remove(ctx context.Context, remotePath string) error
}
