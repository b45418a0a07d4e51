package connector

import (
	"context"
	"io"
)

// Executor runs one remote command. stdout and stderr receive the two
// streams as they arrive and are complete when Exec returns. A nonzero exit
// is reported through exitCode with a nil error; err is set only when the
// command could not be dispatched or waited for.
type Executor interface {
	Exec(ctx context.Context, cmd string, stdout, stderr io.Writer) (exitCode int, err error)
}

// FileOperator copies local files to the remote host.
type FileOperator interface {
	// Upload creates or truncates remotePath and copies the full content of
	// localPath into it. It returns the number of bytes written.
	Upload(ctx context.Context, localPath, remotePath string) (int64, error)
}

// Connection is one authenticated transport to a single host. It is owned
// by exactly one deployment and must be closed by it.
type Connection interface {
	Executor
	FileOperator
	Close() error
}

// Dialer opens connections. Deployments take a Dialer so the transport can
// be substituted in tests.
type Dialer interface {
	Dial(ctx context.Context, target Target, cred Credential) (Connection, error)
}
