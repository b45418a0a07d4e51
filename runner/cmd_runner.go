package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmdeploy/common"
	"github.com/mensylisir/xmdeploy/connector"
)

// cmdRunner implements the Runner interface using a connector.Executor.
type cmdRunner struct {
	exec connector.Executor
}

// NewCmdRunner creates a new Runner that uses the given executor.
func NewCmdRunner(exec connector.Executor) Runner {
	return &cmdRunner{exec: exec}
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")

// Quote wraps p in double quotes, escaping the characters the shell still
// interprets inside them.
func Quote(p string) string {
	return `"` + quoteReplacer.Replace(p) + `"`
}

// ExecCommand returns `chmod +x "<p>" && "<p>"`.
func ExecCommand(remotePath string) string {
	q := Quote(remotePath)
	return fmt.Sprintf(common.ChmodExecCmdTpl, q, q)
}

// RemoveCommand returns `rm "<p>"`.
func RemoveCommand(remotePath string) string {
	return fmt.Sprintf(common.RemoveCmdTpl, Quote(remotePath))
}

func (r *cmdRunner) Run(ctx context.Context, command string, stdout, stderr io.Writer) (int, error) {
	return r.exec.Exec(ctx, command, stdout, stderr)
}

func (r *cmdRunner) RunScript(ctx context.Context, remotePath string, stdout, stderr io.Writer) (string, int, error) {
	command := ExecCommand(remotePath)
	code, err := r.Run(ctx, command, stdout, stderr)
	if err != nil {
		return command, code, errors.Wrapf(err, "failed to run %s", remotePath)
	}
	return command, code, nil
}

func (r *cmdRunner) Remove(ctx context.Context, remotePath string) error {
	var stderr bytes.Buffer
	code, err := r.Run(ctx, RemoveCommand(remotePath), io.Discard, &stderr)
	if err != nil {
		return errors.Wrapf(err, "failed to remove %s", remotePath)
	}
	if code != 0 {
		return errors.Errorf("rm %s exited with code %d: %s", remotePath, code, strings.TrimSpace(stderr.String()))
	}
	return nil
}
