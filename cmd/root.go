package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmdeploy/common"
	"github.com/mensylisir/xmdeploy/logger"
)

// Set via -ldflags at build time.
var (
	Version = "0.1.0"
	Commit  = "none"
)

type rootOptions struct {
	verbose bool
	logDir  string
}

// NewRootCommand builds the xmdeploy command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   common.AppName,
		Short: "Upload a script to a remote host over SSH, run it and clean up",
		Long: `xmdeploy connects to one host over SSH, uploads a single local file,
makes it executable, runs it, reports its output and exit code, and removes
the uploaded file again.`,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.InitGlobalLogger(opts.logDir, opts.verbose, logrus.InfoLevel)
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&opts.logDir, "log-dir", "", "Also write logs to a daily rotated file in this directory")

	root.AddCommand(
		newDeployCommand(opts),
		newHistoryCommand(),
		newVersionCommand(),
	)
	return root
}

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute runs the root command and returns the process exit code.
// SIGINT and SIGTERM cancel a running deployment.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
