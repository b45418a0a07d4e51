package runcmd

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmdeploy/logger"
	"github.com/mensylisir/xmdeploy/runner"
	"github.com/mensylisir/xmdeploy/runtime"
	"github.com/mensylisir/xmdeploy/step"
)

// Outcome is what the remote process left behind once it terminated.
type Outcome struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunScriptStep makes the uploaded artifact executable and runs it. The two
// output buffers belong to the step and are read only after the process
// has closed.
type RunScriptStep struct {
	step.BaseStep

	stdout   bytes.Buffer
	stderr   bytes.Buffer
	command  string
	exitCode int
}

// NewRunScriptStep creates a new RunScriptStep.
func NewRunScriptStep() *RunScriptStep {
	return &RunScriptStep{
		BaseStep: step.NewBaseStep("RunScript", "Grant execute permission and run the artifact"),
		exitCode: -1,
	}
}

func (s *RunScriptStep) Init(rt runtime.Runtime, log *logrus.Entry) error {
	if err := s.BaseStep.Init(rt, log); err != nil {
		return err
	}
	if rt.RemotePath() == "" {
		return fmt.Errorf("remote path cannot be empty for step %s", s.Name())
	}
	return nil
}

// Execute returns an *step.ExecError only when the command could not be
// dispatched or waited for. A nonzero exit code is recorded, not returned.
func (s *RunScriptStep) Execute(ctx context.Context, rt runtime.Runtime, log *logrus.Entry) error {
	if rt.Verbose() {
		log.Infof("executing: %s", runner.ExecCommand(rt.RemotePath()))
	} else {
		log.Debugf("running %s", rt.RemotePath())
	}

	command, code, err := rt.Runner().RunScript(ctx, rt.RemotePath(), &s.stdout, &s.stderr)
	s.command = command
	if err != nil {
		log.Errorf("could not run %s: %v", rt.RemotePath(), err)
		return &step.ExecError{Command: command, Err: err}
	}
	s.exitCode = code

	if code == 0 {
		logger.Successf(log, "execution finished (code %d)", code)
	} else {
		log.Warnf("execution finished (code %d)", code)
	}
	if out := strings.TrimSpace(s.stdout.String()); out != "" {
		log.Infof("standard output:\n%s", out)
	}
	if errOut := strings.TrimSpace(s.stderr.String()); errOut != "" {
		log.Warnf("error output:\n%s", errOut)
	}
	return nil
}

func (s *RunScriptStep) Post(rt runtime.Runtime, log *logrus.Entry, executeErr error) error {
	if executeErr != nil {
		log.Debugf("step %s completed with error: %v", s.Name(), executeErr)
	}
	return nil
}

// Outcome returns the accumulated streams and exit code.
func (s *RunScriptStep) Outcome() Outcome {
	return Outcome{
		Command:  s.command,
		ExitCode: s.exitCode,
		Stdout:   s.stdout.String(),
		Stderr:   s.stderr.String(),
	}
}

var _ step.Step = (*RunScriptStep)(nil)
