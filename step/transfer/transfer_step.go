package transfer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmdeploy/file"
	"github.com/mensylisir/xmdeploy/runtime"
	"github.com/mensylisir/xmdeploy/step"
)

// TransferStep copies the local artifact to the resolved remote path,
// overwriting whatever is there.
type TransferStep struct {
	step.BaseStep
	written int64
}

// NewTransferStep creates a new TransferStep.
func NewTransferStep() *TransferStep {
	return &TransferStep{
		BaseStep: step.NewBaseStep("TransferFile", "Copy the local artifact to the remote host"),
	}
}

func (s *TransferStep) Init(rt runtime.Runtime, log *logrus.Entry) error {
	if err := s.BaseStep.Init(rt, log); err != nil {
		return err
	}
	if rt.Spec().LocalFilePath == "" {
		return fmt.Errorf("local file path cannot be empty for step %s", s.Name())
	}
	if rt.RemotePath() == "" {
		return fmt.Errorf("remote path cannot be empty for step %s", s.Name())
	}
	return nil
}

func (s *TransferStep) Execute(ctx context.Context, rt runtime.Runtime, log *logrus.Entry) error {
	local, remote := rt.Spec().LocalFilePath, rt.RemotePath()

	if sum, err := file.FileMD5(local); err == nil {
		log.Debugf("local artifact %s md5 %s", local, sum)
	}

	n, err := rt.Connection().Upload(ctx, local, remote)
	if err != nil {
		log.Errorf("transfer of %s failed: %v", local, err)
		return &step.TransferError{LocalPath: local, RemotePath: remote, Err: err}
	}
	s.written = n
	log.WithField("bytes", n).Infof("file transferred: %s → %s", local, remote)
	return nil
}

// BytesWritten is the size copied by the last successful Execute.
func (s *TransferStep) BytesWritten() int64 {
	return s.written
}

var _ step.Step = (*TransferStep)(nil)
