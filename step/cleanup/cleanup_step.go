package cleanup

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmdeploy/logger"
	"github.com/mensylisir/xmdeploy/pipeline/ending"
	"github.com/mensylisir/xmdeploy/runtime"
	"github.com/mensylisir/xmdeploy/step"
)

// CleanupStep removes the uploaded artifact. It never fails; the outcome is
// only recorded.
type CleanupStep struct {
	step.BaseStep
	outcome ending.CleanupOutcome
}

// NewCleanupStep creates a new CleanupStep.
func NewCleanupStep() *CleanupStep {
	return &CleanupStep{
		BaseStep: step.NewBaseStep("Cleanup", "Remove the uploaded artifact"),
	}
}

func (s *CleanupStep) Execute(ctx context.Context, rt runtime.Runtime, log *logrus.Entry) error {
	if err := rt.Runner().Remove(ctx, rt.RemotePath()); err != nil {
		s.outcome = ending.CleanupFailedOutcome(err)
		log.Warnf("could not remove remote file %s: %v", rt.RemotePath(), err)
		return nil
	}
	s.outcome = ending.CleanupRemovedOutcome()
	logger.Success(log, "temporary file removed")
	return nil
}

// Outcome is CleanupSkipped until Execute has run.
func (s *CleanupStep) Outcome() ending.CleanupOutcome {
	return s.outcome
}

var _ step.Step = (*CleanupStep)(nil)
