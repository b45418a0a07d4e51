package step

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmdeploy/runtime"
)

// Step represents one stage of a deployment.
type Step interface {
	// Name returns the short name of the step.
	Name() string

	// Description returns a human-readable description of what the step does.
	Description() string

	// Init validates that the runtime carries what the step needs. It must
	// not touch the network.
	Init(rt runtime.Runtime, logger *logrus.Entry) error

	// Execute performs the stage and blocks until its terminal event.
	Execute(ctx context.Context, rt runtime.Runtime, logger *logrus.Entry) error

	// Post runs after Execute with its error. Its own error is logged by the
	// caller and never replaces executeErr.
	Post(rt runtime.Runtime, logger *logrus.Entry, executeErr error) error
}
