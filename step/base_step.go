package step

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmdeploy/runtime"
)

// BaseStep provides common fields and default method implementations for steps.
type BaseStep struct {
	NameField        string
	DescriptionField string
}

// NewBaseStep is a helper constructor for initializing common BaseStep fields.
func NewBaseStep(name, description string) BaseStep {
	return BaseStep{
		NameField:        name,
		DescriptionField: description,
	}
}

// Name returns the name of the step.
func (bs *BaseStep) Name() string {
	return bs.NameField
}

// Description returns the description of the step.
func (bs *BaseStep) Description() string {
	return bs.DescriptionField
}

// Init checks that a runtime is present.
func (bs *BaseStep) Init(rt runtime.Runtime, logger *logrus.Entry) error {
	if rt == nil {
		return fmt.Errorf("runtime cannot be nil for step '%s'", bs.NameField)
	}
	logger.Debugf("step [%s] initialized", bs.NameField)
	return nil
}

// Execute is overridden by concrete steps.
func (bs *BaseStep) Execute(ctx context.Context, rt runtime.Runtime, logger *logrus.Entry) error {
	logger.Warnf("BaseStep.Execute called directly for step [%s]", bs.NameField)
	return fmt.Errorf("execute not implemented in BaseStep for step '%s'", bs.NameField)
}

// Post is a no-op hook.
func (bs *BaseStep) Post(rt runtime.Runtime, logger *logrus.Entry, executeErr error) error {
	return nil
}
