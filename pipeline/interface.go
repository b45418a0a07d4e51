package pipeline

import (
	"context"

	"github.com/mensylisir/xmdeploy/pipeline/ending"
)

// ProgressSink receives start and stop signals around a deployment.
type ProgressSink interface {
	Start(label string)
	Stop()
}

// StateObserver is called synchronously on every state transition.
type StateObserver func(from, to State)

// HistoryRecorder persists the summary of every finished deployment.
type HistoryRecorder interface {
	Record(ctx context.Context, summary ending.Summary) error
}

type noopProgress struct{}

func (noopProgress) Start(string) {}
func (noopProgress) Stop()        {}
