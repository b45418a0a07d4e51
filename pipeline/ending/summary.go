package ending

import "time"

// Summary describes a finished deployment, successful or not.
type Summary struct {
	DeploymentID string
	Target       string
	LocalPath    string
	RemotePath   string
	FinalState   string
	StartedAt    time.Time
	Duration     time.Duration
	// Result is nil when the deployment failed.
	Result *ExecutionResult
	Err    error
}

// Succeeded reports whether the deployment ran to completion with a zero
// exit code.
func (s Summary) Succeeded() bool {
	return s.Err == nil && s.Result != nil && s.Result.Success
}
