package ending

import (
	"fmt"
	"strings"
	"time"
)

// CleanupStatus records what happened to the uploaded artifact.
type CleanupStatus int

const (
	CleanupSkipped CleanupStatus = iota // No removal was attempted
	CleanupRemoved                      // The remote file was removed
	CleanupFailed                       // Removal was attempted and failed
)

// String returns a string representation of the CleanupStatus.
func (s CleanupStatus) String() string {
	switch s {
	case CleanupSkipped:
		return "SKIPPED"
	case CleanupRemoved:
		return "REMOVED"
	case CleanupFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN_STATUS_%d", int(s))
	}
}

func (s CleanupStatus) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// CleanupOutcome is advisory. It never turns a deployment into a failure.
type CleanupOutcome struct {
	Status CleanupStatus `json:"status" yaml:"status"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
}

func CleanupRemovedOutcome() CleanupOutcome {
	return CleanupOutcome{Status: CleanupRemoved}
}

func CleanupFailedOutcome(err error) CleanupOutcome {
	o := CleanupOutcome{Status: CleanupFailed}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// Failed reports whether removal was attempted and did not succeed.
func (o CleanupOutcome) Failed() bool {
	return o.Status == CleanupFailed
}

// ExecutionResult is produced once the remote process has terminated and
// is not modified afterwards.
type ExecutionResult struct {
	DeploymentID string         `json:"deploymentId" yaml:"deploymentId"`
	ExitCode     int            `json:"exitCode" yaml:"exitCode"`
	Output       string         `json:"output" yaml:"output"`
	Errors       string         `json:"errors" yaml:"errors"`
	RemotePath   string         `json:"remotePath" yaml:"remotePath"`
	Success      bool           `json:"success" yaml:"success"`
	Duration     time.Duration  `json:"-" yaml:"-"`
	Cleanup      CleanupOutcome `json:"cleanup" yaml:"cleanup"`

	// BytesTransferred is the size of the uploaded artifact.
	BytesTransferred int64 `json:"bytesTransferred" yaml:"bytesTransferred"`
}

// NewExecutionResult builds the result of a terminated process. Output and
// Errors are trimmed of surrounding whitespace and Success is derived from
// the exit code.
func NewExecutionResult(deploymentID, remotePath string, exitCode int, stdout, stderr string) ExecutionResult {
	return ExecutionResult{
		DeploymentID: deploymentID,
		ExitCode:     exitCode,
		Output:       strings.TrimSpace(stdout),
		Errors:       strings.TrimSpace(stderr),
		RemotePath:   remotePath,
		Success:      exitCode == 0,
	}
}

// WithCleanup returns a copy of r carrying the cleanup outcome and duration.
func (r ExecutionResult) WithCleanup(outcome CleanupOutcome, d time.Duration) ExecutionResult {
	r.Cleanup = outcome
	r.Duration = d
	return r
}
