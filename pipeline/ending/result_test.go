package ending

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCleanupStatus_String(t *testing.T) {
	tests := []struct {
		status   CleanupStatus
		expected string
	}{
		{CleanupSkipped, "SKIPPED"},
		{CleanupRemoved, "REMOVED"},
		{CleanupFailed, "FAILED"},
		{CleanupStatus(9), "UNKNOWN_STATUS_9"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.status.String())
	}
}

func TestNewExecutionResult(t *testing.T) {
	r := NewExecutionResult("d-1", "/tmp/deploy.sh", 0, "hi\n", "")
	assert.Equal(t, ExecutionResult{
		DeploymentID: "d-1",
		ExitCode:     0,
		Output:       "hi",
		Errors:       "",
		RemotePath:   "/tmp/deploy.sh",
		Success:      true,
	}, r)

	failed := NewExecutionResult("d-2", "/tmp/deploy.sh", 3, "", "  boom\n")
	assert.False(t, failed.Success)
	assert.Equal(t, 3, failed.ExitCode)
	assert.Equal(t, "boom", failed.Errors)
}

func TestWithCleanupDoesNotAlterOutcome(t *testing.T) {
	r := NewExecutionResult("d-1", "/tmp/x", 0, "ok", "")
	withFailure := r.WithCleanup(CleanupFailedOutcome(errors.New("rm: no such file")), 2*time.Second)

	assert.True(t, withFailure.Success)
	assert.Equal(t, r.ExitCode, withFailure.ExitCode)
	assert.Equal(t, r.Output, withFailure.Output)
	assert.True(t, withFailure.Cleanup.Failed())
	assert.Equal(t, "rm: no such file", withFailure.Cleanup.Error)
	assert.Equal(t, 2*time.Second, withFailure.Duration)

	assert.Equal(t, CleanupSkipped, r.Cleanup.Status, "original must be unchanged")
	assert.False(t, CleanupRemovedOutcome().Failed())
}

func TestExecutionResultEncoding(t *testing.T) {
	r := NewExecutionResult("d-1", "/tmp/x", 3, "out", "err").WithCleanup(CleanupRemovedOutcome(), time.Second)

	js, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"deploymentId":"d-1","exitCode":3,"output":"out","errors":"err","remotePath":"/tmp/x","success":false,"cleanup":{"status":"removed"}}`, string(js))

	y, err := yaml.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(y), "status: removed")
	assert.Contains(t, string(y), "exitCode: 3")
}
