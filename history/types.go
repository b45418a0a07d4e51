package history

import "time"

// Deployment is one row of the deployment history.
type Deployment struct {
	ID            uint      `gorm:"primaryKey" json:"-" yaml:"-"`
	DeploymentID  string    `gorm:"uniqueIndex;not null" json:"deploymentId" yaml:"deploymentId"`
	Target        string    `gorm:"index" json:"target" yaml:"target"`
	LocalPath     string    `json:"localPath" yaml:"localPath"`
	RemotePath    string    `json:"remotePath" yaml:"remotePath"`
	FinalState    string    `json:"finalState" yaml:"finalState"`
	ExitCode      *int      `json:"exitCode,omitempty" yaml:"exitCode,omitempty"`
	Success       bool      `json:"success" yaml:"success"`
	Error         string    `json:"error,omitempty" yaml:"error,omitempty"`
	CleanupStatus string    `json:"cleanupStatus,omitempty" yaml:"cleanupStatus,omitempty"`
	StartedAt     time.Time `gorm:"index" json:"startedAt" yaml:"startedAt"`
	DurationMs    int64     `json:"durationMs" yaml:"durationMs"`
}
