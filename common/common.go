package common

import (
	"io/fs"
	"path/filepath"
	"time"
)

const (
	AppName    = "xmdeploy"
	AppDirName = ".xmdeploy"
)

// GetAppDir returns the per-user directory holding logs and history.
func GetAppDir(home string) string {
	return filepath.Join(home, AppDirName)
}

// Log field keys. The formatter prints them in this order.
const (
	DeploymentName = "Deployment"
	StageName      = "Stage"
	NodeName       = "Node"
	OutcomeField   = "outcome"
	ErrorField     = "error"
)

const OutcomeSuccess = "success"

const (
	// FileMode0755 represents rwxr-xr-x
	FileMode0755 fs.FileMode = 0755
)

const (
	// ChmodExecCmdTpl grants execute permission and runs the file in one
	// conjunctive invocation. Both verbs receive the same quoted path.
	// Example: fmt.Sprintf(ChmodExecCmdTpl, q, q)
	ChmodExecCmdTpl = "chmod +x %s && %s"
	// RemoveCmdTpl removes a single remote file.
	RemoveCmdTpl = "rm %s"
)

const (
	DefaultSSHPort        = 22
	DefaultConnectTimeout = 30 * time.Second
)

// Stage names used in log fields and progress labels.
const (
	StageValidate = "validate"
	StageConnect  = "connect"
	StageTransfer = "transfer"
	StageExecute  = "execute"
	StageCleanup  = "cleanup"
)
