package runtime

import (
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmdeploy/connector"
	"github.com/mensylisir/xmdeploy/file"
	"github.com/mensylisir/xmdeploy/runner"
)

// Runtime is the context of one deployment attempt. It is handed to every
// step and owned by a single deployment; nothing in it is shared.
type Runtime interface {
	DeploymentID() string
	Target() connector.Target
	Spec() file.TransferSpec

	// RemotePath is the resolved destination of the artifact.
	RemotePath() string

	// Connection is the transport opened for this deployment.
	Connection() connector.Connection

	// Runner composes remote commands over Connection.
	Runner() runner.Runner

	Verbose() bool

	// Log returns an entry scoped with the deployment, the node and stage.
	Log(stage string) *logrus.Entry
}
