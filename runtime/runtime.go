package runtime

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmdeploy/common"
	"github.com/mensylisir/xmdeploy/connector"
	"github.com/mensylisir/xmdeploy/file"
	"github.com/mensylisir/xmdeploy/logger"
	"github.com/mensylisir/xmdeploy/runner"
)

// baseRuntime implements the Runtime interface.
type baseRuntime struct {
	deploymentID string
	target       connector.Target
	spec         file.TransferSpec
	remotePath   string
	conn         connector.Connection
	run          runner.Runner
	verbose      bool
	entry        *logrus.Entry
}

// Config for creating a new baseRuntime.
type Config struct {
	DeploymentID string
	Target       connector.Target
	Spec         file.TransferSpec
	RemotePath   string
	Connection   connector.Connection
	// Runner defaults to a command runner over Connection.
	Runner  runner.Runner
	Verbose bool
	// Logger defaults to logger.Log.
	Logger *logger.XMLog
}

// NewRuntime creates a new instance of Runtime.
func NewRuntime(cfg Config) (Runtime, error) {
	if cfg.DeploymentID == "" {
		return nil, fmt.Errorf("runtime: deployment ID cannot be empty")
	}
	if cfg.Connection == nil {
		return nil, fmt.Errorf("runtime: connection cannot be nil for deployment %s", cfg.DeploymentID)
	}
	if cfg.RemotePath == "" {
		return nil, fmt.Errorf("runtime: remote path cannot be empty for deployment %s", cfg.DeploymentID)
	}
	if cfg.Runner == nil {
		cfg.Runner = runner.NewCmdRunner(cfg.Connection)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Log
	}

	return &baseRuntime{
		deploymentID: cfg.DeploymentID,
		target:       cfg.Target,
		spec:         cfg.Spec,
		remotePath:   cfg.RemotePath,
		conn:         cfg.Connection,
		run:          cfg.Runner,
		verbose:      cfg.Verbose,
		entry:        cfg.Logger.ForDeployment(cfg.DeploymentID, cfg.Target.Host()),
	}, nil
}

func (r *baseRuntime) DeploymentID() string {
	return r.deploymentID
}

func (r *baseRuntime) Target() connector.Target {
	return r.target
}

func (r *baseRuntime) Spec() file.TransferSpec {
	return r.spec
}

func (r *baseRuntime) RemotePath() string {
	return r.remotePath
}

func (r *baseRuntime) Connection() connector.Connection {
	return r.conn
}

func (r *baseRuntime) Runner() runner.Runner {
	return r.run
}

func (r *baseRuntime) Verbose() bool {
	return r.verbose
}

func (r *baseRuntime) Log(stage string) *logrus.Entry {
	return r.entry.WithField(common.StageName, stage)
}
