package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmdeploy/common"
	"github.com/mensylisir/xmdeploy/connector"
	"github.com/mensylisir/xmdeploy/file"
	"github.com/mensylisir/xmdeploy/logger"
	"github.com/mensylisir/xmdeploy/pipeline/ending"
	"github.com/mensylisir/xmdeploy/runtime"
	"github.com/mensylisir/xmdeploy/step"
	"github.com/mensylisir/xmdeploy/step/cleanup"
	"github.com/mensylisir/xmdeploy/step/runcmd"
	"github.com/mensylisir/xmdeploy/step/transfer"
)

const (
	progressLabel         = "Preparing deployment..."
	defaultCleanupTimeout = 30 * time.Second
)

// Deployer runs single-host deployments. It holds no per-deployment state,
// so one Deployer may serve concurrent Deploy calls.
type Deployer struct {
	dialer         connector.Dialer
	progress       ProgressSink
	log            *logger.XMLog
	observers      []StateObserver
	history        HistoryRecorder
	verbose        bool
	cleanupTimeout time.Duration
	newID          func() string
}

type Option func(*Deployer)

func WithDialer(d connector.Dialer) Option {
	return func(dp *Deployer) { dp.dialer = d }
}

// WithConnectOptions uses the SSH dialer configured with opts.
func WithConnectOptions(opts connector.Options) Option {
	return func(dp *Deployer) { dp.dialer = connector.NewDialer(opts) }
}

func WithProgress(p ProgressSink) Option {
	return func(dp *Deployer) { dp.progress = p }
}

func WithLogger(l *logger.XMLog) Option {
	return func(dp *Deployer) { dp.log = l }
}

func WithStateObserver(o StateObserver) Option {
	return func(dp *Deployer) { dp.observers = append(dp.observers, o) }
}

func WithHistory(h HistoryRecorder) Option {
	return func(dp *Deployer) { dp.history = h }
}

func WithVerbose(v bool) Option {
	return func(dp *Deployer) { dp.verbose = v }
}

// WithCleanupTimeout bounds the removal command. Cleanup runs even after
// the deployment context is cancelled.
func WithCleanupTimeout(d time.Duration) Option {
	return func(dp *Deployer) { dp.cleanupTimeout = d }
}

func WithIDGenerator(f func() string) Option {
	return func(dp *Deployer) { dp.newID = f }
}

func NewDeployer(opts ...Option) *Deployer {
	d := &Deployer{
		dialer:         connector.NewDialer(connector.Options{}),
		progress:       noopProgress{},
		cleanupTimeout: defaultCleanupTimeout,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Log
	}
	return d
}

// deployment is the state of one Deploy call.
type deployment struct {
	id        string
	state     State
	observers []StateObserver
	log       *logrus.Entry
}

func (dep *deployment) advance(to State) error {
	if dep.state.Terminal() {
		return errors.Errorf("deployment already finished in state %s", dep.state)
	}
	if !dep.state.CanTransition(to) {
		return errors.Errorf("illegal state transition %s -> %s", dep.state, to)
	}
	from := dep.state
	dep.state = to
	dep.log.Debugf("state %s -> %s", from, to)
	for _, o := range dep.observers {
		o(from, to)
	}
	return nil
}

// fail moves to Failed and returns cause.
func (dep *deployment) fail(cause error) error {
	if err := dep.advance(StateFailed); err != nil {
		return errors.Wrap(cause, err.Error())
	}
	return cause
}

func (dep *deployment) stageLog(stage string) *logrus.Entry {
	return dep.log.WithField(common.StageName, stage)
}

// Deploy validates spec, connects to target with cred, uploads the file,
// runs it and removes it. A nonzero exit code is a normal result. The
// returned error is a *file.ValidationError, *connector.ConnectError,
// *step.TransferError or *step.ExecError. The connection, once opened, is
// closed exactly once.
func (d *Deployer) Deploy(ctx context.Context, target connector.Target, cred connector.Credential, spec file.TransferSpec) (*ending.ExecutionResult, error) {
	id := d.newID()
	dep := &deployment{
		id:        id,
		state:     StateIdle,
		observers: d.observers,
		log:       d.log.ForDeployment(id, target.Host()),
	}
	started := time.Now()

	d.progress.Start(progressLabel)
	res, remotePath, err := d.run(ctx, dep, target, cred, spec, started)
	d.progress.Stop()

	d.summarize(dep.log, res, err)

	if d.history != nil {
		summary := ending.Summary{
			DeploymentID: dep.id,
			Target:       target.String(),
			LocalPath:    spec.LocalFilePath,
			RemotePath:   remotePath,
			FinalState:   dep.state.String(),
			StartedAt:    started,
			Duration:     time.Since(started),
			Result:       res,
			Err:          err,
		}
		if herr := d.history.Record(context.WithoutCancel(ctx), summary); herr != nil {
			dep.log.Warnf("could not record deployment history: %v", herr)
		}
	}
	return res, err
}

func (d *Deployer) run(ctx context.Context, dep *deployment, target connector.Target, cred connector.Credential, spec file.TransferSpec, started time.Time) (*ending.ExecutionResult, string, error) {
	vlog := dep.stageLog(common.StageValidate)
	remotePath, size, err := file.Prepare(spec)
	if err != nil {
		vlog.Errorf("pre-flight validation failed: %v", err)
		return nil, "", dep.fail(err)
	}
	vlog.Debugf("local artifact %s (%d bytes) will be deployed to %s", spec.LocalFilePath, size, remotePath)

	if err := dep.advance(StateConnecting); err != nil {
		return nil, remotePath, err
	}
	clog := dep.stageLog(common.StageConnect)
	clog.Infof("connecting to %s using %s", target, connector.Describe(cred))
	conn, err := d.dialer.Dial(ctx, target, cred)
	if err != nil {
		clog.Errorf("connection failed: %v", err)
		return nil, remotePath, dep.fail(err)
	}
	clog.Info("SSH connection established")

	res, stageErr := d.runStages(ctx, dep, conn, target, spec, remotePath, started)

	if cerr := conn.Close(); cerr != nil {
		dep.log.Debugf("closing connection: %v", cerr)
	}

	if stageErr != nil {
		return nil, remotePath, dep.fail(stageErr)
	}
	if err := dep.advance(StateDone); err != nil {
		return nil, remotePath, err
	}
	return &res, remotePath, nil
}

// runStages drives Transferring, Executing and CleaningUp over an open
// connection. It never closes conn.
func (d *Deployer) runStages(ctx context.Context, dep *deployment, conn connector.Connection, target connector.Target, spec file.TransferSpec, remotePath string, started time.Time) (ending.ExecutionResult, error) {
	rt, err := runtime.NewRuntime(runtime.Config{
		DeploymentID: dep.id,
		Target:       target,
		Spec:         spec,
		RemotePath:   remotePath,
		Connection:   conn,
		Verbose:      d.verbose,
		Logger:       d.log,
	})
	if err != nil {
		return ending.ExecutionResult{}, err
	}

	if err := dep.advance(StateTransferring); err != nil {
		return ending.ExecutionResult{}, err
	}
	upload := transfer.NewTransferStep()
	if err := runStep(ctx, upload, rt, common.StageTransfer); err != nil {
		return ending.ExecutionResult{}, err
	}

	if err := dep.advance(StateExecuting); err != nil {
		return ending.ExecutionResult{}, err
	}
	script := runcmd.NewRunScriptStep()
	execErr := runStep(ctx, script, rt, common.StageExecute)

	if err := dep.advance(StateCleaningUp); err != nil {
		return ending.ExecutionResult{}, err
	}
	remover := cleanup.NewCleanupStep()
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cleanupTimeout)
	_ = runStep(cctx, remover, rt, common.StageCleanup)
	cancel()

	if execErr != nil {
		return ending.ExecutionResult{}, execErr
	}
	out := script.Outcome()
	res := ending.NewExecutionResult(dep.id, remotePath, out.ExitCode, out.Stdout, out.Stderr).
		WithCleanup(remover.Outcome(), time.Since(started))
	res.BytesTransferred = upload.BytesWritten()
	return res, nil
}

func runStep(ctx context.Context, s step.Step, rt runtime.Runtime, stage string) error {
	log := rt.Log(stage)
	log.Debugf("%s: %s", s.Name(), s.Description())
	if err := s.Init(rt, log); err != nil {
		return errors.Wrapf(err, "failed to initialize step %s", s.Name())
	}
	execErr := s.Execute(ctx, rt, log)
	if postErr := s.Post(rt, log, execErr); postErr != nil {
		log.Warnf("post-execute of step %s: %v", s.Name(), postErr)
	}
	return execErr
}

func (d *Deployer) summarize(log *logrus.Entry, res *ending.ExecutionResult, err error) {
	if err != nil {
		log.WithField(common.ErrorField, err).Errorf("deployment failed: %v", err)
		return
	}
	if res.Success {
		if res.Output != "" {
			logger.Successf(log, "deployment succeeded:\n%s", res.Output)
		} else {
			logger.Success(log, "deployment succeeded")
		}
		return
	}
	log.Warnf("remote script exited with code %d", res.ExitCode)
	if res.Errors != "" {
		log.Errorf("remote error output:\n%s", res.Errors)
	}
}
