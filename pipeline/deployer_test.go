package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmdeploy/connector"
	"github.com/mensylisir/xmdeploy/file"
	"github.com/mensylisir/xmdeploy/logger"
	"github.com/mensylisir/xmdeploy/pipeline/ending"
	"github.com/mensylisir/xmdeploy/step"
)

const (
	execCmd   = `chmod +x "/tmp/deploy.sh" && "/tmp/deploy.sh"`
	removeCmd = `rm "/tmp/deploy.sh"`
)

type mockDialer struct {
	mock.Mock
}

func (m *mockDialer) Dial(ctx context.Context, target connector.Target, cred connector.Credential) (connector.Connection, error) {
	args := m.Called(ctx, target, cred)
	conn, _ := args.Get(0).(connector.Connection)
	return conn, args.Error(1)
}

type mockConnection struct {
	mock.Mock
}

func (m *mockConnection) Exec(ctx context.Context, cmd string, stdout, stderr io.Writer) (int, error) {
	args := m.Called(ctx, cmd, stdout, stderr)
	return args.Int(0), args.Error(1)
}

func (m *mockConnection) Upload(ctx context.Context, localPath, remotePath string) (int64, error) {
	args := m.Called(ctx, localPath, remotePath)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockConnection) Close() error {
	return m.Called().Error(0)
}

type mockProgress struct {
	mock.Mock
}

func (m *mockProgress) Start(label string) { m.Called(label) }
func (m *mockProgress) Stop()              { m.Called() }

type recordingHistory struct {
	mu        sync.Mutex
	summaries []ending.Summary
}

func (h *recordingHistory) Record(ctx context.Context, s ending.Summary) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.summaries = append(h.summaries, s)
	return nil
}

// writeOutput makes a mocked Exec emit stdout and stderr.
func writeOutput(stdout, stderr string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		_, _ = io.WriteString(args.Get(2).(io.Writer), stdout)
		_, _ = io.WriteString(args.Get(3).(io.Writer), stderr)
	}
}

type fixture struct {
	dialer    *mockDialer
	conn      *mockConnection
	progress  *mockProgress
	history   *recordingHistory
	states    []State
	logHook   *test.Hook
	deployer  *Deployer
	target    connector.Target
	cred      connector.Credential
	spec      file.TransferSpec
	localPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	local := filepath.Join(t.TempDir(), "deploy.sh")
	require.NoError(t, os.WriteFile(local, []byte("echo hi\n"), 0644))

	f := &fixture{
		dialer:    new(mockDialer),
		conn:      new(mockConnection),
		progress:  new(mockProgress),
		history:   &recordingHistory{},
		target:    connector.NewTarget("web-1", 22, "deploy"),
		cred:      connector.PasswordCredential{Password: "pw"},
		spec:      file.TransferSpec{LocalFilePath: local, RemoteFilePath: "/tmp/deploy.sh"},
		localPath: local,
	}
	f.progress.On("Start", "Preparing deployment...").Once()
	f.progress.On("Stop").Once()

	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	f.logHook = hook

	f.deployer = NewDeployer(
		WithDialer(f.dialer),
		WithProgress(f.progress),
		WithLogger(&logger.XMLog{Logger: l}),
		WithHistory(f.history),
		WithIDGenerator(func() string { return "d-fixed" }),
		WithStateObserver(func(from, to State) {
			if len(f.states) == 0 {
				f.states = append(f.states, from)
			}
			f.states = append(f.states, to)
		}),
	)
	return f
}

func (f *fixture) expectConnected() {
	f.dialer.On("Dial", mock.Anything, f.target, f.cred).Return(f.conn, nil).Once()
	f.conn.On("Close").Return(nil).Once()
}

func (f *fixture) deploy() (*ending.ExecutionResult, error) {
	return f.deployer.Deploy(context.Background(), f.target, f.cred, f.spec)
}

func (f *fixture) assertAll(t *testing.T) {
	f.dialer.AssertExpectations(t)
	f.conn.AssertExpectations(t)
	f.progress.AssertExpectations(t)
}

func TestDeploy_Success(t *testing.T) {
	f := newFixture(t)
	f.expectConnected()
	f.conn.On("Upload", mock.Anything, f.localPath, "/tmp/deploy.sh").Return(int64(8), nil).Once()
	f.conn.On("Exec", mock.Anything, execCmd, mock.Anything, mock.Anything).Run(writeOutput("hi\n", "")).Return(0, nil).Once()
	f.conn.On("Exec", mock.Anything, removeCmd, mock.Anything, mock.Anything).Return(0, nil).Once()

	res, err := f.deploy()
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "d-fixed", res.DeploymentID)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hi", res.Output)
	assert.Equal(t, "", res.Errors)
	assert.Equal(t, "/tmp/deploy.sh", res.RemotePath)
	assert.True(t, res.Success)
	assert.Equal(t, int64(8), res.BytesTransferred)
	assert.Equal(t, ending.CleanupRemoved, res.Cleanup.Status)
	assert.Equal(t, []State{StateIdle, StateConnecting, StateTransferring, StateExecuting, StateCleaningUp, StateDone}, f.states)
	f.assertAll(t)

	var sawSuccess bool
	for _, e := range f.logHook.AllEntries() {
		if logger.IsSuccess(e) && e.Message == "deployment succeeded:\nhi" {
			sawSuccess = true
		}
	}
	assert.True(t, sawSuccess, "summary success log expected")

	require.Len(t, f.history.summaries, 1)
	assert.Equal(t, "Done", f.history.summaries[0].FinalState)
	assert.True(t, f.history.summaries[0].Succeeded())
}

func TestDeploy_NonzeroExitIsNotAnError(t *testing.T) {
	f := newFixture(t)
	f.expectConnected()
	f.conn.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(int64(8), nil).Once()
	f.conn.On("Exec", mock.Anything, execCmd, mock.Anything, mock.Anything).Run(writeOutput("", "boom\n")).Return(3, nil).Once()
	f.conn.On("Exec", mock.Anything, removeCmd, mock.Anything, mock.Anything).Return(0, nil).Once()

	res, err := f.deploy()
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Errors)
	assert.Equal(t, StateDone, f.states[len(f.states)-1])
	f.assertAll(t)
}

func TestDeploy_ValidationErrorBeforeConnect(t *testing.T) {
	f := newFixture(t)
	f.spec = file.TransferSpec{LocalFilePath: f.localPath, PreserveFileName: true}

	res, err := f.deploy()
	assert.Nil(t, res)
	var vErr *file.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, file.FieldRemoteDirectory, vErr.Field)

	f.dialer.AssertNotCalled(t, "Dial", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []State{StateIdle, StateFailed}, f.states)
	f.progress.AssertExpectations(t)
}

func TestDeploy_MissingLocalFileIsValidationError(t *testing.T) {
	f := newFixture(t)
	f.spec.LocalFilePath = filepath.Join(t.TempDir(), "absent.sh")

	_, err := f.deploy()
	var vErr *file.ValidationError
	require.True(t, errors.As(err, &vErr))
	f.dialer.AssertNotCalled(t, "Dial", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeploy_ConnectError(t *testing.T) {
	f := newFixture(t)
	connErr := &connector.ConnectError{Address: f.target.Address(), Err: errors.New("connection refused")}
	f.dialer.On("Dial", mock.Anything, f.target, f.cred).Return(nil, connErr).Once()

	res, err := f.deploy()
	assert.Nil(t, res)
	var cErr *connector.ConnectError
	require.True(t, errors.As(err, &cErr))

	f.conn.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	f.conn.AssertNotCalled(t, "Close")
	assert.Equal(t, []State{StateIdle, StateConnecting, StateFailed}, f.states)
	f.assertAll(t)

	require.Len(t, f.history.summaries, 1)
	assert.Equal(t, "Failed", f.history.summaries[0].FinalState)
	assert.Nil(t, f.history.summaries[0].Result)
}

func TestDeploy_TransferErrorSkipsExecAndCleanup(t *testing.T) {
	f := newFixture(t)
	f.expectConnected()
	f.conn.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("permission denied")).Once()

	res, err := f.deploy()
	assert.Nil(t, res)
	var tErr *step.TransferError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, "/tmp/deploy.sh", tErr.RemotePath)

	f.conn.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []State{StateIdle, StateConnecting, StateTransferring, StateFailed}, f.states)
	f.assertAll(t)
}

func TestDeploy_ExecErrorStillCleansUp(t *testing.T) {
	f := newFixture(t)
	f.expectConnected()
	f.conn.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(int64(8), nil).Once()
	f.conn.On("Exec", mock.Anything, execCmd, mock.Anything, mock.Anything).Return(-1, errors.New("session refused")).Once()
	f.conn.On("Exec", mock.Anything, removeCmd, mock.Anything, mock.Anything).Return(0, nil).Once()

	res, err := f.deploy()
	assert.Nil(t, res)
	var eErr *step.ExecError
	require.True(t, errors.As(err, &eErr))
	assert.Equal(t, execCmd, eErr.Command)
	assert.Equal(t, []State{StateIdle, StateConnecting, StateTransferring, StateExecuting, StateCleaningUp, StateFailed}, f.states)
	f.assertAll(t)
}

func TestDeploy_CleanupFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.expectConnected()
	f.conn.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(int64(8), nil).Once()
	f.conn.On("Exec", mock.Anything, execCmd, mock.Anything, mock.Anything).Run(writeOutput("hi\n", "")).Return(0, nil).Once()
	f.conn.On("Exec", mock.Anything, removeCmd, mock.Anything, mock.Anything).Run(writeOutput("", "rm: cannot remove\n")).Return(1, nil).Once()

	res, err := f.deploy()
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "hi", res.Output)
	assert.True(t, res.Cleanup.Failed())
	assert.Contains(t, res.Cleanup.Error, "rm: cannot remove")
	assert.Equal(t, StateDone, f.states[len(f.states)-1])
	f.assertAll(t)
}

func TestDeploy_CancelledDuringExecReleasesConnection(t *testing.T) {
	f := newFixture(t)
	f.expectConnected()
	ctx, cancel := context.WithCancel(context.Background())

	f.conn.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(int64(8), nil).Once()
	f.conn.On("Exec", mock.Anything, execCmd, mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(-1, context.Canceled).Once()
	f.conn.On("Exec", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), removeCmd, mock.Anything, mock.Anything).Return(0, nil).Once()

	_, err := f.deployer.Deploy(ctx, f.target, f.cred, f.spec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	f.assertAll(t)
}

func TestDeploy_DefaultIDIsUnique(t *testing.T) {
	d := NewDeployer(WithLogger(&logger.XMLog{Logger: logrus.New()}))
	a, b := d.newID(), d.newID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

// memoryConnection answers every command with exit 0 and echoes the
// remote path on stdout.
type memoryConnection struct {
	mu     sync.Mutex
	closed int
}

func (c *memoryConnection) Exec(ctx context.Context, cmd string, stdout, stderr io.Writer) (int, error) {
	_, _ = io.WriteString(stdout, cmd+"\n")
	return 0, nil
}

func (c *memoryConnection) Upload(ctx context.Context, localPath, remotePath string) (int64, error) {
	return 1, nil
}

func (c *memoryConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

type memoryDialer struct {
	mu    sync.Mutex
	conns []*memoryConnection
}

func (d *memoryDialer) Dial(ctx context.Context, target connector.Target, cred connector.Credential) (connector.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &memoryConnection{}
	d.conns = append(d.conns, c)
	return c, nil
}

func TestDeploy_ConcurrentDeploymentsAreIndependent(t *testing.T) {
	dialer := &memoryDialer{}
	d := NewDeployer(WithDialer(dialer), WithLogger(&logger.XMLog{Logger: logrus.New()}))

	const n = 8
	specs := make([]file.TransferSpec, n)
	for i := range specs {
		local := filepath.Join(t.TempDir(), "deploy.sh")
		require.NoError(t, os.WriteFile(local, []byte("echo hi\n"), 0644))
		specs[i] = file.TransferSpec{LocalFilePath: local, RemoteFilePath: "/tmp/run-" + string(rune('a'+i)) + ".sh"}
	}

	results := make([]*ending.ExecutionResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.Deploy(context.Background(), connector.NewTarget("web", 22, "deploy"),
				connector.PasswordCredential{Password: "pw"}, specs[i])
		}(i)
	}
	wg.Wait()

	ids := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, specs[i].RemoteFilePath, results[i].RemotePath)
		assert.Contains(t, results[i].Output, specs[i].RemoteFilePath)
		ids[results[i].DeploymentID] = true
	}
	assert.Len(t, ids, n)

	require.Len(t, dialer.conns, n)
	for _, c := range dialer.conns {
		assert.Equal(t, 1, c.closed)
	}
}
