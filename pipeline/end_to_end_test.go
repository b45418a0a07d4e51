package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmdeploy/connector"
	"github.com/mensylisir/xmdeploy/connector/sshtest"
	"github.com/mensylisir/xmdeploy/file"
	"github.com/mensylisir/xmdeploy/logger"
	"github.com/mensylisir/xmdeploy/pipeline/ending"
)

const testPassword = "s3cret"

func newServerDeployer(opts ...Option) *Deployer {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	base := []Option{
		WithLogger(&logger.XMLog{Logger: l}),
		WithConnectOptions(connector.Options{Timeout: 5 * time.Second}),
	}
	return NewDeployer(append(base, opts...)...)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "deploy.sh")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0644))
	return p
}

func TestDeploy_EndToEnd_PasswordSuccess(t *testing.T) {
	srv := sshtest.Start(t, sshtest.Options{Password: testPassword})
	local := writeScript(t, "echo hi")
	remote := filepath.Join(t.TempDir(), "deploy.sh")

	res, err := newServerDeployer().Deploy(context.Background(),
		connector.NewTarget(srv.Host, srv.Port, "deploy"),
		connector.PasswordCredential{Password: testPassword},
		file.TransferSpec{LocalFilePath: local, RemoteFilePath: remote})
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hi", res.Output)
	assert.Equal(t, "", res.Errors)
	assert.Equal(t, remote, res.RemotePath)
	assert.True(t, res.Success)
	assert.Equal(t, int64(len("#!/bin/sh\necho hi\n")), res.BytesTransferred)
	assert.Equal(t, ending.CleanupRemoved, res.Cleanup.Status)

	_, statErr := os.Stat(remote)
	assert.True(t, os.IsNotExist(statErr), "remote file should be removed")

	quoted := `"` + remote + `"`
	assert.Equal(t, []string{"chmod +x " + quoted + " && " + quoted, "rm " + quoted}, srv.Commands())
	require.Eventually(t, func() bool { return srv.ActiveConnections() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestDeploy_EndToEnd_NonzeroExit(t *testing.T) {
	srv := sshtest.Start(t, sshtest.Options{Password: testPassword})
	local := writeScript(t, "echo failing >&2\nexit 3")
	remote := filepath.Join(t.TempDir(), "deploy.sh")

	res, err := newServerDeployer().Deploy(context.Background(),
		connector.NewTarget(srv.Host, srv.Port, "deploy"),
		connector.PasswordCredential{Password: testPassword},
		file.TransferSpec{LocalFilePath: local, RemoteFilePath: remote})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Success)
	assert.Equal(t, "failing", res.Errors)

	_, statErr := os.Stat(remote)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDeploy_EndToEnd_UnreachableHost(t *testing.T) {
	srv := sshtest.Start(t, sshtest.Options{Password: testPassword})
	host, port := srv.Host, srv.Port
	srv.Close()

	var states []State
	res, err := newServerDeployer(WithStateObserver(func(_, to State) { states = append(states, to) })).Deploy(
		context.Background(),
		connector.NewTarget(host, port, "deploy"),
		connector.PasswordCredential{Password: testPassword},
		file.TransferSpec{LocalFilePath: writeScript(t, "echo hi"), RemoteFilePath: filepath.Join(t.TempDir(), "x.sh")})

	assert.Nil(t, res)
	var cErr *connector.ConnectError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, []State{StateConnecting, StateFailed}, states)
	assert.Empty(t, srv.Commands())
}

func TestDeploy_EndToEnd_PreserveNameWithoutDirectory(t *testing.T) {
	srv := sshtest.Start(t, sshtest.Options{Password: testPassword})

	res, err := newServerDeployer().Deploy(context.Background(),
		connector.NewTarget(srv.Host, srv.Port, "deploy"),
		connector.PasswordCredential{Password: testPassword},
		file.TransferSpec{LocalFilePath: writeScript(t, "echo hi"), PreserveFileName: true})

	assert.Nil(t, res)
	var vErr *file.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, 0, srv.ActiveConnections())
	assert.Empty(t, srv.Commands())
}

func TestDeploy_EndToEnd_PreserveNameWithKeyAuth(t *testing.T) {
	key, pub := sshtest.GenerateKey(t, "")
	srv := sshtest.Start(t, sshtest.Options{AuthorizedKey: pub})
	local := writeScript(t, "echo from-key")
	remoteDir := t.TempDir()

	res, err := newServerDeployer().Deploy(context.Background(),
		connector.NewTarget(srv.Host, srv.Port, "deploy"),
		connector.KeyContentCredential{PrivateKeyContent: key},
		file.TransferSpec{LocalFilePath: local, RemoteDirectory: remoteDir, PreserveFileName: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(remoteDir, "deploy.sh"), res.RemotePath)
	assert.Equal(t, "from-key", res.Output)
}

func TestDeploy_EndToEnd_TransferFailure(t *testing.T) {
	srv := sshtest.Start(t, sshtest.Options{Password: testPassword, DisableSFTP: true})

	_, err := newServerDeployer().Deploy(context.Background(),
		connector.NewTarget(srv.Host, srv.Port, "deploy"),
		connector.PasswordCredential{Password: testPassword},
		file.TransferSpec{LocalFilePath: writeScript(t, "echo hi"), RemoteFilePath: filepath.Join(t.TempDir(), "x.sh")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transfer of")
	assert.Empty(t, srv.Commands())
	require.Eventually(t, func() bool { return srv.ActiveConnections() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestDeploy_EndToEnd_ExecDispatchFailureStillCleansUp(t *testing.T) {
	srv := sshtest.Start(t, sshtest.Options{Password: testPassword, RejectExecMatching: "chmod"})
	remote := filepath.Join(t.TempDir(), "deploy.sh")

	_, err := newServerDeployer().Deploy(context.Background(),
		connector.NewTarget(srv.Host, srv.Port, "deploy"),
		connector.PasswordCredential{Password: testPassword},
		file.TransferSpec{LocalFilePath: writeScript(t, "echo hi"), RemoteFilePath: remote})
	require.Error(t, err)
	assert.Equal(t, []string{`rm "` + remote + `"`}, srv.Commands())

	_, statErr := os.Stat(remote)
	assert.True(t, os.IsNotExist(statErr))
}
