package connector

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/mensylisir/xmdeploy/common"
	"github.com/mensylisir/xmdeploy/logger"
	"github.com/mensylisir/xmdeploy/util"
)

// Options tunes how Connect reaches the host.
type Options struct {
	Timeout               time.Duration
	KnownHostsFile        string
	InsecureIgnoreHostKey bool
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = common.DefaultConnectTimeout
	}
	return o
}

var _ Connection = (*connection)(nil)

type connection struct {
	mu        sync.Mutex
	sshclient *ssh.Client
	target    Target

	closeOnce sync.Once
	closeErr  error
}

// Connect opens one SSH transport to target authenticated with cred. Every
// failure, including credential resolution, is returned as *ConnectError.
func Connect(ctx context.Context, target Target, cred Credential, opts Options) (Connection, error) {
	opts = opts.withDefaults()
	addr := target.Address()
	fail := func(err error) (Connection, error) {
		return nil, &ConnectError{Address: addr, Err: err}
	}

	if err := target.Validate(); err != nil {
		return fail(err)
	}
	auth, err := ResolveAuth(cred)
	if err != nil {
		return fail(errors.Wrap(err, "failed to resolve credential"))
	}
	hostKeyCallback, err := HostKeyCallback(opts)
	if err != nil {
		return fail(err)
	}

	clientConfig := &ssh.ClientConfig{
		User:            target.User(),
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.Timeout,
	}

	dialer := net.Dialer{Timeout: opts.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fail(errors.Wrapf(err, "could not establish connection to %s", addr))
	}

	_ = netConn.SetDeadline(time.Now().Add(opts.Timeout))
	stop := context.AfterFunc(ctx, func() { _ = netConn.Close() })
	ncc, chans, reqs, err := ssh.NewClientConn(netConn, addr, clientConfig)
	if !stop() {
		if err == nil {
			_ = ncc.Close()
		}
		_ = netConn.Close()
		return fail(errors.Wrap(ctx.Err(), "ssh handshake cancelled"))
	}
	if err != nil {
		_ = netConn.Close()
		return fail(errors.Wrap(err, "ssh handshake failed"))
	}
	_ = netConn.SetDeadline(time.Time{})

	logger.Log.Debugf("ssh connection established to %s", target)
	return &connection{sshclient: ssh.NewClient(ncc, chans, reqs), target: target}, nil
}

func (c *connection) client() (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sshclient == nil {
		return nil, errors.New("ssh connection is closed")
	}
	return c.sshclient, nil
}

// Close releases the transport. Only the first call closes; later calls
// return the first result.
func (c *connection) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		client := c.sshclient
		c.sshclient = nil
		c.mu.Unlock()
		if client != nil {
			c.closeErr = errors.Wrap(client.Close(), "ssh close error")
		}
	})
	return c.closeErr
}

// Exec runs cmd in a fresh session without a PTY so the two output streams
// stay separate.
func (c *connection) Exec(ctx context.Context, cmd string, stdout, stderr io.Writer) (int, error) {
	client, err := c.client()
	if err != nil {
		return -1, err
	}
	sess, err := client.NewSession()
	if err != nil {
		return -1, errors.Wrap(err, "failed to create ssh session")
	}
	defer sess.Close()

	sess.Stdout = stdout
	sess.Stderr = stderr
	if err := sess.Start(cmd); err != nil {
		return -1, errors.Wrapf(err, "failed to start command: %s", cmd)
	}

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- sess.Wait()
	}()

	select {
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		_ = sess.Close()
		<-waitDone
		return -1, errors.Wrap(ctx.Err(), "command execution cancelled")
	case err := <-waitDone:
		if err == nil {
			return 0, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitStatus(), nil
		}
		return -1, errors.Wrapf(err, "command did not complete: %s", cmd)
	}
}

// Upload opens an SFTP sub-channel for the duration of the copy.
func (c *connection) Upload(ctx context.Context, localPath, remotePath string) (int64, error) {
	client, err := c.client()
	if err != nil {
		return 0, err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open local file %q", localPath)
	}
	defer src.Close()

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open sftp sub-channel")
	}
	logger.Log.Debugf("sftp sub-channel opened to %s", c.target)

	dst, err := sftpClient.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		_ = sftpClient.Close()
		return 0, errors.Wrapf(err, "failed to create remote file %q", remotePath)
	}

	written, copyErr := io.Copy(dst, &contextReader{ctx: ctx, r: src})
	if copyErr != nil {
		copyErr = errors.Wrapf(copyErr, "failed to copy %q to %q", localPath, remotePath)
	}
	closeErr := util.CombineErrors(dst.Close(), sftpClient.Close())
	if copyErr != nil {
		return written, copyErr
	}
	if closeErr != nil {
		return written, errors.Wrapf(closeErr, "failed to finalize remote file %q", remotePath)
	}
	return written, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
