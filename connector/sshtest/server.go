// Package sshtest runs an in-process SSH server for tests. Exec requests are
// run by the local sh with separate stdout and stderr, and the sftp
// subsystem is served from the local filesystem.
package sshtest

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"net"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

type Options struct {
	// Password accepted for password authentication. Empty disables it.
	Password string
	// AuthorizedKey accepted for public key authentication. Nil disables it.
	AuthorizedKey ssh.PublicKey
	// RejectExec refuses every exec request.
	RejectExec bool
	// RejectExecMatching refuses exec requests whose command contains it.
	RejectExecMatching string
	// DisableSFTP refuses the sftp subsystem.
	DisableSFTP bool
}

type Server struct {
	Host string
	Port int
	// HostKey is the server's public host key.
	HostKey ssh.PublicKey

	opts     Options
	listener net.Listener
	wg       sync.WaitGroup
	active   atomic.Int32

	mu       sync.Mutex
	commands []string
}

// Start listens on 127.0.0.1 with a fresh host key. The server stops when
// the test ends.
func Start(t testing.TB, opts Options) *Server {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{}
	if opts.Password != "" {
		cfg.PasswordCallback = func(_ ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if string(pass) == opts.Password {
				return nil, nil
			}
			return nil, errors.New("password rejected")
		}
	}
	if opts.AuthorizedKey != nil {
		want := opts.AuthorizedKey.Marshal()
		cfg.PublicKeyCallback = func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), want) {
				return nil, nil
			}
			return nil, errors.New("public key rejected")
		}
	}
	if opts.Password == "" && opts.AuthorizedKey == nil {
		cfg.NoClientAuth = true
	}
	cfg.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	s := &Server{Host: host, Port: port, HostKey: hostSigner.PublicKey(), opts: opts, listener: ln}
	s.wg.Add(1)
	go s.serve(cfg)
	t.Cleanup(s.Close)
	return s
}

// Close stops accepting connections and waits for the accept loop.
func (s *Server) Close() {
	_ = s.listener.Close()
	s.wg.Wait()
}

// Commands returns every exec command received, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// ActiveConnections is the number of SSH connections not yet closed.
func (s *Server) ActiveConnections() int {
	return int(s.active.Load())
}

func (s *Server) serve(cfg *ssh.ServerConfig) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn, cfg)
	}
}

func (s *Server) handleConn(conn net.Conn, cfg *ssh.ServerConfig) {
	sc, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return
	}
	s.active.Add(1)
	go func() {
		_ = sc.Wait()
		s.active.Add(-1)
	}()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, chReqs)
	}
}

func (s *Server) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	var running *exec.Cmd
	defer func() {
		if running != nil && running.Process != nil {
			_ = running.Process.Kill()
		}
	}()

	for req := range reqs {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil || s.rejects(payload.Command) {
				_ = req.Reply(false, nil)
				continue
			}
			s.record(payload.Command)

			cmd := exec.Command("sh", "-c", payload.Command)
			cmd.Stdout = ch
			cmd.Stderr = ch.Stderr()
			cmd.WaitDelay = 200 * time.Millisecond
			if err := cmd.Start(); err != nil {
				_ = req.Reply(false, nil)
				continue
			}
			running = cmd
			_ = req.Reply(true, nil)

			go func() {
				status := exitStatus(cmd.Wait())
				_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
				_ = ch.Close()
			}()
		case "signal":
			if running != nil && running.Process != nil {
				_ = running.Process.Kill()
			}
			if req.WantReply {
				_ = req.Reply(true, nil)
			}
		case "subsystem":
			var payload struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil || payload.Name != "sftp" || s.opts.DisableSFTP {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			go func() {
				defer ch.Close()
				server, err := sftp.NewServer(ch)
				if err != nil {
					return
				}
				_ = server.Serve()
				_ = server.Close()
			}()
		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

func (s *Server) rejects(cmd string) bool {
	if s.opts.RejectExec {
		return true
	}
	return s.opts.RejectExecMatching != "" && bytes.Contains([]byte(cmd), []byte(s.opts.RejectExecMatching))
}

func (s *Server) record(cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
}

func exitStatus(err error) uint32 {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return uint32(exitErr.ExitCode())
	}
	return 255
}

// GenerateKey returns an OpenSSH PEM private key and its public key. A
// non-empty passphrase encrypts the PEM.
func GenerateKey(t testing.TB, passphrase string) ([]byte, ssh.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "xmdeploy-test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "xmdeploy-test", []byte(passphrase))
	}
	require.NoError(t, err)

	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return pem.EncodeToMemory(block), sshPub
}
