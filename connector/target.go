package connector

import (
	"net"
	"strconv"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmdeploy/common"
)

// Target identifies the remote endpoint of a deployment. It is a value type
// and never changes after NewTarget.
type Target struct {
	host string
	port int
	user string
}

// NewTarget builds a Target. A non-positive port means the default SSH port.
func NewTarget(host string, port int, user string) Target {
	if port <= 0 {
		port = common.DefaultSSHPort
	}
	return Target{host: host, port: port, user: user}
}

func (t Target) Host() string { return t.host }
func (t Target) Port() int    { return t.port }
func (t Target) User() string { return t.user }

// Address returns host:port suitable for dialing.
func (t Target) Address() string {
	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

func (t Target) String() string {
	return t.user + "@" + t.Address()
}

func (t Target) Validate() error {
	if t.host == "" {
		return errors.New("no address specified for SSH connection")
	}
	if t.user == "" {
		return errors.New("no username specified for SSH connection")
	}
	if t.port <= 0 || t.port > 65535 {
		return errors.Errorf("invalid SSH port %d", t.port)
	}
	return nil
}
