package connector

import "fmt"

// ConnectError reports a failure to reach, authenticate to, or resolve the
// credential for a host.
type ConnectError struct {
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("ssh connection to %s failed: %v", e.Address, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
