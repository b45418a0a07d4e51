package step

import "fmt"

// TransferError reports a failure to open the file-transfer sub-channel or
// to copy the artifact through it.
type TransferError struct {
	LocalPath  string
	RemotePath string
	Err        error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %s to %s failed: %v", e.LocalPath, e.RemotePath, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ExecError reports that a remote command could not be dispatched or
// waited for. A nonzero exit code is never an ExecError.
type ExecError struct {
	Command string
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("remote command %q failed: %v", e.Command, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
