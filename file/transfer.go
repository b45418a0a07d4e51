package file

import (
	"fmt"
	"path"
)

const (
	FieldLocalFilePath   = "localFilePath"
	FieldRemoteFilePath  = "remoteFilePath"
	FieldRemoteDirectory = "remoteDirectory"
)

// ValidationError reports a malformed destination policy or an unusable
// local file. It is always raised before any network I/O.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TransferSpec names the local artifact and where it lands remotely. With
// PreserveFileName the destination is RemoteDirectory joined with the local
// base name; otherwise it is RemoteFilePath.
type TransferSpec struct {
	LocalFilePath    string `yaml:"localFilePath" json:"localFilePath"`
	RemoteFilePath   string `yaml:"remoteFilePath,omitempty" json:"remoteFilePath,omitempty"`
	RemoteDirectory  string `yaml:"remoteDirectory,omitempty" json:"remoteDirectory,omitempty"`
	PreserveFileName bool   `yaml:"preserveFileName,omitempty" json:"preserveFileName,omitempty"`
}

// ResolveDestination returns the final remote path for spec. Remote paths
// are POSIX, so they are joined with path, not filepath.
func ResolveDestination(spec TransferSpec) (string, error) {
	if spec.PreserveFileName {
		base := BaseName(spec.LocalFilePath)
		if base == "" {
			return "", &ValidationError{Field: FieldLocalFilePath, Reason: "cannot extract a file name to preserve"}
		}
		if spec.RemoteDirectory == "" {
			return "", &ValidationError{Field: FieldRemoteDirectory, Reason: "required when preserveFileName is true"}
		}
		return path.Join(spec.RemoteDirectory, base), nil
	}
	if spec.RemoteFilePath == "" {
		return "", &ValidationError{Field: FieldRemoteFilePath, Reason: "required when preserveFileName is false"}
	}
	return spec.RemoteFilePath, nil
}

// Prepare resolves the destination and checks the local file. It is the
// whole pre-flight for a deployment.
func Prepare(spec TransferSpec) (remotePath string, size int64, err error) {
	remotePath, err = ResolveDestination(spec)
	if err != nil {
		return "", 0, err
	}
	size, err = CheckLocal(spec.LocalFilePath)
	if err != nil {
		return "", 0, err
	}
	return remotePath, size, nil
}
