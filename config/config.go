package config

import (
	"time"
)

const (
	APIVersion = "xmdeploy/v1"
	Kind       = "Deployment"
)

// DeploymentConfig is the top-level configuration structure.
type DeploymentConfig struct {
	APIVersion string         `yaml:"apiVersion"`
	Kind       string         `yaml:"kind"`
	Metadata   MetadataSpec   `yaml:"metadata"`
	Spec       DeploymentSpec `yaml:"spec"`
}

// MetadataSpec defines metadata for the deployment configuration.
type MetadataSpec struct {
	Name string `yaml:"name"`
}

// DeploymentSpec defines what is deployed where.
type DeploymentSpec struct {
	Host       HostSpec       `yaml:"host"`
	File       FileSpec       `yaml:"file"`
	Connection ConnectionSpec `yaml:"connection"`
	History    HistorySpec    `yaml:"history"`
}

// HostSpec defines the remote host and the credential used to reach it.
// At most one of Password, PrivateKeyPath and PrivateKeyContent is used,
// in that order.
type HostSpec struct {
	Address           string `yaml:"address"`
	Port              int    `yaml:"port,omitempty"`
	User              string `yaml:"user"`
	Password          string `yaml:"password,omitempty"`
	PrivateKeyPath    string `yaml:"privateKeyPath,omitempty"`
	PrivateKeyContent string `yaml:"privateKeyContent,omitempty"`
	Passphrase        string `yaml:"passphrase,omitempty"`
	SSHConfigAlias    string `yaml:"sshConfigAlias,omitempty"`
}

// FileSpec defines the local artifact and its destination policy.
type FileSpec struct {
	LocalFilePath    string `yaml:"localFilePath"`
	RemoteFilePath   string `yaml:"remoteFilePath,omitempty"`
	RemoteDirectory  string `yaml:"remoteDirectory,omitempty"`
	PreserveFileName bool   `yaml:"preserveFileName,omitempty"`
}

// ConnectionSpec tunes the SSH transport.
type ConnectionSpec struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`
	KnownHostsFile        string        `yaml:"knownHostsFile,omitempty"`
	InsecureIgnoreHostKey *bool         `yaml:"insecureIgnoreHostKey,omitempty"`
}

// HistorySpec enables the sqlite deployment history.
type HistorySpec struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}
