package config

import (
	"fmt"

	"github.com/mensylisir/xmdeploy/common"
	"github.com/mensylisir/xmdeploy/connector"
	"github.com/mensylisir/xmdeploy/history"
)

// ApplyAlias fills fields that are still empty from an ~/.ssh/config
// Host block. Values already set win.
func (d *DeploymentSpec) ApplyAlias(s connector.AliasSettings) {
	h := &d.Host
	if h.Address == "" {
		h.Address = s.HostName
		if h.Address == "" {
			h.Address = h.SSHConfigAlias
		}
	}
	if h.Port == 0 {
		h.Port = s.Port
	}
	if h.User == "" {
		h.User = s.User
	}
	if h.Password == "" && h.PrivateKeyPath == "" && h.PrivateKeyContent == "" {
		h.PrivateKeyPath = s.IdentityFile
	}
	if s.InsecureIgnoreHostKey && d.Connection.InsecureIgnoreHostKey == nil {
		insecure := true
		d.Connection.InsecureIgnoreHostKey = &insecure
	}
}

// SetDefaults applies default values to a loaded configuration.
func SetDefaults(cfg *DeploymentConfig) error {
	if cfg == nil {
		return fmt.Errorf("input DeploymentConfig to SetDefaults cannot be nil")
	}
	spec := &cfg.Spec

	if spec.Host.Port == 0 {
		spec.Host.Port = common.DefaultSSHPort
	}
	if spec.Connection.Timeout <= 0 {
		spec.Connection.Timeout = common.DefaultConnectTimeout
	}
	if spec.Connection.InsecureIgnoreHostKey == nil {
		insecure := spec.Connection.KnownHostsFile == ""
		spec.Connection.InsecureIgnoreHostKey = &insecure
	}
	if spec.History.Enabled && spec.History.Path == "" {
		p, err := history.DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to resolve default history path: %w", err)
		}
		spec.History.Path = p
	}
	return nil
}

// Validate checks the fields a deployment cannot start without. The
// destination policy is checked later, by the deployer's pre-flight.
func Validate(cfg *DeploymentConfig) error {
	if cfg.Spec.Host.Address == "" {
		return fmt.Errorf("spec.host.address is required")
	}
	if cfg.Spec.Host.User == "" {
		return fmt.Errorf("spec.host.user is required")
	}
	if cfg.Spec.Host.Port < 0 || cfg.Spec.Host.Port > 65535 {
		return fmt.Errorf("spec.host.port %d is out of range", cfg.Spec.Host.Port)
	}
	if cfg.Spec.File.LocalFilePath == "" {
		return fmt.Errorf("spec.file.localFilePath is required")
	}
	return nil
}
