package config

import (
	"github.com/mensylisir/xmdeploy/connector"
	"github.com/mensylisir/xmdeploy/file"
)

// Target returns the connection target of the host.
func (h HostSpec) Target() connector.Target {
	return connector.NewTarget(h.Address, h.Port, h.User)
}

// Credential picks the credential variant by which secret is populated.
func (h HostSpec) Credential() (connector.Credential, error) {
	return connector.CredentialFromOptions(connector.CredentialOptions{
		Password:   h.Password,
		KeyPath:    h.PrivateKeyPath,
		KeyContent: h.PrivateKeyContent,
		Passphrase: h.Passphrase,
	})
}

func (f FileSpec) TransferSpec() file.TransferSpec {
	return file.TransferSpec{
		LocalFilePath:    f.LocalFilePath,
		RemoteFilePath:   f.RemoteFilePath,
		RemoteDirectory:  f.RemoteDirectory,
		PreserveFileName: f.PreserveFileName,
	}
}

// ConnectOptions returns the transport options. Call after SetDefaults.
func (c ConnectionSpec) ConnectOptions() connector.Options {
	opts := connector.Options{
		Timeout:        c.Timeout,
		KnownHostsFile: c.KnownHostsFile,
	}
	if c.InsecureIgnoreHostKey != nil {
		opts.InsecureIgnoreHostKey = *c.InsecureIgnoreHostKey
	}
	return opts
}
