package connector

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"

	"github.com/mensylisir/xmdeploy/util"
)

// AuthType names one of the supported credential variants.
type AuthType string

const (
	AuthPassword   AuthType = "password"
	AuthKeyFile    AuthType = "keyfile"
	AuthKeyContent AuthType = "keycontent"
)

var (
	// ErrNoAuthMethod is returned when a credential carries no usable secret.
	ErrNoAuthMethod = errors.New("no authentication method provided")
	// ErrPassphraseRequired is returned for an encrypted key without passphrase.
	ErrPassphraseRequired = errors.New("private key is encrypted, a passphrase is required")
)

// Credential is one of PasswordCredential, KeyFileCredential or
// KeyContentCredential. It is resolved exactly once per connection attempt.
type Credential interface {
	Type() AuthType
	authMethod() (ssh.AuthMethod, error)
}

type PasswordCredential struct {
	Password string
}

type KeyFileCredential struct {
	PrivateKeyPath string
	Passphrase     string
}

type KeyContentCredential struct {
	PrivateKeyContent []byte
	Passphrase        string
}

func (PasswordCredential) Type() AuthType   { return AuthPassword }
func (KeyFileCredential) Type() AuthType    { return AuthKeyFile }
func (KeyContentCredential) Type() AuthType { return AuthKeyContent }

func (c PasswordCredential) authMethod() (ssh.AuthMethod, error) {
	if c.Password == "" {
		return nil, ErrNoAuthMethod
	}
	return ssh.Password(c.Password), nil
}

// The key file is read here, at connect time, never at construction.
func (c KeyFileCredential) authMethod() (ssh.AuthMethod, error) {
	if c.PrivateKeyPath == "" {
		return nil, ErrNoAuthMethod
	}
	keyPath, err := util.ExpandHome(c.PrivateKeyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to expand key path %q", c.PrivateKeyPath)
	}
	content, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read private key %q", keyPath)
	}
	signer, err := parseSigner(content, c.Passphrase)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid private key %q", keyPath)
	}
	return ssh.PublicKeys(signer), nil
}

func (c KeyContentCredential) authMethod() (ssh.AuthMethod, error) {
	if len(c.PrivateKeyContent) == 0 {
		return nil, ErrNoAuthMethod
	}
	signer, err := parseSigner(c.PrivateKeyContent, c.Passphrase)
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key content")
	}
	return ssh.PublicKeys(signer), nil
}

func parseSigner(pem []byte, passphrase string) (ssh.Signer, error) {
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, ErrPassphraseRequired
		}
		return nil, err
	}
	return signer, nil
}

// ResolveAuth derives the single SSH auth method for cred. There is no
// fallback across variants.
func ResolveAuth(cred Credential) (ssh.AuthMethod, error) {
	if cred == nil {
		return nil, ErrNoAuthMethod
	}
	return cred.authMethod()
}

// CredentialOptions gathers every secret a caller may have collected.
type CredentialOptions struct {
	Password   string
	KeyPath    string
	KeyContent string
	Passphrase string
}

// NewCredential builds the variant named by authType and checks that the
// field it needs is present.
func NewCredential(authType AuthType, opts CredentialOptions) (Credential, error) {
	switch authType {
	case AuthPassword:
		if opts.Password == "" {
			return nil, errors.New("password is required for password authentication")
		}
		return PasswordCredential{Password: opts.Password}, nil
	case AuthKeyFile:
		if opts.KeyPath == "" {
			return nil, errors.New("key path is required for key file authentication")
		}
		return KeyFileCredential{PrivateKeyPath: opts.KeyPath, Passphrase: opts.Passphrase}, nil
	case AuthKeyContent:
		if opts.KeyContent == "" {
			return nil, errors.New("key content is required for key content authentication")
		}
		return KeyContentCredential{PrivateKeyContent: []byte(opts.KeyContent), Passphrase: opts.Passphrase}, nil
	default:
		return nil, errors.Errorf("unsupported authentication type %q", authType)
	}
}

// CredentialFromOptions picks the variant by which field is populated:
// password, then key path, then key content.
func CredentialFromOptions(opts CredentialOptions) (Credential, error) {
	switch {
	case opts.Password != "":
		return NewCredential(AuthPassword, opts)
	case opts.KeyPath != "":
		return NewCredential(AuthKeyFile, opts)
	case opts.KeyContent != "":
		return NewCredential(AuthKeyContent, opts)
	default:
		return nil, ErrNoAuthMethod
	}
}

// Describe returns a log-safe summary of cred.
func Describe(cred Credential) string {
	switch c := cred.(type) {
	case PasswordCredential:
		return "password authentication"
	case KeyFileCredential:
		return "private key authentication: " + c.PrivateKeyPath
	case KeyContentCredential:
		return "private key content authentication"
	default:
		return "no authentication"
	}
}
