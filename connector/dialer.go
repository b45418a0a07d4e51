package connector

import "context"

// sshDialer is the production Dialer.
type sshDialer struct {
	opts Options
}

// NewDialer returns a Dialer that opens SSH connections with opts.
func NewDialer(opts Options) Dialer {
	return &sshDialer{opts: opts}
}

func (d *sshDialer) Dial(ctx context.Context, target Target, cred Credential) (Connection, error) {
	return Connect(ctx, target, cred, d.opts)
}

var _ Dialer = (*sshDialer)(nil)
