package connector

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/mensylisir/xmdeploy/cache"
	"github.com/mensylisir/xmdeploy/util"
)

// knownHostsTTL bounds how long a parsed known_hosts file is reused.
const knownHostsTTL = 30 * time.Second

var knownHostsCache = cache.NewCache[string, ssh.HostKeyCallback](
	cache.WithDefaultTTL[string, ssh.HostKeyCallback](knownHostsTTL),
)

// HostKeyCallback returns the host key policy for opts. With a known_hosts
// file, and unless InsecureIgnoreHostKey is set, the server key must match
// an entry. Without one any key is accepted. Parsed files are reused for
// knownHostsTTL.
func HostKeyCallback(opts Options) (ssh.HostKeyCallback, error) {
	if opts.InsecureIgnoreHostKey || opts.KnownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	path, err := util.ExpandHome(opts.KnownHostsFile)
	if err != nil {
		return nil, err
	}
	cb, err := knownHostsCache.GetOrLoad(path, func() (ssh.HostKeyCallback, error) {
		return knownhosts.New(path)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load known hosts %q", path)
	}
	return cb, nil
}
