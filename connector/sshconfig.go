package connector

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kevinburke/ssh_config"
	"github.com/pkg/errors"

	"github.com/mensylisir/xmdeploy/util"
)

// AliasSettings holds what an ~/.ssh/config Host block says about an alias.
// Empty fields mean the block does not set them.
type AliasSettings struct {
	HostName     string
	Port         int
	User         string
	IdentityFile string
	// StrictHostKeyChecking=no in the block.
	InsecureIgnoreHostKey bool
}

// ResolveAlias reads path (default ~/.ssh/config) and resolves alias.
func ResolveAlias(alias, path string) (AliasSettings, error) {
	if path == "" {
		home, err := util.Home()
		if err != nil {
			return AliasSettings{}, errors.Wrap(err, "failed to locate home directory")
		}
		path = filepath.Join(home, ".ssh", "config")
	}
	f, err := os.Open(path)
	if err != nil {
		return AliasSettings{}, errors.Wrapf(err, "failed to open ssh config %q", path)
	}
	defer func() { _ = f.Close() }()

	return ResolveAliasFrom(alias, f)
}

// ResolveAliasFrom parses ssh config data from r and resolves alias.
func ResolveAliasFrom(alias string, r io.Reader) (AliasSettings, error) {
	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return AliasSettings{}, errors.Wrap(err, "failed to parse ssh config")
	}

	var s AliasSettings
	s.HostName, _ = cfg.Get(alias, "HostName")
	s.User, _ = cfg.Get(alias, "User")

	if portStr, _ := cfg.Get(alias, "Port"); portStr != "" {
		port, convErr := strconv.Atoi(portStr)
		if convErr != nil {
			return AliasSettings{}, errors.Wrapf(convErr, "invalid Port %q for host %q", portStr, alias)
		}
		s.Port = port
	}

	if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
		expanded, expErr := util.ExpandHome(identity)
		if expErr != nil {
			return AliasSettings{}, expErr
		}
		s.IdentityFile = expanded
	}

	strict, _ := cfg.Get(alias, "StrictHostKeyChecking")
	s.InsecureIgnoreHostKey = strict == "no"
	return s, nil
}

// Apply merges the alias settings under explicit values. Explicit values win.
func (s AliasSettings) Apply(alias string, port int, user string) Target {
	if port <= 0 {
		port = s.Port
	}
	return NewTarget(util.FirstNonEmpty(s.HostName, alias), port, util.FirstNonEmpty(user, s.User))
}
