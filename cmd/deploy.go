package cmd

import (
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/mensylisir/xmdeploy/config"
	"github.com/mensylisir/xmdeploy/connector"
	"github.com/mensylisir/xmdeploy/file"
	"github.com/mensylisir/xmdeploy/history"
	"github.com/mensylisir/xmdeploy/logger"
	"github.com/mensylisir/xmdeploy/pipeline"
)

const envPrefix = "XMDEPLOY"

// Replaced in tests.
var readPassword = func(prompt string, errOut io.Writer) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", errors.New("--ask-password requires an interactive terminal")
	}
	fmt.Fprint(errOut, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(errOut)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type deployOptions struct {
	root        *rootOptions
	v           *viper.Viper
	envFile     string
	askPassword bool
}

// deployPlan is a fully resolved deployment, ready to hand to the deployer.
type deployPlan struct {
	Config     *config.DeploymentConfig
	Target     connector.Target
	Credential connector.Credential
	Transfer   file.TransferSpec
	Connect    connector.Options
	Output     outputFormat
}

func newDeployCommand(root *rootOptions) *cobra.Command {
	o := &deployOptions{root: root, v: viper.New()}
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Upload a file to a host, execute it and remove it",
		Long: `Deploy uploads one local file to a remote host over SFTP, runs it as
'chmod +x <path> && <path>', prints its output and removes the uploaded file.

Settings come from flags, then XMDEPLOY_* environment variables, then the
file given with --config. A nonzero remote exit code becomes the exit code
of xmdeploy.`,
		Example: `  xmdeploy deploy --host 10.0.0.5 --user deploy --key ~/.ssh/id_ed25519 \
    --local ./bootstrap.sh --remote-dir /tmp --preserve-name
  XMDEPLOY_PASSWORD=secret xmdeploy deploy -c deploy.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := o.resolve(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return o.run(cmd, plan)
		},
	}

	f := cmd.Flags()
	f.StringP("config", "c", "", "Path to a Deployment YAML file")
	f.String("host", "", "Remote host address")
	f.Int("port", 0, "Remote SSH port (default 22)")
	f.StringP("user", "u", "", "Remote user")
	f.String("password", "", "SSH password (or set XMDEPLOY_PASSWORD)")
	f.String("key", "", "Path to an SSH private key")
	f.String("key-content", "", "PEM private key content (or set XMDEPLOY_KEY_CONTENT)")
	f.String("passphrase", "", "Private key passphrase (or set XMDEPLOY_PASSPHRASE)")
	f.String("ssh-config-alias", "", "Resolve host, port, user and key from this ~/.ssh/config Host entry")
	f.String("ssh-config", "", "ssh_config file used with --ssh-config-alias (default ~/.ssh/config)")
	f.StringP("local", "l", "", "Local file to upload")
	f.StringP("remote", "r", "", "Exact remote file path")
	f.String("remote-dir", "", "Remote directory, used with --preserve-name")
	f.Bool("preserve-name", false, "Keep the local file name under --remote-dir")
	f.Duration("timeout", 0, "SSH connect timeout (default 30s)")
	f.String("known-hosts", "", "known_hosts file used to verify the host key")
	f.Bool("insecure", false, "Accept any host key")
	f.Bool("history", false, "Record the deployment in the history database")
	f.String("history-path", "", "History database path (default ~/.xmdeploy/history.db)")
	f.StringP("output", "o", string(outputText), "Result format: text, json or yaml")
	f.StringVar(&o.envFile, "env-file", "", "Load environment variables from a dotenv file first")
	f.BoolVar(&o.askPassword, "ask-password", false, "Prompt for the SSH password without echo")

	_ = o.v.BindPFlags(f)
	o.v.SetEnvPrefix(envPrefix)
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	o.v.AutomaticEnv()
	return cmd
}

// resolve layers the config file, environment and flags into a plan.
func (o *deployOptions) resolve(errOut io.Writer) (*deployPlan, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return nil, errors.Wrapf(err, "failed to load env file %s", o.envFile)
		}
	}

	format, err := parseOutputFormat(o.v.GetString("output"))
	if err != nil {
		return nil, err
	}

	cfg := &config.DeploymentConfig{
		APIVersion: config.APIVersion,
		Kind:       config.Kind,
		Metadata:   config.MetadataSpec{Name: "command-line"},
	}
	if path := o.v.GetString("config"); path != "" {
		if cfg, err = config.NewLoader(path).Load(); err != nil {
			return nil, err
		}
	}
	applyOverrides(o.v, &cfg.Spec)

	if o.askPassword {
		pw, err := readPassword(fmt.Sprintf("Password for %s: ", cfg.Spec.Host.Address), errOut)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read password")
		}
		cfg.Spec.Host.Password = pw
	}

	if alias := cfg.Spec.Host.SSHConfigAlias; alias != "" {
		settings, err := connector.ResolveAlias(alias, o.v.GetString("ssh-config"))
		if err != nil {
			return nil, err
		}
		cfg.Spec.ApplyAlias(settings)
	}

	if err := config.SetDefaults(cfg); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	cred, err := cfg.Spec.Host.Credential()
	if err != nil {
		return nil, err
	}

	return &deployPlan{
		Config:     cfg,
		Target:     cfg.Spec.Host.Target(),
		Credential: cred,
		Transfer:   cfg.Spec.File.TransferSpec(),
		Connect:    cfg.Spec.Connection.ConnectOptions(),
		Output:     format,
	}, nil
}

// applyOverrides copies every flag or environment value that was
// explicitly set over the file configuration.
func applyOverrides(v *viper.Viper, spec *config.DeploymentSpec) {
	strs := map[string]*string{
		"host":             &spec.Host.Address,
		"user":             &spec.Host.User,
		"password":         &spec.Host.Password,
		"key":              &spec.Host.PrivateKeyPath,
		"key-content":      &spec.Host.PrivateKeyContent,
		"passphrase":       &spec.Host.Passphrase,
		"ssh-config-alias": &spec.Host.SSHConfigAlias,
		"local":            &spec.File.LocalFilePath,
		"remote":           &spec.File.RemoteFilePath,
		"remote-dir":       &spec.File.RemoteDirectory,
		"known-hosts":      &spec.Connection.KnownHostsFile,
		"history-path":     &spec.History.Path,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	if v.IsSet("port") {
		spec.Host.Port = v.GetInt("port")
	}
	if v.IsSet("preserve-name") {
		spec.File.PreserveFileName = v.GetBool("preserve-name")
	}
	if v.IsSet("timeout") {
		spec.Connection.Timeout = v.GetDuration("timeout")
	}
	if v.IsSet("insecure") {
		insecure := v.GetBool("insecure")
		spec.Connection.InsecureIgnoreHostKey = &insecure
	}
	if v.IsSet("history-path") {
		spec.History.Enabled = true
	}
	if v.IsSet("history") {
		spec.History.Enabled = v.GetBool("history")
	}
}

func (o *deployOptions) run(cmd *cobra.Command, plan *deployPlan) error {
	log := logger.Log
	dopts := []pipeline.Option{
		pipeline.WithConnectOptions(plan.Connect),
		pipeline.WithProgress(newConsoleProgress(cmd.ErrOrStderr())),
		pipeline.WithLogger(log),
		pipeline.WithVerbose(o.root.verbose),
	}

	if h := plan.Config.Spec.History; h.Enabled {
		repo, err := history.Open(h.Path)
		if err != nil {
			log.Warnf("deployment history disabled: %v", err)
		} else {
			defer func() {
				if cerr := repo.Close(); cerr != nil {
					log.Debugf("closing history database: %v", cerr)
				}
			}()
			dopts = append(dopts, pipeline.WithHistory(repo))
		}
	}

	if plan.Connect.InsecureIgnoreHostKey {
		log.Warn("host key verification is disabled")
	}

	res, err := pipeline.NewDeployer(dopts...).Deploy(cmd.Context(), plan.Target, plan.Credential, plan.Transfer)
	if err != nil {
		return err
	}
	if err := renderResult(cmd.OutOrStdout(), plan.Output, res); err != nil {
		return err
	}
	if !res.Success {
		code := res.ExitCode
		if code <= 0 || code > 255 {
			code = 1
		}
		return &ExitError{Code: code}
	}
	return nil
}
