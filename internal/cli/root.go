// Package cli implements the dccon administration command line. Commands are
// thin wrappers over the connector service, configured from flags, a
// dccon.yaml file and DCCON_* environment variables.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
)

// ConnectFunc builds the connector service for a command. The returned
// closer releases the directory connections.
type ConnectFunc func(ctx context.Context, s *Settings) (*connector.Service, io.Closer, error)

// Options configure the root command.
type Options struct {
	Version string
	// Connect defaults to Connect.
	Connect ConnectFunc
}

// Settings are the connection settings shared by every command.
type Settings struct {
	Domain         string
	LDAPURL        string
	Username       string
	Password       string
	KerberosRealm  string
	KerberosKeytab string
	SkipTLSVerify  bool
	Timeout        time.Duration

	GroupBaseDN string
	UserBaseDN  string

	SambaTool          string
	UseSudo            bool
	NameServer         string
	KinitAdministrator string
	KinitPasswordFile  string
}

type app struct {
	opts     Options
	settings Settings
	config   string
	loglevel string
	log      zerolog.Logger
}

// NewRootCommand returns the dccon command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Connect == nil {
		opts.Connect = Connect
	}
	a := &app{opts: opts, log: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "dccon",
		Short:         "Manage users, groups and DNS records on a Samba domain controller",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.config, "config", "", "Configuration file (default: dccon.yaml in the working directory)")
	flags.StringVar(&a.loglevel, "loglevel", "info", "Console log level")

	flags.StringVar(&a.settings.Domain, "domain", "", "AD domain for SRV discovery")
	flags.StringVar(&a.settings.LDAPURL, "ldap-url", "", "LDAP URL of the domain controller")
	flags.StringVar(&a.settings.Username, "username", "", "Bind user")
	flags.StringVar(&a.settings.Password, "password", "", "Bind password")
	flags.StringVar(&a.settings.KerberosRealm, "kerberos-realm", "", "Kerberos realm for GSSAPI bind")
	flags.StringVar(&a.settings.KerberosKeytab, "kerberos-keytab", "", "Kerberos keytab for GSSAPI bind")
	flags.BoolVar(&a.settings.SkipTLSVerify, "skip-tls-verify", false, "Skip TLS certificate verification")
	flags.DurationVar(&a.settings.Timeout, "timeout", 30*time.Second, "Directory connect timeout")
	flags.StringVar(&a.settings.GroupBaseDN, "group-base-dn", "", "Base DN of groups (default: CN=Users under the domain)")
	flags.StringVar(&a.settings.UserBaseDN, "user-base-dn", "", "Base DN of users (default: CN=Users under the domain)")
	flags.StringVar(&a.settings.SambaTool, "samba-tool", "", "samba-tool binary")
	flags.BoolVar(&a.settings.UseSudo, "use-sudo", true, "Run samba-tool through sudo")
	flags.StringVar(&a.settings.NameServer, "name-server", "", "Name server samba-tool dns talks to")
	flags.StringVar(&a.settings.KinitAdministrator, "kinit-administrator", "", "Principal kinit obtains a ticket for")
	flags.StringVar(&a.settings.KinitPasswordFile, "kinit-password-file", "", "Password file read by kinit")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := a.loadConfiguration(cmd); err != nil {
			return err
		}
		return a.setupLogging(cmd.ErrOrStderr())
	}

	root.AddCommand(
		a.zonesCommand(),
		a.recordsCommand(),
		a.bindCommand(),
		a.groupsCommand(),
		a.versionCommand(),
	)
	return root
}

// loadConfiguration applies the configuration file and environment to every
// flag not given on the command line.
func (a *app) loadConfiguration(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("DCCON")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if a.config != "" {
		v.SetConfigFile(a.config)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading configuration %s: %w", a.config, err)
		}
	} else {
		v.SetConfigName("dccon")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("reading configuration: %w", err)
			}
		}
	}

	var errs []error
	apply := func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := f.Value.Set(v.GetString(f.Name)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
		}
	}
	cmd.Root().PersistentFlags().VisitAll(apply)
	cmd.Flags().VisitAll(apply)
	return errors.Join(errs...)
}

func (a *app) setupLogging(out io.Writer) error {
	level, err := zerolog.ParseLevel(a.loglevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.loglevel, err)
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05.000",
	}).Level(level).With().Timestamp().Logger()
	return nil
}

// withService connects, runs fn and releases the connection.
func (a *app) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *connector.Service) error) error {
	ctx := withSubsystemLogging(a.log.WithContext(cmd.Context()), a.log)

	start := time.Now()
	svc, closer, err := a.opts.Connect(ctx, &a.settings)
	if err != nil {
		return fmt.Errorf("connecting to the domain controller: %w", err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Closing directory connections")
		}
	}()
	a.log.Debug().Dur("duration", time.Since(start)).Msg("Connected")

	return fn(ctx, svc)
}
