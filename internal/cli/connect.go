package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/dns"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/sambatool"
)

// Connect binds to the directory and prepares samba-tool from s.
func Connect(ctx context.Context, s *Settings) (*connector.Service, io.Closer, error) {
	ldapCfg, err := s.connectionConfig()
	if err != nil {
		return nil, nil, err
	}
	dirCfg, err := s.directoryConfig()
	if err != nil {
		return nil, nil, err
	}
	tool, err := sambatool.New(s.toolConfig(), nil)
	if err != nil {
		return nil, nil, err
	}

	client, err := ldap.NewClient(ctx, ldapCfg)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return connector.New(client, tool, dirCfg, dns.DefaultConfig()), client, nil
}

func (s *Settings) connectionConfig() (*ldap.ConnectionConfig, error) {
	cfg := ldap.DefaultConfig()
	cfg.Domain = s.Domain
	if s.LDAPURL != "" {
		cfg.LDAPURLs = []string{s.LDAPURL}
	}
	if cfg.Domain == "" && len(cfg.LDAPURLs) == 0 {
		return nil, fmt.Errorf("either --domain or --ldap-url is required")
	}

	cfg.Username = s.Username
	cfg.Password = s.Password
	cfg.KerberosRealm = s.KerberosRealm
	cfg.KerberosKeytab = s.KerberosKeytab
	if !cfg.HasAuthentication() {
		return nil, fmt.Errorf("no credentials: set --username and --password, or a Kerberos realm")
	}

	cfg.TLSConfig.InsecureSkipVerify = s.SkipTLSVerify
	if s.Timeout > 0 {
		cfg.Timeout = s.Timeout
	}
	return cfg, nil
}

func (s *Settings) directoryConfig() (*ldap.DirectoryConfig, error) {
	groupBase, userBase := s.GroupBaseDN, s.UserBaseDN
	if groupBase == "" || userBase == "" {
		if s.Domain == "" {
			return nil, fmt.Errorf("--group-base-dn and --user-base-dn are required without --domain")
		}
		base := "CN=Users," + domainDN(s.Domain)
		if groupBase == "" {
			groupBase = base
		}
		if userBase == "" {
			userBase = base
		}
	}
	return ldap.NewDirectoryConfig(groupBase, userBase)
}

func (s *Settings) toolConfig() *sambatool.Config {
	cfg := sambatool.DefaultConfig()
	cfg.UseSudo = s.UseSudo
	if s.SambaTool != "" {
		cfg.SambaToolBinary = s.SambaTool
	}
	if s.NameServer != "" {
		cfg.NameServer = s.NameServer
	}
	if s.KinitAdministrator != "" {
		cfg.KinitAdministrator = s.KinitAdministrator
	}
	if s.KinitPasswordFile != "" {
		cfg.KinitPasswordFile = s.KinitPasswordFile
	}
	return cfg
}

// domainDN turns example.org into DC=example,DC=org.
func domainDN(domain string) string {
	labels := strings.Split(strings.Trim(domain, "."), ".")
	for i, l := range labels {
		labels[i] = "DC=" + l
	}
	return strings.Join(labels, ",")
}
