// Package connector orchestrates the directory client, samba-tool and the
// DNS topology rules into the operations exposed by the provider and the
// CLI.
package connector

import (
	"context"
	"strings"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/dns"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/sambatool"
)

// Tool is the samba-tool surface the service drives.
type Tool interface {
	dns.RecordTool

	CreateZone(ctx context.Context, zone string) error
	DeleteZone(ctx context.Context, zone string) error

	CreateUser(ctx context.Context, user sambatool.NewUser) error
	DeleteUser(ctx context.Context, name string) error
	SetPassword(ctx context.Context, name, password string) error

	CreateGroup(ctx context.Context, name string) error
	DeleteGroup(ctx context.Context, name string) error
}

var _ Tool = (*sambatool.Tool)(nil)

// Service is safe for concurrent use. Every operation that reads or writes
// the directory holds one session for its duration.
type Service struct {
	client ldap.Client
	tool   Tool
	dir    *ldap.DirectoryConfig
	dns    *dns.Config
	sync   *dns.Synchronizer
}

// New creates a service. A nil dnsCfg uses the default classification rules.
func New(client ldap.Client, tool Tool, dir *ldap.DirectoryConfig, dnsCfg *dns.Config) *Service {
	if dnsCfg == nil {
		dnsCfg = dns.DefaultConfig()
	}
	return &Service{
		client: client,
		tool:   tool,
		dir:    dir,
		dns:    dnsCfg,
		sync:   dns.NewSynchronizer(dnsCfg, tool),
	}
}

// DNSConfig returns the zone and record classification rules.
func (s *Service) DNSConfig() *dns.Config {
	return s.dns
}

// DirectoryConfig returns the directory layout.
func (s *Service) DirectoryConfig() *ldap.DirectoryConfig {
	return s.dir
}

// withSession runs fn on a dedicated directory connection and releases it
// on every path.
func (s *Service) withSession(ctx context.Context, op string, fn func(ldap.Session) error) error {
	sess, err := s.client.Session(ctx)
	if err != nil {
		if dcerr.KindOf(err) != dcerr.KindUnknown {
			return err
		}
		return dcerr.Transport(op, "", err)
	}
	defer sess.Close()
	return fn(sess)
}

// isDN reports whether v is written as a distinguished name rather than an
// account name.
func isDN(v string) bool {
	return strings.Contains(v, "=") && ldap.ValidateDNSyntax(v) == nil
}

func (s *Service) userDNs(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if isDN(v) {
			out = append(out, v)
		} else {
			out = append(out, s.dir.UserDN(v))
		}
	}
	return out
}

func (s *Service) groupDNs(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if isDN(v) {
			out = append(out, v)
		} else {
			out = append(out, s.dir.GroupDN(v))
		}
	}
	return out
}

// Names returns the RDN values of dnList, keeping unparsable values as they
// are.
func Names(dnList []string) []string {
	out := make([]string, 0, len(dnList))
	for _, dn := range dnList {
		name, err := ldap.RDNValue(dn)
		if err != nil {
			name = dn
		}
		out = append(out, name)
	}
	return out
}
