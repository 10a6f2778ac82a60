// Package connectortest wires a connector service to the in-memory directory
// and the fake samba-tool so that accounts created through the tool become
// visible over LDAP.
package connectortest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/dns"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/ldap/ldaptest"
	"github.com/isometry/terraform-provider-dccon/internal/sambatool"
	"github.com/isometry/terraform-provider-dccon/internal/sambatool/sambatooltest"
)

// Base DNs of the fixture directory.
const (
	GroupBase = "OU=Groups,DC=example,DC=org"
	UserBase  = "OU=Users,DC=example,DC=org"
)

// Fixture is a connector service over fakes.
type Fixture struct {
	Dir     *ldaptest.Directory
	Tool    *sambatooltest.Server
	Service *connector.Service
}

// New returns a fixture with default DNS classification rules.
func New(t testing.TB) *Fixture {
	return NewWithDNS(t, nil)
}

// NewWithDNS returns a fixture using dnsCfg, or the defaults when nil.
func NewWithDNS(t testing.TB, dnsCfg *dns.Config) *Fixture {
	t.Helper()

	cfg, err := ldap.NewDirectoryConfig(GroupBase, UserBase)
	require.NoError(t, err)

	dir := ldaptest.New()
	dir.LinkMemberOf = true
	srv := sambatooltest.New()
	srv.OnSuccess = func(key string, args []string) {
		switch key {
		case "group add":
			dir.AddEntry(GroupDN(args[0]), map[string][]string{
				"objectClass":    {"top", "group"},
				"sAMAccountName": {args[0]},
			})
		case "group delete":
			dir.RemoveEntry(GroupDN(args[0]))
		case "user create":
			dir.AddEntry(UserDN(args[0]), map[string][]string{
				"objectClass":        {"top", "user"},
				"sAMAccountName":     {args[0]},
				"userAccountControl": {"512"},
			})
		case "user delete":
			dir.RemoveEntry(UserDN(args[0]))
		}
	}

	tool, err := sambatool.New(sambatool.DefaultConfig(), srv)
	require.NoError(t, err)

	return &Fixture{Dir: dir, Tool: srv, Service: connector.New(dir, tool, cfg, dnsCfg)}
}

// GroupDN returns the DN of group name.
func GroupDN(name string) string { return "CN=" + name + "," + GroupBase }

// UserDN returns the DN of user name.
func UserDN(name string) string { return "CN=" + name + "," + UserBase }

// AddGroup seeds a group with the given member user names.
func (f *Fixture) AddGroup(name string, members ...string) {
	f.Tool.AddGroup(name)
	attrs := map[string][]string{
		"objectClass":    {"top", "group"},
		"sAMAccountName": {name},
	}
	if len(members) > 0 {
		dns := make([]string, 0, len(members))
		for _, m := range members {
			dns = append(dns, UserDN(m))
		}
		attrs["member"] = dns
	}
	f.Dir.AddEntry(GroupDN(name), attrs)
}

// AddUser seeds an enabled user that is a member of groups. Only memberOf
// is set; seed the groups' member attribute with AddGroup.
func (f *Fixture) AddUser(name string, groups ...string) {
	f.Tool.AddUser(name)
	attrs := map[string][]string{
		"objectClass":        {"top", "user"},
		"sAMAccountName":     {name},
		"userAccountControl": {"512"},
	}
	if len(groups) > 0 {
		dns := make([]string, 0, len(groups))
		for _, g := range groups {
			dns = append(dns, GroupDN(g))
		}
		attrs["memberOf"] = dns
	}
	f.Dir.AddEntry(UserDN(name), attrs)
}

// AssertSessionsReleased checks that every directory session was closed.
func (f *Fixture) AssertSessionsReleased(t testing.TB) {
	t.Helper()
	assert.Positive(t, f.Dir.SessionsOpened)
	assert.Equal(t, f.Dir.SessionsOpened, f.Dir.SessionsClosed)
}
