package connector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/connector/connectortest"
	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/ldap/ldaptest"
)

const (
	groupBase = connectortest.GroupBase
	userBase  = connectortest.UserBase
)

func newFixture(t *testing.T) *connectortest.Fixture {
	return connectortest.New(t)
}

func groupDN(name string) string { return connectortest.GroupDN(name) }
func userDN(name string) string  { return connectortest.UserDN(name) }

type failingClient struct {
	*ldaptest.Directory
}

func (failingClient) Session(context.Context) (ldap.Session, error) {
	return nil, errors.New("connection refused")
}

func TestSessionFailureIsTransport(t *testing.T) {
	cfg, err := ldap.NewDirectoryConfig(groupBase, userBase)
	require.NoError(t, err)
	svc := connector.New(failingClient{ldaptest.New()}, nil, cfg, nil)

	_, err = svc.GetGroup(context.Background(), "staff")
	assert.True(t, dcerr.IsTransport(err), err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"alice", "staff", "not a dn"},
		connector.Names([]string{userDN("alice"), "cn=staff,ou=groups,dc=example,dc=org", "not a dn"}))
}
