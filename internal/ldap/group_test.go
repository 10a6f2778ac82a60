package ldap_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/ldap/ldaptest"
)

func seedGroups(t *testing.T) (*ldaptest.Directory, *ldap.DirectoryConfig) {
	t.Helper()

	cfg, err := ldap.NewDirectoryConfig(groupBase, userBase)
	require.NoError(t, err)

	dir := ldaptest.New()
	dir.AddEntry("CN=staff,"+groupBase, map[string][]string{
		"objectClass":    {"top", "group"},
		"sAMAccountName": {"staff"},
		"description":    {"All staff"},
		"member":         {"CN=alice," + userBase},
		"objectSid":      {"S-1-5-21-1-2-3-1104"},
		"whenCreated":    {"20240102030405.0Z"},
	})
	dir.AddEntry("CN=Admins,"+groupBase, map[string][]string{
		"objectClass":    {"top", "group"},
		"sAMAccountName": {"Admins"},
	})
	dir.AddEntry("CN=nested,OU=Sub,"+groupBase, map[string][]string{
		"objectClass":    {"top", "group"},
		"sAMAccountName": {"nested"},
	})
	dir.AddEntry("CN=alice,"+userBase, map[string][]string{
		"objectClass":    {"top", "user"},
		"sAMAccountName": {"alice"},
	})
	return dir, cfg
}

func TestGroupDirectory_FindAll(t *testing.T) {
	dir, cfg := seedGroups(t)
	groups, err := ldap.NewGroupDirectory(dir, cfg).FindAll(context.Background())
	require.NoError(t, err)

	// single-level scope excludes the nested OU
	require.Len(t, groups, 2)
	assert.Equal(t, "Admins", groups[0].Name)
	assert.Equal(t, "staff", groups[1].Name)
}

func TestGroupDirectory_FindOne(t *testing.T) {
	dir, cfg := seedGroups(t)
	groups := ldap.NewGroupDirectory(dir, cfg)
	ctx := context.Background()

	g, err := groups.FindOne(ctx, "staff")
	require.NoError(t, err)
	assert.Equal(t, "CN=staff,"+groupBase, g.DN)
	assert.Equal(t, "All staff", g.Description)
	assert.Equal(t, []string{"CN=alice," + userBase}, g.Members)
	assert.Equal(t, "S-1-5-21-1-2-3-1104", g.SID)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), g.Created)

	_, err = groups.FindOne(ctx, "nobody")
	assert.True(t, dcerr.IsNotFound(err))

	exists, err := groups.Exists(ctx, "Admins")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = groups.Exists(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGroupDirectory_SearchFailure(t *testing.T) {
	dir, cfg := seedGroups(t)
	dir.SearchError = errors.New("connection reset by peer")
	groups := ldap.NewGroupDirectory(dir, cfg)

	_, err := groups.FindAll(context.Background())
	assert.True(t, dcerr.IsTransport(err))

	_, err = groups.Exists(context.Background(), "staff")
	assert.True(t, dcerr.IsTransport(err))
}

func TestGroupDirectory_Members(t *testing.T) {
	dir, cfg := seedGroups(t)
	groups := ldap.NewGroupDirectory(dir, cfg)
	ctx := context.Background()

	members, err := groups.Members(ctx, "cn=STAFF,"+groupBase)
	require.NoError(t, err)
	assert.Equal(t, []string{"CN=alice," + userBase}, members)

	members, err = groups.Members(ctx, "CN=Admins,"+groupBase)
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = groups.Members(ctx, "CN=ghost,"+groupBase)
	assert.True(t, dcerr.IsNotFound(err))
}

func TestDirectoryConfig(t *testing.T) {
	cfg, err := ldap.NewDirectoryConfig(groupBase, userBase)
	require.NoError(t, err)

	assert.Equal(t, "member", cfg.GroupMemberAttr)
	assert.Equal(t, "memberOf", cfg.UserGroupAttr)
	assert.Equal(t, ldap.ScopeSingleLevel, cfg.GroupFindAllScope)
	assert.Equal(t, "cn=staff,"+groupBase, cfg.GroupDN("staff"))
	assert.Equal(t, `cn=Smith\, John,`+userBase, cfg.UserDN("Smith, John"))

	_, err = ldap.NewDirectoryConfig("", userBase)
	assert.Error(t, err)

	custom := &ldap.DirectoryConfig{GroupBaseDN: groupBase, UserBaseDN: userBase, GroupMemberAttr: "uniqueMember"}
	require.NoError(t, custom.ApplyDefaults())
	assert.Equal(t, "uniqueMember", custom.GroupMemberAttr)
	assert.Equal(t, "cn", custom.GroupRDN)
}
