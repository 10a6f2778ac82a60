package connector_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/sambatool/sambatooltest"
)

func TestAddUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.AddGroup("staff")

	user, err := f.Service.AddUser(ctx, connector.UserSpec{
		Name:        "anna",
		DisplayName: "Anna Example",
		Email:       "anna@example.org",
		Mobile:      "+49 170 0000000",
		Enabled:     true,
		Groups:      []string{"staff"},
	}, "S3cret!")
	require.NoError(t, err)

	assert.Equal(t, userDN("anna"), user.DN)
	assert.Equal(t, "Anna Example", user.DisplayName)
	assert.Equal(t, "+49 170 0000000", user.Mobile)
	assert.True(t, user.Enabled)
	assert.Equal(t, "S3cret!", f.Tool.Passwords["anna"])
	assert.Equal(t, []string{userDN("anna")}, f.Dir.Values(groupDN("staff"), "member"))
	assert.Len(t, f.Tool.CallsMatching("--mail-address=anna@example.org"), 1)

	_, err = f.Service.AddUser(ctx, connector.UserSpec{Name: "anna"}, "x")
	assert.True(t, dcerr.IsAlreadyExists(err), err)

	f.AssertSessionsReleased(t)
}

func TestAddUserToolFailure(t *testing.T) {
	f := newFixture(t)
	f.Tool.Faults["user create"] = sambatooltest.Fault{ExitCode: 255, Stderr: "ERROR: password does not meet complexity requirements"}

	_, err := f.Service.AddUser(context.Background(), connector.UserSpec{Name: "anna"}, "short")
	require.Error(t, err)
	assert.True(t, dcerr.IsToolInvocation(err), err)
	assert.Empty(t, f.Dir.Modifications())
	f.AssertSessionsReleased(t)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.AddUser("alice")

	user, err := f.Service.UpdateUser(ctx, "alice", connector.UserSpec{
		DisplayName:          "Alice",
		PasswordNeverExpires: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.False(t, user.Enabled)
	assert.True(t, user.PasswordNeverExpires)

	// Groups were not asked for, so no group entry was touched.
	for _, m := range f.Dir.Modifications() {
		assert.Contains(t, m, userDN("alice"))
	}

	_, err = f.Service.UpdateUser(ctx, "nobody", connector.UserSpec{})
	assert.True(t, dcerr.IsNotFound(err), err)
}

func TestUpdateUserGroups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.AddGroup("staff", "alice")
	f.AddGroup("devs", "bob")
	f.AddGroup("ops")
	f.AddUser("alice", "staff")
	f.AddUser("bob", "devs")

	_, err := f.Service.UpdateUserGroups(ctx, "alice", []string{"devs", groupDN("ops")})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"modify " + groupDN("staff") + " delete member " + userDN("alice"),
		"modify " + groupDN("devs") + " add member " + userDN("alice"),
		"modify " + groupDN("ops") + " replace member " + userDN("alice"),
	}, f.Dir.Modifications())
	assert.Empty(t, f.Dir.Values(groupDN("staff"), "member"))
	assert.ElementsMatch(t, []string{userDN("bob"), userDN("alice")}, f.Dir.Values(groupDN("devs"), "member"))

	// memberOf is computed by the directory and never written.
	for _, m := range f.Dir.Modifications() {
		assert.NotContains(t, m, "memberOf")
	}
	f.AssertSessionsReleased(t)
}

func TestUserPasswordAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.AddUser("alice")

	require.NoError(t, f.Service.UpdateUserPassword(ctx, "alice", "N3w-secret"))
	assert.Equal(t, "N3w-secret", f.Tool.Passwords["alice"])

	require.NoError(t, f.Service.DeleteUser(ctx, "alice"))
	exists, err := f.Service.UserExists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.True(t, dcerr.IsNotFound(f.Service.DeleteUser(ctx, "alice")))
	assert.True(t, dcerr.IsNotFound(f.Service.UpdateUserPassword(ctx, "alice", "x")))
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	f.AddUser("alice")
	f.AddUser("bob")
	f.AddUser("Administrator")

	m, err := connector.NewMatcher("[ab]*")
	require.NoError(t, err)
	users, err := f.Service.ListUsers(context.Background(), m)
	require.NoError(t, err)

	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"Administrator", "alice", "bob"}, names)
}
