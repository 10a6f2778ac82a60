package ldap_test

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/quick"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/ldap/ldaptest"
)

const (
	groupBase = "OU=Groups,DC=example,DC=org"
	userBase  = "OU=Users,DC=example,DC=org"
)

// dnSet is a list of member DNs drawn from a small pool with random casing,
// so generated sets overlap and contain case-variant duplicates.
type dnSet []string

var dnPool = []string{
	"CN=alice,OU=Users,DC=example,DC=org",
	"CN=bob,OU=Users,DC=example,DC=org",
	"CN=carol,OU=Users,DC=example,DC=org",
	"CN=dave,OU=Users,DC=example,DC=org",
	"CN=erin,OU=Users,DC=example,DC=org",
	"CN=admins,OU=Groups,DC=example,DC=org",
}

func (dnSet) Generate(r *rand.Rand, size int) reflect.Value {
	n := r.Intn(len(dnPool) + 2)
	s := make(dnSet, 0, n)
	for range n {
		dn := dnPool[r.Intn(len(dnPool))]
		switch r.Intn(3) {
		case 0:
			dn = strings.ToLower(dn)
		case 1:
			dn = strings.ToUpper(dn)
		}
		s = append(s, dn)
	}
	return reflect.ValueOf(s)
}

func keys(dns []string) map[string]struct{} {
	out := make(map[string]struct{}, len(dns))
	for _, dn := range dns {
		out[ldap.DNKey(dn)] = struct{}{}
	}
	return out
}

func TestReconcile_Properties(t *testing.T) {
	t.Run("applying the delta yields desired", func(t *testing.T) {
		f := func(current, desired dnSet) bool {
			delta := ldap.Reconcile(current, desired)

			result := keys(current)
			for _, dn := range delta.ToRemove {
				delete(result, ldap.DNKey(dn))
			}
			for _, dn := range delta.ToAdd {
				result[ldap.DNKey(dn)] = struct{}{}
			}
			return reflect.DeepEqual(result, keys(desired))
		}
		require.NoError(t, quick.Check(f, nil))
	})

	t.Run("add and remove are disjoint and minimal", func(t *testing.T) {
		f := func(current, desired dnSet) bool {
			delta := ldap.Reconcile(current, desired)
			cur, des := keys(current), keys(desired)

			for _, dn := range delta.ToAdd {
				if _, ok := cur[ldap.DNKey(dn)]; ok {
					return false
				}
			}
			for _, dn := range delta.ToRemove {
				if _, ok := des[ldap.DNKey(dn)]; ok {
					return false
				}
			}
			return len(keys(delta.ToAdd)) == len(delta.ToAdd) &&
				len(keys(delta.ToRemove)) == len(delta.ToRemove)
		}
		require.NoError(t, quick.Check(f, nil))
	})

	t.Run("reconciling with itself is empty", func(t *testing.T) {
		f := func(set dnSet) bool {
			return ldap.Reconcile(set, set).IsEmpty()
		}
		require.NoError(t, quick.Check(f, nil))
	})
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name       string
		current    []string
		desired    []string
		wantAdd    []string
		wantRemove []string
	}{
		{
			name:    "empty to some",
			desired: []string{"CN=a,DC=x", "CN=b,DC=x"},
			wantAdd: []string{"CN=a,DC=x", "CN=b,DC=x"},
		},
		{
			name:       "some to empty",
			current:    []string{"CN=a,DC=x"},
			wantRemove: []string{"CN=a,DC=x"},
		},
		{
			name:       "overlap keeps common members",
			current:    []string{"CN=a,DC=x", "CN=b,DC=x"},
			desired:    []string{"CN=b,DC=x", "CN=c,DC=x"},
			wantAdd:    []string{"CN=c,DC=x"},
			wantRemove: []string{"CN=a,DC=x"},
		},
		{
			name:    "case differences are equal",
			current: []string{"CN=Alice,OU=Users,DC=example,DC=org"},
			desired: []string{"cn=alice,ou=users,dc=example,dc=org"},
		},
		{
			name:    "duplicates collapse",
			desired: []string{"CN=a,DC=x", "cn=A,dc=X"},
			wantAdd: []string{"CN=a,DC=x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta := ldap.Reconcile(tt.current, tt.desired)
			assert.Equal(t, tt.wantAdd, delta.ToAdd)
			assert.Equal(t, tt.wantRemove, delta.ToRemove)
		})
	}
}

func TestMembershipWriter_UpdateMembers(t *testing.T) {
	ctx := context.Background()
	groupDN := "CN=staff," + groupBase
	alice := "CN=alice," + userBase
	bob := "CN=bob," + userBase
	carol := "CN=carol," + userBase

	t.Run("empty attribute is created with one replace", func(t *testing.T) {
		dir := ldaptest.New()
		dir.AddEntry(groupDN, map[string][]string{"objectClass": {"group"}})

		w := ldap.NewMembershipWriter(dir, "member")
		delta, err := w.UpdateMembers(ctx, groupDN, "member", nil, []string{alice, bob})
		require.NoError(t, err)

		assert.Equal(t, []string{alice, bob}, delta.ToAdd)
		assert.Equal(t, []string{
			"modify " + groupDN + " replace member " + alice + "|" + bob,
		}, dir.Modifications())
		assert.Equal(t, []string{alice, bob}, dir.Values(groupDN, "member"))
	})

	t.Run("non-empty attribute is appended to and pruned in one request", func(t *testing.T) {
		dir := ldaptest.New()
		dir.AddEntry(groupDN, map[string][]string{"member": {alice, bob}})

		w := ldap.NewMembershipWriter(dir, "member")
		_, err := w.UpdateMembers(ctx, groupDN, "member", []string{alice, bob}, []string{bob, carol})
		require.NoError(t, err)

		assert.Equal(t, []string{
			"modify " + groupDN + " delete member " + alice,
			"modify " + groupDN + " add member " + carol,
		}, dir.Modifications())
		assert.ElementsMatch(t, []string{bob, carol}, dir.Values(groupDN, "member"))
	})

	t.Run("no change issues no request", func(t *testing.T) {
		dir := ldaptest.New()
		dir.AddEntry(groupDN, map[string][]string{"member": {alice}})

		w := ldap.NewMembershipWriter(dir, "member")
		delta, err := w.UpdateMembers(ctx, groupDN, "member", []string{alice}, []string{strings.ToLower(alice)})
		require.NoError(t, err)

		assert.True(t, delta.IsEmpty())
		assert.Empty(t, dir.Modifications())
	})

	t.Run("directory failure is wrapped with the entry", func(t *testing.T) {
		dir := ldaptest.New()
		dir.AddEntry(groupDN, map[string][]string{"member": {alice}})
		dir.ModifyErrors[ldap.DNKey(groupDN)] = goldap.NewError(goldap.LDAPResultInsufficientAccessRights, errors.New("denied"))

		w := ldap.NewMembershipWriter(dir, "member")
		_, err := w.UpdateMembers(ctx, groupDN, "member", []string{alice}, []string{bob})
		require.Error(t, err)

		var ldapErr *ldap.LDAPError
		require.ErrorAs(t, err, &ldapErr)
		assert.Equal(t, groupDN, ldapErr.DN)
		assert.Equal(t, "member", ldapErr.Attribute)
		assert.Equal(t, ldap.ErrorCategoryPermission, ldapErr.Category)
	})
}

func TestMembershipWriter_UpdateUserGroups(t *testing.T) {
	ctx := context.Background()
	userDN := "CN=alice," + userBase
	other := "CN=bob," + userBase
	staff := "CN=staff," + groupBase
	admins := "CN=admins," + groupBase
	empty := "CN=empty," + groupBase

	newDir := func() *ldaptest.Directory {
		dir := ldaptest.New()
		dir.AddEntry(userDN, map[string][]string{"memberOf": {staff}})
		dir.AddEntry(staff, map[string][]string{"member": {userDN, other}})
		dir.AddEntry(admins, map[string][]string{"member": {other}})
		dir.AddEntry(empty, map[string][]string{"objectClass": {"group"}})
		return dir
	}

	t.Run("each affected group gets one modify and the user none", func(t *testing.T) {
		dir := newDir()
		cfg, err := ldap.NewDirectoryConfig(groupBase, userBase)
		require.NoError(t, err)
		groups := ldap.NewGroupDirectory(dir, cfg)

		w := ldap.NewMembershipWriter(dir, "member")
		delta, err := w.UpdateUserGroups(ctx, userDN, []string{staff}, []string{admins, empty}, groups.Members)
		require.NoError(t, err)

		assert.Equal(t, []string{staff}, delta.ToRemove)
		assert.Equal(t, []string{admins, empty}, delta.ToAdd)
		assert.Equal(t, []string{
			"modify " + staff + " delete member " + userDN,
			"modify " + admins + " add member " + userDN,
			"modify " + empty + " replace member " + userDN,
		}, dir.Modifications())

		assert.Equal(t, []string{other}, dir.Values(staff, "member"))
		assert.ElementsMatch(t, []string{other, userDN}, dir.Values(admins, "member"))
		assert.Equal(t, []string{userDN}, dir.Values(empty, "member"))
		assert.Equal(t, []string{staff}, dir.Values(userDN, "memberOf"))
	})

	t.Run("member lookup failure stops before writing", func(t *testing.T) {
		dir := newDir()
		w := ldap.NewMembershipWriter(dir, "member")

		lookupErr := dcerr.NotFound("read_members", admins)
		_, err := w.UpdateUserGroups(ctx, userDN, nil, []string{admins}, func(context.Context, string) ([]string, error) {
			return nil, lookupErr
		})
		require.Error(t, err)
		assert.True(t, dcerr.IsNotFound(err))
		assert.Empty(t, dir.Modifications())
	})
}
