package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeDNValue(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"staff", "staff"},
		{"Smith, John", `Smith\, John`},
		{"a+b", `a\+b`},
		{`say "hi"`, `say \"hi\"`},
		{"#hash", `\#hash`},
		{"mid#hash", "mid#hash"},
		{" lead", `\ lead`},
		{"trail ", `trail\ `},
		{"a<b>c;d", `a\<b\>c\;d`},
		{"nul\x00", `nul\00`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeDNValue(tt.input))
		})
	}
}

func TestCreateDN(t *testing.T) {
	assert.Equal(t, "cn=staff,OU=Groups,DC=example,DC=org", CreateDN("cn", "staff", "OU=Groups,DC=example,DC=org"))
	assert.Equal(t, `cn=Smith\, John,OU=Users,DC=example,DC=org`, CreateDN("cn", "Smith, John", "OU=Users,DC=example,DC=org"))
	assert.Equal(t, "cn=root", CreateDN("cn", "root", ""))
}

func TestExpandFilter(t *testing.T) {
	tests := []struct {
		name     string
		template string
		args     []string
		want     string
	}{
		{
			name:     "no placeholders",
			template: "(objectClass=group)",
			want:     "(objectClass=group)",
		},
		{
			name:     "single placeholder",
			template: "(&(objectClass=group)(sAMAccountName={0}))",
			args:     []string{"staff"},
			want:     "(&(objectClass=group)(sAMAccountName=staff))",
		},
		{
			name:     "special characters are escaped",
			template: "(cn={0})",
			args:     []string{"a*(b)"},
			want:     `(cn=a\2a\28b\29)`,
		},
		{
			name:     "several placeholders",
			template: "(&(cn={0})(sn={1})(cn={0}))",
			args:     []string{"x", "y"},
			want:     "(&(cn=x)(sn=y)(cn=x))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandFilter(tt.template, tt.args...))
		})
	}
}

func TestDNKey(t *testing.T) {
	assert.Equal(t, "cn=alice,ou=users,dc=example,dc=org", DNKey("CN=Alice,OU=Users,DC=example,DC=org"))
	assert.Equal(t, DNKey("CN=Alice,DC=example"), DNKey("cn=ALICE,dc=EXAMPLE"))
	assert.Equal(t, "not a dn", DNKey("  Not A DN "))
}

func TestEqualDN(t *testing.T) {
	assert.True(t, EqualDN("CN=Staff,OU=Groups,DC=example,DC=org", "cn=staff,ou=groups,dc=example,dc=org"))
	assert.False(t, EqualDN("CN=staff,OU=Groups,DC=example,DC=org", "CN=admins,OU=Groups,DC=example,DC=org"))
}

func TestValidateDNSyntax(t *testing.T) {
	require.NoError(t, ValidateDNSyntax("OU=Groups,DC=example,DC=org"))
	require.Error(t, ValidateDNSyntax(""))
	require.Error(t, ValidateDNSyntax("   "))
	require.Error(t, ValidateDNSyntax("no-equals-sign"))
}

func TestRDNValue(t *testing.T) {
	v, err := RDNValue("CN=staff,OU=Groups,DC=example,DC=org")
	require.NoError(t, err)
	assert.Equal(t, "staff", v)

	v, err = RDNValue(`CN=Smith\, John,OU=Users,DC=example,DC=org`)
	require.NoError(t, err)
	assert.Equal(t, "Smith, John", v)

	_, err = RDNValue("garbage")
	require.Error(t, err)
}
