package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
)

func TestMatcher(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"", "anything", true},
		{"*", "anything", true},
		{"forelle", "Forelle", true},
		{"f*", "forelle", true},
		{"f*", "web", false},
		{"host-?", "host-1", true},
		{"host-?", "host-10", false},
		{"{web,mail}*", "mail01", true},
		{"[0-9]*", "113", true},
		{"[0-9]*", "_ldap", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.name, func(t *testing.T) {
			m, err := NewMatcher(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Match(tt.name))
		})
	}
}

func TestMatcherInvalid(t *testing.T) {
	_, err := NewMatcher("[a-")
	assert.True(t, dcerr.IsPrecondition(err), err)
}

func TestMatcherString(t *testing.T) {
	var zero Matcher
	assert.Equal(t, "*", zero.String())

	m, err := NewMatcher("Web*")
	require.NoError(t, err)
	assert.Equal(t, "web*", m.String())
}
