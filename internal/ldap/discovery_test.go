package ldap

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver map[string][]*net.SRV

func (r fakeResolver) LookupSRV(_ context.Context, _, _, name string) (string, []*net.SRV, error) {
	records, ok := r[name]
	if !ok {
		return "", nil, errors.New("no such host")
	}
	return name, records, nil
}

func TestDiscoverServers(t *testing.T) {
	tests := []struct {
		name     string
		resolver fakeResolver
		want     []string
	}{
		{
			name: "ldaps records end the search",
			resolver: fakeResolver{
				"_ldaps._tcp.example.org": {{Target: "dc1.example.org.", Port: 636, Priority: 0, Weight: 100}},
				"_ldap._tcp.example.org":  {{Target: "dc2.example.org.", Port: 389}},
			},
			want: []string{"ldaps://dc1.example.org:636"},
		},
		{
			name: "ldap and gc are merged and sorted",
			resolver: fakeResolver{
				"_ldap._tcp.example.org": {
					{Target: "dc2.example.org.", Port: 389, Priority: 10, Weight: 50},
					{Target: "dc1.example.org.", Port: 389, Priority: 0, Weight: 10},
				},
				"_gc._tcp.example.org": {{Target: "gc.example.org.", Port: 3268, Priority: 10, Weight: 100}},
			},
			want: []string{
				"ldap://dc1.example.org:389",
				"ldap://gc.example.org:3268",
				"ldap://dc2.example.org:389",
			},
		},
		{
			name:     "fallback to the domain name",
			resolver: fakeResolver{},
			want:     []string{"ldaps://example.org:636", "ldap://example.org:389"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &SRVDiscovery{ctx: context.Background(), resolver: tt.resolver}
			servers, err := d.DiscoverServers(context.Background(), "example.org")
			require.NoError(t, err)

			var got []string
			for _, s := range servers {
				got = append(got, ServerInfoToURL(s))
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NewSRVDiscovery(context.Background()).DiscoverServers(context.Background(), "")
	assert.Error(t, err)
}

func TestParseLDAPURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    *ServerInfo
		wantErr bool
	}{
		{raw: "ldaps://dc1.example.org", want: &ServerInfo{Host: "dc1.example.org", Port: 636, UseTLS: true, Weight: 100, Source: "config"}},
		{raw: "ldap://dc1.example.org", want: &ServerInfo{Host: "dc1.example.org", Port: 389, Weight: 100, Source: "config"}},
		{raw: "ldap://10.0.0.1:1389", want: &ServerInfo{Host: "10.0.0.1", Port: 1389, Weight: 100, Source: "config"}},
		{raw: "ldaps://[2001:db8::1]:636", want: &ServerInfo{Host: "2001:db8::1", Port: 636, UseTLS: true, Weight: 100, Source: "config"}},
		{raw: "", wantErr: true},
		{raw: "http://dc1.example.org", wantErr: true},
		{raw: "ldap://", wantErr: true},
		{raw: "ldap://dc1.example.org:99999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseLDAPURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServerInfoToURL_IPv6(t *testing.T) {
	assert.Equal(t, "ldaps://[2001:db8::1]:636", ServerInfoToURL(&ServerInfo{Host: "2001:db8::1", Port: 636, UseTLS: true}))
}
