package dns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareZones(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		a, b string
		want int
	}{
		{"1.168.192.in-addr.arpa", "168.192.in-addr.arpa", -1},
		{"168.192.in-addr.arpa", "1.168.192.in-addr.arpa", 1},
		{"example.org", "1.168.192.in-addr.arpa", -1},
		{"1.168.192.in-addr.arpa", "example.org", 1},
		{"2.168.192.in-addr.arpa", "10.168.192.in-addr.arpa", -1},
		{"1.10.10.in-addr.arpa", "1.9.10.in-addr.arpa", 1},
		{"Example.org", "example.ORG", 0},
		{"alpha.org", "Beta.org", -1},
		{"1.168.192.in-addr.arpa", "1.168.192.in-addr.arpa", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.CompareZones(tt.a, tt.b))
		})
	}
}

func TestCompareRecordNames(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2", "10", -1},
		{"10", "2", 1},
		{"10", "10", 0},
		{"forelle", "Alpha", 1},
		{"HOST", "host", 0},
		{"10", "a", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareRecordNames(tt.a, tt.b))
		})
	}
}

func TestSortZones(t *testing.T) {
	cfg := DefaultConfig()
	z := zones(
		"168.192.in-addr.arpa",
		"10.1.168.192.in-addr.arpa",
		"zeta.org",
		"2.168.192.in-addr.arpa",
		"alpha.org",
		"1.168.192.in-addr.arpa",
	)

	cfg.SortZones(z)
	assert.Equal(t, zones(
		"alpha.org",
		"zeta.org",
		"10.1.168.192.in-addr.arpa",
		"1.168.192.in-addr.arpa",
		"2.168.192.in-addr.arpa",
		"168.192.in-addr.arpa",
	), z)
}
