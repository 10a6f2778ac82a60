package dns

import (
	"net/netip"
	"strings"

	mdns "github.com/miekg/dns"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
)

// Record types with mirrored or canonicalized values.
const (
	TypeA     = "A"
	TypeAAAA  = "AAAA"
	TypePTR   = "PTR"
	TypeCNAME = "CNAME"
	TypeNS    = "NS"
)

// ZoneApex is the node name of a zone's own records.
const ZoneApex = "@"

// Zone is a DNS zone served by the domain controller.
type Zone struct {
	Name string
}

// Record is one resource record of a zone node. TTL, Flags and Serial are
// reported by the name server and never take part in equality.
type Record struct {
	Name  string
	Type  string
	Value string

	TTL    uint32
	Flags  string
	Serial uint32
}

// Entry is a zone node with its records.
type Entry struct {
	Name    string
	Records []Record
}

// Matches reports whether r and o are the same (name, type, value) triple.
func (r Record) Matches(o Record) bool {
	return strings.EqualFold(r.Name, o.Name) &&
		strings.EqualFold(r.Type, o.Type) &&
		EqualValues(r.Type, r.Value, o.Value)
}

// EqualValues compares two record values of type rrType. Addresses compare
// as parsed addresses and host names as canonical FQDNs; anything else must
// match exactly.
func EqualValues(rrType, a, b string) bool {
	switch strings.ToUpper(rrType) {
	case TypeA, TypeAAAA:
		pa, errA := netip.ParseAddr(a)
		pb, errB := netip.ParseAddr(b)
		if errA == nil && errB == nil {
			return pa == pb
		}
	case TypePTR, TypeCNAME, TypeNS:
		return mdns.CanonicalName(a) == mdns.CanonicalName(b)
	}
	return a == b
}

// ParseRecordType normalizes a record type name, rejecting names the DNS
// library does not know.
func ParseRecordType(s string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	if _, ok := mdns.StringToType[t]; !ok || t == "" {
		return "", dcerr.Precondition("parse_record_type", s, "unknown record type")
	}
	return t, nil
}

// Validate checks a record before it is handed to the name server.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return dcerr.Precondition("validate_record", r.Value, "record name cannot be empty")
	}
	if _, err := ParseRecordType(r.Type); err != nil {
		return err
	}
	if r.Value == "" {
		return dcerr.Precondition("validate_record", r.Name, "record value cannot be empty")
	}

	switch strings.ToUpper(r.Type) {
	case TypeA:
		if addr, err := netip.ParseAddr(r.Value); err != nil || !addr.Is4() {
			return dcerr.Precondition("validate_record", r.Name, "%q is not an IPv4 address", r.Value)
		}
	case TypeAAAA:
		if addr, err := netip.ParseAddr(r.Value); err != nil || !addr.Is6() {
			return dcerr.Precondition("validate_record", r.Name, "%q is not an IPv6 address", r.Value)
		}
	case TypePTR, TypeCNAME, TypeNS:
		if _, ok := mdns.IsDomainName(r.Value); !ok {
			return dcerr.Precondition("validate_record", r.Name, "%q is not a domain name", r.Value)
		}
	}
	return nil
}

// Records flattens entries into their records.
func Records(entries []Entry) []Record {
	var out []Record
	for _, e := range entries {
		out = append(out, e.Records...)
	}
	return out
}
