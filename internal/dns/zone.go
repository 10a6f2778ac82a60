package dns

import (
	"net/netip"
	"slices"
	"strings"

	mdns "github.com/miekg/dns"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
)

const inAddrArpa = ".in-addr.arpa"

func trimDot(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), ".")
}

// FindOwningForwardZone returns the forward zone owning hostname. The name
// itself is compared first, then the leftmost label is stripped repeatedly,
// so the most specific non-reverse, non-excluded zone wins. A hostname
// without a dot has no owning zone.
func (c *Config) FindOwningForwardZone(hostname string, zones []Zone) (Zone, bool) {
	name := trimDot(hostname)
	if !strings.Contains(name, ".") {
		return Zone{}, false
	}
	for name != "" {
		for _, z := range zones {
			if c.IsReverseZone(z.Name) || c.IsExcludedZone(z.Name) {
				continue
			}
			if strings.EqualFold(trimDot(z.Name), name) {
				return z, true
			}
		}

		i := strings.IndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[i+1:]
	}
	return Zone{}, false
}

// FindOwningReverseZone returns the first reverse, non-excluded zone whose
// network prefix ip starts with.
func (c *Config) FindOwningReverseZone(ip string, zones []Zone) (Zone, bool) {
	for _, z := range zones {
		if c.IsExcludedZone(z.Name) {
			continue
		}
		if prefix, ok := c.reversePrefix(z.Name); ok && strings.HasPrefix(ip, prefix+".") {
			return z, true
		}
	}
	return Zone{}, false
}

// reversePrefix turns a reverse zone name such as 1.168.192.in-addr.arpa
// into its dotted network prefix, 192.168.1.
func (c *Config) reversePrefix(zone string) (string, bool) {
	suffix, ok := c.reverseSuffix(zone)
	if !ok {
		return "", false
	}
	name := trimDot(zone)
	labels := strings.Split(name[:len(name)-len(suffix)], ".")
	slices.Reverse(labels)
	return strings.Join(labels, "."), true
}

// HostLabelWithinZone returns the labels of fqdn below zoneName, or "@" when
// fqdn is the zone itself.
func HostLabelWithinZone(fqdn, zoneName string) (string, error) {
	host, zone := trimDot(fqdn), trimDot(zoneName)
	if host == "" || zone == "" {
		return "", dcerr.Precondition("host_label_within_zone", fqdn, "host and zone names are required")
	}
	if strings.EqualFold(host, zone) {
		return ZoneApex, nil
	}

	n := len(host) - len(zone) - 1
	if n <= 0 || host[n] != '.' || !strings.EqualFold(host[n+1:], zone) {
		return "", dcerr.Precondition("host_label_within_zone", fqdn, "host name must end with zone name %q", zoneName)
	}
	return host[:n], nil
}

// ReverseLabelToIP computes the IPv4 address named by label in reverseZone,
// e.g. "113" in 1.168.192.in-addr.arpa is 192.168.1.113. Labels spanning
// several octets are given least significant first, as in the zone.
func (c *Config) ReverseLabelToIP(label, reverseZone string) (string, error) {
	const op = "reverse_label_to_ip"

	prefix, ok := c.reversePrefix(reverseZone)
	if !ok {
		return "", dcerr.Precondition(op, reverseZone, "not a reverse zone")
	}
	label = trimDot(label)
	if label == "" || label == ZoneApex {
		return "", dcerr.Precondition(op, reverseZone, "reverse label %q does not name an address", label)
	}

	octets := strings.Split(label, ".")
	slices.Reverse(octets)
	ip := prefix + "." + strings.Join(octets, ".")

	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return "", dcerr.Precondition(op, reverseZone, "label %q does not complete an IPv4 address: %s", label, ip)
	}

	if _, ok := c.FindOwningReverseZone(ip, []Zone{{Name: reverseZone}}); !ok {
		return "", dcerr.Precondition(op, reverseZone, "address %s is outside the zone", ip)
	}
	if suffix, _ := c.reverseSuffix(reverseZone); suffix == inAddrArpa {
		owner, err := mdns.ReverseAddr(ip)
		if err != nil || owner != mdns.CanonicalName(label+"."+trimDot(reverseZone)) {
			return "", dcerr.Precondition(op, reverseZone, "address %s does not map back to %s", ip, label)
		}
	}
	return addr.String(), nil
}

// IPToReverseLabel computes the label of ip within reverseZone, e.g.
// 192.168.1.113 in 1.168.192.in-addr.arpa is "113".
func (c *Config) IPToReverseLabel(ip, reverseZone string) (string, error) {
	const op = "ip_to_reverse_label"

	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return "", dcerr.Precondition(op, ip, "not an IPv4 address")
	}
	prefix, ok := c.reversePrefix(reverseZone)
	if !ok {
		return "", dcerr.Precondition(op, reverseZone, "not a reverse zone")
	}
	if _, ok := c.FindOwningReverseZone(ip, []Zone{{Name: reverseZone}}); !ok {
		return "", dcerr.Precondition(op, ip, "address is outside reverse zone %q", reverseZone)
	}

	octets := strings.Split(ip[len(prefix)+1:], ".")
	slices.Reverse(octets)
	return strings.Join(octets, "."), nil
}

// ForwardZones returns the visible non-reverse zones.
func (c *Config) ForwardZones(zones []Zone) []Zone {
	return c.filterZones(zones, func(z Zone) bool { return !c.IsReverseZone(z.Name) })
}

// ReverseZones returns the visible reverse zones.
func (c *Config) ReverseZones(zones []Zone) []Zone {
	return c.filterZones(zones, func(z Zone) bool { return c.IsReverseZone(z.Name) })
}

// VisibleZones drops excluded zones and sorts the rest with CompareZones.
func (c *Config) VisibleZones(zones []Zone) []Zone {
	return c.filterZones(zones, func(Zone) bool { return true })
}

func (c *Config) filterZones(zones []Zone, keep func(Zone) bool) []Zone {
	out := make([]Zone, 0, len(zones))
	for _, z := range zones {
		if !c.IsExcludedZone(z.Name) && keep(z) {
			out = append(out, z)
		}
	}
	c.SortZones(out)
	return out
}

// VisibleEntries drops excluded nodes and sorts the rest with
// CompareRecordNames.
func (c *Config) VisibleEntries(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !c.IsExcludedRecord(e.Name) {
			out = append(out, e)
		}
	}
	SortEntries(out)
	return out
}
