package sambatool

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/isometry/terraform-provider-dccon/internal/dns"
)

var recordMeta = regexp.MustCompile(`\s*\(flags=([0-9a-fA-F]+), serial=(\d+), ttl=(\d+)\)\s*$`)

// ParseZoneList reads the zones of a "dns zonelist" listing.
func ParseZoneList(output string) []dns.Zone {
	var zones []dns.Zone
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(key) != "pszZoneName" {
			continue
		}
		if name := strings.TrimSpace(value); name != "" {
			zones = append(zones, dns.Zone{Name: name})
		}
	}
	return zones
}

// ParseQuery reads the nodes and records of a "dns query ... ALL" listing.
// Nodes without records are kept. The unnamed node is reported as the apex.
func ParseQuery(output string) ([]dns.Entry, error) {
	var entries []dns.Entry
	scanner := bufio.NewScanner(strings.NewReader(output))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		if rest, ok := strings.CutPrefix(text, "Name="); ok {
			name, _, _ := strings.Cut(rest, ",")
			name = strings.TrimSpace(name)
			if name == "" {
				name = dns.ZoneApex
			}
			entries = append(entries, dns.Entry{Name: name})
			continue
		}

		if len(entries) == 0 {
			continue
		}
		record, err := parseRecordLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		current := &entries[len(entries)-1]
		record.Name = current.Name
		current.Records = append(current.Records, record)
	}
	return entries, scanner.Err()
}

// parseRecordLine reads "TYPE: value (flags=f0, serial=2, ttl=900)".
func parseRecordLine(text string) (dns.Record, error) {
	rrType, rest, ok := strings.Cut(text, ":")
	if !ok || rrType == "" || strings.ContainsAny(rrType, " \t") {
		return dns.Record{}, fmt.Errorf("unrecognized record line %q", text)
	}

	record := dns.Record{Type: strings.ToUpper(rrType)}
	loc := recordMeta.FindStringSubmatchIndex(rest)
	if loc == nil {
		record.Value = strings.TrimSpace(rest)
		return record, nil
	}

	record.Value = strings.TrimSpace(rest[:loc[0]])
	record.Flags = rest[loc[2]:loc[3]]
	serial, err := strconv.ParseUint(rest[loc[4]:loc[5]], 10, 32)
	if err != nil {
		return dns.Record{}, fmt.Errorf("invalid serial in %q: %w", text, err)
	}
	ttl, err := strconv.ParseUint(rest[loc[6]:loc[7]], 10, 32)
	if err != nil {
		return dns.Record{}, fmt.Errorf("invalid ttl in %q: %w", text, err)
	}
	record.Serial = uint32(serial)
	record.TTL = uint32(ttl)
	return record, nil
}

// ParseNameList reads one name per line, as printed by "user list" and
// "group list".
func ParseNameList(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}
