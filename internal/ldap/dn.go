package ldap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// EscapeDNValue escapes an attribute value for use inside a DN (RFC 4514):
// the characters , + " \ < > ; always, a leading # or space, a trailing
// space, and NUL as \00.
func EscapeDNValue(value string) string {
	if value == "" {
		return value
	}

	var b strings.Builder
	b.Grow(len(value) + 8)

	last := len(value) - 1
	for i, r := range value {
		switch {
		case r == 0:
			b.WriteString(`\00`)
			continue
		case strings.ContainsRune(`,+"\<>;`, r),
			r == '#' && i == 0,
			r == ' ' && (i == 0 || i == last):
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}

	return b.String()
}

// CreateDN builds rdnAttr=value,baseDN with value escaped.
func CreateDN(rdnAttr, value, baseDN string) string {
	rdn := rdnAttr + "=" + EscapeDNValue(value)
	if baseDN == "" {
		return rdn
	}
	return rdn + "," + baseDN
}

// ExpandFilter substitutes {0}, {1}, ... in a configured filter template with
// filter-escaped arguments.
func ExpandFilter(template string, args ...string) string {
	if len(args) == 0 {
		return template
	}
	pairs := make([]string, 0, len(args)*2)
	for i, arg := range args {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", ldap.EscapeFilter(arg))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// DNKey returns a comparison key for dn: attribute types and values are
// case-folded and insignificant whitespace is dropped. Unparsable input falls
// back to its trimmed, case-folded form.
func DNKey(dn string) string {
	dn = strings.TrimSpace(dn)
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 {
		return strings.ToLower(dn)
	}

	rdns := make([]string, 0, len(parsed.RDNs))
	for _, rdn := range parsed.RDNs {
		attrs := make([]string, 0, len(rdn.Attributes))
		for _, attr := range rdn.Attributes {
			attrs = append(attrs, strings.ToLower(attr.Type)+"="+strings.ToLower(attr.Value))
		}
		rdns = append(rdns, strings.Join(attrs, "+"))
	}
	return strings.Join(rdns, ",")
}

// EqualDN reports whether a and b name the same entry.
func EqualDN(a, b string) bool {
	return DNKey(a) == DNKey(b)
}

// ValidateDNSyntax validates dn with the go-ldap parser.
func ValidateDNSyntax(dn string) error {
	if strings.TrimSpace(dn) == "" {
		return fmt.Errorf("DN cannot be empty")
	}
	if _, err := ldap.ParseDN(dn); err != nil {
		return fmt.Errorf("invalid DN syntax: %w", err)
	}
	return nil
}

// RDNValue returns the value of the first RDN of dn, e.g. "staff" for
// "CN=staff,OU=Groups,DC=example,DC=org".
func RDNValue(dn string) (string, error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "", fmt.Errorf("invalid DN syntax: %w", err)
	}
	if len(parsed.RDNs) == 0 || len(parsed.RDNs[0].Attributes) == 0 {
		return "", fmt.Errorf("DN has no RDN: %s", dn)
	}
	return parsed.RDNs[0].Attributes[0].Value, nil
}
