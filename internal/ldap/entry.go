package ldap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	objectsid "github.com/bwmarrin/go-objectsid"
	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
)

// guidLength is the size of a binary objectGUID.
const guidLength = 16

// DecodeGUID converts a binary objectGUID to its string form. Active
// Directory stores the first three fields little-endian.
func DecodeGUID(raw []byte) (string, error) {
	if len(raw) != guidLength {
		return "", fmt.Errorf("invalid GUID byte length: expected %d, got %d", guidLength, len(raw))
	}

	var u uuid.UUID
	u[0], u[1], u[2], u[3] = raw[3], raw[2], raw[1], raw[0]
	u[4], u[5] = raw[5], raw[4]
	u[6], u[7] = raw[7], raw[6]
	copy(u[8:], raw[8:])

	return u.String(), nil
}

// EncodeGUID is the inverse of DecodeGUID.
func EncodeGUID(s string) ([]byte, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid GUID %q: %w", s, err)
	}

	raw := make([]byte, guidLength)
	raw[0], raw[1], raw[2], raw[3] = u[3], u[2], u[1], u[0]
	raw[4], raw[5] = u[5], u[4]
	raw[6], raw[7] = u[7], u[6]
	copy(raw[8:], u[8:])

	return raw, nil
}

// DecodeSID converts a binary objectSid to S-1-5-21-... form.
func DecodeSID(raw []byte) (string, error) {
	if len(raw) < 8 {
		return "", fmt.Errorf("binary SID too short: %d bytes", len(raw))
	}
	return objectsid.Decode(raw).String(), nil
}

// entryGUID returns the decoded objectGUID or "" when absent or malformed.
func entryGUID(entry *ldap.Entry) string {
	guid, err := DecodeGUID(entry.GetRawAttributeValue("objectGUID"))
	if err != nil {
		return ""
	}
	return guid
}

// entrySID returns the decoded objectSid. A textual S-1-... value is accepted
// as is, which is what fixtures in tests provide.
func entrySID(entry *ldap.Entry) string {
	raw := entry.GetRawAttributeValue("objectSid")
	if strings.HasPrefix(string(raw), "S-1-") {
		return string(raw)
	}
	sid, err := DecodeSID(raw)
	if err != nil {
		return ""
	}
	return sid
}

// entryInt parses a numeric attribute, returning 0 when absent.
func entryInt(entry *ldap.Entry, attr string) int64 {
	v := entry.GetAttributeValue(attr)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// generalizedTimeLayout is the LDAP GeneralizedTime form used by whenCreated.
const generalizedTimeLayout = "20060102150405.0Z"

// entryTime parses a GeneralizedTime attribute.
func entryTime(entry *ldap.Entry, attr string) time.Time {
	v := entry.GetAttributeValue(attr)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(generalizedTimeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// fileTimeEpochDelta is the number of 100ns intervals between 1601-01-01
// and 1970-01-01.
const fileTimeEpochDelta = 116444736000000000

// entryFileTime parses a Windows FILETIME attribute such as pwdLastSet.
// Zero and the "never" sentinel yield the zero time.
func entryFileTime(entry *ldap.Entry, attr string) time.Time {
	n := entryInt(entry, attr)
	if n <= 0 || n == 0x7FFFFFFFFFFFFFFF {
		return time.Time{}
	}
	return time.Unix(0, (n-fileTimeEpochDelta)*100).UTC()
}
