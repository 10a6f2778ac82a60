package ldap

import (
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGUIDRoundTrip(t *testing.T) {
	const guid = "6f9619ff-8b86-d011-b42d-00c04fc964ff"

	raw, err := EncodeGUID(guid)
	require.NoError(t, err)
	// Known Active Directory byte order for this GUID.
	assert.Equal(t, []byte{
		0xff, 0x19, 0x96, 0x6f, 0x86, 0x8b, 0x11, 0xd0,
		0xb4, 0x2d, 0x00, 0xc0, 0x4f, 0xc9, 0x64, 0xff,
	}, raw)

	decoded, err := DecodeGUID(raw)
	require.NoError(t, err)
	assert.Equal(t, guid, decoded)
}

func TestDecodeGUID_InvalidLength(t *testing.T) {
	_, err := DecodeGUID([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = EncodeGUID("not-a-guid")
	assert.Error(t, err)
}

func TestDecodeSID(t *testing.T) {
	raw := []byte{
		0x01, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00, 0x05,
		0x15, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00,
		0xe9, 0x03, 0x00, 0x00,
	}
	sid, err := DecodeSID(raw)
	require.NoError(t, err)
	assert.Equal(t, "S-1-5-21-1-2-3-1001", sid)

	_, err = DecodeSID([]byte{1, 2})
	assert.Error(t, err)
}

func TestEntryAttributes(t *testing.T) {
	entry := ldap.NewEntry("CN=alice,DC=example,DC=org", map[string][]string{
		"objectSid":          {"S-1-5-21-1-2-3-1001"},
		"userAccountControl": {"514"},
		"whenCreated":        {"20240102030405.0Z"},
		"pwdLastSet":         {"133485408000000000"},
		"lastLogon":          {"0"},
		"broken":             {"x"},
	})

	assert.Equal(t, "S-1-5-21-1-2-3-1001", entrySID(entry))
	assert.Equal(t, "", entryGUID(entry))
	assert.Equal(t, int64(514), entryInt(entry, "userAccountControl"))
	assert.Equal(t, int64(0), entryInt(entry, "broken"))
	assert.Equal(t, int64(0), entryInt(entry, "missing"))
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), entryTime(entry, "whenCreated"))
	assert.True(t, entryTime(entry, "missing").IsZero())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), entryFileTime(entry, "pwdLastSet"))
	assert.True(t, entryFileTime(entry, "lastLogon").IsZero())
}
