package ldap

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
)

// userAccountControl flags written by this package.
const (
	UACAccountDisabled      int64 = 0x00000002
	UACNormalAccount        int64 = 0x00000200
	UACPasswordNeverExpires int64 = 0x00010000
)

// User is a snapshot of a directory user.
type User struct {
	DN                   string
	GUID                 string
	SID                  string
	Name                 string // sAMAccountName
	DisplayName          string
	Gecos                string
	Email                string
	TelephoneNumber      string
	Mobile               string
	LoginShell           string
	HomeDirectory        string
	UnixHomeDirectory    string
	UserAccountControl   int64
	Enabled              bool
	PasswordNeverExpires bool
	PasswordLastSet      time.Time
	LastLogon            time.Time
	Created              time.Time
	Modified             time.Time

	// Groups mirrors the memberOf back-reference. It is computed by the
	// directory and never written.
	Groups []string
}

// UserAttributes are the writable profile fields of a user.
type UserAttributes struct {
	DisplayName          string
	Gecos                string
	Email                string
	TelephoneNumber      string
	Mobile               string
	Enabled              bool
	PasswordNeverExpires bool
}

var userAttributes = []string{
	"objectGUID", "objectSid", "sAMAccountName", "cn",
	"displayName", "gecos", "mail", "telephoneNumber", "mobile",
	"loginShell", "homeDirectory", "unixHomeDirectory",
	"userAccountControl", "pwdLastSet", "lastLogon",
	"whenCreated", "whenChanged",
}

// UserDirectory reads and updates users with the configured filters.
type UserDirectory struct {
	dir Directory
	cfg *DirectoryConfig
}

// NewUserDirectory creates a user lookup bound to dir.
func NewUserDirectory(dir Directory, cfg *DirectoryConfig) *UserDirectory {
	return &UserDirectory{dir: dir, cfg: cfg}
}

func (u *UserDirectory) attributes() []string {
	return append(slices.Clone(userAttributes), u.cfg.UserGroupAttr)
}

// FindAll returns every user matched by the find-all filter, sorted by name.
func (u *UserDirectory) FindAll(ctx context.Context) ([]*User, error) {
	res, err := u.dir.Search(ctx, &SearchRequest{
		BaseDN:     u.cfg.UserBaseDN,
		Scope:      u.cfg.UserFindAllScope,
		Filter:     u.cfg.UserFindAllFilter,
		Attributes: u.attributes(),
	})
	if err != nil {
		return nil, Classify("find_users", u.cfg.UserBaseDN, err)
	}

	users := make([]*User, 0, len(res.Entries))
	for _, entry := range res.Entries {
		users = append(users, u.entryToUser(entry))
	}
	slices.SortFunc(users, func(a, b *User) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return users, nil
}

// FindOne returns the user named name or a NotFound error.
func (u *UserDirectory) FindOne(ctx context.Context, name string) (*User, error) {
	res, err := u.dir.Search(ctx, &SearchRequest{
		BaseDN:     u.cfg.UserBaseDN,
		Scope:      u.cfg.UserFindOneScope,
		Filter:     ExpandFilter(u.cfg.UserFindOneFilter, name),
		Attributes: u.attributes(),
		SizeLimit:  2,
	})
	if err != nil {
		return nil, Classify("find_user", name, err)
	}
	if len(res.Entries) == 0 {
		return nil, dcerr.NotFound("find_user", name)
	}
	return u.entryToUser(res.Entries[0]), nil
}

// Exists reports whether a user named name is present.
func (u *UserDirectory) Exists(ctx context.Context, name string) (bool, error) {
	_, err := u.FindOne(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case dcerr.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// UpdateAttributes writes attrs onto user in one modify. Changed values are
// replaced, cleared values are deleted, unchanged ones are left alone.
// userAccountControl keeps every bit it does not manage.
func (u *UserDirectory) UpdateAttributes(ctx context.Context, user *User, attrs UserAttributes) error {
	req := &ModifyRequest{DN: user.DN}

	for _, f := range []struct {
		attr    string
		current string
		desired string
	}{
		{"displayName", user.DisplayName, attrs.DisplayName},
		{"gecos", user.Gecos, attrs.Gecos},
		{"mail", user.Email, attrs.Email},
		{"telephoneNumber", user.TelephoneNumber, attrs.TelephoneNumber},
		{"mobile", user.Mobile, attrs.Mobile},
	} {
		switch {
		case f.current == f.desired:
		case f.desired == "":
			req.Delete(f.attr)
		default:
			req.Replace(f.attr, f.desired)
		}
	}

	uac := AccountControl(user.UserAccountControl, attrs.Enabled, attrs.PasswordNeverExpires)
	if uac != user.UserAccountControl {
		req.Replace("userAccountControl", strconv.FormatInt(uac, 10))
	}

	if len(req.Changes) == 0 {
		return nil
	}
	if err := u.dir.Modify(ctx, req); err != nil {
		return Classify("update_user", user.Name, err)
	}
	return nil
}

// AccountControl derives a userAccountControl value from current, setting
// the normal-account bit and the disabled and never-expires bits as asked.
func AccountControl(current int64, enabled, passwordNeverExpires bool) int64 {
	uac := current | UACNormalAccount
	if enabled {
		uac &^= UACAccountDisabled
	} else {
		uac |= UACAccountDisabled
	}
	if passwordNeverExpires {
		uac |= UACPasswordNeverExpires
	} else {
		uac &^= UACPasswordNeverExpires
	}
	return uac
}

func (u *UserDirectory) entryToUser(entry *ldap.Entry) *User {
	name := entry.GetAttributeValue("sAMAccountName")
	if name == "" {
		name = entry.GetAttributeValue(u.cfg.UserRDN)
	}
	uac := entryInt(entry, "userAccountControl")

	return &User{
		DN:                   entry.DN,
		GUID:                 entryGUID(entry),
		SID:                  entrySID(entry),
		Name:                 name,
		DisplayName:          entry.GetAttributeValue("displayName"),
		Gecos:                entry.GetAttributeValue("gecos"),
		Email:                entry.GetAttributeValue("mail"),
		TelephoneNumber:      entry.GetAttributeValue("telephoneNumber"),
		Mobile:               entry.GetAttributeValue("mobile"),
		LoginShell:           entry.GetAttributeValue("loginShell"),
		HomeDirectory:        entry.GetAttributeValue("homeDirectory"),
		UnixHomeDirectory:    entry.GetAttributeValue("unixHomeDirectory"),
		UserAccountControl:   uac,
		Enabled:              uac&UACAccountDisabled == 0,
		PasswordNeverExpires: uac&UACPasswordNeverExpires != 0,
		PasswordLastSet:      entryFileTime(entry, "pwdLastSet"),
		LastLogon:            entryFileTime(entry, "lastLogon"),
		Created:              entryTime(entry, "whenCreated"),
		Modified:             entryTime(entry, "whenChanged"),
		Groups:               entry.GetAttributeValues(u.cfg.UserGroupAttr),
	}
}
