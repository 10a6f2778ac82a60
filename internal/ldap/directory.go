package ldap

import (
	"fmt"

	"github.com/creasty/defaults"
)

// DirectoryConfig describes where groups and users live and how they are
// found. Filters may contain a {0} placeholder for the account name.
type DirectoryConfig struct {
	GroupBaseDN        string
	GroupRDN           string      `default:"cn"`
	GroupMemberAttr    string      `default:"member"`
	GroupFindAllFilter string      `default:"(objectClass=group)"`
	GroupFindOneFilter string      `default:"(&(objectClass=group)(sAMAccountName={0}))"`
	GroupFindAllScope  SearchScope `default:"1"`
	GroupFindOneScope  SearchScope `default:"1"`

	UserBaseDN        string
	UserRDN           string      `default:"cn"`
	UserGroupAttr     string      `default:"memberOf"`
	UserFindAllFilter string      `default:"(objectClass=user)"`
	UserFindOneFilter string      `default:"(&(objectClass=user)(sAMAccountName={0}))"`
	UserFindAllScope  SearchScope `default:"1"`
	UserFindOneScope  SearchScope `default:"1"`
}

// NewDirectoryConfig returns a configuration rooted at the given base DNs
// with every other field at its default.
func NewDirectoryConfig(groupBaseDN, userBaseDN string) (*DirectoryConfig, error) {
	cfg := &DirectoryConfig{GroupBaseDN: groupBaseDN, UserBaseDN: userBaseDN}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyDefaults fills unset fields from their struct tag defaults.
func (c *DirectoryConfig) ApplyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("applying directory defaults: %w", err)
	}
	return nil
}

// Validate checks the base DNs.
func (c *DirectoryConfig) Validate() error {
	if err := ValidateDNSyntax(c.GroupBaseDN); err != nil {
		return fmt.Errorf("group base DN: %w", err)
	}
	if err := ValidateDNSyntax(c.UserBaseDN); err != nil {
		return fmt.Errorf("user base DN: %w", err)
	}
	return nil
}

// GroupDN returns the DN a group named name is created under.
func (c *DirectoryConfig) GroupDN(name string) string {
	return CreateDN(c.GroupRDN, name, c.GroupBaseDN)
}

// UserDN returns the DN a user named name is created under.
func (c *DirectoryConfig) UserDN(name string) string {
	return CreateDN(c.UserRDN, name, c.UserBaseDN)
}
