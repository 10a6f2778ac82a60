package ldap

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
)

// Group is a snapshot of a directory group.
type Group struct {
	DN          string
	GUID        string
	SID         string
	Name        string // sAMAccountName
	Description string
	Members     []string // forward link, writable
	Created     time.Time
	Modified    time.Time
}

var groupAttributes = []string{
	"objectGUID", "objectSid", "sAMAccountName", "cn", "description",
	"whenCreated", "whenChanged",
}

// GroupDirectory reads groups with the configured filters.
type GroupDirectory struct {
	dir Directory
	cfg *DirectoryConfig
}

// NewGroupDirectory creates a group lookup bound to dir.
func NewGroupDirectory(dir Directory, cfg *DirectoryConfig) *GroupDirectory {
	return &GroupDirectory{dir: dir, cfg: cfg}
}

func (g *GroupDirectory) attributes() []string {
	return append(slices.Clone(groupAttributes), g.cfg.GroupMemberAttr)
}

// FindAll returns every group matched by the find-all filter, sorted by name.
func (g *GroupDirectory) FindAll(ctx context.Context) ([]*Group, error) {
	res, err := g.dir.Search(ctx, &SearchRequest{
		BaseDN:     g.cfg.GroupBaseDN,
		Scope:      g.cfg.GroupFindAllScope,
		Filter:     g.cfg.GroupFindAllFilter,
		Attributes: g.attributes(),
	})
	if err != nil {
		return nil, Classify("find_groups", g.cfg.GroupBaseDN, err)
	}

	groups := make([]*Group, 0, len(res.Entries))
	for _, entry := range res.Entries {
		groups = append(groups, g.entryToGroup(entry))
	}
	slices.SortFunc(groups, func(a, b *Group) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return groups, nil
}

// FindOne returns the group named name or a NotFound error.
func (g *GroupDirectory) FindOne(ctx context.Context, name string) (*Group, error) {
	res, err := g.dir.Search(ctx, &SearchRequest{
		BaseDN:     g.cfg.GroupBaseDN,
		Scope:      g.cfg.GroupFindOneScope,
		Filter:     ExpandFilter(g.cfg.GroupFindOneFilter, name),
		Attributes: g.attributes(),
		SizeLimit:  2,
	})
	if err != nil {
		return nil, Classify("find_group", name, err)
	}
	if len(res.Entries) == 0 {
		return nil, dcerr.NotFound("find_group", name)
	}
	return g.entryToGroup(res.Entries[0]), nil
}

// Exists reports whether a group named name is present.
func (g *GroupDirectory) Exists(ctx context.Context, name string) (bool, error) {
	_, err := g.FindOne(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case dcerr.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Members reads the member attribute of the group entry at groupDN.
func (g *GroupDirectory) Members(ctx context.Context, groupDN string) ([]string, error) {
	res, err := g.dir.Search(ctx, &SearchRequest{
		BaseDN:     groupDN,
		Scope:      ScopeBaseObject,
		Attributes: []string{g.cfg.GroupMemberAttr},
	})
	if err != nil {
		return nil, Classify("read_members", groupDN, err)
	}
	if len(res.Entries) == 0 {
		return nil, dcerr.NotFound("read_members", groupDN)
	}
	return res.Entries[0].GetAttributeValues(g.cfg.GroupMemberAttr), nil
}

func (g *GroupDirectory) entryToGroup(entry *ldap.Entry) *Group {
	name := entry.GetAttributeValue("sAMAccountName")
	if name == "" {
		name = entry.GetAttributeValue(g.cfg.GroupRDN)
	}
	return &Group{
		DN:          entry.DN,
		GUID:        entryGUID(entry),
		SID:         entrySID(entry),
		Name:        name,
		Description: entry.GetAttributeValue("description"),
		Members:     entry.GetAttributeValues(g.cfg.GroupMemberAttr),
		Created:     entryTime(entry, "whenCreated"),
		Modified:    entryTime(entry, "whenChanged"),
	}
}
