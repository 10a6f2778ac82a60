package connector

import (
	"context"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/logging"
)

// GroupSpec is the desired state of a group. Members are user names or DNs.
type GroupSpec struct {
	Name    string
	Members []string
}

// ListGroups returns the groups whose name matches.
func (s *Service) ListGroups(ctx context.Context, match Matcher) ([]*ldap.Group, error) {
	var out []*ldap.Group
	err := s.withSession(ctx, "list_groups", func(sess ldap.Session) error {
		all, err := ldap.NewGroupDirectory(sess, s.dir).FindAll(ctx)
		if err != nil {
			return err
		}
		for _, g := range all {
			if match.Match(g.Name) {
				out = append(out, g)
			}
		}
		return nil
	})
	return out, err
}

// GetGroup returns the group name or a NotFound error.
func (s *Service) GetGroup(ctx context.Context, name string) (*ldap.Group, error) {
	var group *ldap.Group
	err := s.withSession(ctx, "get_group", func(sess ldap.Session) error {
		var err error
		group, err = ldap.NewGroupDirectory(sess, s.dir).FindOne(ctx, name)
		return err
	})
	return group, err
}

// AddGroup creates the group and sets its members. An existing group is
// reported as AlreadyExists.
func (s *Service) AddGroup(ctx context.Context, spec GroupSpec) (*ldap.Group, error) {
	var group *ldap.Group
	err := s.withSession(ctx, "add_group", func(sess ldap.Session) error {
		return logging.Operation(ctx, logging.SubsystemConnector, "add_group", map[string]any{"group": spec.Name}, func() error {
			groups := ldap.NewGroupDirectory(sess, s.dir)
			exists, err := groups.Exists(ctx, spec.Name)
			if err != nil {
				return err
			}
			if exists {
				return dcerr.AlreadyExists("add_group", spec.Name)
			}

			if err := s.tool.CreateGroup(ctx, spec.Name); err != nil {
				return err
			}
			group, err = s.setMembers(ctx, sess, spec.Name, spec.Members)
			return err
		})
	})
	return group, err
}

// UpdateGroupMembers makes members the exact member set of group name.
func (s *Service) UpdateGroupMembers(ctx context.Context, name string, members []string) (*ldap.Group, error) {
	var group *ldap.Group
	err := s.withSession(ctx, "update_group_members", func(sess ldap.Session) error {
		var err error
		group, err = s.setMembers(ctx, sess, name, members)
		return err
	})
	return group, err
}

func (s *Service) setMembers(ctx context.Context, sess ldap.Session, name string, members []string) (*ldap.Group, error) {
	groups := ldap.NewGroupDirectory(sess, s.dir)
	group, err := groups.FindOne(ctx, name)
	if err != nil {
		return nil, err
	}

	writer := ldap.NewMembershipWriter(sess, s.dir.GroupMemberAttr)
	delta, err := writer.UpdateMembers(ctx, group.DN, s.dir.GroupMemberAttr, group.Members, s.userDNs(members))
	if err != nil {
		return nil, ldap.Classify("update_group_members", group.DN, err)
	}
	if delta.IsEmpty() {
		return group, nil
	}
	return groups.FindOne(ctx, name)
}

// DeleteGroup removes group name. An absent group is reported as NotFound.
func (s *Service) DeleteGroup(ctx context.Context, name string) error {
	return s.withSession(ctx, "delete_group", func(sess ldap.Session) error {
		exists, err := ldap.NewGroupDirectory(sess, s.dir).Exists(ctx, name)
		if err != nil {
			return err
		}
		if !exists {
			return dcerr.NotFound("delete_group", name)
		}
		return s.tool.DeleteGroup(ctx, name)
	})
}
