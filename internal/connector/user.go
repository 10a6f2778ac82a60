package connector

import (
	"context"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/logging"
	"github.com/isometry/terraform-provider-dccon/internal/sambatool"
)

// UserSpec is the desired state of a user. Groups are group names or DNs;
// nil leaves group membership unmanaged.
type UserSpec struct {
	Name                 string
	DisplayName          string
	Gecos                string
	Email                string
	TelephoneNumber      string
	Mobile               string
	Enabled              bool
	PasswordNeverExpires bool
	Groups               []string
}

func (u UserSpec) attributes() ldap.UserAttributes {
	return ldap.UserAttributes{
		DisplayName:          u.DisplayName,
		Gecos:                u.Gecos,
		Email:                u.Email,
		TelephoneNumber:      u.TelephoneNumber,
		Mobile:               u.Mobile,
		Enabled:              u.Enabled,
		PasswordNeverExpires: u.PasswordNeverExpires,
	}
}

// UserExists reports whether a user named name exists.
func (s *Service) UserExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.withSession(ctx, "user_exists", func(sess ldap.Session) error {
		var err error
		exists, err = ldap.NewUserDirectory(sess, s.dir).Exists(ctx, name)
		return err
	})
	return exists, err
}

// GetUser returns the user name or a NotFound error.
func (s *Service) GetUser(ctx context.Context, name string) (*ldap.User, error) {
	var user *ldap.User
	err := s.withSession(ctx, "get_user", func(sess ldap.Session) error {
		var err error
		user, err = ldap.NewUserDirectory(sess, s.dir).FindOne(ctx, name)
		return err
	})
	return user, err
}

// ListUsers returns the users whose name matches.
func (s *Service) ListUsers(ctx context.Context, match Matcher) ([]*ldap.User, error) {
	var out []*ldap.User
	err := s.withSession(ctx, "list_users", func(sess ldap.Session) error {
		all, err := ldap.NewUserDirectory(sess, s.dir).FindAll(ctx)
		if err != nil {
			return err
		}
		for _, u := range all {
			if match.Match(u.Name) {
				out = append(out, u)
			}
		}
		return nil
	})
	return out, err
}

// AddUser creates the account with samba-tool, then writes the profile
// attributes and group memberships through the directory. An existing user
// is reported as AlreadyExists.
func (s *Service) AddUser(ctx context.Context, spec UserSpec, password string) (*ldap.User, error) {
	var user *ldap.User
	err := s.withSession(ctx, "add_user", func(sess ldap.Session) error {
		return logging.Operation(ctx, logging.SubsystemConnector, "add_user", map[string]any{"user": spec.Name}, func() error {
			exists, err := ldap.NewUserDirectory(sess, s.dir).Exists(ctx, spec.Name)
			if err != nil {
				return err
			}
			if exists {
				return dcerr.AlreadyExists("add_user", spec.Name)
			}

			if err := s.tool.CreateUser(ctx, sambatool.NewUser{
				Name:     spec.Name,
				Password: password,
				Email:    spec.Email,
			}); err != nil {
				return err
			}
			user, err = s.applyUser(ctx, sess, spec.Name, spec)
			return err
		})
	})
	return user, err
}

// UpdateUser writes the profile attributes of spec onto user name and, when
// spec.Groups is set, reconciles its group memberships.
func (s *Service) UpdateUser(ctx context.Context, name string, spec UserSpec) (*ldap.User, error) {
	var user *ldap.User
	err := s.withSession(ctx, "update_user", func(sess ldap.Session) error {
		var err error
		user, err = s.applyUser(ctx, sess, name, spec)
		return err
	})
	return user, err
}

func (s *Service) applyUser(ctx context.Context, sess ldap.Session, name string, spec UserSpec) (*ldap.User, error) {
	users := ldap.NewUserDirectory(sess, s.dir)
	user, err := users.FindOne(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := users.UpdateAttributes(ctx, user, spec.attributes()); err != nil {
		return nil, err
	}

	if spec.Groups != nil {
		if err := s.setUserGroups(ctx, sess, user, spec.Groups); err != nil {
			return nil, err
		}
	}
	return users.FindOne(ctx, name)
}

// UpdateUserGroups makes user name a member of exactly groups. Only the
// groups' member attributes are written.
func (s *Service) UpdateUserGroups(ctx context.Context, name string, groups []string) (*ldap.User, error) {
	var user *ldap.User
	err := s.withSession(ctx, "update_user_groups", func(sess ldap.Session) error {
		users := ldap.NewUserDirectory(sess, s.dir)
		current, err := users.FindOne(ctx, name)
		if err != nil {
			return err
		}
		if err := s.setUserGroups(ctx, sess, current, groups); err != nil {
			return err
		}
		user, err = users.FindOne(ctx, name)
		return err
	})
	return user, err
}

func (s *Service) setUserGroups(ctx context.Context, sess ldap.Session, user *ldap.User, groups []string) error {
	writer := ldap.NewMembershipWriter(sess, s.dir.GroupMemberAttr)
	members := ldap.NewGroupDirectory(sess, s.dir).Members
	if _, err := writer.UpdateUserGroups(ctx, user.DN, user.Groups, s.groupDNs(groups), members); err != nil {
		return ldap.Classify("update_user_groups", user.DN, err)
	}
	return nil
}

// UpdateUserPassword sets a new password for user name.
func (s *Service) UpdateUserPassword(ctx context.Context, name, password string) error {
	exists, err := s.UserExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return dcerr.NotFound("update_user_password", name)
	}
	return s.tool.SetPassword(ctx, name, password)
}

// DeleteUser removes user name. An absent user is reported as NotFound.
func (s *Service) DeleteUser(ctx context.Context, name string) error {
	exists, err := s.UserExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return dcerr.NotFound("delete_user", name)
	}
	return s.tool.DeleteUser(ctx, name)
}
