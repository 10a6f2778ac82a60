// Package sambatool drives samba-tool on the domain controller for the
// writes that plain LDAP cannot perform: account creation, password changes
// and every DNS operation.
package sambatool

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/dns"
	"github.com/isometry/terraform-provider-dccon/internal/logging"
)

// Tool runs samba-tool commands. Mutations are confirmed by querying the
// resulting state; the exit status alone never counts as success.
type Tool struct {
	cfg    *Config
	runner Runner
}

var _ dns.RecordTool = (*Tool)(nil)

// New creates a tool. A nil runner runs local processes.
func New(cfg *Config, runner Runner) (*Tool, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, dcerr.Precondition("new_samba_tool", "", "%v", err)
	}
	if runner == nil {
		runner = NewExecRunner(cfg.Timeout)
	}
	return &Tool{cfg: cfg, runner: runner}, nil
}

// NewUser is the input of CreateUser.
type NewUser struct {
	Name     string
	Password string
	Email    string
}

func (t *Tool) exec(ctx context.Context, op, object string, cmd Command) (*Result, error) {
	tflog.SubsystemDebug(ctx, logging.SubsystemSambaTool, "Running command", map[string]any{
		"operation": op,
		"command":   cmd.String(),
	})
	res, err := t.runner.Run(ctx, cmd)
	if err != nil {
		return nil, dcerr.ToolInvocation(op, object, err, "%s", cmd.String())
	}
	if res.ExitCode != 0 {
		tflog.SubsystemDebug(ctx, logging.SubsystemSambaTool, "Command exited non-zero", map[string]any{
			"operation": op,
			"exit_code": res.ExitCode,
			"stderr":    strings.TrimSpace(res.Stderr),
		})
	}
	return res, nil
}

// authenticate obtains a Kerberos ticket before a remote command.
func (t *Tool) authenticate(ctx context.Context, op, object string) error {
	if t.cfg.KinitBinary == "" {
		return nil
	}
	res, err := t.exec(ctx, op, object, t.cfg.kinitCommand())
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return dcerr.ToolInvocation(op, object, nil, "kinit exited with status %d: %s",
			res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// query runs a read command and requires it to succeed.
func (t *Tool) query(ctx context.Context, op, object string, authenticated bool, args ...string) (string, error) {
	if authenticated {
		if err := t.authenticate(ctx, op, object); err != nil {
			return "", err
		}
	}
	res, err := t.exec(ctx, op, object, t.cfg.sambaTool(authenticated, args...))
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		stderr := strings.TrimSpace(res.Stderr)
		if strings.Contains(stderr, "DOES_NOT_EXIST") {
			e := dcerr.NotFound(op, object)
			e.Detail = stderr
			return "", e
		}
		return "", dcerr.ToolInvocation(op, object, nil, "exited with status %d: %s", res.ExitCode, stderr)
	}
	return res.Stdout, nil
}

// mutate runs a write command, then confirms it with check.
func (t *Tool) mutate(ctx context.Context, op, object string, authenticated bool, cmd Command, check func(context.Context) (bool, error)) error {
	return logging.Operation(ctx, logging.SubsystemSambaTool, op, map[string]any{"object": object}, func() error {
		if authenticated {
			if err := t.authenticate(ctx, op, object); err != nil {
				return err
			}
		}
		res, err := t.exec(ctx, op, object, cmd)
		if err != nil {
			return err
		}

		ok, err := check(ctx)
		if err != nil {
			return dcerr.ToolInvocation(op, object, err, "verifying result")
		}
		if !ok {
			return dcerr.ToolInvocation(op, object, nil, "post-condition not met (exit status %d): %s",
				res.ExitCode, strings.TrimSpace(res.Stderr))
		}
		return nil
	})
}

// ListZones returns the zones served by the configured name server.
func (t *Tool) ListZones(ctx context.Context) ([]dns.Zone, error) {
	out, err := t.query(ctx, "list_zones", t.cfg.NameServer, true, "dns", "zonelist", t.cfg.NameServer)
	if err != nil {
		return nil, err
	}
	return ParseZoneList(out), nil
}

// ZoneExists reports whether the name server serves zone.
func (t *Tool) ZoneExists(ctx context.Context, zone string) (bool, error) {
	zones, err := t.ListZones(ctx)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(zones, func(z dns.Zone) bool {
		return strings.EqualFold(z.Name, zone)
	}), nil
}

// CreateZone creates zone on the name server.
func (t *Tool) CreateZone(ctx context.Context, zone string) error {
	cmd := t.cfg.sambaTool(true, "dns", "zonecreate", t.cfg.NameServer, zone)
	return t.mutate(ctx, "create_zone", zone, true, cmd, func(ctx context.Context) (bool, error) {
		return t.ZoneExists(ctx, zone)
	})
}

// DeleteZone removes zone and all of its records.
func (t *Tool) DeleteZone(ctx context.Context, zone string) error {
	cmd := t.cfg.sambaTool(true, "dns", "zonedelete", t.cfg.NameServer, zone)
	return t.mutate(ctx, "delete_zone", zone, true, cmd, func(ctx context.Context) (bool, error) {
		ok, err := t.ZoneExists(ctx, zone)
		return !ok, err
	})
}

// ListRecords returns every node of zone with its records.
func (t *Tool) ListRecords(ctx context.Context, zone string) ([]dns.Entry, error) {
	out, err := t.query(ctx, "list_records", zone, true, "dns", "query", t.cfg.NameServer, zone, dns.ZoneApex, "ALL")
	if err != nil {
		return nil, err
	}
	entries, err := ParseQuery(out)
	if err != nil {
		return nil, dcerr.ToolInvocation("list_records", zone, err, "unparseable output")
	}
	return entries, nil
}

// RecordExists reports whether zone holds record.
func (t *Tool) RecordExists(ctx context.Context, zone string, record dns.Record) (bool, error) {
	entries, err := t.ListRecords(ctx, zone)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(dns.Records(entries), record.Matches), nil
}

// AddRecord adds record to zone.
func (t *Tool) AddRecord(ctx context.Context, zone string, record dns.Record) error {
	cmd := t.cfg.sambaTool(true, "dns", "add", t.cfg.NameServer, zone, record.Name, record.Type, record.Value)
	return t.mutate(ctx, "add_record", recordID(zone, record), true, cmd, func(ctx context.Context) (bool, error) {
		return t.RecordExists(ctx, zone, record)
	})
}

// DeleteRecord removes record from zone.
func (t *Tool) DeleteRecord(ctx context.Context, zone string, record dns.Record) error {
	cmd := t.cfg.sambaTool(true, "dns", "delete", t.cfg.NameServer, zone, record.Name, record.Type, record.Value)
	return t.mutate(ctx, "delete_record", recordID(zone, record), true, cmd, func(ctx context.Context) (bool, error) {
		ok, err := t.RecordExists(ctx, zone, record)
		return !ok, err
	})
}

// UpdateRecord replaces the value of record with newValue.
func (t *Tool) UpdateRecord(ctx context.Context, zone string, record dns.Record, newValue string) error {
	updated := record
	updated.Value = newValue
	cmd := t.cfg.sambaTool(true, "dns", "update", t.cfg.NameServer, zone, record.Name, record.Type, record.Value, newValue)
	return t.mutate(ctx, "update_record", recordID(zone, record), true, cmd, func(ctx context.Context) (bool, error) {
		return t.RecordExists(ctx, zone, updated)
	})
}

func recordID(zone string, r dns.Record) string {
	return fmt.Sprintf("%s/%s/%s/%s", zone, r.Name, r.Type, r.Value)
}

// ListUsers returns the sAMAccountNames of all users.
func (t *Tool) ListUsers(ctx context.Context) ([]string, error) {
	out, err := t.query(ctx, "list_users", "", false, "user", "list")
	if err != nil {
		return nil, err
	}
	return ParseNameList(out), nil
}

// UserExists reports whether a user named name exists.
func (t *Tool) UserExists(ctx context.Context, name string) (bool, error) {
	users, err := t.ListUsers(ctx)
	if err != nil {
		return false, err
	}
	return containsFold(users, name), nil
}

// CreateUser creates an account with the configured shell and home
// directories.
func (t *Tool) CreateUser(ctx context.Context, user NewUser) error {
	args := []string{
		"user", "create", user.Name, user.Password,
		"--use-username-as-cn",
		"--login-shell=" + t.cfg.LoginShell,
		"--home-directory=" + t.cfg.HomeDirectory(user.Name),
		"--unix-home=" + t.cfg.UnixHome(user.Name),
	}
	if user.Email != "" {
		args = append(args, "--mail-address="+user.Email)
	}
	cmd := t.cfg.sambaTool(false, args...)
	cmd.Secrets = []string{user.Password}
	return t.mutate(ctx, "create_user", user.Name, false, cmd, func(ctx context.Context) (bool, error) {
		return t.UserExists(ctx, user.Name)
	})
}

// DeleteUser removes the account name.
func (t *Tool) DeleteUser(ctx context.Context, name string) error {
	cmd := t.cfg.sambaTool(false, "user", "delete", name)
	return t.mutate(ctx, "delete_user", name, false, cmd, func(ctx context.Context) (bool, error) {
		ok, err := t.UserExists(ctx, name)
		return !ok, err
	})
}

// SetPassword sets a new password for name. The password itself cannot be
// read back, so the command must exit cleanly and the account must remain.
func (t *Tool) SetPassword(ctx context.Context, name, password string) error {
	cmd := t.cfg.sambaTool(false, "user", "setpassword", name, "--newpassword="+password)
	cmd.Secrets = []string{password}
	return logging.Operation(ctx, logging.SubsystemSambaTool, "set_password", map[string]any{"object": name}, func() error {
		res, err := t.exec(ctx, "set_password", name, cmd)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return dcerr.ToolInvocation("set_password", name, nil, "exited with status %d: %s",
				res.ExitCode, strings.TrimSpace(res.Stderr))
		}
		ok, err := t.UserExists(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return dcerr.NotFound("set_password", name)
		}
		return nil
	})
}

// ListGroups returns the names of all groups.
func (t *Tool) ListGroups(ctx context.Context) ([]string, error) {
	out, err := t.query(ctx, "list_groups", "", false, "group", "list")
	if err != nil {
		return nil, err
	}
	return ParseNameList(out), nil
}

// GroupExists reports whether a group named name exists.
func (t *Tool) GroupExists(ctx context.Context, name string) (bool, error) {
	groups, err := t.ListGroups(ctx)
	if err != nil {
		return false, err
	}
	return containsFold(groups, name), nil
}

// CreateGroup creates the group name.
func (t *Tool) CreateGroup(ctx context.Context, name string) error {
	cmd := t.cfg.sambaTool(false, "group", "add", name)
	return t.mutate(ctx, "create_group", name, false, cmd, func(ctx context.Context) (bool, error) {
		return t.GroupExists(ctx, name)
	})
}

// DeleteGroup removes the group name.
func (t *Tool) DeleteGroup(ctx context.Context, name string) error {
	cmd := t.cfg.sambaTool(false, "group", "delete", name)
	return t.mutate(ctx, "delete_group", name, false, cmd, func(ctx context.Context) (bool, error) {
		ok, err := t.GroupExists(ctx, name)
		return !ok, err
	})
}

func containsFold(names []string, name string) bool {
	return slices.ContainsFunc(names, func(n string) bool {
		return strings.EqualFold(n, name)
	})
}
