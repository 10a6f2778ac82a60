package ldap

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/logging"
)

// MembershipDelta is the minimal edit turning a current member set into a
// desired one.
type MembershipDelta struct {
	ToAdd    []string
	ToRemove []string
}

// IsEmpty reports whether the delta requires no directory change.
func (d MembershipDelta) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// Reconcile computes kept = current ∩ desired, ToRemove = current − kept and
// ToAdd = desired − kept. DNs are compared with DNKey; duplicates collapse.
// ToRemove keeps the spelling found in current, ToAdd the spelling found in
// desired, both in input order.
func Reconcile(current, desired []string) MembershipDelta {
	currentKeys := make(map[string]struct{}, len(current))
	for _, dn := range current {
		currentKeys[DNKey(dn)] = struct{}{}
	}
	desiredKeys := make(map[string]struct{}, len(desired))
	for _, dn := range desired {
		desiredKeys[DNKey(dn)] = struct{}{}
	}

	var delta MembershipDelta

	seen := make(map[string]struct{}, len(current))
	for _, dn := range current {
		key := DNKey(dn)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, kept := desiredKeys[key]; !kept {
			delta.ToRemove = append(delta.ToRemove, dn)
		}
	}

	clear(seen)
	for _, dn := range desired {
		key := DNKey(dn)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, kept := currentKeys[key]; !kept {
			delta.ToAdd = append(delta.ToAdd, dn)
		}
	}

	return delta
}

// MembershipWriter applies reconciled membership to the directory. Only
// forward link attributes are written; back-references such as memberOf are
// maintained by the directory.
type MembershipWriter struct {
	dir             Directory
	memberAttribute string
}

// NewMembershipWriter creates a writer for the given group member attribute
// (normally "member").
func NewMembershipWriter(dir Directory, memberAttribute string) *MembershipWriter {
	if memberAttribute == "" {
		memberAttribute = "member"
	}
	return &MembershipWriter{dir: dir, memberAttribute: memberAttribute}
}

// UpdateMembers makes the values of attribute on entryDN equal desired.
// current is the attribute's present value set. It issues at most one
// modify; when current is empty the attribute is created with all values at
// once instead of appended to.
func (w *MembershipWriter) UpdateMembers(ctx context.Context, entryDN, attribute string, current, desired []string) (MembershipDelta, error) {
	delta := Reconcile(current, desired)
	if delta.IsEmpty() {
		return delta, nil
	}

	req := &ModifyRequest{DN: entryDN}
	for _, dn := range delta.ToRemove {
		req.Delete(attribute, dn)
	}
	if len(current) == 0 {
		req.Replace(attribute, delta.ToAdd...)
	} else {
		for _, dn := range delta.ToAdd {
			req.Add(attribute, dn)
		}
	}

	tflog.SubsystemDebug(ctx, logging.SubsystemLDAP, "Applying membership delta", map[string]any{
		"dn":        entryDN,
		"attribute": attribute,
		"to_add":    len(delta.ToAdd),
		"to_remove": len(delta.ToRemove),
		"create":    len(current) == 0,
	})

	if err := w.dir.Modify(ctx, req); err != nil {
		return delta, WrapEntryError("update_members", entryDN, attribute, err)
	}
	return delta, nil
}

// GroupMembers resolves the current member attribute of a group entry.
type GroupMembers func(ctx context.Context, groupDN string) ([]string, error)

// UpdateUserGroups makes userDN a member of exactly desiredGroups. The user
// entry is never modified: each added or removed group receives one modify
// of its member attribute. membersOf is consulted for groups gaining the
// user so that an empty member attribute is created rather than appended to.
func (w *MembershipWriter) UpdateUserGroups(ctx context.Context, userDN string, currentGroups, desiredGroups []string, membersOf GroupMembers) (MembershipDelta, error) {
	delta := Reconcile(currentGroups, desiredGroups)
	if delta.IsEmpty() {
		return delta, nil
	}

	tflog.SubsystemDebug(ctx, logging.SubsystemLDAP, "Applying user group delta", map[string]any{
		"user_dn":   userDN,
		"to_add":    len(delta.ToAdd),
		"to_remove": len(delta.ToRemove),
	})

	for _, groupDN := range delta.ToRemove {
		req := (&ModifyRequest{DN: groupDN}).Delete(w.memberAttribute, userDN)
		if err := w.dir.Modify(ctx, req); err != nil {
			return delta, WrapEntryError("remove_user_from_group", groupDN, w.memberAttribute, err)
		}
	}

	for _, groupDN := range delta.ToAdd {
		members, err := membersOf(ctx, groupDN)
		if err != nil {
			return delta, fmt.Errorf("reading members of %s: %w", groupDN, err)
		}

		req := &ModifyRequest{DN: groupDN}
		if len(members) == 0 {
			req.Replace(w.memberAttribute, userDN)
		} else {
			req.Add(w.memberAttribute, userDN)
		}
		if err := w.dir.Modify(ctx, req); err != nil {
			return delta, WrapEntryError("add_user_to_group", groupDN, w.memberAttribute, err)
		}
	}

	return delta, nil
}
