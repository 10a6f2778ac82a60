// Package ldaptest provides an in-memory directory for tests of code built on
// the ldap package.
package ldaptest

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/isometry/terraform-provider-dccon/internal/ldap"
)

var _ ldap.Client = (*Directory)(nil)

// Directory is an in-memory ldap.Client. Filters are evaluated as a
// conjunction of their (attr=value) assertions, which covers the filters
// the connector is configured with.
type Directory struct {
	mu      sync.Mutex
	entries map[string]*goldap.Entry
	order   []string

	// Log records every Search and Modify in call order.
	Log []string
	// ModifyErrors injects a failure for modifications of a DN.
	ModifyErrors map[string]error
	// SearchError, when set, fails every search.
	SearchError error
	// LinkMemberOf maintains memberOf on the targets of member changes the
	// way a domain controller does.
	LinkMemberOf bool

	SessionsOpened int
	SessionsClosed int
}

// New returns an empty directory.
func New() *Directory {
	return &Directory{
		entries:      make(map[string]*goldap.Entry),
		ModifyErrors: make(map[string]error),
	}
}

// AddEntry stores an entry, replacing any entry with the same DN.
func (d *Directory) AddEntry(dn string, attrs map[string][]string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := ldap.DNKey(dn)
	if _, ok := d.entries[key]; !ok {
		d.order = append(d.order, key)
	}
	d.entries[key] = goldap.NewEntry(dn, attrs)
}

// RemoveEntry deletes the entry at dn.
func (d *Directory) RemoveEntry(dn string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := ldap.DNKey(dn)
	delete(d.entries, key)
	d.order = slices.DeleteFunc(d.order, func(k string) bool { return k == key })
}

// Values returns the values of attr on dn, nil when absent.
func (d *Directory) Values(dn, attr string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.entries[ldap.DNKey(dn)]
	if !ok {
		return nil
	}
	return slices.Clone(entry.GetAttributeValues(attr))
}

// Modifications returns the Modify log entries.
func (d *Directory) Modifications() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []string
	for _, l := range d.Log {
		if strings.HasPrefix(l, "modify ") {
			out = append(out, l)
		}
	}
	return out
}

func (d *Directory) Session(context.Context) (ldap.Session, error) {
	d.mu.Lock()
	d.SessionsOpened++
	d.mu.Unlock()
	return &session{d: d}, nil
}

func (d *Directory) Ping(context.Context) error { return nil }
func (d *Directory) Stats() ldap.PoolStats { return ldap.PoolStats{} }
func (d *Directory) Close() error { return nil }

var assertion = regexp.MustCompile(`\(([A-Za-z][\w-]*)=([^()]*)\)`)

func (d *Directory) Search(_ context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Log = append(d.Log, fmt.Sprintf("search %s %s %s", req.Scope, req.BaseDN, req.Filter))
	if d.SearchError != nil {
		return nil, d.SearchError
	}

	base := ldap.DNKey(req.BaseDN)
	matches := assertion.FindAllStringSubmatch(req.Filter, -1)

	var result ldap.SearchResult
	for _, key := range d.order {
		entry := d.entries[key]
		if !inScope(key, base, req.Scope) || !matchesAll(entry, matches) {
			continue
		}
		result.Entries = append(result.Entries, project(entry, req.Attributes))
	}
	result.Total = len(result.Entries)
	return &result, nil
}

func (d *Directory) Modify(_ context.Context, req *ldap.ModifyRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range req.Changes {
		d.Log = append(d.Log, fmt.Sprintf("modify %s %s %s %s", req.DN, c.Op, c.Attribute, strings.Join(c.Values, "|")))
	}

	key := ldap.DNKey(req.DN)
	if err, ok := d.ModifyErrors[key]; ok {
		return err
	}
	entry, ok := d.entries[key]
	if !ok {
		return goldap.NewError(goldap.LDAPResultNoSuchObject, fmt.Errorf("no such object: %s", req.DN))
	}

	attrs := make(map[string][]string, len(entry.Attributes))
	for _, a := range entry.Attributes {
		attrs[strings.ToLower(a.Name)] = slices.Clone(a.Values)
	}
	names := make(map[string]string, len(entry.Attributes))
	for _, a := range entry.Attributes {
		names[strings.ToLower(a.Name)] = a.Name
	}

	for _, c := range req.Changes {
		lower := strings.ToLower(c.Attribute)
		if _, ok := names[lower]; !ok {
			names[lower] = c.Attribute
		}
		switch c.Op {
		case ldap.ChangeAdd:
			for _, v := range c.Values {
				if containsValue(attrs[lower], v) {
					return goldap.NewError(goldap.LDAPResultAttributeOrValueExists, fmt.Errorf("value exists: %s", v))
				}
				attrs[lower] = append(attrs[lower], v)
			}
		case ldap.ChangeDelete:
			if len(c.Values) == 0 {
				delete(attrs, lower)
				continue
			}
			for _, v := range c.Values {
				if !containsValue(attrs[lower], v) {
					return goldap.NewError(goldap.LDAPResultNoSuchAttribute, fmt.Errorf("no such value: %s", v))
				}
				attrs[lower] = slices.DeleteFunc(attrs[lower], func(s string) bool { return sameValue(s, v) })
			}
			if len(attrs[lower]) == 0 {
				delete(attrs, lower)
			}
		case ldap.ChangeReplace:
			if len(c.Values) == 0 {
				delete(attrs, lower)
			} else {
				attrs[lower] = slices.Clone(c.Values)
			}
		}
	}

	out := make(map[string][]string, len(attrs))
	for lower, values := range attrs {
		out[names[lower]] = values
	}
	if d.LinkMemberOf {
		before := entry.GetAttributeValues("member")
		after := attrs["member"]
		for _, v := range after {
			if !containsValue(before, v) {
				d.link(v, entry.DN, true)
			}
		}
		for _, v := range before {
			if !containsValue(after, v) {
				d.link(v, entry.DN, false)
			}
		}
	}
	d.entries[key] = goldap.NewEntry(entry.DN, out)
	return nil
}

// link adds or removes group from the memberOf values of dn.
func (d *Directory) link(dn, group string, add bool) {
	target, ok := d.entries[ldap.DNKey(dn)]
	if !ok {
		return
	}
	attrs := make(map[string][]string, len(target.Attributes)+1)
	for _, a := range target.Attributes {
		attrs[a.Name] = slices.Clone(a.Values)
	}
	var name string
	for n := range attrs {
		if strings.EqualFold(n, "memberOf") {
			name = n
		}
	}
	if name == "" {
		name = "memberOf"
	}
	values := slices.DeleteFunc(attrs[name], func(s string) bool { return sameValue(s, group) })
	if add {
		values = append(values, group)
	}
	if len(values) == 0 {
		delete(attrs, name)
	} else {
		attrs[name] = values
	}
	d.entries[ldap.DNKey(dn)] = goldap.NewEntry(target.DN, attrs)
}

func inScope(key, base string, scope ldap.SearchScope) bool {
	switch scope {
	case ldap.ScopeBaseObject:
		return key == base
	case ldap.ScopeSingleLevel:
		_, parent, ok := strings.Cut(key, ",")
		return ok && parent == base
	default:
		return key == base || strings.HasSuffix(key, ","+base)
	}
}

func matchesAll(entry *goldap.Entry, assertions [][]string) bool {
	for _, m := range assertions {
		attr, value := m[1], m[2]
		values := entry.GetEqualFoldAttributeValues(attr)
		if value == "*" {
			if len(values) == 0 {
				return false
			}
			continue
		}
		if !containsValue(values, unescapeFilter(value)) {
			return false
		}
	}
	return true
}

func project(entry *goldap.Entry, attributes []string) *goldap.Entry {
	if len(attributes) == 0 {
		return entry
	}
	attrs := make(map[string][]string)
	for _, name := range attributes {
		if values := entry.GetEqualFoldAttributeValues(name); len(values) > 0 {
			attrs[name] = slices.Clone(values)
		}
	}
	return goldap.NewEntry(entry.DN, attrs)
}

func containsValue(values []string, v string) bool {
	return slices.ContainsFunc(values, func(s string) bool { return sameValue(s, v) })
}

func sameValue(a, b string) bool {
	return strings.EqualFold(a, b) || ldap.EqualDN(a, b)
}

func unescapeFilter(v string) string {
	return strings.NewReplacer(`\28`, "(", `\29`, ")", `\2a`, "*", `\5c`, `\`, `\00`, "\x00").Replace(v)
}

type session struct {
	d      *Directory
	closed bool
}

func (s *session) Search(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	if s.closed {
		return nil, fmt.Errorf("session is closed")
	}
	return s.d.Search(ctx, req)
}

func (s *session) Modify(ctx context.Context, req *ldap.ModifyRequest) error {
	if s.closed {
		return fmt.Errorf("session is closed")
	}
	return s.d.Modify(ctx, req)
}

func (s *session) Close() error {
	if !s.closed {
		s.closed = true
		s.d.mu.Lock()
		s.d.SessionsClosed++
		s.d.mu.Unlock()
	}
	return nil
}
