// Package sambatooltest simulates samba-tool for tests. Server implements
// sambatool.Runner and keeps zones, records, users and groups in memory.
package sambatooltest

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/isometry/terraform-provider-dccon/internal/dns"
	"github.com/isometry/terraform-provider-dccon/internal/sambatool"
)

// Fault overrides the outcome of a command. Commands are keyed by their
// first two samba-tool words, e.g. "dns add" or "user create", or "kinit".
// A longer key such as "dns add ns.example.org 10.in-addr.arpa" narrows the
// fault to matching argument lists.
type Fault struct {
	ExitCode int
	Stderr   string
	// Apply lets the command change state before failing.
	Apply bool
	// Err is returned from Run as a process start failure.
	Err error
}

type node struct {
	name    string
	records []dns.Record
}

// Server is an in-memory domain controller reachable through samba-tool
// command lines.
type Server struct {
	mu sync.Mutex

	zones  []string
	nodes  map[string][]*node
	users  []string
	groups []string
	serial uint32

	// Faults injects failures per command key.
	Faults map[string]Fault
	// Calls records every command line with secrets masked.
	Calls []string
	// Passwords holds the last password set per user.
	Passwords map[string]string
	// OnSuccess runs after a samba-tool command exits cleanly. args are the
	// words following the command key.
	OnSuccess func(key string, args []string)
}

// New creates an empty server.
func New() *Server {
	return &Server{
		nodes:     make(map[string][]*node),
		Faults:    make(map[string]Fault),
		Passwords: make(map[string]string),
	}
}

// AddZone creates zone.
func (s *Server) AddZone(zone string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones = append(s.zones, zone)
	s.nodes[strings.ToLower(zone)] = nil
	return s
}

// AddRecord stores a record, creating its node.
func (s *Server) AddRecord(zone, name, rrType, value string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addRecord(zone, name, rrType, value)
	return s
}

// AddUser creates an account.
func (s *Server) AddUser(name string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, name)
	return s
}

// AddGroup creates a group.
func (s *Server) AddGroup(name string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = append(s.groups, name)
	return s
}

// Zones returns the zone names.
func (s *Server) Zones() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.zones)
}

// Users returns the account names.
func (s *Server) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.users)
}

// Groups returns the group names.
func (s *Server) Groups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.groups)
}

// Records returns the records of zone as "name TYPE value" strings.
func (s *Server) Records(zone string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, n := range s.nodes[strings.ToLower(zone)] {
		for _, r := range n.records {
			out = append(out, fmt.Sprintf("%s %s %s", n.name, r.Type, r.Value))
		}
	}
	return out
}

// CallsMatching returns the recorded command lines containing substr.
func (s *Server) CallsMatching(substr string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.Calls {
		if strings.Contains(c, substr) {
			out = append(out, c)
		}
	}
	return out
}

// Run implements sambatool.Runner.
func (s *Server) Run(_ context.Context, cmd sambatool.Command) (*sambatool.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, cmd.String())

	argv := append([]string{cmd.Path}, cmd.Args...)
	if path.Base(argv[0]) == "sudo" {
		argv = argv[1:]
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	if path.Base(argv[0]) == "kinit" {
		return s.fault("kinit", func() *sambatool.Result { return &sambatool.Result{} })
	}

	args := argv[1:]
	if n := len(args); n >= 2 && args[n-2] == "-k" {
		args = args[:n-2]
	}
	if len(args) < 2 {
		return exit(1, "usage: samba-tool <subcommand>"), nil
	}
	key := args[0] + " " + args[1]
	return s.fault(s.faultKey(key, strings.Join(args, " ")), func() *sambatool.Result {
		res := s.dispatch(key, args[2:])
		if res.ExitCode == 0 && s.OnSuccess != nil {
			s.OnSuccess(key, args[2:])
		}
		return res
	})
}

// faultKey returns the longest fault key that prefixes line on a word
// boundary, or key when none does.
func (s *Server) faultKey(key, line string) string {
	best := key
	for k := range s.Faults {
		if len(k) > len(best) && (line == k || strings.HasPrefix(line, k+" ")) {
			best = k
		}
	}
	return best
}

func (s *Server) fault(key string, apply func() *sambatool.Result) (*sambatool.Result, error) {
	f, ok := s.Faults[key]
	if !ok {
		return apply(), nil
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Apply {
		apply()
	}
	return &sambatool.Result{ExitCode: f.ExitCode, Stderr: f.Stderr}, nil
}

func exit(code int, format string, args ...any) *sambatool.Result {
	return &sambatool.Result{ExitCode: code, Stderr: fmt.Sprintf(format, args...)}
}

func (s *Server) dispatch(key string, args []string) *sambatool.Result {
	switch key {
	case "dns zonelist":
		return s.zoneList()
	case "dns zonecreate":
		return s.zoneCreate(args[1])
	case "dns zonedelete":
		return s.zoneDelete(args[1])
	case "dns query":
		return s.query(args[1])
	case "dns add":
		return s.dnsAdd(args[1], args[2], args[3], args[4])
	case "dns delete":
		return s.dnsDelete(args[1], args[2], args[3], args[4])
	case "dns update":
		return s.dnsUpdate(args[1], args[2], args[3], args[4], args[5])
	case "user list":
		return &sambatool.Result{Stdout: strings.Join(s.users, "\n") + "\n"}
	case "user create":
		return s.userCreate(args[0], args[1])
	case "user delete":
		return s.remove(&s.users, args[0], "user")
	case "user setpassword":
		return s.setPassword(args[0], args[1:])
	case "group list":
		return &sambatool.Result{Stdout: strings.Join(s.groups, "\n") + "\n"}
	case "group add":
		if slices.ContainsFunc(s.groups, equalFold(args[0])) {
			return exit(255, "ERROR(ldb): Failed to create group %q - entry already exists", args[0])
		}
		s.groups = append(s.groups, args[0])
		return &sambatool.Result{Stdout: fmt.Sprintf("Added group %s\n", args[0])}
	case "group delete":
		return s.remove(&s.groups, args[0], "group")
	}
	return exit(1, "unknown command %q", key)
}

func equalFold(name string) func(string) bool {
	return func(s string) bool { return strings.EqualFold(s, name) }
}

func (s *Server) zoneList() *sambatool.Result {
	var b strings.Builder
	fmt.Fprintf(&b, "  %d zone(s) found\n\n", len(s.zones))
	for _, z := range s.zones {
		fmt.Fprintf(&b, "  pszZoneName                 : %s\n", z)
		b.WriteString("  Flags                       : DNS_RPC_ZONE_DSINTEGRATED DNS_RPC_ZONE_UPDATE_SECURE \n")
		b.WriteString("  ZoneType                    : DNS_ZONE_TYPE_PRIMARY\n")
		b.WriteString("  Version                     : 50\n\n")
	}
	return &sambatool.Result{Stdout: b.String()}
}

func (s *Server) hasZone(zone string) bool {
	_, ok := s.nodes[strings.ToLower(zone)]
	return ok
}

func (s *Server) zoneCreate(zone string) *sambatool.Result {
	if s.hasZone(zone) {
		return exit(255, "ERROR: Failed to create zone: WERR_DNS_ERROR_ZONE_ALREADY_EXISTS")
	}
	s.zones = append(s.zones, zone)
	s.nodes[strings.ToLower(zone)] = nil
	return &sambatool.Result{Stdout: "Zone " + zone + " created successfully\n"}
}

func (s *Server) zoneDelete(zone string) *sambatool.Result {
	if !s.hasZone(zone) {
		return exit(255, "ERROR: Failed to delete zone: WERR_DNS_ERROR_ZONE_DOES_NOT_EXIST")
	}
	s.zones = slices.DeleteFunc(s.zones, equalFold(zone))
	delete(s.nodes, strings.ToLower(zone))
	return &sambatool.Result{Stdout: "Zone " + zone + " deleted successfully\n"}
}

func (s *Server) query(zone string) *sambatool.Result {
	if !s.hasZone(zone) {
		return exit(255, "ERROR: Failed to enumerate records: WERR_DNS_ERROR_NAME_DOES_NOT_EXIST")
	}
	var b strings.Builder
	for _, n := range s.nodes[strings.ToLower(zone)] {
		name := n.name
		if name == dns.ZoneApex {
			name = ""
		}
		fmt.Fprintf(&b, "  Name=%s, Records=%d, Children=0\n", name, len(n.records))
		for _, r := range n.records {
			fmt.Fprintf(&b, "    %s: %s (flags=f0, serial=%d, ttl=%d)\n", r.Type, r.Value, r.Serial, r.TTL)
		}
	}
	return &sambatool.Result{Stdout: b.String()}
}

func (s *Server) find(zone, name string) *node {
	for _, n := range s.nodes[strings.ToLower(zone)] {
		if strings.EqualFold(n.name, name) {
			return n
		}
	}
	return nil
}

func (s *Server) addRecord(zone, name, rrType, value string) {
	key := strings.ToLower(zone)
	if _, ok := s.nodes[key]; !ok {
		s.zones = append(s.zones, zone)
	}
	n := s.find(zone, name)
	if n == nil {
		n = &node{name: name}
		s.nodes[key] = append(s.nodes[key], n)
	}
	s.serial++
	n.records = append(n.records, dns.Record{Name: name, Type: rrType, Value: value, TTL: 900, Flags: "f0", Serial: s.serial})
}

func (s *Server) recordIndex(zone, name, rrType, value string) (*node, int) {
	n := s.find(zone, name)
	if n == nil {
		return nil, -1
	}
	probe := dns.Record{Name: name, Type: rrType, Value: value}
	return n, slices.IndexFunc(n.records, probe.Matches)
}

func (s *Server) dnsAdd(zone, name, rrType, value string) *sambatool.Result {
	if !s.hasZone(zone) {
		return exit(255, "ERROR: Failed to add record: WERR_DNS_ERROR_ZONE_DOES_NOT_EXIST")
	}
	if _, i := s.recordIndex(zone, name, rrType, value); i >= 0 {
		return exit(255, "ERROR: Record already exists; impossible to add: WERR_DNS_ERROR_RECORD_ALREADY_EXISTS")
	}
	s.addRecord(zone, name, rrType, value)
	return &sambatool.Result{Stdout: "Record added successfully\n"}
}

func (s *Server) dnsDelete(zone, name, rrType, value string) *sambatool.Result {
	n, i := s.recordIndex(zone, name, rrType, value)
	if i < 0 {
		return exit(255, "ERROR: Record does not exist: WERR_DNS_ERROR_RECORD_DOES_NOT_EXIST")
	}
	n.records = slices.Delete(n.records, i, i+1)
	return &sambatool.Result{Stdout: "Record deleted successfully\n"}
}

func (s *Server) dnsUpdate(zone, name, rrType, oldValue, newValue string) *sambatool.Result {
	n, i := s.recordIndex(zone, name, rrType, oldValue)
	if i < 0 {
		return exit(255, "ERROR: Record or zone does not exist: WERR_DNS_ERROR_RECORD_DOES_NOT_EXIST")
	}
	s.serial++
	n.records[i].Value = newValue
	n.records[i].Serial = s.serial
	return &sambatool.Result{Stdout: "Record updated successfully\n"}
}

func (s *Server) userCreate(name, password string) *sambatool.Result {
	if slices.ContainsFunc(s.users, equalFold(name)) {
		return exit(255, "ERROR(ldb): Failed to add user %q: entry already exists", name)
	}
	s.users = append(s.users, name)
	s.Passwords[name] = password
	return &sambatool.Result{Stdout: fmt.Sprintf("User '%s' added successfully\n", name)}
}

func (s *Server) setPassword(name string, args []string) *sambatool.Result {
	if !slices.ContainsFunc(s.users, equalFold(name)) {
		return exit(255, "ERROR: Failed to set password for user '%s': Unable to find user", name)
	}
	for _, a := range args {
		if pw, ok := strings.CutPrefix(a, "--newpassword="); ok {
			s.Passwords[name] = pw
			return &sambatool.Result{Stdout: "Changed password OK\n"}
		}
	}
	return exit(1, "missing --newpassword")
}

func (s *Server) remove(list *[]string, name, kind string) *sambatool.Result {
	if !slices.ContainsFunc(*list, equalFold(name)) {
		return exit(255, "ERROR: Unable to find %s %q", kind, name)
	}
	*list = slices.DeleteFunc(*list, equalFold(name))
	return &sambatool.Result{Stdout: fmt.Sprintf("Deleted %s %s\n", kind, name)}
}
