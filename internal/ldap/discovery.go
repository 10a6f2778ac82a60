package ldap

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// srvResolver is the subset of *net.Resolver used for discovery.
type srvResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// SRVDiscovery locates domain controllers through DNS SRV records.
type SRVDiscovery struct {
	ctx      context.Context // Logging context with LDAP subsystem
	resolver srvResolver
}

// NewSRVDiscovery creates a new SRV discovery instance.
func NewSRVDiscovery(ctx context.Context) *SRVDiscovery {
	return &SRVDiscovery{
		ctx:      ctx,
		resolver: net.DefaultResolver,
	}
}

// DiscoverServers tries _ldaps._tcp, then _ldap._tcp, then _gc._tcp. LDAPS
// results end the search. When nothing resolves the domain name itself is
// returned on ports 636 and 389.
func (d *SRVDiscovery) DiscoverServers(ctx context.Context, domain string) ([]*ServerInfo, error) {
	if domain == "" {
		return nil, fmt.Errorf("domain cannot be empty")
	}

	start := time.Now()
	var all []*ServerInfo

	for _, record := range []struct {
		service string
		useTLS  bool
	}{
		{"_ldaps._tcp." + domain, true},
		{"_ldap._tcp." + domain, false},
		{"_gc._tcp." + domain, false},
	} {
		servers, err := d.lookupSRV(ctx, record.service, record.useTLS)
		if err != nil {
			tflog.SubsystemDebug(d.ctx, "ldap", "SRV lookup failed, continuing to next service", map[string]any{
				"service": record.service,
				"error":   err.Error(),
			})
			continue
		}
		all = append(all, servers...)

		if record.useTLS && len(servers) > 0 {
			break
		}
	}

	if len(all) == 0 {
		tflog.SubsystemDebug(d.ctx, "ldap", "No SRV records found, using fallback servers", map[string]any{
			"domain": domain,
		})
		return fallbackServers(domain), nil
	}

	sortServersByPriority(all)

	tflog.SubsystemDebug(d.ctx, "ldap", "Server discovery completed", map[string]any{
		"duration":     time.Since(start).String(),
		"server_count": len(all),
	})
	return all, nil
}

func (d *SRVDiscovery) lookupSRV(ctx context.Context, service string, useTLS bool) ([]*ServerInfo, error) {
	_, records, err := d.resolver.LookupSRV(ctx, "", "", service)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup failed for %s: %w", service, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no SRV records found for %s", service)
	}

	servers := make([]*ServerInfo, 0, len(records))
	for _, srv := range records {
		servers = append(servers, &ServerInfo{
			Host:     strings.TrimSuffix(srv.Target, "."),
			Port:     int(srv.Port),
			UseTLS:   useTLS,
			Priority: int(srv.Priority),
			Weight:   int(srv.Weight),
			Source:   "srv",
		})
	}
	return servers, nil
}

func fallbackServers(domain string) []*ServerInfo {
	return []*ServerInfo{
		{Host: domain, Port: 636, UseTLS: true, Priority: 0, Weight: 100, Source: "fallback"},
		{Host: domain, Port: 389, UseTLS: false, Priority: 1, Weight: 100, Source: "fallback"},
	}
}

// sortServersByPriority orders by ascending priority, then descending weight.
func sortServersByPriority(servers []*ServerInfo) {
	slices.SortStableFunc(servers, func(a, b *ServerInfo) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		return b.Weight - a.Weight
	})
}

// ValidateServerInfo validates server information.
func ValidateServerInfo(server *ServerInfo) error {
	switch {
	case server == nil:
		return fmt.Errorf("server info cannot be nil")
	case server.Host == "":
		return fmt.Errorf("server host cannot be empty")
	case server.Port <= 0 || server.Port > 65535:
		return fmt.Errorf("invalid port number: %d", server.Port)
	case server.Priority < 0:
		return fmt.Errorf("priority cannot be negative: %d", server.Priority)
	case server.Weight < 0:
		return fmt.Errorf("weight cannot be negative: %d", server.Weight)
	}
	return nil
}

// ServerInfoToURL converts ServerInfo to LDAP URL.
func ServerInfoToURL(server *ServerInfo) string {
	scheme := "ldap"
	if server.UseTLS {
		scheme = "ldaps"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(server.Host, strconv.Itoa(server.Port)))
}

// ParseLDAPURL parses an ldap:// or ldaps:// URL into ServerInfo. Missing
// ports default to 389 and 636.
func ParseLDAPURL(raw string) (*ServerInfo, error) {
	if raw == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid LDAP URL: %w", err)
	}

	server := &ServerInfo{
		Host:   u.Hostname(),
		Weight: 100,
		Source: "config",
	}

	switch u.Scheme {
	case "ldaps":
		server.UseTLS = true
		server.Port = 636
	case "ldap":
		server.Port = 389
	default:
		return nil, fmt.Errorf("unsupported scheme, must be ldap:// or ldaps://")
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %s", p)
		}
		server.Port = port
	}

	return server, ValidateServerInfo(server)
}
