package ldap

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// ConnectionConfig holds configuration for LDAP connections.
type ConnectionConfig struct {
	// Connection settings
	Domain   string        // Domain for SRV discovery
	LDAPURLs []string      // Direct LDAP URLs (overrides domain)
	BaseDN   string        // Base DN for searches
	Timeout  time.Duration // Connection timeout

	// Authentication settings
	Username       string // Username for authentication (DN, UPN, or SAM format)
	Password       string // Password for simple bind authentication
	KerberosRealm  string // Kerberos realm for GSSAPI authentication
	KerberosKeytab string // Path to Kerberos keytab file
	KerberosConfig string // Path to Kerberos config file (krb5.conf)
	KerberosCCache string // Path to Kerberos credential cache
	KerberosSPN    string // Service principal override

	// TLS settings
	TLSConfig *tls.Config // Custom TLS configuration
	UseTLS    bool        // Force TLS usage
	SkipTLS   bool        // Skip TLS entirely (not recommended)

	// Pool settings
	MaxConnections int           // Maximum connections in pool
	MaxIdleTime    time.Duration // Maximum idle time before connection cleanup
	HealthCheck    time.Duration // Health check interval

	// Retry settings. Retries are opt-in: the connector itself never
	// retries, so the default is a single attempt.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultConfig returns a secure default configuration.
func DefaultConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Timeout:        30 * time.Second,
		UseTLS:         true,
		MaxConnections: 10,
		MaxIdleTime:    5 * time.Minute,
		HealthCheck:    30 * time.Second,
		MaxRetries:     0,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota // Username/password authentication
	AuthMethodKerberos                     // GSSAPI/Kerberos authentication
)

func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	default:
		return "unknown"
	}
}

// GetAuthMethod determines the authentication method from the configuration.
// Kerberos takes precedence when a realm is configured.
func (c *ConnectionConfig) GetAuthMethod() AuthMethod {
	if c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.KerberosCCache != "" || c.Username != "") {
		return AuthMethodKerberos
	}
	return AuthMethodSimpleBind
}

// HasAuthentication checks if any authentication method is configured.
func (c *ConnectionConfig) HasAuthentication() bool {
	hasPassword := c.Username != "" && c.Password != ""
	hasKerberos := c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.KerberosCCache != "" || c.Username != "")
	return hasPassword || hasKerberos
}

// ServerInfo contains information about an LDAP server.
type ServerInfo struct {
	Host     string
	Port     int
	UseTLS   bool
	Priority int
	Weight   int
	Source   string // "srv", "config", "fallback"
}

// PoolStats provides statistics about the connection pool.
type PoolStats struct {
	Total   int           // Total connections
	Active  int64         // Active (in-use) connections
	Idle    int           // Idle connections
	Created int64         // Total connections created
	Errors  int64         // Total connection errors
	Uptime  time.Duration // Pool uptime
}

// Directory is the read/modify surface consumed by the membership writer and
// the group and user lookups.
type Directory interface {
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)
	Modify(ctx context.Context, req *ModifyRequest) error
}

// Session pins one pooled connection for the lifetime of a logical
// operation. Close returns the connection to the pool.
type Session interface {
	Directory
	Close() error
}

// Client provides pooled LDAP access.
type Client interface {
	Directory

	// Session acquires a dedicated connection. Callers must Close it.
	Session(ctx context.Context) (Session, error)

	Ping(ctx context.Context) error
	Stats() PoolStats
	Close() error
}

// SearchRequest encapsulates LDAP search parameters.
type SearchRequest struct {
	BaseDN     string
	Scope      SearchScope
	Filter     string
	Attributes []string
	SizeLimit  int
	TimeLimit  time.Duration
}

// SearchResult contains search results.
type SearchResult struct {
	Entries []*ldap.Entry
	Total   int
}

// ChangeOp is the kind of a single attribute modification.
type ChangeOp int

const (
	ChangeAdd ChangeOp = iota
	ChangeDelete
	ChangeReplace
)

func (op ChangeOp) String() string {
	switch op {
	case ChangeAdd:
		return "add"
	case ChangeDelete:
		return "delete"
	case ChangeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Change is one attribute modification. Order within a ModifyRequest is
// preserved on the wire.
type Change struct {
	Op        ChangeOp
	Attribute string
	Values    []string
}

// ModifyRequest encapsulates LDAP modify parameters.
type ModifyRequest struct {
	DN      string
	Changes []Change
}

// Add appends an add-values change.
func (r *ModifyRequest) Add(attribute string, values ...string) *ModifyRequest {
	r.Changes = append(r.Changes, Change{Op: ChangeAdd, Attribute: attribute, Values: values})
	return r
}

// Delete appends a delete-values change. No values deletes the attribute.
func (r *ModifyRequest) Delete(attribute string, values ...string) *ModifyRequest {
	r.Changes = append(r.Changes, Change{Op: ChangeDelete, Attribute: attribute, Values: values})
	return r
}

// Replace appends a replace change.
func (r *ModifyRequest) Replace(attribute string, values ...string) *ModifyRequest {
	r.Changes = append(r.Changes, Change{Op: ChangeReplace, Attribute: attribute, Values: values})
	return r
}

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

// RetryableError indicates an error that can be retried.
type RetryableError interface {
	error
	IsRetryable() bool
}

// ConnectionError represents connection-related errors.
type ConnectionError struct {
	message   string
	retryable bool
	cause     error
}

func (e *ConnectionError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *ConnectionError) IsRetryable() bool {
	return e.retryable
}

func (e *ConnectionError) Unwrap() error {
	return e.cause
}

// NewConnectionError creates a new connection error.
func NewConnectionError(message string, retryable bool, cause error) *ConnectionError {
	return &ConnectionError{
		message:   message,
		retryable: retryable,
		cause:     cause,
	}
}
