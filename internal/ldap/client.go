package ldap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/logging"
)

// client implements the Client interface on top of a connection pool.
type client struct {
	pool   *connectionPool
	config *ConnectionConfig
}

// NewClient creates a new LDAP client with connection pooling. ctx carries
// the logging subsystems for the lifetime of the client.
func NewClient(ctx context.Context, config *ConnectionConfig) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	tflog.SubsystemDebug(ctx, logging.SubsystemLDAP, "Creating new LDAP client", map[string]any{
		"domain":          config.Domain,
		"ldap_urls_count": len(config.LDAPURLs),
		"auth_method":     config.GetAuthMethod().String(),
		"use_tls":         config.UseTLS,
		"max_connections": config.MaxConnections,
	})

	start := time.Now()
	pool, err := newConnectionPool(ctx, config)
	if err != nil {
		LogPoolEvent(ctx, "pool_creation_failed", map[string]any{"error": err.Error()})
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	tflog.SubsystemInfo(ctx, logging.SubsystemLDAP, "LDAP client created successfully", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return &client{pool: pool, config: config}, nil
}

// Session pins one pooled connection.
func (c *client) Session(ctx context.Context) (Session, error) {
	conn, err := c.pool.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	LogPoolEvent(ctx, "connection_acquired", map[string]any{"server": ServerInfoToURL(conn.ServerInfo())})
	return &session{client: c, conn: conn}, nil
}

// Search runs req on a short-lived session.
func (c *client) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	s, err := c.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Search(ctx, req)
}

// Modify runs req on a short-lived session.
func (c *client) Modify(ctx context.Context, req *ModifyRequest) error {
	s, err := c.Session(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Modify(ctx, req)
}

// Ping reads the root DSE.
func (c *client) Ping(ctx context.Context) error {
	conn, err := c.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Release()

	return pingConn(conn.Conn())
}

func (c *client) Stats() PoolStats {
	return c.pool.Stats()
}

func (c *client) Close() error {
	return c.pool.Close()
}

// withRetry executes an operation, retrying retryable failures up to
// MaxRetries times with exponential backoff.
func (c *client) withRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	backoff := c.config.InitialBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			tflog.SubsystemDebug(ctx, logging.SubsystemLDAP, "Retrying operation", map[string]any{
				"attempt":    attempt,
				"max_retry":  c.config.MaxRetries,
				"backoff_ms": backoff.Milliseconds(),
				"last_error": lastErr.Error(),
			})
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryableError(err) || attempt == c.config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff = min(time.Duration(float64(backoff)*c.config.BackoffFactor), c.config.MaxBackoff)
		}
	}

	return lastErr
}

// session binds Directory operations to one pooled connection.
type session struct {
	client *client
	conn   *PooledConnection
	closed bool
}

func (s *session) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil {
		return nil, errors.New("search request cannot be nil")
	}
	if s.closed {
		return nil, errors.New("session is closed")
	}

	fields := map[string]any{
		"base_dn": req.BaseDN,
		"scope":   req.Scope.String(),
		"filter":  req.Filter,
	}

	var result *SearchResult
	err := logging.Operation(ctx, logging.SubsystemLDAP, "search", fields, func() error {
		return s.client.withRetry(ctx, func() error {
			res, err := s.conn.Conn().Search(toLDAPSearch(req))
			if err != nil {
				if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
					result = &SearchResult{}
					return nil
				}
				return err
			}
			result = &SearchResult{Entries: res.Entries, Total: len(res.Entries)}
			return nil
		})
	})
	if err != nil {
		return nil, WrapError("search", err)
	}
	return result, nil
}

func (s *session) Modify(ctx context.Context, req *ModifyRequest) error {
	if req == nil {
		return errors.New("modify request cannot be nil")
	}
	if req.DN == "" {
		return errors.New("DN cannot be empty")
	}
	if s.closed {
		return errors.New("session is closed")
	}
	if len(req.Changes) == 0 {
		return nil
	}

	fields := map[string]any{
		"dn":      req.DN,
		"changes": len(req.Changes),
	}

	return logging.Operation(ctx, logging.SubsystemLDAP, "modify", fields, func() error {
		err := s.client.withRetry(ctx, func() error {
			return s.conn.Conn().Modify(toLDAPModify(req))
		})
		if err != nil {
			LogLDAPError(ctx, logging.SubsystemLDAP, "modify", err, fields)
		}
		return err
	})
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.conn.Release()
	return nil
}

func toLDAPSearch(req *SearchRequest) *ldap.SearchRequest {
	scope := ldap.ScopeWholeSubtree
	switch req.Scope {
	case ScopeBaseObject:
		scope = ldap.ScopeBaseObject
	case ScopeSingleLevel:
		scope = ldap.ScopeSingleLevel
	}

	filter := req.Filter
	if filter == "" {
		filter = "(objectClass=*)"
	}

	return ldap.NewSearchRequest(
		req.BaseDN,
		scope,
		ldap.NeverDerefAliases,
		req.SizeLimit,
		int(req.TimeLimit.Seconds()),
		false,
		filter,
		req.Attributes,
		nil,
	)
}

func toLDAPModify(req *ModifyRequest) *ldap.ModifyRequest {
	modify := ldap.NewModifyRequest(req.DN, nil)
	for _, change := range req.Changes {
		switch change.Op {
		case ChangeAdd:
			modify.Add(change.Attribute, change.Values)
		case ChangeDelete:
			modify.Delete(change.Attribute, change.Values)
		case ChangeReplace:
			modify.Replace(change.Attribute, change.Values)
		}
	}
	return modify
}
