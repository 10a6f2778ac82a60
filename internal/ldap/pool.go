package ldap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// MaxConnectionPoolLimit is the maximum allowed connections in a pool.
const MaxConnectionPoolLimit = 100

// reauthAfter bounds how long a bind is trusted on an idle connection.
const reauthAfter = 5 * time.Minute

// dialFunc opens a raw connection to one server.
type dialFunc func(ctx context.Context, server *ServerInfo) (ldap.Client, error)

// authFunc binds a raw connection.
type authFunc func(ctx context.Context, conn ldap.Client, server *ServerInfo) error

// PooledConnection is a connection checked out of the pool.
type PooledConnection struct {
	conn          ldap.Client
	serverInfo    *ServerInfo
	lastUsed      time.Time
	authTime      time.Time
	authenticated bool
	healthy       bool
	returnToPool  func(*PooledConnection)
}

// Release hands the connection back to its pool.
func (pc *PooledConnection) Release() {
	if pc.returnToPool != nil {
		pc.returnToPool(pc)
	}
}

func (pc *PooledConnection) Conn() ldap.Client {
	return pc.conn
}

func (pc *PooledConnection) ServerInfo() *ServerInfo {
	return pc.serverInfo
}

// connectionPool keeps idle connections in a buffered channel.
type connectionPool struct {
	ctx         context.Context // Logging context with LDAP subsystem
	config      *ConnectionConfig
	servers     []*ServerInfo
	connections chan *PooledConnection
	mu          sync.RWMutex
	closed      bool
	dial        dialFunc
	auth        authFunc

	activeConns  int64
	totalCreated int64
	totalErrors  int64
	startTime    time.Time

	healthTicker *time.Ticker
	healthStop   chan struct{}
	healthWg     sync.WaitGroup
}

// newConnectionPool validates the configuration, resolves the server list and
// starts the health checker.
func newConnectionPool(ctx context.Context, config *ConnectionConfig) (*connectionPool, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	servers, err := resolveServers(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("server discovery failed: %w", err)
	}

	pool := newPoolWithServers(ctx, config, servers, dialServer(config), bindConnection(config))
	if config.HealthCheck > 0 {
		pool.startHealthChecker()
	}

	LogPoolEvent(ctx, "pool_created", map[string]any{
		"server_count":    len(servers),
		"max_connections": config.MaxConnections,
	})
	return pool, nil
}

func newPoolWithServers(ctx context.Context, config *ConnectionConfig, servers []*ServerInfo, dial dialFunc, auth authFunc) *connectionPool {
	return &connectionPool{
		ctx:         ctx,
		config:      config,
		servers:     servers,
		connections: make(chan *PooledConnection, config.MaxConnections),
		dial:        dial,
		auth:        auth,
		startTime:   time.Now(),
		healthStop:  make(chan struct{}),
	}
}

// resolveServers uses configured URLs when present, SRV discovery otherwise.
func resolveServers(ctx context.Context, config *ConnectionConfig) ([]*ServerInfo, error) {
	var servers []*ServerInfo

	switch {
	case len(config.LDAPURLs) > 0:
		for _, url := range config.LDAPURLs {
			server, err := ParseLDAPURL(url)
			if err != nil {
				return nil, fmt.Errorf("invalid LDAP URL %s: %w", url, err)
			}
			servers = append(servers, server)
		}
	case config.Domain != "":
		discoveryCtx, cancel := context.WithTimeout(ctx, config.Timeout)
		defer cancel()

		discovered, err := NewSRVDiscovery(ctx).DiscoverServers(discoveryCtx, config.Domain)
		if err != nil {
			return nil, err
		}
		servers = discovered
	default:
		return nil, errors.New("either domain or LDAP URLs must be specified")
	}

	if len(servers) == 0 {
		return nil, errors.New("no servers discovered")
	}

	tflog.SubsystemDebug(ctx, "ldap", "Resolved directory servers", map[string]any{
		"server_count": len(servers),
		"first_server": ServerInfoToURL(servers[0]),
	})
	return servers, nil
}

// Get retrieves an idle connection or dials a new one.
func (p *connectionPool) Get(ctx context.Context) (*PooledConnection, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, errors.New("connection pool is closed")
	}

	for {
		select {
		case conn := <-p.connections:
			if !p.isConnectionHealthy(conn) {
				p.closeConnection(conn)
				continue
			}
			if p.config.HasAuthentication() && p.needsReAuthentication(conn) {
				if err := p.authenticateConnection(ctx, conn); err != nil {
					tflog.SubsystemDebug(p.ctx, "ldap", "Re-authentication of pooled connection failed", map[string]any{
						"error": err.Error(),
					})
					p.closeConnection(conn)
					continue
				}
			}
			conn.lastUsed = time.Now()
			atomic.AddInt64(&p.activeConns, 1)
			return conn, nil
		default:
			return p.createConnection(ctx)
		}
	}
}

// createConnection tries every server, repeating with backoff up to MaxRetries.
func (p *connectionPool) createConnection(ctx context.Context) (*PooledConnection, error) {
	var lastErr error
	backoff := p.config.InitialBackoff

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		for _, server := range p.servers {
			conn, err := p.createSingleConnection(ctx, server)
			if err != nil {
				lastErr = err
				atomic.AddInt64(&p.totalErrors, 1)
				continue
			}

			atomic.AddInt64(&p.totalCreated, 1)
			atomic.AddInt64(&p.activeConns, 1)
			return conn, nil
		}

		if attempt < p.config.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff = min(time.Duration(float64(backoff)*p.config.BackoffFactor), p.config.MaxBackoff)
			}
		}
	}

	return nil, NewConnectionError("failed to create connection", true, lastErr)
}

func (p *connectionPool) createSingleConnection(ctx context.Context, server *ServerInfo) (*PooledConnection, error) {
	conn, err := p.dial(ctx, server)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", ServerInfoToURL(server), err)
	}

	pooled := &PooledConnection{
		conn:         conn,
		serverInfo:   server,
		lastUsed:     time.Now(),
		healthy:      true,
		returnToPool: p.returnConnection,
	}

	if p.config.HasAuthentication() {
		if err := p.authenticateConnection(ctx, pooled); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to authenticate connection to %s: %w", ServerInfoToURL(server), err)
		}
	}

	return pooled, nil
}

func (p *connectionPool) authenticateConnection(ctx context.Context, pooled *PooledConnection) error {
	if pooled == nil || pooled.conn == nil {
		return errors.New("connection is nil")
	}

	if err := p.auth(ctx, pooled.conn, pooled.serverInfo); err != nil {
		pooled.authenticated = false
		pooled.authTime = time.Time{}
		return err
	}

	pooled.authenticated = true
	pooled.authTime = time.Now()
	return nil
}

func (p *connectionPool) needsReAuthentication(conn *PooledConnection) bool {
	return !conn.authenticated || time.Since(conn.authTime) > reauthAfter
}

func (p *connectionPool) returnConnection(conn *PooledConnection) {
	if conn == nil {
		return
	}

	atomic.AddInt64(&p.activeConns, -1)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || !p.isConnectionHealthy(conn) {
		p.closeConnection(conn)
		return
	}

	select {
	case p.connections <- conn:
	default:
		p.closeConnection(conn)
	}
}

func (p *connectionPool) isConnectionHealthy(conn *PooledConnection) bool {
	if conn == nil || conn.conn == nil || !conn.healthy || conn.conn.IsClosing() {
		return false
	}
	return time.Since(conn.lastUsed) <= p.config.MaxIdleTime
}

func (p *connectionPool) closeConnection(conn *PooledConnection) {
	if conn != nil && conn.conn != nil {
		_ = conn.conn.Close()
		conn.healthy = false
		conn.authenticated = false
	}
}

// Close closes all idle connections and stops the health checker.
func (p *connectionPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.healthTicker != nil {
		close(p.healthStop)
		p.healthWg.Wait()
		p.healthTicker.Stop()
	}

	close(p.connections)
	for conn := range p.connections {
		p.closeConnection(conn)
	}

	LogPoolEvent(p.ctx, "pool_closed", map[string]any{
		"created": atomic.LoadInt64(&p.totalCreated),
		"errors":  atomic.LoadInt64(&p.totalErrors),
	})
	return nil
}

func (p *connectionPool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	idle := len(p.connections)
	active := atomic.LoadInt64(&p.activeConns)
	return PoolStats{
		Total:   idle + int(active),
		Active:  active,
		Idle:    idle,
		Created: atomic.LoadInt64(&p.totalCreated),
		Errors:  atomic.LoadInt64(&p.totalErrors),
		Uptime:  time.Since(p.startTime),
	}
}

func (p *connectionPool) startHealthChecker() {
	p.healthTicker = time.NewTicker(p.config.HealthCheck)

	p.healthWg.Add(1)
	go func() {
		defer p.healthWg.Done()
		for {
			select {
			case <-p.healthTicker.C:
				p.performHealthCheck()
			case <-p.healthStop:
				return
			}
		}
	}()
}

// performHealthCheck probes up to three idle connections.
func (p *connectionPool) performHealthCheck() {
	var toCheck []*PooledConnection

collect:
	for range 3 {
		select {
		case conn, ok := <-p.connections:
			if !ok {
				return
			}
			toCheck = append(toCheck, conn)
		default:
			break collect
		}
	}

	for _, conn := range toCheck {
		atomic.AddInt64(&p.activeConns, 1)
		if err := pingConn(conn.conn); err != nil {
			conn.healthy = false
		}
		p.returnConnection(conn)
	}
}

func validateConfig(config *ConnectionConfig) error {
	if config.MaxConnections <= 0 {
		return errors.New("MaxConnections must be positive")
	}
	if config.MaxConnections > MaxConnectionPoolLimit {
		return fmt.Errorf("MaxConnections too high (max %d)", MaxConnectionPoolLimit)
	}
	if config.MaxIdleTime <= 0 {
		return errors.New("MaxIdleTime must be positive")
	}
	if config.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if config.MaxRetries < 0 {
		return errors.New("MaxRetries cannot be negative")
	}
	if config.MaxRetries > 0 && config.BackoffFactor <= 1.0 {
		return errors.New("BackoffFactor must be greater than 1.0")
	}
	return nil
}

// dialServer returns the production dialer: LDAPS directly, or plain LDAP
// upgraded with StartTLS unless TLS is skipped.
func dialServer(config *ConnectionConfig) dialFunc {
	return func(_ context.Context, server *ServerInfo) (ldap.Client, error) {
		url := ServerInfoToURL(server)

		var conn *ldap.Conn
		var err error
		if server.UseTLS {
			conn, err = ldap.DialURL(url, ldap.DialWithTLSConfig(config.TLSConfig))
		} else {
			conn, err = ldap.DialURL(url)
			if err == nil && config.UseTLS && !config.SkipTLS {
				if tlsErr := conn.StartTLS(config.TLSConfig); tlsErr != nil {
					conn.Close()
					return nil, fmt.Errorf("StartTLS failed: %w", tlsErr)
				}
			}
		}
		if err != nil {
			return nil, err
		}

		conn.SetTimeout(config.Timeout)
		return conn, nil
	}
}

// bindConnection returns the production authenticator.
func bindConnection(config *ConnectionConfig) authFunc {
	return func(ctx context.Context, conn ldap.Client, server *ServerInfo) error {
		switch config.GetAuthMethod() {
		case AuthMethodKerberos:
			raw, ok := conn.(*ldap.Conn)
			if !ok {
				return fmt.Errorf("kerberos bind requires a network connection, got %T", conn)
			}
			return performKerberosAuth(ctx, raw, config, server)
		default:
			if config.Username == "" {
				return errors.New("username is required for simple bind authentication")
			}
			if err := conn.Bind(config.Username, config.Password); err != nil {
				LogLDAPError(ctx, "ldap", "simple_bind", err, map[string]any{"username": config.Username})
				return err
			}
			return nil
		}
	}
}

func pingConn(conn ldap.Client) error {
	_, err := conn.Search(ldap.NewSearchRequest(
		"",
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		1, 5, false,
		"(objectClass=*)",
		[]string{"defaultNamingContext"},
		nil,
	))
	return err
}
