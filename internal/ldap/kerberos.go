package ldap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
	krb5config "github.com/jcmturner/gokrb5/v8/config"
)

const defaultKrb5Conf = "/etc/krb5.conf"

// kerberosSettings is the resolved view of the Kerberos part of a
// ConnectionConfig; resolving never mutates the shared configuration.
type kerberosSettings struct {
	principal  string
	realm      string
	password   string
	keytab     string
	ccache     string
	krb5conf   string
	spn        string
	ccacheFrom string
}

func resolveKerberosSettings(cfg *ConnectionConfig) (*kerberosSettings, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	s := &kerberosSettings{
		principal: cfg.Username,
		realm:     cfg.KerberosRealm,
		password:  cfg.Password,
		keytab:    cfg.KerberosKeytab,
		ccache:    cfg.KerberosCCache,
		krb5conf:  cfg.KerberosConfig,
		spn:       cfg.KerberosSPN,
	}
	if s.krb5conf == "" {
		s.krb5conf = defaultKrb5Conf
	}

	if user, realm, ok := strings.Cut(s.principal, "@"); ok {
		s.principal = user
		if s.realm == "" {
			s.realm = realm
		}
	}

	if s.realm == "" && cfg.Domain != "" {
		s.realm = strings.ToUpper(cfg.Domain)
	}

	if s.realm == "" {
		return nil, fmt.Errorf("kerberos realm is required (set kerberos_realm, domain or include realm in username)")
	}

	switch {
	case s.ccache != "" && fileExists(s.ccache):
		s.ccacheFrom = "explicit"
	case fileExists(defaultCCachePath()):
		s.ccache = defaultCCachePath()
		s.ccacheFrom = "default"
	default:
		s.ccache = ""
	}

	if s.ccache == "" && s.principal == "" {
		return nil, fmt.Errorf("username (principal) is required for Kerberos authentication")
	}

	if s.ccache == "" && !(s.keytab != "" && fileExists(s.keytab)) && s.password == "" {
		return nil, fmt.Errorf("no suitable Kerberos credentials found: provide kerberos_ccache, kerberos_keytab or password")
	}

	return s, nil
}

// performKerberosAuth performs a GSSAPI bind on conn.
func performKerberosAuth(ctx context.Context, conn *ldap.Conn, cfg *ConnectionConfig, server *ServerInfo) error {
	settings, err := resolveKerberosSettings(cfg)
	if err != nil {
		return fmt.Errorf("kerberos configuration error: %w", err)
	}

	gssapiClient, err := newGSSAPIClient(settings)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}
	defer func() {
		_ = gssapiClient.DeleteSecContext()
	}()

	spn, err := buildServicePrincipal(settings.spn, server)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	LogKerberosEvent(ctx, "gssapi_bind", map[string]any{
		"realm":       settings.realm,
		"spn":         spn,
		"ccache_from": settings.ccacheFrom,
	})

	if err := conn.GSSAPIBind(gssapiClient, spn, ""); err != nil {
		return fmt.Errorf("GSSAPI bind failed: %w", err)
	}
	return nil
}

// newGSSAPIClient prefers a credential cache, then a keytab, then a password.
func newGSSAPIClient(s *kerberosSettings) (*gssapi.Client, error) {
	if !fileExists(s.krb5conf) {
		return nil, fmt.Errorf("kerberos configuration file not found at %s", s.krb5conf)
	}
	if _, err := krb5config.Load(s.krb5conf); err != nil {
		return nil, fmt.Errorf("invalid kerberos configuration %s: %w", s.krb5conf, err)
	}

	disableFAST := krb5client.DisablePAFXFAST(true)

	switch {
	case s.ccache != "":
		return gssapi.NewClientFromCCache(s.ccache, s.krb5conf, disableFAST)
	case s.keytab != "" && fileExists(s.keytab):
		return gssapi.NewClientWithKeytab(s.principal, s.realm, s.keytab, s.krb5conf, disableFAST)
	case s.password != "":
		return gssapi.NewClientWithPassword(s.principal, s.realm, s.password, s.krb5conf, disableFAST)
	}
	return nil, fmt.Errorf("no suitable credentials found for Kerberos authentication")
}

// buildServicePrincipal returns override when set, else ldap/<host>.
func buildServicePrincipal(override string, server *ServerInfo) (string, error) {
	if override != "" {
		return override, nil
	}
	if server == nil || server.Host == "" {
		return "", fmt.Errorf("hostname is required for service principal")
	}
	return "ldap/" + server.Host, nil
}

func defaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
