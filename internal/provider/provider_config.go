package provider

import (
	"context"
	"crypto/x509"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/isometry/terraform-provider-dccon/internal/dns"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/sambatool"
)

// envPrefix prefixes every environment fallback of the provider block.
const envPrefix = "DCCON_"

// buildLDAPConfig constructs the directory client configuration from the
// provider block and DCCON_* environment variables.
func (p *DcconProvider) buildLDAPConfig(ctx context.Context, data *DcconProviderModel, diags *diag.Diagnostics) *ldap.ConnectionConfig {
	config := ldap.DefaultConfig()

	config.Domain = p.getStringValue(data.Domain, envPrefix+"DOMAIN")
	if ldapURL := p.getStringValue(data.LdapURL, envPrefix+"LDAP_URL"); ldapURL != "" {
		config.LDAPURLs = []string{ldapURL}
	}
	if config.Domain == "" && len(config.LDAPURLs) == 0 {
		diags.AddError(
			"Missing Directory Connection",
			"Either 'domain' or 'ldap_url' must be configured, or DCCON_DOMAIN or DCCON_LDAP_URL must be set.",
		)
		return config
	}

	config.Username = p.getStringValue(data.Username, envPrefix+"USERNAME")
	config.Password = p.getStringValue(data.Password, envPrefix+"PASSWORD")
	config.KerberosRealm = p.getStringValue(data.KerberosRealm, envPrefix+"KERBEROS_REALM")
	config.KerberosKeytab = p.getStringValue(data.KerberosKeytab, envPrefix+"KERBEROS_KEYTAB")
	config.KerberosConfig = p.getStringValue(data.KerberosConfig, envPrefix+"KERBEROS_CONFIG")
	config.KerberosCCache = p.getStringValue(data.KerberosCCache, envPrefix+"KERBEROS_CCACHE")
	config.KerberosSPN = p.getStringValue(data.KerberosSPN, envPrefix+"KERBEROS_SPN")

	if !config.HasAuthentication() {
		diags.AddError(
			"Missing Authentication Configuration",
			"Either username/password authentication or Kerberos authentication must be configured. "+
				"For username/password: provide 'username' and 'password' or set DCCON_USERNAME and DCCON_PASSWORD. "+
				"For Kerberos: provide 'kerberos_realm' and one of 'username'/'password', 'kerberos_keytab' or 'kerberos_ccache'.",
		)
		return config
	}

	config.UseTLS = p.getBoolValue(data.UseTLS, envPrefix+"USE_TLS", true)
	if p.getBoolValue(data.SkipTLSVerify, envPrefix+"SKIP_TLS_VERIFY", false) {
		config.TLSConfig.InsecureSkipVerify = true
	}
	if caFile := p.getStringValue(data.TLSCACertFile, envPrefix+"TLS_CA_CERT_FILE"); caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			diags.AddAttributeError(path.Root("tls_ca_cert_file"), "Unreadable CA Certificate File", err.Error())
			return config
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			diags.AddAttributeError(path.Root("tls_ca_cert_file"), "Invalid CA Certificate File",
				"No PEM encoded certificate found in "+caFile)
			return config
		}
		config.TLSConfig.RootCAs = pool
	}

	if v := p.getInt64Value(data.MaxConnections, envPrefix+"MAX_CONNECTIONS", 10); v > 0 {
		config.MaxConnections = int(v)
	}
	if v := p.getInt64Value(data.MaxIdleTime, envPrefix+"MAX_IDLE_TIME", 300); v > 0 {
		config.MaxIdleTime = time.Duration(v) * time.Second
	}
	if v := p.getInt64Value(data.ConnectTimeout, envPrefix+"CONNECT_TIMEOUT", 30); v > 0 {
		config.Timeout = time.Duration(v) * time.Second
	}
	if v := p.getInt64Value(data.MaxRetries, envPrefix+"MAX_RETRIES", 0); v >= 0 {
		config.MaxRetries = int(v)
	}
	if v := p.getInt64Value(data.InitialBackoff, envPrefix+"INITIAL_BACKOFF", 500); v > 0 {
		config.InitialBackoff = time.Duration(v) * time.Millisecond
	}
	if v := p.getInt64Value(data.MaxBackoff, envPrefix+"MAX_BACKOFF", 30); v > 0 {
		config.MaxBackoff = time.Duration(v) * time.Second
	}

	return config
}

// buildDirectoryConfig resolves where groups and users live.
func (p *DcconProvider) buildDirectoryConfig(data *DcconProviderModel, diags *diag.Diagnostics) *ldap.DirectoryConfig {
	config := &ldap.DirectoryConfig{
		GroupBaseDN: p.getStringValue(data.GroupBaseDN, envPrefix+"GROUP_BASE_DN"),
		UserBaseDN:  p.getStringValue(data.UserBaseDN, envPrefix+"USER_BASE_DN"),
	}
	setString(&config.GroupFindAllFilter, data.GroupFindAllFilter, envPrefix+"GROUP_FIND_ALL_FILTER")
	setString(&config.GroupFindOneFilter, data.GroupFindOneFilter, envPrefix+"GROUP_FIND_ONE_FILTER")
	setString(&config.UserFindAllFilter, data.UserFindAllFilter, envPrefix+"USER_FIND_ALL_FILTER")
	setString(&config.UserFindOneFilter, data.UserFindOneFilter, envPrefix+"USER_FIND_ONE_FILTER")

	if err := config.ApplyDefaults(); err != nil {
		diags.AddError("Invalid Directory Layout", err.Error())
		return config
	}
	if err := config.Validate(); err != nil {
		diags.AddError(
			"Invalid Directory Layout",
			"'group_base_dn' and 'user_base_dn' (or DCCON_GROUP_BASE_DN and DCCON_USER_BASE_DN) must be valid DNs: "+err.Error(),
		)
	}
	return config
}

// buildToolConfig overlays the samba-tool settings on their defaults.
func (p *DcconProvider) buildToolConfig(data *DcconProviderModel, diags *diag.Diagnostics) *sambatool.Config {
	config := sambatool.DefaultConfig()

	setString(&config.SambaToolBinary, data.SambaToolBinary, envPrefix+"SAMBA_TOOL_BINARY")
	config.UseSudo = p.getBoolValue(data.UseSudo, envPrefix+"USE_SUDO", config.UseSudo)
	setString(&config.SudoBinary, data.SudoBinary, envPrefix+"SUDO_BINARY")
	setString(&config.KinitBinary, data.KinitBinary, envPrefix+"KINIT_BINARY")
	setString(&config.KinitAdministrator, data.KinitAdministrator, envPrefix+"KINIT_ADMINISTRATOR")
	setString(&config.KinitPasswordFile, data.KinitPasswordFile, envPrefix+"KINIT_PASSWORD_FILE")
	setString(&config.NameServer, data.NameServer, envPrefix+"NAME_SERVER")
	setString(&config.ExecDir, data.ExecDir, envPrefix+"EXEC_DIR")
	setString(&config.LoginShell, data.LoginShell, envPrefix+"LOGIN_SHELL")
	setString(&config.HomeDirectoryTemplate, data.HomeDirectoryTemplate, envPrefix+"HOME_DIRECTORY_TEMPLATE")
	setString(&config.UnixHomeTemplate, data.UnixHomeTemplate, envPrefix+"UNIX_HOME_TEMPLATE")

	if v := p.getInt64Value(data.CommandTimeout, envPrefix+"COMMAND_TIMEOUT", int64(config.Timeout/time.Second)); v > 0 {
		config.Timeout = time.Duration(v) * time.Second
	}

	if err := config.Validate(); err != nil {
		diags.AddError("Invalid samba-tool Configuration", err.Error())
	}
	return config
}

// buildDNSConfig compiles the zone and record classification rules.
func (p *DcconProvider) buildDNSConfig(ctx context.Context, data *DcconProviderModel, diags *diag.Diagnostics) *dns.Config {
	opts := dns.Options{
		ReverseZoneSuffixes:    p.getListValue(ctx, data.ReverseZoneSuffixes, envPrefix+"REVERSE_ZONE_SUFFIXES", diags),
		ExcludedZonePatterns:   p.getListValue(ctx, data.ExcludedZonePatterns, envPrefix+"EXCLUDED_ZONE_PATTERNS", diags),
		ExcludedRecordPatterns: p.getListValue(ctx, data.ExcludedRecordPatterns, envPrefix+"EXCLUDED_RECORD_PATTERNS", diags),
	}
	if diags.HasError() {
		return nil
	}

	config, err := dns.NewConfig(opts)
	if err != nil {
		diags.AddError("Invalid DNS Configuration", err.Error())
		return nil
	}
	return config
}

// Helper functions for configuration value resolution

func (p *DcconProvider) getStringValue(configValue types.String, envVar string) string {
	if !configValue.IsNull() && configValue.ValueString() != "" {
		return configValue.ValueString()
	}
	return os.Getenv(envVar)
}

func (p *DcconProvider) getBoolValue(configValue types.Bool, envVar string, defaultValue bool) bool {
	if !configValue.IsNull() {
		return configValue.ValueBool()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseBool(envValue); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *DcconProvider) getInt64Value(configValue types.Int64, envVar string, defaultValue int64) int64 {
	if !configValue.IsNull() {
		return configValue.ValueInt64()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseInt(envValue, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getListValue returns nil when neither the attribute nor the comma
// separated environment variable is set, leaving the default in place.
func (p *DcconProvider) getListValue(ctx context.Context, configValue types.List, envVar string, diags *diag.Diagnostics) []string {
	if !configValue.IsNull() && !configValue.IsUnknown() {
		values := []string{}
		diags.Append(configValue.ElementsAs(ctx, &values, false)...)
		return values
	}
	envValue, ok := os.LookupEnv(envVar)
	if !ok {
		return nil
	}
	values := []string{}
	for _, v := range strings.Split(envValue, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// setString overrides *target when the attribute or the environment variable
// is set. An explicit empty attribute clears the default.
func setString(target *string, configValue types.String, envVar string) {
	if !configValue.IsNull() && !configValue.IsUnknown() {
		*target = configValue.ValueString()
		return
	}
	if envValue, ok := os.LookupEnv(envVar); ok {
		*target = envValue
	}
}
