package provider

import (
	"context"
	"time"

	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/listvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/providervalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/function"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/provider/validators"
	"github.com/isometry/terraform-provider-dccon/internal/sambatool"
)

var _ provider.Provider = &DcconProvider{}
var _ provider.ProviderWithFunctions = &DcconProvider{}
var _ provider.ProviderWithConfigValidators = &DcconProvider{}

// DcconProvider defines the provider implementation.
type DcconProvider struct {
	// version is set to the provider version on release, "dev" when the
	// provider is built and ran locally, and "test" when running acceptance
	// testing.
	version string
}

// DcconProviderModel describes the provider data model.
type DcconProviderModel struct {
	// Directory connection
	Domain   types.String `tfsdk:"domain"`
	LdapURL  types.String `tfsdk:"ldap_url"`
	Username types.String `tfsdk:"username"`
	Password types.String `tfsdk:"password"`

	KerberosRealm  types.String `tfsdk:"kerberos_realm"`
	KerberosKeytab types.String `tfsdk:"kerberos_keytab"`
	KerberosConfig types.String `tfsdk:"kerberos_config"`
	KerberosCCache types.String `tfsdk:"kerberos_ccache"`
	KerberosSPN    types.String `tfsdk:"kerberos_spn"`

	UseTLS        types.Bool   `tfsdk:"use_tls"`
	SkipTLSVerify types.Bool   `tfsdk:"skip_tls_verify"`
	TLSCACertFile types.String `tfsdk:"tls_ca_cert_file"`

	MaxConnections types.Int64 `tfsdk:"max_connections"`
	MaxIdleTime    types.Int64 `tfsdk:"max_idle_time"`
	ConnectTimeout types.Int64 `tfsdk:"connect_timeout"`
	MaxRetries     types.Int64 `tfsdk:"max_retries"`
	InitialBackoff types.Int64 `tfsdk:"initial_backoff"`
	MaxBackoff     types.Int64 `tfsdk:"max_backoff"`

	// Directory layout
	GroupBaseDN        types.String `tfsdk:"group_base_dn"`
	GroupFindAllFilter types.String `tfsdk:"group_find_all_filter"`
	GroupFindOneFilter types.String `tfsdk:"group_find_one_filter"`
	UserBaseDN         types.String `tfsdk:"user_base_dn"`
	UserFindAllFilter  types.String `tfsdk:"user_find_all_filter"`
	UserFindOneFilter  types.String `tfsdk:"user_find_one_filter"`

	// samba-tool
	SambaToolBinary       types.String `tfsdk:"samba_tool_binary"`
	UseSudo               types.Bool   `tfsdk:"use_sudo"`
	SudoBinary            types.String `tfsdk:"sudo_binary"`
	KinitBinary           types.String `tfsdk:"kinit_binary"`
	KinitAdministrator    types.String `tfsdk:"kinit_administrator"`
	KinitPasswordFile     types.String `tfsdk:"kinit_password_file"`
	NameServer            types.String `tfsdk:"name_server"`
	ExecDir               types.String `tfsdk:"exec_dir"`
	LoginShell            types.String `tfsdk:"login_shell"`
	HomeDirectoryTemplate types.String `tfsdk:"home_directory_template"`
	UnixHomeTemplate      types.String `tfsdk:"unix_home_template"`
	CommandTimeout        types.Int64  `tfsdk:"command_timeout"`

	// DNS classification
	ReverseZoneSuffixes    types.List `tfsdk:"reverse_zone_suffixes"`
	ExcludedZonePatterns   types.List `tfsdk:"excluded_zone_patterns"`
	ExcludedRecordPatterns types.List `tfsdk:"excluded_record_patterns"`
}

func (p *DcconProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "dccon"
	resp.Version = p.version
}

func (p *DcconProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "The dccon provider manages users, groups and DNS records on a Samba domain controller. " +
			"Directory reads and membership changes go through LDAP; accounts, zones and records are created with `samba-tool`.",
		Attributes: map[string]schema.Attribute{
			"domain": schema.StringAttribute{
				MarkdownDescription: "Domain name for SRV-based domain controller discovery (e.g., `example.org`). " +
					"Mutually exclusive with `ldap_url`. Can be set via the `DCCON_DOMAIN` environment variable.",
				Optional:   true,
				Validators: []validator.String{stringvalidator.LengthAtLeast(1)},
			},
			"ldap_url": schema.StringAttribute{
				MarkdownDescription: "Direct LDAP/LDAPS URL (e.g., `ldaps://dc1.example.org:636`). " +
					"Mutually exclusive with `domain`. Can be set via the `DCCON_LDAP_URL` environment variable.",
				Optional:   true,
				Validators: []validator.String{stringvalidator.LengthAtLeast(1)},
			},
			"username": schema.StringAttribute{
				MarkdownDescription: "Bind user (DN, UPN or account name). Can be set via the `DCCON_USERNAME` environment variable.",
				Optional:            true,
			},
			"password": schema.StringAttribute{
				MarkdownDescription: "Bind password. Can be set via the `DCCON_PASSWORD` environment variable.",
				Optional:            true,
				Sensitive:           true,
			},

			"kerberos_realm": schema.StringAttribute{
				MarkdownDescription: "Kerberos realm for GSSAPI binds. Defaults to the upper-cased `domain`. " +
					"Can be set via the `DCCON_KERBEROS_REALM` environment variable.",
				Optional: true,
			},
			"kerberos_keytab": schema.StringAttribute{
				MarkdownDescription: "Path to a Kerberos keytab. Can be set via the `DCCON_KERBEROS_KEYTAB` environment variable.",
				Optional:            true,
			},
			"kerberos_config": schema.StringAttribute{
				MarkdownDescription: "Path to krb5.conf. Can be set via the `DCCON_KERBEROS_CONFIG` environment variable.",
				Optional:            true,
			},
			"kerberos_ccache": schema.StringAttribute{
				MarkdownDescription: "Path to a Kerberos credential cache. Can be set via the `DCCON_KERBEROS_CCACHE` environment variable.",
				Optional:            true,
			},
			"kerberos_spn": schema.StringAttribute{
				MarkdownDescription: "Service principal override, e.g. `ldap/dc1.example.org`. " +
					"Can be set via the `DCCON_KERBEROS_SPN` environment variable.",
				Optional: true,
			},

			"use_tls": schema.BoolAttribute{
				MarkdownDescription: "Require LDAPS or StartTLS. Defaults to `true`. Can be set via the `DCCON_USE_TLS` environment variable.",
				Optional:            true,
			},
			"skip_tls_verify": schema.BoolAttribute{
				MarkdownDescription: "Skip certificate verification. Defaults to `false`. " +
					"Can be set via the `DCCON_SKIP_TLS_VERIFY` environment variable.",
				Optional: true,
			},
			"tls_ca_cert_file": schema.StringAttribute{
				MarkdownDescription: "PEM file with additional CA certificates. Can be set via the `DCCON_TLS_CA_CERT_FILE` environment variable.",
				Optional:            true,
			},

			"max_connections": schema.Int64Attribute{
				MarkdownDescription: "Maximum pooled connections. Defaults to `10`. Can be set via the `DCCON_MAX_CONNECTIONS` environment variable.",
				Optional:            true,
				Validators:          []validator.Int64{int64validator.Between(1, ldap.MaxConnectionPoolLimit)},
			},
			"max_idle_time": schema.Int64Attribute{
				MarkdownDescription: "Idle connection lifetime in seconds. Defaults to `300`. Can be set via the `DCCON_MAX_IDLE_TIME` environment variable.",
				Optional:            true,
			},
			"connect_timeout": schema.Int64Attribute{
				MarkdownDescription: "Connection timeout in seconds. Defaults to `30`. Can be set via the `DCCON_CONNECT_TIMEOUT` environment variable.",
				Optional:            true,
			},
			"max_retries": schema.Int64Attribute{
				MarkdownDescription: "Retries for failed directory operations. Defaults to `0`. " +
					"Can be set via the `DCCON_MAX_RETRIES` environment variable.",
				Optional:   true,
				Validators: []validator.Int64{int64validator.AtLeast(0)},
			},
			"initial_backoff": schema.Int64Attribute{
				MarkdownDescription: "First retry delay in milliseconds. Defaults to `500`. Can be set via the `DCCON_INITIAL_BACKOFF` environment variable.",
				Optional:            true,
			},
			"max_backoff": schema.Int64Attribute{
				MarkdownDescription: "Maximum retry delay in seconds. Defaults to `30`. Can be set via the `DCCON_MAX_BACKOFF` environment variable.",
				Optional:            true,
			},

			"group_base_dn": schema.StringAttribute{
				MarkdownDescription: "Container holding the managed groups (e.g., `cn=Users,dc=example,dc=org`). " +
					"Can be set via the `DCCON_GROUP_BASE_DN` environment variable.",
				Optional:   true,
				Validators: []validator.String{validators.IsValidDN()},
			},
			"group_find_all_filter": schema.StringAttribute{
				MarkdownDescription: "Filter listing groups. Defaults to `(objectClass=group)`.",
				Optional:            true,
			},
			"group_find_one_filter": schema.StringAttribute{
				MarkdownDescription: "Filter finding one group; `{0}` is replaced by the escaped name. " +
					"Defaults to `(&(objectClass=group)(sAMAccountName={0}))`.",
				Optional: true,
			},
			"user_base_dn": schema.StringAttribute{
				MarkdownDescription: "Container holding the managed users. Can be set via the `DCCON_USER_BASE_DN` environment variable.",
				Optional:            true,
				Validators:          []validator.String{validators.IsValidDN()},
			},
			"user_find_all_filter": schema.StringAttribute{
				MarkdownDescription: "Filter listing users. Defaults to `(objectClass=user)`.",
				Optional:            true,
			},
			"user_find_one_filter": schema.StringAttribute{
				MarkdownDescription: "Filter finding one user; `{0}` is replaced by the escaped name. " +
					"Defaults to `(&(objectClass=user)(sAMAccountName={0}))`.",
				Optional: true,
			},

			"samba_tool_binary": schema.StringAttribute{
				MarkdownDescription: "Path of samba-tool. Defaults to `/usr/bin/samba-tool`. Can be set via the `DCCON_SAMBA_TOOL_BINARY` environment variable.",
				Optional:            true,
			},
			"use_sudo": schema.BoolAttribute{
				MarkdownDescription: "Run samba-tool and kinit through sudo. Defaults to `true`. Can be set via the `DCCON_USE_SUDO` environment variable.",
				Optional:            true,
			},
			"sudo_binary": schema.StringAttribute{
				MarkdownDescription: "Path of sudo. Defaults to `/usr/bin/sudo`.",
				Optional:            true,
			},
			"kinit_binary": schema.StringAttribute{
				MarkdownDescription: "Path of kinit, run before every DNS command. Defaults to `/usr/bin/kinit`. " +
					"Set to an empty string to skip Kerberos initialization.",
				Optional: true,
			},
			"kinit_administrator": schema.StringAttribute{
				MarkdownDescription: "Principal passed to kinit. Defaults to `Administrator`. Can be set via the `DCCON_KINIT_ADMINISTRATOR` environment variable.",
				Optional:            true,
			},
			"kinit_password_file": schema.StringAttribute{
				MarkdownDescription: "Password file passed to kinit. Defaults to `/var/lib/dc-con/dc-pass.txt`. " +
					"Can be set via the `DCCON_KINIT_PASSWORD_FILE` environment variable.",
				Optional: true,
			},
			"name_server": schema.StringAttribute{
				MarkdownDescription: "DNS server samba-tool talks to. Defaults to `ns.example.org`. Can be set via the `DCCON_NAME_SERVER` environment variable.",
				Optional:            true,
				Validators:          []validator.String{validators.IsDomainName()},
			},
			"exec_dir": schema.StringAttribute{
				MarkdownDescription: "Working directory of samba-tool processes. Defaults to `/tmp`.",
				Optional:            true,
			},
			"login_shell": schema.StringAttribute{
				MarkdownDescription: "Login shell of created users. Defaults to `/bin/bash`.",
				Optional:            true,
			},
			"home_directory_template": schema.StringAttribute{
				MarkdownDescription: "Windows home directory of created users; `{}` is replaced by the user name. Defaults to `\\\\data\\users\\{}`.",
				Optional:            true,
			},
			"unix_home_template": schema.StringAttribute{
				MarkdownDescription: "Unix home directory of created users; `{}` is replaced by the user name. Defaults to `/home/{}`.",
				Optional:            true,
			},
			"command_timeout": schema.Int64Attribute{
				MarkdownDescription: "Timeout of one samba-tool invocation in seconds. Defaults to `60`. " +
					"Can be set via the `DCCON_COMMAND_TIMEOUT` environment variable.",
				Optional:   true,
				Validators: []validator.Int64{int64validator.AtLeast(1)},
			},

			"reverse_zone_suffixes": schema.ListAttribute{
				MarkdownDescription: "Suffixes marking reverse zones. Defaults to `.in-addr.arpa` and `.ip6.arpa`. " +
					"Can be set via the comma separated `DCCON_REVERSE_ZONE_SUFFIXES` environment variable.",
				ElementType: types.StringType,
				Optional:    true,
				Validators:  []validator.List{listvalidator.ValueStringsAre(stringvalidator.LengthAtLeast(1))},
			},
			"excluded_zone_patterns": schema.ListAttribute{
				MarkdownDescription: "Regular expressions of zones hidden from listings. Defaults to `^_msdcs\\..*$`. " +
					"An empty list hides nothing.",
				ElementType: types.StringType,
				Optional:    true,
			},
			"excluded_record_patterns": schema.ListAttribute{
				MarkdownDescription: "Regular expressions of record names hidden from listings. " +
					"Defaults hide the zone apex and the Active Directory service records. An empty list hides nothing.",
				ElementType: types.StringType,
				Optional:    true,
			},
		},
	}
}

// ConfigValidators implements provider.ProviderWithConfigValidators.
func (p *DcconProvider) ConfigValidators(ctx context.Context) []provider.ConfigValidator {
	return []provider.ConfigValidator{
		providervalidator.Conflicting(
			path.MatchRoot("domain"),
			path.MatchRoot("ldap_url"),
		),
		providervalidator.Conflicting(
			path.MatchRoot("kerberos_keytab"),
			path.MatchRoot("kerberos_ccache"),
		),
	}
}

func (p *DcconProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var data DcconProviderModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	ctx = initializeLogging(ctx)
	ctx = tflog.SetField(ctx, "provider_version", p.version)

	tflog.Info(ctx, "Configuring dccon provider")

	ldapConfig := p.buildLDAPConfig(ctx, &data, &resp.Diagnostics)
	dirConfig := p.buildDirectoryConfig(&data, &resp.Diagnostics)
	toolConfig := p.buildToolConfig(&data, &resp.Diagnostics)
	dnsConfig := p.buildDNSConfig(ctx, &data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	tool, err := sambatool.New(toolConfig, nil)
	if err != nil {
		resp.Diagnostics.AddError(
			"Invalid samba-tool Configuration",
			"The samba-tool settings are incomplete.\n\n"+err.Error(),
		)
		return
	}

	start := time.Now()
	client, err := ldap.NewClient(ctx, ldapConfig)
	if err != nil {
		tflog.Error(ctx, "Failed to create LDAP client", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		resp.Diagnostics.AddError(
			"Unable to Create LDAP Client",
			"An unexpected error occurred when creating the LDAP client.\n\n"+
				"LDAP Client Error: "+err.Error(),
		)
		return
	}

	start = time.Now()
	if err := client.Ping(ctx); err != nil {
		tflog.Error(ctx, "Connection test failed", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		_ = client.Close()
		resp.Diagnostics.AddError(
			"Unable to Connect to the Domain Controller",
			"The provider could not bind to the directory. "+
				"Please verify the connection and authentication settings.\n\n"+
				"Connection Error: "+err.Error(),
		)
		return
	}

	tflog.Info(ctx, "dccon provider configured", map[string]any{
		"duration_ms":   time.Since(start).Milliseconds(),
		"group_base_dn": dirConfig.GroupBaseDN,
		"user_base_dn":  dirConfig.UserBaseDN,
		"name_server":   toolConfig.NameServer,
	})

	providerData := &ProviderData{
		Service: connector.New(client, tool, dirConfig, dnsConfig),
	}
	resp.DataSourceData = providerData
	resp.ResourceData = providerData
}

func (p *DcconProvider) Resources(ctx context.Context) []func() resource.Resource {
	return []func() resource.Resource{
		NewGroupResource,
		NewUserResource,
		NewUserGroupsResource,
		NewDNSZoneResource,
		NewDNSRecordResource,
	}
}

func (p *DcconProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewGroupDataSource,
		NewGroupsDataSource,
		NewUserDataSource,
		NewUsersDataSource,
		NewDNSZonesDataSource,
		NewDNSRecordsDataSource,
	}
}

func (p *DcconProvider) Functions(ctx context.Context) []func() function.Function {
	return []func() function.Function{
		NewReverseLabelFunction,
		NewReverseIPFunction,
	}
}

func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &DcconProvider{
			version: version,
		}
	}
}
