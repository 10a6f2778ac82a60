package provider

import (
	"context"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/provider/helpers"
	customtypes "github.com/isometry/terraform-provider-dccon/internal/provider/types"
)

var _ datasource.DataSource = &UserDataSource{}

func NewUserDataSource() datasource.DataSource {
	return &UserDataSource{}
}

// UserDataSource looks up a single user by name.
type UserDataSource struct {
	svc *connector.Service
}

// UserDataSourceModel describes the data source data model.
type UserDataSourceModel struct {
	ID                   types.String              `tfsdk:"id"`
	Name                 types.String              `tfsdk:"name"`
	DistinguishedName    customtypes.DNStringValue `tfsdk:"dn"`
	GUID                 types.String              `tfsdk:"guid"`
	SID                  types.String              `tfsdk:"sid"`
	DisplayName          types.String              `tfsdk:"display_name"`
	Gecos                types.String              `tfsdk:"gecos"`
	Email                types.String              `tfsdk:"email"`
	TelephoneNumber      types.String              `tfsdk:"telephone_number"`
	Mobile               types.String              `tfsdk:"mobile"`
	LoginShell           types.String              `tfsdk:"login_shell"`
	HomeDirectory        types.String              `tfsdk:"home_directory"`
	UnixHomeDirectory    types.String              `tfsdk:"unix_home_directory"`
	Enabled              types.Bool                `tfsdk:"enabled"`
	PasswordNeverExpires types.Bool                `tfsdk:"password_never_expires"`
	UserAccountControl   types.Int64               `tfsdk:"user_account_control"`
	PasswordLastSet      types.String              `tfsdk:"password_last_set"`
	LastLogon            types.String              `tfsdk:"last_logon"`
	Created              types.String              `tfsdk:"created"`
	Modified             types.String              `tfsdk:"modified"`
	Groups               types.Set                 `tfsdk:"groups"`
}

func (d *UserDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_user"
}

func (d *UserDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	computed := func(description string) schema.StringAttribute {
		return schema.StringAttribute{MarkdownDescription: description, Computed: true}
	}

	resp.Schema = schema.Schema{
		MarkdownDescription: "Retrieves a domain user, its profile and account state, and the groups it belongs to.",

		Attributes: map[string]schema.Attribute{
			"name": schema.StringAttribute{
				MarkdownDescription: "The account name of the user (`sAMAccountName`).",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"id": computed("The user name as stored in the directory."),
			"dn": schema.StringAttribute{
				MarkdownDescription: "The distinguished name of the user.",
				Computed:            true,
				CustomType:          customtypes.DNStringType{},
			},
			"guid":                computed("The objectGUID of the user."),
			"sid":                 computed("The Security Identifier (SID) of the user."),
			"display_name":        computed("The display name."),
			"gecos":               computed("The GECOS field."),
			"email":               computed("The e-mail address."),
			"telephone_number":    computed("The telephone number."),
			"mobile":              computed("The mobile number."),
			"login_shell":         computed("The login shell."),
			"home_directory":      computed("The Windows home directory."),
			"unix_home_directory": computed("The Unix home directory."),
			"enabled": schema.BoolAttribute{
				MarkdownDescription: "Whether the account is enabled.",
				Computed:            true,
			},
			"password_never_expires": schema.BoolAttribute{
				MarkdownDescription: "Whether the password never expires.",
				Computed:            true,
			},
			"user_account_control": schema.Int64Attribute{
				MarkdownDescription: "The raw `userAccountControl` flags.",
				Computed:            true,
			},
			"password_last_set": computed("When the password was last set (RFC 3339)."),
			"last_logon":        computed("The last logon seen by the queried domain controller (RFC 3339)."),
			"created":           computed("When the user was created (RFC 3339)."),
			"modified":          computed("When the user was last changed (RFC 3339)."),
			"groups": schema.SetAttribute{
				MarkdownDescription: "The names of the groups the user is a direct member of.",
				ElementType:         types.StringType,
				Computed:            true,
			},
		},
	}
}

func (d *UserDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.svc = serviceFromProviderData(req.ProviderData, &resp.Diagnostics)
}

func (d *UserDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data UserDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "data_source", "dccon_user", "read", map[string]any{
		"name": data.Name.ValueString(),
	}, &resp.Diagnostics)()

	user, err := d.svc.GetUser(ctx, strings.TrimSpace(data.Name.ValueString()))
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Reading User", err)
		return
	}

	mapUserToModel(ctx, user, &data, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func mapUserToModel(ctx context.Context, user *ldap.User, data *UserDataSourceModel, diags *diag.Diagnostics) {
	data.ID = types.StringValue(user.Name)
	data.DistinguishedName = customtypes.DNString(user.DN)
	data.GUID = helpers.StringOrNull(user.GUID)
	data.SID = helpers.StringOrNull(user.SID)
	data.DisplayName = helpers.StringOrNull(user.DisplayName)
	data.Gecos = helpers.StringOrNull(user.Gecos)
	data.Email = helpers.StringOrNull(user.Email)
	data.TelephoneNumber = helpers.StringOrNull(user.TelephoneNumber)
	data.Mobile = helpers.StringOrNull(user.Mobile)
	data.LoginShell = helpers.StringOrNull(user.LoginShell)
	data.HomeDirectory = helpers.StringOrNull(user.HomeDirectory)
	data.UnixHomeDirectory = helpers.StringOrNull(user.UnixHomeDirectory)
	data.Enabled = types.BoolValue(user.Enabled)
	data.PasswordNeverExpires = types.BoolValue(user.PasswordNeverExpires)
	data.UserAccountControl = types.Int64Value(user.UserAccountControl)
	data.PasswordLastSet = helpers.TimeOrNull(user.PasswordLastSet)
	data.LastLogon = helpers.TimeOrNull(user.LastLogon)
	data.Created = helpers.TimeOrNull(user.Created)
	data.Modified = helpers.TimeOrNull(user.Modified)
	data.Groups = helpers.StringsToSet(ctx, connector.Names(user.Groups), diags)
}
