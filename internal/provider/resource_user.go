package provider

import (
	"context"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework-validators/setvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/booldefault"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/provider/helpers"
	"github.com/isometry/terraform-provider-dccon/internal/provider/planmodifiers"
	customtypes "github.com/isometry/terraform-provider-dccon/internal/provider/types"
)

var _ resource.Resource = &UserResource{}
var _ resource.ResourceWithImportState = &UserResource{}

// NewUserResource creates a new instance of the user resource.
func NewUserResource() resource.Resource {
	return &UserResource{}
}

// UserResource manages a user account, its profile attributes and optionally
// its group memberships.
type UserResource struct {
	svc *connector.Service
}

// UserResourceModel describes the resource data model.
type UserResourceModel struct {
	ID                   types.String              `tfsdk:"id"`
	Name                 types.String              `tfsdk:"name"`
	Password             types.String              `tfsdk:"password"`
	DisplayName          types.String              `tfsdk:"display_name"`
	Gecos                types.String              `tfsdk:"gecos"`
	Email                types.String              `tfsdk:"email"`
	TelephoneNumber      types.String              `tfsdk:"telephone_number"`
	Mobile               types.String              `tfsdk:"mobile"`
	Enabled              types.Bool                `tfsdk:"enabled"`
	PasswordNeverExpires types.Bool                `tfsdk:"password_never_expires"`
	Groups               types.Set                 `tfsdk:"groups"`
	DistinguishedName    customtypes.DNStringValue `tfsdk:"dn"`
	GUID                 types.String              `tfsdk:"guid"`
	SID                  types.String              `tfsdk:"sid"`
	LoginShell           types.String              `tfsdk:"login_shell"`
	HomeDirectory        types.String              `tfsdk:"home_directory"`
	UnixHomeDirectory    types.String              `tfsdk:"unix_home_directory"`
}

func (r *UserResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_user"
}

func (r *UserResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	computedString := func(description string) schema.StringAttribute {
		return schema.StringAttribute{
			MarkdownDescription: description,
			Computed:            true,
			PlanModifiers: []planmodifier.String{
				stringplanmodifier.UseStateForUnknown(),
			},
		}
	}
	optionalString := func(description string) schema.StringAttribute {
		return schema.StringAttribute{
			MarkdownDescription: description,
			Optional:            true,
			Validators: []validator.String{
				stringvalidator.LengthAtLeast(1),
			},
		}
	}

	resp.Schema = schema.Schema{
		MarkdownDescription: "Manages a domain user. The account is created with `samba-tool user create`, " +
			"which also sets the login shell and home directories; profile attributes are then written over LDAP. " +
			"Do not manage `groups` here and in `dccon_user_groups` for the same user.",

		Attributes: map[string]schema.Attribute{
			"id": computedString("The user name."),
			"name": schema.StringAttribute{
				MarkdownDescription: "The account name of the user (`sAMAccountName`). Changing it replaces the user.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthBetween(1, 20),
					stringvalidator.RegexMatches(accountNameRegex, "User name contains characters not allowed in account names"),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.RequiresReplace(),
				},
			},
			"password": schema.StringAttribute{
				MarkdownDescription: "The initial password. Changing it resets the password with `samba-tool user setpassword`. " +
					"The password cannot be read back, so drift is not detected.",
				Required:  true,
				Sensitive: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"display_name": schema.StringAttribute{
				MarkdownDescription: "The display name. Defaults to `name`.",
				Optional:            true,
				Computed:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
				PlanModifiers: []planmodifier.String{
					planmodifiers.UseAttributeWhenUnset("name"),
				},
			},
			"gecos":            optionalString("The GECOS field (`gecos`)."),
			"email":            optionalString("The e-mail address (`mail`)."),
			"telephone_number": optionalString("The telephone number (`telephoneNumber`)."),
			"mobile":           optionalString("The mobile number (`mobile`)."),
			"enabled": schema.BoolAttribute{
				MarkdownDescription: "Whether the account is enabled. Defaults to `true`.",
				Optional:            true,
				Computed:            true,
				Default:             booldefault.StaticBool(true),
			},
			"password_never_expires": schema.BoolAttribute{
				MarkdownDescription: "Whether the password never expires. Defaults to `false`.",
				Optional:            true,
				Computed:            true,
				Default:             booldefault.StaticBool(false),
			},
			"groups": schema.SetAttribute{
				MarkdownDescription: "Names of the groups the user belongs to. When set, the user is a member of exactly " +
					"these groups; when omitted, memberships are left alone.",
				ElementType: types.StringType,
				Optional:    true,
				Validators: []validator.Set{
					setvalidator.ValueStringsAre(stringvalidator.LengthAtLeast(1)),
				},
			},
			"dn": schema.StringAttribute{
				MarkdownDescription: "The distinguished name of the user.",
				Computed:            true,
				CustomType:          customtypes.DNStringType{},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"guid":                computedString("The objectGUID of the user."),
			"sid":                 computedString("The Security Identifier (SID) of the user."),
			"login_shell":         computedString("The login shell assigned at creation."),
			"home_directory":      computedString("The Windows home directory assigned at creation."),
			"unix_home_directory": computedString("The Unix home directory assigned at creation."),
		},
	}
}

func (r *UserResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	r.svc = serviceFromProviderData(req.ProviderData, &resp.Diagnostics)
}

func (r *UserResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data UserResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "resource", "dccon_user", "create", map[string]any{
		"name": data.Name.ValueString(),
	}, &resp.Diagnostics)()

	spec := userSpecFromModel(ctx, &data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	user, err := r.svc.AddUser(ctx, spec, data.Password.ValueString())
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Creating User", err)
		return
	}

	tflog.Debug(ctx, "Created user", map[string]any{
		"dn":     user.DN,
		"groups": len(user.Groups),
	})

	updateModelFromUser(ctx, &data, user, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *UserResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data UserResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	user, err := r.svc.GetUser(ctx, data.ID.ValueString())
	if err != nil {
		if dcerr.IsNotFound(err) {
			tflog.Warn(ctx, "User no longer exists, removing from state", map[string]any{
				"name": data.ID.ValueString(),
			})
			resp.State.RemoveResource(ctx)
			return
		}
		addServiceError(&resp.Diagnostics, "Error Reading User", err)
		return
	}

	updateModelFromUser(ctx, &data, user, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *UserResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data, state UserResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	name := state.ID.ValueString()
	defer trackOperation(ctx, "resource", "dccon_user", "update", map[string]any{
		"name": name,
	}, &resp.Diagnostics)()

	if !data.Password.Equal(state.Password) {
		if err := r.svc.UpdateUserPassword(ctx, name, data.Password.ValueString()); err != nil {
			addServiceError(&resp.Diagnostics, "Error Setting User Password", err)
			return
		}
		tflog.Debug(ctx, "Password reset", map[string]any{"name": name})
	}

	spec := userSpecFromModel(ctx, &data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}
	// Dropping groups from the configuration stops managing them.
	if data.Groups.Equal(state.Groups) {
		spec.Groups = nil
	}

	user, err := r.svc.UpdateUser(ctx, name, spec)
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Updating User", err)
		return
	}

	updateModelFromUser(ctx, &data, user, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *UserResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data UserResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "resource", "dccon_user", "delete", map[string]any{
		"name": data.ID.ValueString(),
	}, &resp.Diagnostics)()

	if err := r.svc.DeleteUser(ctx, data.ID.ValueString()); err != nil && !dcerr.IsNotFound(err) {
		addServiceError(&resp.Diagnostics, "Error Deleting User", err)
	}
}

// ImportState accepts the user name. Group memberships are left unmanaged
// and the password stays unknown until the next apply sets it.
func (r *UserResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	ctx = initializeLogging(ctx)

	user, err := r.svc.GetUser(ctx, strings.TrimSpace(req.ID))
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Importing User", err)
		return
	}

	data := UserResourceModel{
		Password: types.StringNull(),
		Groups:   types.SetNull(types.StringType),
	}
	updateModelFromUser(ctx, &data, user, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func userSpecFromModel(ctx context.Context, data *UserResourceModel, diags *diag.Diagnostics) connector.UserSpec {
	return connector.UserSpec{
		Name:                 data.Name.ValueString(),
		DisplayName:          data.DisplayName.ValueString(),
		Gecos:                data.Gecos.ValueString(),
		Email:                data.Email.ValueString(),
		TelephoneNumber:      data.TelephoneNumber.ValueString(),
		Mobile:               data.Mobile.ValueString(),
		Enabled:              data.Enabled.ValueBool(),
		PasswordNeverExpires: data.PasswordNeverExpires.ValueBool(),
		Groups:               helpers.SetToStrings(ctx, data.Groups, diags),
	}
}

// updateModelFromUser copies the directory view into data. Groups are only
// refreshed when they are managed; the password is never read.
func updateModelFromUser(ctx context.Context, data *UserResourceModel, user *ldap.User, diags *diag.Diagnostics) {
	if !strings.EqualFold(data.Name.ValueString(), user.Name) {
		data.Name = types.StringValue(user.Name)
	}
	data.ID = data.Name
	data.DistinguishedName = customtypes.DNString(user.DN)
	data.GUID = helpers.StringOrNull(user.GUID)
	data.SID = helpers.StringOrNull(user.SID)
	data.DisplayName = helpers.StringOrNull(user.DisplayName)
	data.Gecos = helpers.StringOrNull(user.Gecos)
	data.Email = helpers.StringOrNull(user.Email)
	data.TelephoneNumber = helpers.StringOrNull(user.TelephoneNumber)
	data.Mobile = helpers.StringOrNull(user.Mobile)
	data.Enabled = types.BoolValue(user.Enabled)
	data.PasswordNeverExpires = types.BoolValue(user.PasswordNeverExpires)
	data.LoginShell = helpers.StringOrNull(user.LoginShell)
	data.HomeDirectory = helpers.StringOrNull(user.HomeDirectory)
	data.UnixHomeDirectory = helpers.StringOrNull(user.UnixHomeDirectory)

	if data.Groups.IsNull() || data.Groups.IsUnknown() {
		return
	}
	configured := helpers.SetToStrings(ctx, data.Groups, diags)
	current := helpers.KeepConfiguredSpelling(configured, connector.Names(user.Groups))
	data.Groups = helpers.StringsToSet(ctx, current, diags)
}
