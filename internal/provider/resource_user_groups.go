package provider

import (
	"context"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework-validators/setvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/provider/helpers"
)

var _ resource.Resource = &UserGroupsResource{}
var _ resource.ResourceWithImportState = &UserGroupsResource{}

// NewUserGroupsResource creates a new instance of the user groups resource.
func NewUserGroupsResource() resource.Resource {
	return &UserGroupsResource{}
}

// UserGroupsResource manages the exact set of groups a user belongs to. Only
// the member attributes of the affected groups are written; memberOf is
// maintained by the directory.
type UserGroupsResource struct {
	svc *connector.Service
}

// UserGroupsResourceModel describes the resource data model.
type UserGroupsResourceModel struct {
	ID     types.String `tfsdk:"id"`
	User   types.String `tfsdk:"user"`
	Groups types.Set    `tfsdk:"groups"`
}

func (r *UserGroupsResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_user_groups"
}

func (r *UserGroupsResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Manages the group memberships of an existing user as one set. Groups not listed are left " +
			"by the user on apply; destroying the resource removes the user from every group.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The user name.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"user": schema.StringAttribute{
				MarkdownDescription: "The account name of the user. Changing it replaces the resource.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.RequiresReplace(),
				},
			},
			"groups": schema.SetAttribute{
				MarkdownDescription: "Names or distinguished names of the groups the user is a member of.",
				ElementType:         types.StringType,
				Required:            true,
				Validators: []validator.Set{
					setvalidator.ValueStringsAre(stringvalidator.LengthAtLeast(1)),
				},
			},
		},
	}
}

func (r *UserGroupsResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	r.svc = serviceFromProviderData(req.ProviderData, &resp.Diagnostics)
}

func (r *UserGroupsResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data UserGroupsResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "resource", "dccon_user_groups", "create", map[string]any{
		"user": data.User.ValueString(),
	}, &resp.Diagnostics)()

	r.apply(ctx, &data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *UserGroupsResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data UserGroupsResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	user, err := r.svc.GetUser(ctx, data.ID.ValueString())
	if err != nil {
		if dcerr.IsNotFound(err) {
			tflog.Warn(ctx, "User no longer exists, removing group memberships from state", map[string]any{
				"user": data.ID.ValueString(),
			})
			resp.State.RemoveResource(ctx)
			return
		}
		addServiceError(&resp.Diagnostics, "Error Reading User Groups", err)
		return
	}

	updateModelFromUserGroups(ctx, &data, user, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *UserGroupsResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data UserGroupsResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "resource", "dccon_user_groups", "update", map[string]any{
		"user": data.User.ValueString(),
	}, &resp.Diagnostics)()

	r.apply(ctx, &data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *UserGroupsResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data UserGroupsResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "resource", "dccon_user_groups", "delete", map[string]any{
		"user": data.ID.ValueString(),
	}, &resp.Diagnostics)()

	if _, err := r.svc.UpdateUserGroups(ctx, data.ID.ValueString(), []string{}); err != nil && !dcerr.IsNotFound(err) {
		addServiceError(&resp.Diagnostics, "Error Removing User Group Memberships", err)
	}
}

// ImportState accepts the user name and manages the groups found.
func (r *UserGroupsResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	ctx = initializeLogging(ctx)

	user, err := r.svc.GetUser(ctx, strings.TrimSpace(req.ID))
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Importing User Groups", err)
		return
	}

	data := UserGroupsResourceModel{
		User:   types.StringValue(user.Name),
		Groups: helpers.StringsToSet(ctx, connector.Names(user.Groups), &resp.Diagnostics),
	}
	updateModelFromUserGroups(ctx, &data, user, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *UserGroupsResource) apply(ctx context.Context, data *UserGroupsResourceModel, diags *diag.Diagnostics) {
	groups := helpers.SetToStrings(ctx, data.Groups, diags)
	if diags.HasError() {
		return
	}

	user, err := r.svc.UpdateUserGroups(ctx, data.User.ValueString(), groups)
	if err != nil {
		addServiceError(diags, "Error Updating User Groups", err)
		return
	}

	tflog.Debug(ctx, "Updated user group memberships", map[string]any{
		"user":   user.DN,
		"groups": len(user.Groups),
	})
	updateModelFromUserGroups(ctx, data, user, diags)
}

// updateModelFromUserGroups copies the user's memberOf back-reference into
// data. Configured entries that are DNs are kept when the user is a member
// of that DN.
func updateModelFromUserGroups(ctx context.Context, data *UserGroupsResourceModel, user *ldap.User, diags *diag.Diagnostics) {
	data.ID = data.User

	configured := helpers.SetToStrings(ctx, data.Groups, diags)
	current := make([]string, 0, len(user.Groups))
	for _, dn := range user.Groups {
		name := connector.Names([]string{dn})[0]
		for _, c := range configured {
			if ldap.EqualDN(c, dn) {
				name = c
				break
			}
		}
		current = append(current, name)
	}
	data.Groups = helpers.StringsToSet(ctx, helpers.KeepConfiguredSpelling(configured, current), diags)
}
