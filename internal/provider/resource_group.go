package provider

import (
	"context"
	"regexp"
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
	customtypes "github.com/isometry/terraform-provider-dccon/internal/provider/types"
)

var _ resource.Resource = &GroupResource{}
var _ resource.ResourceWithImportState = &GroupResource{}

// accountNameRegex matches names samba-tool accepts for users and groups.
var accountNameRegex = regexp.MustCompile(`^[^"/\\\[\]:;|=,+*?<>@]+$`)

// NewGroupResource creates a new instance of the group resource.
func NewGroupResource() resource.Resource {
	return &GroupResource{}
}

// GroupResource manages a group and, optionally, its exact member set.
type GroupResource struct {
	svc *connector.Service
}

// GroupResourceModel describes the resource data model.
type GroupResourceModel struct {
	ID                types.String              `tfsdk:"id"`
	Name              types.String              `tfsdk:"name"`
	Members           types.Set                 `tfsdk:"members"`
	DistinguishedName customtypes.DNStringValue `tfsdk:"dn"`
	GUID              types.String              `tfsdk:"guid"`
	SID               types.String              `tfsdk:"sid"`
}

func (r *GroupResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_group"
}

func (r *GroupResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Manages a domain group. The group is created with `samba-tool group add`; " +
			"its members are written as a minimal delta on the `member` attribute.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The group name.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "The account name of the group (`sAMAccountName`). Changing it replaces the group.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthBetween(1, 64),
					stringvalidator.RegexMatches(accountNameRegex, "Group name contains characters not allowed in account names"),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.RequiresReplace(),
				},
			},
			"members": schema.SetAttribute{
				MarkdownDescription: "Account names of the members. When set, the group holds exactly these members; " +
					"when omitted, membership is left alone.",
				ElementType: types.StringType,
				Optional:    true,
				Validators: []validator.Set{
					setvalidator.ValueStringsAre(stringvalidator.LengthAtLeast(1)),
				},
			},
			"dn": schema.StringAttribute{
				MarkdownDescription: "The distinguished name of the group.",
				Computed:            true,
				CustomType:          customtypes.DNStringType{},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"guid": schema.StringAttribute{
				MarkdownDescription: "The objectGUID of the group.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"sid": schema.StringAttribute{
				MarkdownDescription: "The Security Identifier (SID) of the group.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
		},
	}
}

func (r *GroupResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	r.svc = serviceFromProviderData(req.ProviderData, &resp.Diagnostics)
}

func (r *GroupResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data GroupResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "resource", "dccon_group", "create", map[string]any{
		"name": data.Name.ValueString(),
	}, &resp.Diagnostics)()

	spec := connector.GroupSpec{
		Name:    data.Name.ValueString(),
		Members: helpers.SetToStrings(ctx, data.Members, &resp.Diagnostics),
	}
	if resp.Diagnostics.HasError() {
		return
	}

	group, err := r.svc.AddGroup(ctx, spec)
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Creating Group", err)
		return
	}

	tflog.Debug(ctx, "Created group", map[string]any{
		"dn":      group.DN,
		"members": len(group.Members),
	})

	r.updateModelFromGroup(ctx, &data, group, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *GroupResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data GroupResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	group, err := r.svc.GetGroup(ctx, data.ID.ValueString())
	if err != nil {
		if dcerr.IsNotFound(err) {
			tflog.Warn(ctx, "Group no longer exists, removing from state", map[string]any{
				"name": data.ID.ValueString(),
			})
			resp.State.RemoveResource(ctx)
			return
		}
		addServiceError(&resp.Diagnostics, "Error Reading Group", err)
		return
	}

	r.updateModelFromGroup(ctx, &data, group, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *GroupResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data, state GroupResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "resource", "dccon_group", "update", map[string]any{
		"name": data.Name.ValueString(),
	}, &resp.Diagnostics)()

	// Dropping members from the configuration stops managing them.
	if data.Members.IsNull() || data.Members.Equal(state.Members) {
		tflog.Debug(ctx, "No membership changes for group")
		data.ID = state.ID
		data.DistinguishedName = state.DistinguishedName
		data.GUID = state.GUID
		data.SID = state.SID
		resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
		return
	}

	members := helpers.SetToStrings(ctx, data.Members, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	group, err := r.svc.UpdateGroupMembers(ctx, data.Name.ValueString(), members)
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Updating Group Members", err)
		return
	}

	r.updateModelFromGroup(ctx, &data, group, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *GroupResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data GroupResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "resource", "dccon_group", "delete", map[string]any{
		"name": data.ID.ValueString(),
	}, &resp.Diagnostics)()

	if err := r.svc.DeleteGroup(ctx, data.ID.ValueString()); err != nil && !dcerr.IsNotFound(err) {
		addServiceError(&resp.Diagnostics, "Error Deleting Group", err)
	}
}

// ImportState accepts the group name and manages the members found.
func (r *GroupResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	ctx = initializeLogging(ctx)

	name := strings.TrimSpace(req.ID)
	group, err := r.svc.GetGroup(ctx, name)
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Importing Group", err)
		return
	}

	data := GroupResourceModel{
		Members: helpers.StringsToSet(ctx, connector.Names(group.Members), &resp.Diagnostics),
	}
	r.updateModelFromGroup(ctx, &data, group, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

// updateModelFromGroup copies the directory view into data. Members are only
// refreshed when they are managed.
func (r *GroupResource) updateModelFromGroup(ctx context.Context, data *GroupResourceModel, group *ldap.Group, diags *diag.Diagnostics) {
	if !strings.EqualFold(data.Name.ValueString(), group.Name) {
		data.Name = types.StringValue(group.Name)
	}
	data.ID = data.Name
	data.DistinguishedName = customtypes.DNString(group.DN)
	data.GUID = helpers.StringOrNull(group.GUID)
	data.SID = helpers.StringOrNull(group.SID)

	if data.Members.IsNull() || data.Members.IsUnknown() {
		return
	}
	configured := helpers.SetToStrings(ctx, data.Members, diags)
	current := helpers.KeepConfiguredSpelling(configured, connector.Names(group.Members))
	data.Members = helpers.StringsToSet(ctx, current, diags)
}
