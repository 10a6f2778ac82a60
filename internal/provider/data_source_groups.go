package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/ldap"
	"github.com/isometry/terraform-provider-dccon/internal/provider/helpers"
	"github.com/isometry/terraform-provider-dccon/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &GroupsDataSource{}

func NewGroupsDataSource() datasource.DataSource {
	return &GroupsDataSource{}
}

// GroupsDataSource lists the groups below the group base DN.
type GroupsDataSource struct {
	svc *connector.Service
}

// GroupsDataSourceModel describes the data source data model.
type GroupsDataSourceModel struct {
	Match      types.String `tfsdk:"match"`
	Groups     types.List   `tfsdk:"groups"`
	GroupCount types.Int64  `tfsdk:"group_count"`
	ID         types.String `tfsdk:"id"`
}

var groupListItemType = types.ObjectType{
	AttrTypes: map[string]attr.Type{
		"name":         types.StringType,
		"dn":           types.StringType,
		"guid":         types.StringType,
		"sid":          types.StringType,
		"description":  types.StringType,
		"member_count": types.Int64Type,
	},
}

func (d *GroupsDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_groups"
}

func (d *GroupsDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Retrieves the groups below the configured group base DN, optionally filtered by a " +
			"case-insensitive wildcard on the group name.",

		Attributes: map[string]schema.Attribute{
			"match": schema.StringAttribute{
				MarkdownDescription: "Wildcard pattern on the group name, e.g. `app-*` or `{dev,ops}-?`. Defaults to all groups.",
				Optional:            true,
				Validators: []validator.String{
					validators.IsMatchPattern(),
				},
			},
			"group_count": schema.Int64Attribute{
				MarkdownDescription: "The number of groups found.",
				Computed:            true,
			},
			"id": schema.StringAttribute{
				MarkdownDescription: "A computed identifier for this data source instance.",
				Computed:            true,
			},
			"groups": schema.ListNestedAttribute{
				MarkdownDescription: "The matching groups, ordered by name.",
				Computed:            true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"name": schema.StringAttribute{
							MarkdownDescription: "The account name of the group.",
							Computed:            true,
						},
						"dn": schema.StringAttribute{
							MarkdownDescription: "The distinguished name of the group.",
							Computed:            true,
						},
						"guid": schema.StringAttribute{
							MarkdownDescription: "The objectGUID of the group.",
							Computed:            true,
						},
						"sid": schema.StringAttribute{
							MarkdownDescription: "The Security Identifier (SID) of the group.",
							Computed:            true,
						},
						"description": schema.StringAttribute{
							MarkdownDescription: "The description of the group.",
							Computed:            true,
						},
						"member_count": schema.Int64Attribute{
							MarkdownDescription: "The number of direct members.",
							Computed:            true,
						},
					},
				},
			},
		},
	}
}

func (d *GroupsDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.svc = serviceFromProviderData(req.ProviderData, &resp.Diagnostics)
}

func (d *GroupsDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data GroupsDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	match, err := connector.NewMatcher(data.Match.ValueString())
	if err != nil {
		addServiceError(&resp.Diagnostics, "Invalid Match Pattern", err)
		return
	}

	defer trackOperation(ctx, "data_source", "dccon_groups", "read", map[string]any{
		"match": match.String(),
	}, &resp.Diagnostics)()

	groups, err := d.svc.ListGroups(ctx, match)
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Listing Groups", err)
		return
	}

	tflog.Debug(ctx, "Found groups", map[string]any{
		"group_count": len(groups),
	})

	d.mapGroupsToModel(groups, &data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	data.GroupCount = types.Int64Value(int64(len(groups)))
	data.ID = types.StringValue(fmt.Sprintf("groups:%s", match))

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (d *GroupsDataSource) mapGroupsToModel(groups []*ldap.Group, data *GroupsDataSourceModel, diags *diag.Diagnostics) {
	elements := make([]attr.Value, 0, len(groups))
	for _, group := range groups {
		obj, objDiags := types.ObjectValue(groupListItemType.AttrTypes, map[string]attr.Value{
			"name":         types.StringValue(group.Name),
			"dn":           types.StringValue(group.DN),
			"guid":         helpers.StringOrNull(group.GUID),
			"sid":          helpers.StringOrNull(group.SID),
			"description":  helpers.StringOrNull(group.Description),
			"member_count": types.Int64Value(int64(len(group.Members))),
		})
		diags.Append(objDiags...)
		if objDiags.HasError() {
			return
		}
		elements = append(elements, obj)
	}

	list, listDiags := types.ListValue(groupListItemType, elements)
	diags.Append(listDiags...)
	data.Groups = list
}
