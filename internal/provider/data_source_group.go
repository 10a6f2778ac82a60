package provider

import (
	"context"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/provider/helpers"
	customtypes "github.com/isometry/terraform-provider-dccon/internal/provider/types"
)

var _ datasource.DataSource = &GroupDataSource{}

func NewGroupDataSource() datasource.DataSource {
	return &GroupDataSource{}
}

// GroupDataSource looks up a single group by name.
type GroupDataSource struct {
	svc *connector.Service
}

// GroupDataSourceModel describes the data source data model.
type GroupDataSourceModel struct {
	ID                types.String              `tfsdk:"id"`
	Name              types.String              `tfsdk:"name"`
	DistinguishedName customtypes.DNStringValue `tfsdk:"dn"`
	GUID              types.String              `tfsdk:"guid"`
	SID               types.String              `tfsdk:"sid"`
	Description       types.String              `tfsdk:"description"`
	Members           types.Set                 `tfsdk:"members"`
	MemberDNs         types.Set                 `tfsdk:"member_dns"`
	Created           types.String              `tfsdk:"created"`
	Modified          types.String              `tfsdk:"modified"`
}

func (d *GroupDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_group"
}

func (d *GroupDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Retrieves a domain group and its members.",

		Attributes: map[string]schema.Attribute{
			"name": schema.StringAttribute{
				MarkdownDescription: "The account name of the group (`sAMAccountName`).",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"id": schema.StringAttribute{
				MarkdownDescription: "The group name as stored in the directory.",
				Computed:            true,
			},
			"dn": schema.StringAttribute{
				MarkdownDescription: "The distinguished name of the group.",
				Computed:            true,
				CustomType:          customtypes.DNStringType{},
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
			"members": schema.SetAttribute{
				MarkdownDescription: "The names of the direct members.",
				ElementType:         types.StringType,
				Computed:            true,
			},
			"member_dns": schema.SetAttribute{
				MarkdownDescription: "The distinguished names of the direct members.",
				ElementType:         types.StringType,
				Computed:            true,
			},
			"created": schema.StringAttribute{
				MarkdownDescription: "When the group was created (RFC 3339).",
				Computed:            true,
			},
			"modified": schema.StringAttribute{
				MarkdownDescription: "When the group was last changed (RFC 3339).",
				Computed:            true,
			},
		},
	}
}

func (d *GroupDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.svc = serviceFromProviderData(req.ProviderData, &resp.Diagnostics)
}

func (d *GroupDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data GroupDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "data_source", "dccon_group", "read", map[string]any{
		"name": data.Name.ValueString(),
	}, &resp.Diagnostics)()

	group, err := d.svc.GetGroup(ctx, strings.TrimSpace(data.Name.ValueString()))
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Reading Group", err)
		return
	}

	tflog.Debug(ctx, "Found group", map[string]any{
		"dn":      group.DN,
		"members": len(group.Members),
	})

	data.ID = types.StringValue(group.Name)
	data.DistinguishedName = customtypes.DNString(group.DN)
	data.GUID = helpers.StringOrNull(group.GUID)
	data.SID = helpers.StringOrNull(group.SID)
	data.Description = helpers.StringOrNull(group.Description)
	data.Members = helpers.StringsToSet(ctx, connector.Names(group.Members), &resp.Diagnostics)
	data.MemberDNs = helpers.StringsToSet(ctx, group.Members, &resp.Diagnostics)
	data.Created = helpers.TimeOrNull(group.Created)
	data.Modified = helpers.TimeOrNull(group.Modified)

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
