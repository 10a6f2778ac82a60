package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/provider/helpers"
	"github.com/isometry/terraform-provider-dccon/internal/provider/validators"
)

var _ datasource.DataSource = &UsersDataSource{}

func NewUsersDataSource() datasource.DataSource {
	return &UsersDataSource{}
}

// UsersDataSource lists the users below the user base DN.
type UsersDataSource struct {
	svc *connector.Service
}

// UsersDataSourceModel describes the data source data model.
type UsersDataSourceModel struct {
	Match     types.String        `tfsdk:"match"`
	Users     []UserListItemModel `tfsdk:"users"`
	UserCount types.Int64         `tfsdk:"user_count"`
	ID        types.String        `tfsdk:"id"`
}

// UserListItemModel is one user of the result list.
type UserListItemModel struct {
	Name        types.String `tfsdk:"name"`
	DN          types.String `tfsdk:"dn"`
	SID         types.String `tfsdk:"sid"`
	DisplayName types.String `tfsdk:"display_name"`
	Email       types.String `tfsdk:"email"`
	Enabled     types.Bool   `tfsdk:"enabled"`
}

func (d *UsersDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_users"
}

func (d *UsersDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Retrieves the users below the configured user base DN, optionally filtered by a " +
			"case-insensitive wildcard on the account name.",

		Attributes: map[string]schema.Attribute{
			"match": schema.StringAttribute{
				MarkdownDescription: "Wildcard pattern on the account name. Defaults to all users.",
				Optional:            true,
				Validators: []validator.String{
					validators.IsMatchPattern(),
				},
			},
			"user_count": schema.Int64Attribute{
				MarkdownDescription: "The number of users found.",
				Computed:            true,
			},
			"id": schema.StringAttribute{
				MarkdownDescription: "A computed identifier for this data source instance.",
				Computed:            true,
			},
			"users": schema.ListNestedAttribute{
				MarkdownDescription: "The matching users, ordered by name.",
				Computed:            true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"name": schema.StringAttribute{
							MarkdownDescription: "The account name.",
							Computed:            true,
						},
						"dn": schema.StringAttribute{
							MarkdownDescription: "The distinguished name.",
							Computed:            true,
						},
						"sid": schema.StringAttribute{
							MarkdownDescription: "The Security Identifier (SID).",
							Computed:            true,
						},
						"display_name": schema.StringAttribute{
							MarkdownDescription: "The display name.",
							Computed:            true,
						},
						"email": schema.StringAttribute{
							MarkdownDescription: "The e-mail address.",
							Computed:            true,
						},
						"enabled": schema.BoolAttribute{
							MarkdownDescription: "Whether the account is enabled.",
							Computed:            true,
						},
					},
				},
			},
		},
	}
}

func (d *UsersDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.svc = serviceFromProviderData(req.ProviderData, &resp.Diagnostics)
}

func (d *UsersDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data UsersDataSourceModel

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

	defer trackOperation(ctx, "data_source", "dccon_users", "read", map[string]any{
		"match": match.String(),
	}, &resp.Diagnostics)()

	users, err := d.svc.ListUsers(ctx, match)
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Listing Users", err)
		return
	}

	tflog.Debug(ctx, "Found users", map[string]any{
		"user_count": len(users),
	})

	data.Users = make([]UserListItemModel, 0, len(users))
	for _, u := range users {
		data.Users = append(data.Users, UserListItemModel{
			Name:        types.StringValue(u.Name),
			DN:          types.StringValue(u.DN),
			SID:         helpers.StringOrNull(u.SID),
			DisplayName: helpers.StringOrNull(u.DisplayName),
			Email:       helpers.StringOrNull(u.Email),
			Enabled:     types.BoolValue(u.Enabled),
		})
	}
	data.UserCount = types.Int64Value(int64(len(users)))
	data.ID = types.StringValue(fmt.Sprintf("users:%s", match))

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
