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

var _ datasource.DataSource = &DNSRecordsDataSource{}

func NewDNSRecordsDataSource() datasource.DataSource {
	return &DNSRecordsDataSource{}
}

// DNSRecordsDataSource lists the records of a zone, hiding excluded nodes.
type DNSRecordsDataSource struct {
	svc *connector.Service
}

// DNSRecordsDataSourceModel describes the data source data model.
type DNSRecordsDataSourceModel struct {
	ID      types.String         `tfsdk:"id"`
	Zone    types.String         `tfsdk:"zone"`
	Match   types.String         `tfsdk:"match"`
	Records []DNSRecordItemModel `tfsdk:"records"`
}

// DNSRecordItemModel is one record of the result list.
type DNSRecordItemModel struct {
	Name  types.String `tfsdk:"name"`
	Type  types.String `tfsdk:"type"`
	Value types.String `tfsdk:"value"`
	TTL   types.Int64  `tfsdk:"ttl"`
}

func (d *DNSRecordsDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_dns_records"
}

func (d *DNSRecordsDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Retrieves the records of a DNS zone. Records of a forward zone are ordered by node name, " +
			"records of a reverse zone by address. The zone apex and excluded nodes such as `_msdcs` are never listed.",

		Attributes: map[string]schema.Attribute{
			"zone": schema.StringAttribute{
				MarkdownDescription: "The zone to list.",
				Required:            true,
				Validators: []validator.String{
					validators.IsZoneName(),
				},
			},
			"match": schema.StringAttribute{
				MarkdownDescription: "Wildcard pattern on the node name, e.g. `web-*`. Defaults to all nodes.",
				Optional:            true,
				Validators: []validator.String{
					validators.IsMatchPattern(),
				},
			},
			"id": schema.StringAttribute{
				MarkdownDescription: "A computed identifier for this data source instance.",
				Computed:            true,
			},
			"records": schema.ListNestedAttribute{
				MarkdownDescription: "The matching records in display order.",
				Computed:            true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"name": schema.StringAttribute{
							MarkdownDescription: "The node name relative to the zone.",
							Computed:            true,
						},
						"type": schema.StringAttribute{
							MarkdownDescription: "The record type.",
							Computed:            true,
						},
						"value": schema.StringAttribute{
							MarkdownDescription: "The record data.",
							Computed:            true,
						},
						"ttl": schema.Int64Attribute{
							MarkdownDescription: "The time to live reported by the name server.",
							Computed:            true,
						},
					},
				},
			},
		},
	}
}

func (d *DNSRecordsDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.svc = serviceFromProviderData(req.ProviderData, &resp.Diagnostics)
}

func (d *DNSRecordsDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data DNSRecordsDataSourceModel

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
	zone := data.Zone.ValueString()

	defer trackOperation(ctx, "data_source", "dccon_dns_records", "read", map[string]any{
		"zone":  zone,
		"match": match.String(),
	}, &resp.Diagnostics)()

	entries, err := d.svc.ListRecords(ctx, zone, match)
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Listing DNS Records", err)
		return
	}

	data.Records = []DNSRecordItemModel{}
	for _, e := range entries {
		for _, r := range e.Records {
			data.Records = append(data.Records, DNSRecordItemModel{
				Name:  types.StringValue(e.Name),
				Type:  types.StringValue(r.Type),
				Value: helpers.StringOrNull(r.Value),
				TTL:   types.Int64Value(int64(r.TTL)),
			})
		}
	}

	tflog.Debug(ctx, "Found DNS records", map[string]any{
		"nodes":   len(entries),
		"records": len(data.Records),
	})

	data.ID = types.StringValue(fmt.Sprintf("%s:%s", zone, match))
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
