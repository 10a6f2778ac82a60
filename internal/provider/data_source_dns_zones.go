package provider

import (
	"context"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/provider/validators"
)

var _ datasource.DataSource = &DNSZonesDataSource{}

func NewDNSZonesDataSource() datasource.DataSource {
	return &DNSZonesDataSource{}
}

// DNSZonesDataSource lists the zones served by the domain controller,
// hiding excluded zones.
type DNSZonesDataSource struct {
	svc *connector.Service
}

// DNSZonesDataSourceModel describes the data source data model.
type DNSZonesDataSourceModel struct {
	ID    types.String       `tfsdk:"id"`
	Kind  types.String       `tfsdk:"kind"`
	Zones []DNSZoneItemModel `tfsdk:"zones"`
	Names types.List         `tfsdk:"names"`
}

// DNSZoneItemModel is one zone of the result list.
type DNSZoneItemModel struct {
	Name    types.String `tfsdk:"name"`
	Reverse types.Bool   `tfsdk:"reverse"`
}

func (d *DNSZonesDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_dns_zones"
}

func (d *DNSZonesDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Retrieves the DNS zones of the domain controller. Forward zones are ordered by their labels " +
			"from the top-level domain down, reverse zones by their network address. Excluded zones are never listed.",

		Attributes: map[string]schema.Attribute{
			"kind": schema.StringAttribute{
				MarkdownDescription: "Which zones to list: `all`, `forward` or `reverse`. Defaults to `all`.",
				Optional:            true,
				Validators: []validator.String{
					validators.CaseInsensitiveOneOf(
						string(connector.ZoneKindAll),
						string(connector.ZoneKindForward),
						string(connector.ZoneKindReverse),
					),
				},
			},
			"id": schema.StringAttribute{
				MarkdownDescription: "A computed identifier for this data source instance.",
				Computed:            true,
			},
			"names": schema.ListAttribute{
				MarkdownDescription: "The zone names in display order.",
				ElementType:         types.StringType,
				Computed:            true,
			},
			"zones": schema.ListNestedAttribute{
				MarkdownDescription: "The zones in display order.",
				Computed:            true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"name": schema.StringAttribute{
							MarkdownDescription: "The zone name.",
							Computed:            true,
						},
						"reverse": schema.BoolAttribute{
							MarkdownDescription: "Whether the zone is a reverse zone.",
							Computed:            true,
						},
					},
				},
			},
		},
	}
}

func (d *DNSZonesDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.svc = serviceFromProviderData(req.ProviderData, &resp.Diagnostics)
}

func (d *DNSZonesDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data DNSZonesDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	kind, err := connector.ParseZoneKind(strings.ToLower(strings.TrimSpace(data.Kind.ValueString())))
	if err != nil {
		addServiceError(&resp.Diagnostics, "Invalid Zone Kind", err)
		return
	}

	defer trackOperation(ctx, "data_source", "dccon_dns_zones", "read", map[string]any{
		"kind": string(kind),
	}, &resp.Diagnostics)()

	zones, err := d.svc.ListZones(ctx, kind)
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Listing DNS Zones", err)
		return
	}

	tflog.Debug(ctx, "Found DNS zones", map[string]any{
		"zone_count": len(zones),
	})

	cfg := d.svc.DNSConfig()
	names := make([]string, 0, len(zones))
	data.Zones = make([]DNSZoneItemModel, 0, len(zones))
	for _, z := range zones {
		names = append(names, z.Name)
		data.Zones = append(data.Zones, DNSZoneItemModel{
			Name:    types.StringValue(z.Name),
			Reverse: types.BoolValue(cfg.IsReverseZone(z.Name)),
		})
	}

	list, listDiags := types.ListValueFrom(ctx, types.StringType, names)
	resp.Diagnostics.Append(listDiags...)
	data.Names = list
	data.ID = types.StringValue("dns_zones:" + string(kind))

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
