package provider

import (
	"context"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/boolplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/dns"
	"github.com/isometry/terraform-provider-dccon/internal/provider/validators"
)

var _ resource.Resource = &DNSZoneResource{}
var _ resource.ResourceWithImportState = &DNSZoneResource{}

// NewDNSZoneResource creates a new instance of the DNS zone resource.
func NewDNSZoneResource() resource.Resource {
	return &DNSZoneResource{}
}

// DNSZoneResource manages a primary zone on the domain controller's name
// server.
type DNSZoneResource struct {
	svc *connector.Service
}

// DNSZoneResourceModel describes the resource data model.
type DNSZoneResourceModel struct {
	ID      types.String `tfsdk:"id"`
	Name    types.String `tfsdk:"name"`
	Reverse types.Bool   `tfsdk:"reverse"`
}

func (r *DNSZoneResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_dns_zone"
}

func (r *DNSZoneResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Manages a DNS zone with `samba-tool dns zonecreate`. Deleting the zone deletes every record in it.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The zone name.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "The zone name, e.g. `example.org` or `1.168.192.in-addr.arpa`.",
				Required:            true,
				Validators: []validator.String{
					validators.IsZoneName(),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.RequiresReplace(),
				},
			},
			"reverse": schema.BoolAttribute{
				MarkdownDescription: "Whether the zone is classified as a reverse zone.",
				Computed:            true,
				PlanModifiers: []planmodifier.Bool{
					boolplanmodifier.UseStateForUnknown(),
				},
			},
		},
	}
}

func (r *DNSZoneResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	r.svc = serviceFromProviderData(req.ProviderData, &resp.Diagnostics)
}

func (r *DNSZoneResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data DNSZoneResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "resource", "dccon_dns_zone", "create", map[string]any{
		"zone": data.Name.ValueString(),
	}, &resp.Diagnostics)()

	zone, err := r.svc.CreateZone(ctx, data.Name.ValueString())
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Creating DNS Zone", err)
		return
	}

	r.updateModelFromZone(&data, zone)
	tflog.Debug(ctx, "Created DNS zone", map[string]any{
		"zone":    zone.Name,
		"reverse": data.Reverse.ValueBool(),
	})
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *DNSZoneResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data DNSZoneResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	zone, err := r.svc.GetZone(ctx, data.ID.ValueString())
	if err != nil {
		if dcerr.IsNotFound(err) {
			tflog.Warn(ctx, "DNS zone no longer exists, removing from state", map[string]any{
				"zone": data.ID.ValueString(),
			})
			resp.State.RemoveResource(ctx)
			return
		}
		addServiceError(&resp.Diagnostics, "Error Reading DNS Zone", err)
		return
	}

	r.updateModelFromZone(&data, zone)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

// Update is never called with a change: name forces replacement.
func (r *DNSZoneResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data DNSZoneResourceModel

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *DNSZoneResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data DNSZoneResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "resource", "dccon_dns_zone", "delete", map[string]any{
		"zone": data.ID.ValueString(),
	}, &resp.Diagnostics)()

	if err := r.svc.DeleteZone(ctx, data.ID.ValueString()); err != nil && !dcerr.IsNotFound(err) {
		addServiceError(&resp.Diagnostics, "Error Deleting DNS Zone", err)
	}
}

func (r *DNSZoneResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	ctx = initializeLogging(ctx)

	zone, err := r.svc.GetZone(ctx, strings.TrimSpace(req.ID))
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Importing DNS Zone", err)
		return
	}

	var data DNSZoneResourceModel
	r.updateModelFromZone(&data, zone)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *DNSZoneResource) updateModelFromZone(data *DNSZoneResourceModel, zone dns.Zone) {
	name := strings.TrimSuffix(zone.Name, ".")
	if !strings.EqualFold(strings.TrimSuffix(data.Name.ValueString(), "."), name) {
		data.Name = types.StringValue(name)
	}
	data.ID = data.Name
	data.Reverse = types.BoolValue(r.svc.DNSConfig().IsReverseZone(name))
}
