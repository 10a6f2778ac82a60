package provider

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/dns"
	"github.com/isometry/terraform-provider-dccon/internal/provider/helpers"
	"github.com/isometry/terraform-provider-dccon/internal/provider/validators"
)

var _ resource.Resource = &DNSRecordResource{}
var _ resource.ResourceWithImportState = &DNSRecordResource{}

// NewDNSRecordResource creates a new instance of the DNS record resource.
func NewDNSRecordResource() resource.Resource {
	return &DNSRecordResource{}
}

// DNSRecordResource manages one record of a zone. A and PTR records are
// bound: creating one also creates its counterpart in the zone owning the
// address or host name.
type DNSRecordResource struct {
	svc *connector.Service
}

// DNSRecordResourceModel describes the resource data model.
type DNSRecordResourceModel struct {
	ID         types.String `tfsdk:"id"`
	Zone       types.String `tfsdk:"zone"`
	Name       types.String `tfsdk:"name"`
	Type       types.String `tfsdk:"type"`
	Value      types.String `tfsdk:"value"`
	MirrorZone types.String `tfsdk:"mirror_zone"`
	MirrorName types.String `tfsdk:"mirror_name"`
}

func (r *DNSRecordResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_dns_record"
}

func (r *DNSRecordResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Manages a DNS record. Creating an `A` record in a forward zone also creates the `PTR` record " +
			"in the reverse zone owning its address, and creating a `PTR` record in a reverse zone creates the `A` record " +
			"in the forward zone owning its target. The counterpart is created once and not removed with the record.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The record identifier, `zone/name/type/value`.",
				Computed:            true,
			},
			"zone": schema.StringAttribute{
				MarkdownDescription: "The zone holding the record.",
				Required:            true,
				Validators: []validator.String{
					validators.IsZoneName(),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.RequiresReplace(),
				},
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "The node name relative to the zone, or `@` for the zone apex.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.Any(
						stringvalidator.OneOf(dns.ZoneApex),
						validators.IsDomainName(),
					),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.RequiresReplace(),
				},
			},
			"type": schema.StringAttribute{
				MarkdownDescription: "The record type, e.g. `A`, `AAAA`, `PTR`, `CNAME`, `TXT`.",
				Required:            true,
				Validators: []validator.String{
					validators.IsRecordType(),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.RequiresReplace(),
				},
			},
			"value": schema.StringAttribute{
				MarkdownDescription: "The record data. Changing it updates the record in place; the counterpart is not updated.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"mirror_zone": schema.StringAttribute{
				MarkdownDescription: "The zone the counterpart record was written to, if any.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"mirror_name": schema.StringAttribute{
				MarkdownDescription: "The node name of the counterpart record, if any.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
		},
	}
}

func (r *DNSRecordResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	r.svc = serviceFromProviderData(req.ProviderData, &resp.Diagnostics)
}

func (r *DNSRecordResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data DNSRecordResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "resource", "dccon_dns_record", "create", map[string]any{
		"zone":  data.Zone.ValueString(),
		"name":  data.Name.ValueString(),
		"type":  data.Type.ValueString(),
		"value": data.Value.ValueString(),
	}, &resp.Diagnostics)()

	result, err := r.svc.AddRecord(ctx, data.Zone.ValueString(), data.record())
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Creating DNS Record", err)
		return
	}

	tflog.Debug(ctx, "Bound DNS record", map[string]any{
		"created":        result.Primary.Created,
		"mirror_skipped": result.Mirror.Skipped,
		"mirror_reason":  result.Mirror.Reason,
	})

	data.MirrorZone = types.StringNull()
	data.MirrorName = types.StringNull()
	switch {
	case result.Mirror.Err != nil:
		resp.Diagnostics.AddWarning(
			"Counterpart DNS Record Not Written",
			fmt.Sprintf("The %s record was created, but its counterpart could not be written: %s",
				data.Type.ValueString(), result.Mirror.Err),
		)
	case !result.Mirror.Skipped:
		data.MirrorZone = helpers.StringOrNull(result.Mirror.Zone)
		data.MirrorName = helpers.StringOrNull(result.Mirror.Record.Name)
	}

	data.ID = types.StringValue(data.id())
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *DNSRecordResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data DNSRecordResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	exists, err := r.svc.RecordExists(ctx, data.Zone.ValueString(), data.record())
	if err != nil {
		if dcerr.IsNotFound(err) {
			exists = false
		} else {
			addServiceError(&resp.Diagnostics, "Error Reading DNS Record", err)
			return
		}
	}
	if !exists {
		tflog.Warn(ctx, "DNS record no longer exists, removing from state", map[string]any{
			"id": data.ID.ValueString(),
		})
		resp.State.RemoveResource(ctx)
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *DNSRecordResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data, state DNSRecordResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "resource", "dccon_dns_record", "update", map[string]any{
		"id":        state.ID.ValueString(),
		"new_value": data.Value.ValueString(),
	}, &resp.Diagnostics)()

	if err := r.svc.UpdateRecord(ctx, state.Zone.ValueString(), state.record(), data.Value.ValueString()); err != nil {
		addServiceError(&resp.Diagnostics, "Error Updating DNS Record", err)
		return
	}

	data.ID = types.StringValue(data.id())
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *DNSRecordResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data DNSRecordResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	defer trackOperation(ctx, "resource", "dccon_dns_record", "delete", map[string]any{
		"id": data.ID.ValueString(),
	}, &resp.Diagnostics)()

	if err := r.svc.DeleteRecord(ctx, data.Zone.ValueString(), data.record()); err != nil && !dcerr.IsNotFound(err) {
		addServiceError(&resp.Diagnostics, "Error Deleting DNS Record", err)
	}
}

// ImportState accepts zone/name/type/value. The value is everything after
// the third slash.
func (r *DNSRecordResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	ctx = initializeLogging(ctx)

	parts := strings.SplitN(req.ID, "/", 4)
	if len(parts) != 4 || slices.Contains(parts, "") {
		resp.Diagnostics.AddError(
			"Invalid Import ID",
			fmt.Sprintf("Expected an import ID of the form zone/name/type/value, got: %q", req.ID),
		)
		return
	}

	rrType, err := dns.ParseRecordType(parts[2])
	if err != nil {
		addServiceError(&resp.Diagnostics, "Invalid Import ID", err)
		return
	}

	data := DNSRecordResourceModel{
		Zone:       types.StringValue(parts[0]),
		Name:       types.StringValue(parts[1]),
		Type:       types.StringValue(rrType),
		Value:      types.StringValue(parts[3]),
		MirrorZone: types.StringNull(),
		MirrorName: types.StringNull(),
	}

	exists, err := r.svc.RecordExists(ctx, parts[0], data.record())
	if err != nil {
		addServiceError(&resp.Diagnostics, "Error Importing DNS Record", err)
		return
	}
	if !exists {
		addServiceError(&resp.Diagnostics, "Error Importing DNS Record", dcerr.NotFound("import_dns_record", req.ID))
		return
	}

	data.ID = types.StringValue(data.id())
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (m *DNSRecordResourceModel) record() dns.Record {
	return dns.Record{
		Name:  m.Name.ValueString(),
		Type:  m.Type.ValueString(),
		Value: m.Value.ValueString(),
	}
}

func (m *DNSRecordResourceModel) id() string {
	return strings.Join([]string{
		m.Zone.ValueString(),
		m.Name.ValueString(),
		strings.ToUpper(m.Type.ValueString()),
		m.Value.ValueString(),
	}, "/")
}
