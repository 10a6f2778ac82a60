package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/function"

	"github.com/isometry/terraform-provider-dccon/internal/dns"
)

var _ function.Function = &ReverseLabelFunction{}

// ReverseLabelFunction implements the reverse_label function.
type ReverseLabelFunction struct{}

// NewReverseLabelFunction creates a new instance of the reverse_label function.
func NewReverseLabelFunction() function.Function {
	return &ReverseLabelFunction{}
}

func (f ReverseLabelFunction) Metadata(_ context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = "reverse_label"
}

func (f ReverseLabelFunction) Definition(_ context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary:     "Compute the label of an IPv4 address within a reverse zone",
		Description: "Returns the node name of an IPv4 address relative to an in-addr.arpa reverse zone, e.g. 113 for 192.168.1.113 in 1.168.192.in-addr.arpa. Fails when the address lies outside the zone.",
		MarkdownDescription: "Returns the node name of an IPv4 address relative to an `in-addr.arpa` reverse zone, " +
			"e.g. `113` for `192.168.1.113` in `1.168.192.in-addr.arpa`, or `113.1` in `168.192.in-addr.arpa`. " +
			"Fails when the address lies outside the zone.",
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:        "ip",
				Description: "The IPv4 address.",
			},
			function.StringParameter{
				Name:        "zone",
				Description: "The reverse zone name.",
			},
		},
		Return: function.StringReturn{},
	}
}

func (f ReverseLabelFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var ip, zone string

	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &ip, &zone))
	if resp.Error != nil {
		return
	}

	cfg := dns.DefaultConfig()
	if !cfg.IsReverseZone(zone) {
		resp.Error = function.NewArgumentFuncError(1, "zone "+zone+" is not a reverse zone")
		return
	}

	label, err := cfg.IPToReverseLabel(ip, zone)
	if err != nil {
		resp.Error = function.NewArgumentFuncError(0, err.Error())
		return
	}

	resp.Error = resp.Result.Set(ctx, label)
}
