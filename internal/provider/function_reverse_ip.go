package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/function"

	"github.com/isometry/terraform-provider-dccon/internal/dns"
)

var _ function.Function = &ReverseIPFunction{}

// ReverseIPFunction implements the reverse_ip function, the inverse of
// reverse_label.
type ReverseIPFunction struct{}

// NewReverseIPFunction creates a new instance of the reverse_ip function.
func NewReverseIPFunction() function.Function {
	return &ReverseIPFunction{}
}

func (f ReverseIPFunction) Metadata(_ context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = "reverse_ip"
}

func (f ReverseIPFunction) Definition(_ context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary:     "Compute the IPv4 address named by a label in a reverse zone",
		Description: "Returns the IPv4 address named by a node label within an in-addr.arpa reverse zone, e.g. 192.168.1.113 for 113 in 1.168.192.in-addr.arpa.",
		MarkdownDescription: "Returns the IPv4 address named by a node label within an `in-addr.arpa` reverse zone, " +
			"e.g. `192.168.1.113` for `113` in `1.168.192.in-addr.arpa`.",
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:        "label",
				Description: "The node label relative to the zone.",
			},
			function.StringParameter{
				Name:        "zone",
				Description: "The reverse zone name.",
			},
		},
		Return: function.StringReturn{},
	}
}

func (f ReverseIPFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var label, zone string

	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &label, &zone))
	if resp.Error != nil {
		return
	}

	cfg := dns.DefaultConfig()
	if !cfg.IsReverseZone(zone) {
		resp.Error = function.NewArgumentFuncError(1, "zone "+zone+" is not a reverse zone")
		return
	}

	ip, err := cfg.ReverseLabelToIP(label, zone)
	if err != nil {
		resp.Error = function.NewArgumentFuncError(0, err.Error())
		return
	}

	resp.Error = resp.Result.Set(ctx, ip)
}
