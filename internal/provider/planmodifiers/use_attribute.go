// Package planmodifiers holds plan modifiers shared by the dccon resources.
package planmodifiers

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

type useAttributeWhenUnset struct {
	source string
}

// UseAttributeWhenUnset returns a plan modifier for an optional computed
// string that takes the planned value of the root attribute source when it is
// not configured. dccon_user uses it to default display_name to name.
func UseAttributeWhenUnset(source string) planmodifier.String {
	return useAttributeWhenUnset{source: source}
}

func (m useAttributeWhenUnset) Description(_ context.Context) string {
	return fmt.Sprintf("uses the value of %s if not explicitly configured", m.source)
}

func (m useAttributeWhenUnset) MarkdownDescription(_ context.Context) string {
	return fmt.Sprintf("uses the value of `%s` if not explicitly configured", m.source)
}

func (m useAttributeWhenUnset) PlanModifyString(ctx context.Context, req planmodifier.StringRequest, resp *planmodifier.StringResponse) {
	if !req.ConfigValue.IsNull() {
		return
	}

	var source types.String
	resp.Diagnostics.Append(req.Plan.GetAttribute(ctx, path.Root(m.source), &source)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if source.IsUnknown() || source.IsNull() {
		return
	}

	resp.PlanValue = source
}
