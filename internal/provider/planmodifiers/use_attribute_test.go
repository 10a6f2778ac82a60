package planmodifiers_test

import (
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/tfsdk"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-go/tftypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-dccon/internal/provider/planmodifiers"
)

func TestUseAttributeWhenUnset_Description(t *testing.T) {
	modifier := planmodifiers.UseAttributeWhenUnset("name")

	assert.Equal(t, "uses the value of name if not explicitly configured", modifier.Description(t.Context()))
	assert.Equal(t, "uses the value of `name` if not explicitly configured", modifier.MarkdownDescription(t.Context()))
}

func TestUseAttributeWhenUnset_PlanModifyString(t *testing.T) {
	tests := map[string]struct {
		configValue       types.String
		nameValue         types.String
		planValue         types.String
		expectedPlanValue types.String
	}{
		"explicit value kept": {
			configValue:       types.StringValue("Alice Example"),
			nameValue:         types.StringValue("alice"),
			planValue:         types.StringValue("Alice Example"),
			expectedPlanValue: types.StringValue("Alice Example"),
		},
		"unset takes name": {
			configValue:       types.StringNull(),
			nameValue:         types.StringValue("alice"),
			planValue:         types.StringUnknown(),
			expectedPlanValue: types.StringValue("alice"),
		},
		"unset with unknown name stays unknown": {
			configValue:       types.StringNull(),
			nameValue:         types.StringUnknown(),
			planValue:         types.StringUnknown(),
			expectedPlanValue: types.StringUnknown(),
		},
		"unknown config untouched": {
			configValue:       types.StringUnknown(),
			nameValue:         types.StringValue("alice"),
			planValue:         types.StringUnknown(),
			expectedPlanValue: types.StringUnknown(),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			nameValue, err := test.nameValue.ToTerraformValue(t.Context())
			require.NoError(t, err)
			planValue, err := test.planValue.ToTerraformValue(t.Context())
			require.NoError(t, err)

			plan := tfsdk.Plan{
				Raw: tftypes.NewValue(tftypes.Object{
					AttributeTypes: map[string]tftypes.Type{
						"name":         tftypes.String,
						"display_name": tftypes.String,
					},
				}, map[string]tftypes.Value{
					"name":         nameValue,
					"display_name": planValue,
				}),
				Schema: schema.Schema{
					Attributes: map[string]schema.Attribute{
						"name":         schema.StringAttribute{Required: true},
						"display_name": schema.StringAttribute{Optional: true, Computed: true},
					},
				},
			}

			req := planmodifier.StringRequest{
				Path:        path.Root("display_name"),
				ConfigValue: test.configValue,
				Plan:        plan,
				PlanValue:   test.planValue,
			}
			resp := &planmodifier.StringResponse{PlanValue: test.planValue}

			planmodifiers.UseAttributeWhenUnset("name").PlanModifyString(t.Context(), req, resp)

			require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)
			assert.True(t, resp.PlanValue.Equal(test.expectedPlanValue), "got %v", resp.PlanValue)
		})
	}
}
