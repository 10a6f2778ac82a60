package validators

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/isometry/terraform-provider-dccon/internal/ldap"
)

var _ validator.String = dnValidator{}

// dnValidator validates that a string is a well-formed distinguished name.
type dnValidator struct{}

func (v dnValidator) Description(_ context.Context) string {
	return "value must be a valid Distinguished Name (DN)"
}

func (v dnValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

func (v dnValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := request.ConfigValue.ValueString()
	if err := ldap.ValidateDNSyntax(value); err != nil {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid Distinguished Name",
			fmt.Sprintf("The value %q is not a valid Distinguished Name: %s", value, err.Error()),
		)
	}
}

// IsValidDN returns a validator which ensures that any configured
// attribute value is a valid Distinguished Name (DN).
//
// Unknown values and null values are skipped from validation.
func IsValidDN() validator.String {
	return dnValidator{}
}
