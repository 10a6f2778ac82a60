package validators

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
)

var _ validator.String = matchPatternValidator{}

type matchPatternValidator struct{}

func (v matchPatternValidator) Description(_ context.Context) string {
	return "value must be a wildcard pattern using *, ?, [...] and {a,b}"
}

func (v matchPatternValidator) MarkdownDescription(ctx context.Context) string {
	return "value must be a wildcard pattern using `*`, `?`, `[...]` and `{a,b}`"
}

func (v matchPatternValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	if _, err := connector.NewMatcher(request.ConfigValue.ValueString()); err != nil {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid Match Pattern",
			fmt.Sprintf("The value %q is not a valid wildcard pattern: %s", request.ConfigValue.ValueString(), err.Error()),
		)
	}
}

// IsMatchPattern returns a validator for the name filters of list data
// sources.
func IsMatchPattern() validator.String {
	return matchPatternValidator{}
}
