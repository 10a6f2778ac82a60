package validators

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
)

var _ validator.String = caseInsensitiveOneOfValidator{}

// caseInsensitiveOneOfValidator accepts any spelling of one of validValues.
type caseInsensitiveOneOfValidator struct {
	validValues []string
}

func (v caseInsensitiveOneOfValidator) Description(_ context.Context) string {
	return fmt.Sprintf("value must be one of: %s (case-insensitive)", strings.Join(v.validValues, ", "))
}

func (v caseInsensitiveOneOfValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

func (v caseInsensitiveOneOfValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := strings.TrimSpace(request.ConfigValue.ValueString())
	if slices.ContainsFunc(v.validValues, func(valid string) bool { return strings.EqualFold(valid, value) }) {
		return
	}

	response.Diagnostics.AddAttributeError(
		request.Path,
		"Invalid Value",
		fmt.Sprintf("The value %q is not valid. Must be one of: %s (case-insensitive)",
			request.ConfigValue.ValueString(), strings.Join(v.validValues, ", ")),
	)
}

// CaseInsensitiveOneOf returns a validator which ensures that any configured
// attribute value matches one of the provided values, ignoring case and
// surrounding whitespace. Used for zone kinds such as "forward" or "Reverse".
//
// Unknown values and null values are skipped from validation.
func CaseInsensitiveOneOf(values ...string) validator.String {
	return caseInsensitiveOneOfValidator{
		validValues: values,
	}
}
