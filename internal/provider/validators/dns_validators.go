package validators

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	mdns "github.com/miekg/dns"

	"github.com/isometry/terraform-provider-dccon/internal/dns"
)

var (
	_ validator.String = domainNameValidator{}
	_ validator.String = recordTypeValidator{}
)

// domainNameValidator checks DNS name syntax. Relative names such as "www"
// are valid domain names too; absolute only adds the requirement of at
// least one dot.
type domainNameValidator struct {
	qualified bool
}

func (v domainNameValidator) Description(_ context.Context) string {
	if v.qualified {
		return "value must be a dotted DNS name"
	}
	return "value must be a valid DNS name"
}

func (v domainNameValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

func (v domainNameValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := request.ConfigValue.ValueString()
	if _, ok := mdns.IsDomainName(value); !ok || value == "" {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid DNS Name",
			fmt.Sprintf("The value %q is not a valid DNS name.", value),
		)
		return
	}
	if v.qualified && !strings.Contains(strings.TrimSuffix(value, "."), ".") {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid DNS Name",
			fmt.Sprintf("The value %q must contain at least two labels.", value),
		)
	}
}

// IsDomainName returns a validator accepting any syntactically valid DNS
// name, relative or absolute.
func IsDomainName() validator.String {
	return domainNameValidator{}
}

// IsZoneName returns a validator accepting DNS names of two or more labels.
func IsZoneName() validator.String {
	return domainNameValidator{qualified: true}
}

// recordTypeValidator accepts record type mnemonics known to the DNS library.
type recordTypeValidator struct{}

func (v recordTypeValidator) Description(_ context.Context) string {
	return "value must be a DNS record type such as A, AAAA, PTR, CNAME, MX, TXT or SRV"
}

func (v recordTypeValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

func (v recordTypeValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	if _, err := dns.ParseRecordType(request.ConfigValue.ValueString()); err != nil {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid Record Type",
			fmt.Sprintf("The value %q is not a known DNS record type.", request.ConfigValue.ValueString()),
		)
	}
}

// IsRecordType returns a validator for DNS record type names.
func IsRecordType() validator.String {
	return recordTypeValidator{}
}
