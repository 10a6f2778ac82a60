// Package helpers converts between framework values and the plain Go values
// the connector service takes and returns.
package helpers

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

// SetToStrings returns the elements of a string set. Null and unknown sets
// return nil so callers can tell "unmanaged" from "empty".
func SetToStrings(ctx context.Context, set types.Set, diags *diag.Diagnostics) []string {
	if set.IsNull() || set.IsUnknown() {
		return nil
	}
	values := []string{}
	diags.Append(set.ElementsAs(ctx, &values, false)...)
	return values
}

// StringsToSet builds a string set, sorted so that plans stay stable.
func StringsToSet(ctx context.Context, values []string, diags *diag.Diagnostics) types.Set {
	sorted := slices.Clone(values)
	if sorted == nil {
		sorted = []string{}
	}
	slices.SortFunc(sorted, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	set, d := types.SetValueFrom(ctx, types.StringType, sorted)
	diags.Append(d...)
	return set
}

// KeepConfiguredSpelling returns current with every element that equals a
// configured element ignoring case replaced by the configured spelling.
// Directory names are case-insensitive while Terraform sets are not.
func KeepConfiguredSpelling(configured, current []string) []string {
	out := make([]string, 0, len(current))
	for _, c := range current {
		i := slices.IndexFunc(configured, func(v string) bool { return strings.EqualFold(v, c) })
		if i >= 0 {
			out = append(out, configured[i])
			continue
		}
		out = append(out, c)
	}
	return out
}

// StringOrNull maps "" to a null string.
func StringOrNull(s string) types.String {
	if s == "" {
		return types.StringNull()
	}
	return types.StringValue(s)
}

// TimeOrNull formats t as RFC 3339, mapping the zero time to null.
func TimeOrNull(t time.Time) types.String {
	if t.IsZero() {
		return types.StringNull()
	}
	return types.StringValue(t.UTC().Format(time.RFC3339))
}
