package types

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types/basetypes"
	"github.com/hashicorp/terraform-plugin-go/tftypes"

	"github.com/isometry/terraform-provider-dccon/internal/ldap"
)

var (
	_ basetypes.StringTypable                    = DNStringType{}
	_ basetypes.StringValuableWithSemanticEquals = DNStringValue{}
)

// DNStringType holds distinguished names. Two DNs are semantically equal
// when ldap.EqualDN says so, which lets the directory return a differently
// cased or spaced spelling of a configured DN without producing a diff.
type DNStringType struct {
	basetypes.StringType
}

func (t DNStringType) String() string { return "DNStringType" }

func (t DNStringType) ValueType(context.Context) attr.Value { return DNStringValue{} }

func (t DNStringType) Equal(o attr.Type) bool {
	other, ok := o.(DNStringType)
	return ok && t.StringType.Equal(other.StringType)
}

func (t DNStringType) ValueFromString(_ context.Context, in basetypes.StringValue) (basetypes.StringValuable, diag.Diagnostics) {
	return DNStringValue{StringValue: in}, nil
}

func (t DNStringType) ValueFromTerraform(ctx context.Context, in tftypes.Value) (attr.Value, error) {
	v, err := t.StringType.ValueFromTerraform(ctx, in)
	if err != nil {
		return nil, err
	}
	s, ok := v.(basetypes.StringValue)
	if !ok {
		return nil, fmt.Errorf("unexpected value type %T for a DN", v)
	}
	return DNStringValue{StringValue: s}, nil
}

// DNStringValue is a distinguished name.
type DNStringValue struct {
	basetypes.StringValue
}

func (v DNStringValue) Equal(o attr.Value) bool {
	other, ok := o.(DNStringValue)
	return ok && v.StringValue.Equal(other.StringValue)
}

func (v DNStringValue) Type(context.Context) attr.Type { return DNStringType{} }

// StringSemanticEquals compares known values with ldap.EqualDN; null and
// unknown values only equal themselves.
func (v DNStringValue) StringSemanticEquals(_ context.Context, newValuable basetypes.StringValuable) (bool, diag.Diagnostics) {
	var diags diag.Diagnostics

	next, ok := newValuable.(DNStringValue)
	if !ok {
		diags.AddError("DN Comparison Error",
			fmt.Sprintf("Cannot compare a DN with a value of type %T. Please report this issue to the provider developers.", newValuable))
		return false, diags
	}

	if v.IsNull() || v.IsUnknown() || next.IsNull() || next.IsUnknown() {
		return v.Equal(next), diags
	}
	return ldap.EqualDN(v.ValueString(), next.ValueString()), diags
}

func DNString(value string) DNStringValue {
	return DNStringValue{StringValue: basetypes.NewStringValue(value)}
}

func DNStringNull() DNStringValue {
	return DNStringValue{StringValue: basetypes.NewStringNull()}
}

func DNStringUnknown() DNStringValue {
	return DNStringValue{StringValue: basetypes.NewStringUnknown()}
}
