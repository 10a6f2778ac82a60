package provider

import (
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	datasourceschema "github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/tfsdk"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-go/tftypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-dccon/internal/connector/connectortest"
)

// testReadDataSource reads d with config and decodes the result into out.
func testReadDataSource(t *testing.T, d datasource.DataSource, config, out any) *datasource.ReadResponse {
	t.Helper()
	ctx := t.Context()

	schemaResp := &datasource.SchemaResponse{}
	d.Schema(ctx, datasource.SchemaRequest{}, schemaResp)
	require.False(t, schemaResp.Diagnostics.HasError(), "%v", schemaResp.Diagnostics)
	s := schemaResp.Schema

	raw := tfsdk.State{Schema: s, Raw: emptyDataSourceValue(t, s)}
	diags := raw.Set(ctx, config)
	require.False(t, diags.HasError(), "%v", diags)

	resp := &datasource.ReadResponse{State: tfsdk.State{Schema: s, Raw: emptyDataSourceValue(t, s)}}
	d.Read(ctx, datasource.ReadRequest{Config: tfsdk.Config{Schema: s, Raw: raw.Raw}}, resp)
	if !resp.Diagnostics.HasError() && out != nil {
		diags = resp.State.Get(ctx, out)
		require.False(t, diags.HasError(), "%v", diags)
	}
	return resp
}

func emptyDataSourceValue(t *testing.T, s datasourceschema.Schema) tftypes.Value {
	return tftypes.NewValue(s.Type().TerraformType(t.Context()), nil)
}

func TestGroupDataSourceRead(t *testing.T) {
	f := connectortest.New(t)
	f.AddUser("alice")
	f.AddUser("bob")
	f.AddGroup("devs", "alice", "bob")

	d := &GroupDataSource{svc: f.Service}

	var got GroupDataSourceModel
	resp := testReadDataSource(t, d, GroupDataSourceModel{
		Name:      types.StringValue("DEVS"),
		Members:   types.SetNull(types.StringType),
		MemberDNs: types.SetNull(types.StringType),
	}, &got)
	require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

	assert.Equal(t, "devs", got.ID.ValueString())
	assert.Equal(t, connectortest.GroupDN("devs"), got.DistinguishedName.ValueString())
	assert.ElementsMatch(t, []string{"alice", "bob"}, testSetStrings(t, got.Members))
	assert.ElementsMatch(t, []string{connectortest.UserDN("alice"), connectortest.UserDN("bob")}, testSetStrings(t, got.MemberDNs))

	missing := testReadDataSource(t, d, GroupDataSourceModel{
		Name:      types.StringValue("nobody"),
		Members:   types.SetNull(types.StringType),
		MemberDNs: types.SetNull(types.StringType),
	}, nil)
	require.True(t, missing.Diagnostics.HasError())
	assert.Contains(t, missing.Diagnostics.Errors()[0].Detail(), "does not exist")
}

func TestGroupsDataSourceRead(t *testing.T) {
	f := connectortest.New(t)
	f.AddUser("alice")
	f.AddGroup("web-admins", "alice")
	f.AddGroup("db-admins")
	f.AddGroup("web-users")

	d := &GroupsDataSource{svc: f.Service}

	var got GroupsDataSourceModel
	resp := testReadDataSource(t, d, GroupsDataSourceModel{
		Match:  types.StringValue("web-*"),
		Groups: types.ListNull(groupListItemType),
	}, &got)
	require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

	assert.Equal(t, "groups:web-*", got.ID.ValueString())
	assert.Equal(t, int64(2), got.GroupCount.ValueInt64())

	var names []string
	var counts []int64
	for _, v := range got.Groups.Elements() {
		obj, ok := v.(types.Object)
		require.True(t, ok)
		names = append(names, obj.Attributes()["name"].(types.String).ValueString())
		counts = append(counts, obj.Attributes()["member_count"].(types.Int64).ValueInt64())
	}
	assert.Equal(t, []string{"web-admins", "web-users"}, names)
	assert.Equal(t, []int64{1, 0}, counts)
}

func TestUserDataSourceRead(t *testing.T) {
	f := connectortest.New(t)
	f.AddGroup("staff", "alice")
	f.AddUser("alice", "staff")

	d := &UserDataSource{svc: f.Service}

	var got UserDataSourceModel
	resp := testReadDataSource(t, d, UserDataSourceModel{
		Name:   types.StringValue("alice"),
		Groups: types.SetNull(types.StringType),
	}, &got)
	require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

	assert.Equal(t, "alice", got.ID.ValueString())
	assert.Equal(t, connectortest.UserDN("alice"), got.DistinguishedName.ValueString())
	assert.True(t, got.Enabled.ValueBool())
	assert.Equal(t, int64(512), got.UserAccountControl.ValueInt64())
	assert.Equal(t, []string{"staff"}, testSetStrings(t, got.Groups))
}

func TestUsersDataSourceRead(t *testing.T) {
	f := connectortest.New(t)
	f.AddUser("bob")
	f.AddUser("alice")
	f.AddUser("carol")

	d := &UsersDataSource{svc: f.Service}

	var got UsersDataSourceModel
	resp := testReadDataSource(t, d, UsersDataSourceModel{}, &got)
	require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

	assert.Equal(t, "users:*", got.ID.ValueString())
	assert.Equal(t, int64(3), got.UserCount.ValueInt64())
	names := make([]string, 0, len(got.Users))
	for _, u := range got.Users {
		names = append(names, u.Name.ValueString())
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, names)
}

func TestDNSZonesDataSourceRead(t *testing.T) {
	f := connectortest.New(t)
	f.Tool.AddZone("1.168.192.in-addr.arpa").
		AddZone("_msdcs.example.org").
		AddZone("example.org")

	d := &DNSZonesDataSource{svc: f.Service}

	tests := map[string]struct {
		kind  types.String
		names []string
	}{
		"all":     {kind: types.StringNull(), names: []string{"example.org", "1.168.192.in-addr.arpa"}},
		"forward": {kind: types.StringValue("Forward"), names: []string{"example.org"}},
		"reverse": {kind: types.StringValue("reverse"), names: []string{"1.168.192.in-addr.arpa"}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var got DNSZonesDataSourceModel
			resp := testReadDataSource(t, d, DNSZonesDataSourceModel{
				Kind:  tt.kind,
				Names: types.ListNull(types.StringType),
			}, &got)
			require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

			var names []string
			require.False(t, got.Names.ElementsAs(t.Context(), &names, false).HasError())
			assert.Equal(t, tt.names, names)
			require.Len(t, got.Zones, len(tt.names))
			for _, z := range got.Zones {
				assert.Equal(t, z.Name.ValueString() != "example.org", z.Reverse.ValueBool())
			}
		})
	}
}

func TestDNSRecordsDataSourceRead(t *testing.T) {
	f := connectortest.New(t)
	f.Tool.AddZone("example.org").
		AddRecord("example.org", "@", "NS", "dc.example.org.").
		AddRecord("example.org", "web", "A", "192.168.1.10").
		AddRecord("example.org", "web", "AAAA", "2001:db8::10").
		AddRecord("example.org", "forelle", "A", "192.168.1.113")

	d := &DNSRecordsDataSource{svc: f.Service}

	var got DNSRecordsDataSourceModel
	resp := testReadDataSource(t, d, DNSRecordsDataSourceModel{
		Zone:  types.StringValue("example.org"),
		Match: types.StringValue("w*"),
	}, &got)
	require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

	require.Len(t, got.Records, 2)
	for _, r := range got.Records {
		assert.Equal(t, "web", r.Name.ValueString())
	}
	assert.ElementsMatch(t, []string{"A", "AAAA"}, []string{got.Records[0].Type.ValueString(), got.Records[1].Type.ValueString()})

	missing := testReadDataSource(t, d, DNSRecordsDataSourceModel{
		Zone: types.StringValue("nowhere.org"),
	}, nil)
	assert.True(t, missing.Diagnostics.HasError())
}
