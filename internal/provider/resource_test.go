package provider

import (
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/resource"
	resourceschema "github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/tfsdk"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-go/tftypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-dccon/internal/connector/connectortest"
	customtypes "github.com/isometry/terraform-provider-dccon/internal/provider/types"
)

func testResourceSchema(t *testing.T, r resource.Resource) resourceschema.Schema {
	t.Helper()
	resp := &resource.SchemaResponse{}
	r.Schema(t.Context(), resource.SchemaRequest{}, resp)
	require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)
	return resp.Schema
}

func testEmptyState(t *testing.T, s resourceschema.Schema) tfsdk.State {
	t.Helper()
	return tfsdk.State{Schema: s, Raw: tftypes.NewValue(s.Type().TerraformType(t.Context()), nil)}
}

func testPlan(t *testing.T, s resourceschema.Schema, model any) tfsdk.Plan {
	t.Helper()
	plan := tfsdk.Plan{Schema: s, Raw: tftypes.NewValue(s.Type().TerraformType(t.Context()), nil)}
	diags := plan.Set(t.Context(), model)
	require.False(t, diags.HasError(), "%v", diags)
	return plan
}

func testState(t *testing.T, s resourceschema.Schema, model any) tfsdk.State {
	t.Helper()
	state := testEmptyState(t, s)
	diags := state.Set(t.Context(), model)
	require.False(t, diags.HasError(), "%v", diags)
	return state
}

func testStringSet(t *testing.T, values ...string) types.Set {
	t.Helper()
	set, diags := types.SetValueFrom(t.Context(), types.StringType, values)
	require.False(t, diags.HasError(), "%v", diags)
	return set
}

func testSetStrings(t *testing.T, set types.Set) []string {
	t.Helper()
	var out []string
	diags := set.ElementsAs(t.Context(), &out, false)
	require.False(t, diags.HasError(), "%v", diags)
	return out
}

// testCreate runs Create and returns the new state.
func testCreate(t *testing.T, r resource.Resource, plan tfsdk.Plan) *resource.CreateResponse {
	t.Helper()
	resp := &resource.CreateResponse{State: testEmptyState(t, plan.Schema.(resourceschema.Schema))}
	r.Create(t.Context(), resource.CreateRequest{Plan: plan}, resp)
	return resp
}

func testRead(t *testing.T, r resource.Resource, state tfsdk.State) *resource.ReadResponse {
	t.Helper()
	resp := &resource.ReadResponse{State: state}
	r.Read(t.Context(), resource.ReadRequest{State: state}, resp)
	return resp
}

func testUpdate(t *testing.T, r resource.Resource, plan tfsdk.Plan, state tfsdk.State) *resource.UpdateResponse {
	t.Helper()
	resp := &resource.UpdateResponse{State: state}
	r.Update(t.Context(), resource.UpdateRequest{Plan: plan, State: state}, resp)
	return resp
}

func testDelete(t *testing.T, r resource.Resource, state tfsdk.State) *resource.DeleteResponse {
	t.Helper()
	resp := &resource.DeleteResponse{State: state}
	r.Delete(t.Context(), resource.DeleteRequest{State: state}, resp)
	return resp
}

func testImport(t *testing.T, r resource.ResourceWithImportState, id string) *resource.ImportStateResponse {
	t.Helper()
	resp := &resource.ImportStateResponse{State: testEmptyState(t, testResourceSchema(t, r))}
	r.ImportState(t.Context(), resource.ImportStateRequest{ID: id}, resp)
	return resp
}

func TestGroupResourceLifecycle(t *testing.T) {
	ctx := t.Context()
	f := connectortest.New(t)
	f.AddUser("alice")
	f.AddUser("bob")

	r := &GroupResource{svc: f.Service}
	s := testResourceSchema(t, r)

	created := testCreate(t, r, testPlan(t, s, GroupResourceModel{
		ID:                types.StringUnknown(),
		Name:              types.StringValue("devs"),
		Members:           testStringSet(t, "alice"),
		DistinguishedName: customtypes.DNStringUnknown(),
		GUID:              types.StringUnknown(),
		SID:               types.StringUnknown(),
	}))
	require.False(t, created.Diagnostics.HasError(), "%v", created.Diagnostics)

	var group GroupResourceModel
	require.False(t, created.State.Get(ctx, &group).HasError())
	assert.Equal(t, "devs", group.ID.ValueString())
	assert.Equal(t, connectortest.GroupDN("devs"), group.DistinguishedName.ValueString())
	assert.Equal(t, []string{"alice"}, testSetStrings(t, group.Members))
	assert.Equal(t, []string{connectortest.UserDN("alice")}, f.Dir.Values(connectortest.GroupDN("devs"), "member"))

	read := testRead(t, r, created.State)
	require.False(t, read.Diagnostics.HasError(), "%v", read.Diagnostics)
	assert.True(t, read.State.Raw.Equal(created.State.Raw))

	group.Members = testStringSet(t, "bob")
	updated := testUpdate(t, r, testPlan(t, s, group), created.State)
	require.False(t, updated.Diagnostics.HasError(), "%v", updated.Diagnostics)
	assert.Equal(t, []string{connectortest.UserDN("bob")}, f.Dir.Values(connectortest.GroupDN("devs"), "member"))

	deleted := testDelete(t, r, updated.State)
	require.False(t, deleted.Diagnostics.HasError(), "%v", deleted.Diagnostics)
	assert.NotContains(t, f.Tool.Groups(), "devs")

	gone := testRead(t, r, updated.State)
	require.False(t, gone.Diagnostics.HasError(), "%v", gone.Diagnostics)
	assert.True(t, gone.State.Raw.IsNull())

	// Deleting an absent group is not an error.
	again := testDelete(t, r, updated.State)
	assert.False(t, again.Diagnostics.HasError(), "%v", again.Diagnostics)
}

func TestGroupResourceCreateExisting(t *testing.T) {
	f := connectortest.New(t)
	f.AddGroup("devs")

	r := &GroupResource{svc: f.Service}
	s := testResourceSchema(t, r)

	created := testCreate(t, r, testPlan(t, s, GroupResourceModel{
		ID:                types.StringUnknown(),
		Name:              types.StringValue("devs"),
		Members:           types.SetNull(types.StringType),
		DistinguishedName: customtypes.DNStringUnknown(),
		GUID:              types.StringUnknown(),
		SID:               types.StringUnknown(),
	}))
	require.True(t, created.Diagnostics.HasError())
	assert.Equal(t, "Error Creating Group", created.Diagnostics.Errors()[0].Summary())
	assert.Contains(t, created.Diagnostics.Errors()[0].Detail(), "Import it instead")
}

func TestGroupResourceUnmanagedMembers(t *testing.T) {
	ctx := t.Context()
	f := connectortest.New(t)
	f.AddUser("alice")
	f.AddGroup("devs", "alice")

	r := &GroupResource{svc: f.Service}
	s := testResourceSchema(t, r)

	state := testState(t, s, GroupResourceModel{
		ID:                types.StringValue("devs"),
		Name:              types.StringValue("devs"),
		Members:           types.SetNull(types.StringType),
		DistinguishedName: customtypes.DNString(connectortest.GroupDN("devs")),
		GUID:              types.StringNull(),
		SID:               types.StringNull(),
	})

	read := testRead(t, r, state)
	require.False(t, read.Diagnostics.HasError(), "%v", read.Diagnostics)

	var group GroupResourceModel
	require.False(t, read.State.Get(ctx, &group).HasError())
	assert.True(t, group.Members.IsNull())
	assert.Equal(t, []string{connectortest.UserDN("alice")}, f.Dir.Values(connectortest.GroupDN("devs"), "member"))
}

func TestGroupResourceImport(t *testing.T) {
	f := connectortest.New(t)
	f.AddUser("alice")
	f.AddGroup("ops", "alice")

	r := &GroupResource{svc: f.Service}
	resp := testImport(t, r, " ops ")
	require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

	var group GroupResourceModel
	require.False(t, resp.State.Get(t.Context(), &group).HasError())
	assert.Equal(t, "ops", group.ID.ValueString())
	assert.Equal(t, []string{"alice"}, testSetStrings(t, group.Members))

	missing := testImport(t, r, "nobody")
	assert.True(t, missing.Diagnostics.HasError())
}

func newUserPlanModel(t *testing.T) UserResourceModel {
	return UserResourceModel{
		ID:                   types.StringUnknown(),
		Name:                 types.StringValue("anna"),
		Password:             types.StringValue("S3cret!"),
		DisplayName:          types.StringValue("Anna Example"),
		Gecos:                types.StringNull(),
		Email:                types.StringValue("anna@example.org"),
		TelephoneNumber:      types.StringNull(),
		Mobile:               types.StringNull(),
		Enabled:              types.BoolValue(true),
		PasswordNeverExpires: types.BoolValue(false),
		Groups:               testStringSet(t, "staff"),
		DistinguishedName:    customtypes.DNStringUnknown(),
		GUID:                 types.StringUnknown(),
		SID:                  types.StringUnknown(),
		LoginShell:           types.StringUnknown(),
		HomeDirectory:        types.StringUnknown(),
		UnixHomeDirectory:    types.StringUnknown(),
	}
}

func TestUserResourceLifecycle(t *testing.T) {
	ctx := t.Context()
	f := connectortest.New(t)
	f.AddGroup("staff")
	f.AddGroup("admins")

	r := &UserResource{svc: f.Service}
	s := testResourceSchema(t, r)

	created := testCreate(t, r, testPlan(t, s, newUserPlanModel(t)))
	require.False(t, created.Diagnostics.HasError(), "%v", created.Diagnostics)

	var user UserResourceModel
	require.False(t, created.State.Get(ctx, &user).HasError())
	assert.Equal(t, "anna", user.ID.ValueString())
	assert.Equal(t, connectortest.UserDN("anna"), user.DistinguishedName.ValueString())
	assert.Equal(t, "Anna Example", user.DisplayName.ValueString())
	assert.Equal(t, "anna@example.org", user.Email.ValueString())
	assert.True(t, user.Enabled.ValueBool())
	assert.Equal(t, "S3cret!", user.Password.ValueString())
	assert.Equal(t, []string{"staff"}, testSetStrings(t, user.Groups))
	assert.Equal(t, "S3cret!", f.Tool.Passwords["anna"])
	assert.False(t, user.LoginShell.IsUnknown())

	// New password and group set, same profile.
	user.Password = types.StringValue("N3wer!")
	user.Groups = testStringSet(t, "admins")
	updated := testUpdate(t, r, testPlan(t, s, user), created.State)
	require.False(t, updated.Diagnostics.HasError(), "%v", updated.Diagnostics)
	assert.Equal(t, "N3wer!", f.Tool.Passwords["anna"])
	assert.Empty(t, f.Dir.Values(connectortest.GroupDN("staff"), "member"))
	assert.Equal(t, []string{connectortest.UserDN("anna")}, f.Dir.Values(connectortest.GroupDN("admins"), "member"))

	var after UserResourceModel
	require.False(t, updated.State.Get(ctx, &after).HasError())
	assert.Equal(t, []string{"admins"}, testSetStrings(t, after.Groups))

	// Disabling writes the account control flags without a password reset.
	calls := len(f.Tool.CallsMatching("setpassword"))
	after.Enabled = types.BoolValue(false)
	disabled := testUpdate(t, r, testPlan(t, s, after), updated.State)
	require.False(t, disabled.Diagnostics.HasError(), "%v", disabled.Diagnostics)
	assert.Len(t, f.Tool.CallsMatching("setpassword"), calls)
	require.False(t, disabled.State.Get(ctx, &after).HasError())
	assert.False(t, after.Enabled.ValueBool())

	deleted := testDelete(t, r, disabled.State)
	require.False(t, deleted.Diagnostics.HasError(), "%v", deleted.Diagnostics)
	assert.NotContains(t, f.Tool.Users(), "anna")

	gone := testRead(t, r, disabled.State)
	require.False(t, gone.Diagnostics.HasError(), "%v", gone.Diagnostics)
	assert.True(t, gone.State.Raw.IsNull())
}

func TestUserResourceImport(t *testing.T) {
	f := connectortest.New(t)
	f.AddGroup("staff", "alice")
	f.AddUser("alice", "staff")

	r := &UserResource{svc: f.Service}
	resp := testImport(t, r, "alice")
	require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

	var user UserResourceModel
	require.False(t, resp.State.Get(t.Context(), &user).HasError())
	assert.Equal(t, "alice", user.ID.ValueString())
	assert.True(t, user.Password.IsNull())
	assert.True(t, user.Groups.IsNull())
	assert.True(t, user.Enabled.ValueBool())
}

func TestUserGroupsResourceLifecycle(t *testing.T) {
	ctx := t.Context()
	f := connectortest.New(t)
	f.AddGroup("staff", "alice")
	f.AddGroup("admins")
	f.AddGroup("ops")
	f.AddUser("alice", "staff")

	r := &UserGroupsResource{svc: f.Service}
	s := testResourceSchema(t, r)

	created := testCreate(t, r, testPlan(t, s, UserGroupsResourceModel{
		ID:     types.StringUnknown(),
		User:   types.StringValue("alice"),
		Groups: testStringSet(t, "admins", connectortest.GroupDN("ops")),
	}))
	require.False(t, created.Diagnostics.HasError(), "%v", created.Diagnostics)

	var model UserGroupsResourceModel
	require.False(t, created.State.Get(ctx, &model).HasError())
	assert.Equal(t, "alice", model.ID.ValueString())
	assert.ElementsMatch(t, []string{"admins", connectortest.GroupDN("ops")}, testSetStrings(t, model.Groups))
	assert.Empty(t, f.Dir.Values(connectortest.GroupDN("staff"), "member"))

	read := testRead(t, r, created.State)
	require.False(t, read.Diagnostics.HasError(), "%v", read.Diagnostics)
	assert.True(t, read.State.Raw.Equal(created.State.Raw))

	deleted := testDelete(t, r, created.State)
	require.False(t, deleted.Diagnostics.HasError(), "%v", deleted.Diagnostics)
	assert.Empty(t, f.Dir.Values(connectortest.GroupDN("admins"), "member"))
	assert.Empty(t, f.Dir.Values(connectortest.GroupDN("ops"), "member"))
	assert.Empty(t, f.Dir.Values(connectortest.UserDN("alice"), "memberOf"))
}

func TestDNSZoneResourceLifecycle(t *testing.T) {
	ctx := t.Context()
	f := connectortest.New(t)
	f.Tool.AddZone("example.org")

	r := &DNSZoneResource{svc: f.Service}
	s := testResourceSchema(t, r)

	created := testCreate(t, r, testPlan(t, s, DNSZoneResourceModel{
		ID:      types.StringUnknown(),
		Name:    types.StringValue("2.168.192.in-addr.arpa"),
		Reverse: types.BoolUnknown(),
	}))
	require.False(t, created.Diagnostics.HasError(), "%v", created.Diagnostics)

	var zone DNSZoneResourceModel
	require.False(t, created.State.Get(ctx, &zone).HasError())
	assert.Equal(t, "2.168.192.in-addr.arpa", zone.ID.ValueString())
	assert.True(t, zone.Reverse.ValueBool())
	assert.Contains(t, f.Tool.Zones(), "2.168.192.in-addr.arpa")

	imported := testImport(t, r, "example.org")
	require.False(t, imported.Diagnostics.HasError(), "%v", imported.Diagnostics)
	require.False(t, imported.State.Get(ctx, &zone).HasError())
	assert.False(t, zone.Reverse.ValueBool())

	deleted := testDelete(t, r, created.State)
	require.False(t, deleted.Diagnostics.HasError(), "%v", deleted.Diagnostics)
	assert.Equal(t, []string{"example.org"}, f.Tool.Zones())

	gone := testRead(t, r, created.State)
	require.False(t, gone.Diagnostics.HasError(), "%v", gone.Diagnostics)
	assert.True(t, gone.State.Raw.IsNull())
}

func newRecordPlanModel(zone, name, rrType, value string) DNSRecordResourceModel {
	return DNSRecordResourceModel{
		ID:         types.StringUnknown(),
		Zone:       types.StringValue(zone),
		Name:       types.StringValue(name),
		Type:       types.StringValue(rrType),
		Value:      types.StringValue(value),
		MirrorZone: types.StringUnknown(),
		MirrorName: types.StringUnknown(),
	}
}

func TestDNSRecordResourceLifecycle(t *testing.T) {
	ctx := t.Context()
	f := connectortest.New(t)
	f.Tool.AddZone("example.org").AddZone("1.168.192.in-addr.arpa")

	r := &DNSRecordResource{svc: f.Service}
	s := testResourceSchema(t, r)

	created := testCreate(t, r, testPlan(t, s, newRecordPlanModel("example.org", "web", "A", "192.168.1.10")))
	require.False(t, created.Diagnostics.HasError(), "%v", created.Diagnostics)
	assert.Empty(t, created.Diagnostics.Warnings())

	var record DNSRecordResourceModel
	require.False(t, created.State.Get(ctx, &record).HasError())
	assert.Equal(t, "example.org/web/A/192.168.1.10", record.ID.ValueString())
	assert.Equal(t, "1.168.192.in-addr.arpa", record.MirrorZone.ValueString())
	assert.Equal(t, "10", record.MirrorName.ValueString())
	assert.Equal(t, []string{"10 PTR web.example.org"}, f.Tool.Records("1.168.192.in-addr.arpa"))

	read := testRead(t, r, created.State)
	require.False(t, read.Diagnostics.HasError(), "%v", read.Diagnostics)
	assert.False(t, read.State.Raw.IsNull())

	record.Value = types.StringValue("192.168.1.11")
	updated := testUpdate(t, r, testPlan(t, s, record), created.State)
	require.False(t, updated.Diagnostics.HasError(), "%v", updated.Diagnostics)
	assert.Equal(t, []string{"web A 192.168.1.11"}, f.Tool.Records("example.org"))

	require.False(t, updated.State.Get(ctx, &record).HasError())
	assert.Equal(t, "example.org/web/A/192.168.1.11", record.ID.ValueString())

	deleted := testDelete(t, r, updated.State)
	require.False(t, deleted.Diagnostics.HasError(), "%v", deleted.Diagnostics)
	assert.Empty(t, f.Tool.Records("example.org"))

	gone := testRead(t, r, updated.State)
	require.False(t, gone.Diagnostics.HasError(), "%v", gone.Diagnostics)
	assert.True(t, gone.State.Raw.IsNull())
}

func TestDNSRecordResourceSkippedMirror(t *testing.T) {
	ctx := t.Context()
	f := connectortest.New(t)
	f.Tool.AddZone("example.org")

	r := &DNSRecordResource{svc: f.Service}
	s := testResourceSchema(t, r)

	created := testCreate(t, r, testPlan(t, s, newRecordPlanModel("example.org", "www", "CNAME", "web.example.org.")))
	require.False(t, created.Diagnostics.HasError(), "%v", created.Diagnostics)

	var record DNSRecordResourceModel
	require.False(t, created.State.Get(ctx, &record).HasError())
	assert.True(t, record.MirrorZone.IsNull())
	assert.True(t, record.MirrorName.IsNull())
}

func TestDNSRecordResourceImport(t *testing.T) {
	f := connectortest.New(t)
	f.Tool.AddZone("example.org").AddRecord("example.org", "web", "A", "192.168.1.10")

	r := &DNSRecordResource{svc: f.Service}

	tests := map[string]struct {
		id      string
		wantErr bool
	}{
		"lowercase type": {id: "example.org/web/a/192.168.1.10"},
		"missing value":  {id: "example.org/web/A", wantErr: true},
		"empty part":     {id: "example.org//A/192.168.1.10", wantErr: true},
		"unknown type":   {id: "example.org/web/XYZ/192.168.1.10", wantErr: true},
		"absent record":  {id: "example.org/web/A/192.168.1.99", wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			resp := testImport(t, r, tt.id)
			if tt.wantErr {
				assert.True(t, resp.Diagnostics.HasError())
				return
			}
			require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

			var record DNSRecordResourceModel
			require.False(t, resp.State.Get(t.Context(), &record).HasError())
			assert.Equal(t, "A", record.Type.ValueString())
			assert.Equal(t, "example.org/web/A/192.168.1.10", record.ID.ValueString())
			assert.True(t, record.MirrorZone.IsNull())
		})
	}
}
