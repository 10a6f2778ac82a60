package ldap

import (
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
)

func TestNewLDAPError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantCategory  ErrorCategory
		wantCode      uint16
		wantRetryable bool
	}{
		{
			name:         "invalid credentials",
			err:          ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("bad password")),
			wantCategory: ErrorCategoryAuthentication,
			wantCode:     ldap.LDAPResultInvalidCredentials,
		},
		{
			name:         "no such object",
			err:          ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("missing")),
			wantCategory: ErrorCategoryNotFound,
			wantCode:     ldap.LDAPResultNoSuchObject,
		},
		{
			name:         "value exists",
			err:          ldap.NewError(ldap.LDAPResultAttributeOrValueExists, errors.New("dup")),
			wantCategory: ErrorCategoryConflict,
			wantCode:     ldap.LDAPResultAttributeOrValueExists,
		},
		{
			name:          "busy",
			err:           ldap.NewError(ldap.LDAPResultBusy, errors.New("busy")),
			wantCategory:  ErrorCategoryServer,
			wantCode:      ldap.LDAPResultBusy,
			wantRetryable: true,
		},
		{
			name:          "generic connection failure",
			err:           errors.New("connection refused"),
			wantCategory:  ErrorCategoryConnection,
			wantRetryable: true,
		},
		{
			name:         "generic unknown failure",
			err:          errors.New("something odd"),
			wantCategory: ErrorCategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewLDAPError("search", tt.err)
			require.NotNil(t, got)

			assert.Equal(t, "search", got.Operation)
			assert.Equal(t, tt.wantCategory, got.Category)
			assert.Equal(t, tt.wantCode, got.LDAPCode)
			assert.Equal(t, tt.wantRetryable, got.IsRetryable())
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.Nil(t, NewLDAPError("search", nil))
}

func TestLDAPError_Error(t *testing.T) {
	err := WrapEntryError("add_member", "CN=staff,DC=example", "member",
		ldap.NewError(ldap.LDAPResultInsufficientAccessRights, errors.New("access denied")))

	msg := err.Error()
	assert.Contains(t, msg, "LDAP add_member failed (code 50)")
	assert.Contains(t, msg, "server: access denied")
	assert.Contains(t, msg, "DN: CN=staff,DC=example")
	assert.Contains(t, msg, "attribute: member")
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError("search", nil))

	inner := NewLDAPError("", errors.New("boom"))
	wrapped := WrapError("modify", inner)
	assert.Same(t, inner, wrapped)
	assert.Equal(t, "modify", inner.Operation)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(NewConnectionError("dial", true, nil)))
	assert.False(t, IsRetryableError(NewConnectionError("dial", false, nil)))
	assert.True(t, IsRetryableError(ldap.NewError(ldap.LDAPResultUnavailable, errors.New("down"))))
	assert.False(t, IsRetryableError(ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("missing"))))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want dcerr.Kind
	}{
		{"not found", ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("x")), dcerr.KindNotFound},
		{"already exists", ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("x")), dcerr.KindAlreadyExists},
		{"permission", ldap.NewError(ldap.LDAPResultInsufficientAccessRights, errors.New("x")), dcerr.KindTransport},
		{"network", errors.New("network unreachable"), dcerr.KindTransport},
		{"already classified", dcerr.Precondition("op", "obj", "bad"), dcerr.KindPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("op", "obj", tt.err)
			assert.Equal(t, tt.want, dcerr.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, Classify("op", "obj", nil))
}
