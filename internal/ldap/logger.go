package ldap

import (
	"context"
	"errors"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/logging"
)

// LogLDAPError logs LDAP-specific error information.
func LogLDAPError(ctx context.Context, subsystem string, operation string, err error, fields map[string]any) {
	f := logging.SanitizeFields(fields)
	f["operation"] = operation
	f["error"] = err.Error()

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		f["ldap_result_code"] = resultErr.ResultCode
		if resultErr.MatchedDN != "" {
			f["ldap_matched_dn"] = resultErr.MatchedDN
		}
		if resultErr.Err != nil {
			f["ldap_diagnostic_message"] = resultErr.Err.Error()
		}
	}

	tflog.SubsystemError(ctx, subsystem, "LDAP operation failed", f)
}

// LogKerberosEvent logs Kerberos-specific events.
func LogKerberosEvent(ctx context.Context, event string, fields map[string]any) {
	f := logging.SanitizeFields(fields)
	f["event"] = event

	switch event {
	case "ticket_acquired", "gssapi_bind":
		tflog.SubsystemInfo(ctx, logging.SubsystemKerberos, "Kerberos event", f)
	case "ticket_acquisition_failed", "authentication_failed":
		tflog.SubsystemError(ctx, logging.SubsystemKerberos, "Kerberos event", f)
	default:
		tflog.SubsystemDebug(ctx, logging.SubsystemKerberos, "Kerberos event", f)
	}
}

// LogPoolEvent logs connection pool events.
func LogPoolEvent(ctx context.Context, event string, fields map[string]any) {
	f := logging.SanitizeFields(fields)
	f["event"] = event

	switch event {
	case "pool_exhausted", "connection_failed", "health_check_failed":
		tflog.SubsystemWarn(ctx, logging.SubsystemPool, "Pool event", f)
	case "pool_creation_failed":
		tflog.SubsystemError(ctx, logging.SubsystemPool, "Pool event", f)
	default:
		tflog.SubsystemDebug(ctx, logging.SubsystemPool, "Pool event", f)
	}
}
