package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/diag"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/logging"
)

// ProviderData is handed to every resource and data source by Configure.
type ProviderData struct {
	Service *connector.Service
}

// serviceFromProviderData extracts the connector service. It returns nil
// without diagnostics while the provider is not yet configured.
func serviceFromProviderData(providerData any, diags *diag.Diagnostics) *connector.Service {
	if providerData == nil {
		return nil
	}

	data, ok := providerData.(*ProviderData)
	if !ok {
		diags.AddError(
			"Unexpected Configure Type",
			fmt.Sprintf("Expected *provider.ProviderData, got: %T. Please report this issue to the provider developers.", providerData),
		)
		return nil
	}
	return data.Service
}

// addServiceError turns a connector error into an error diagnostic with a
// hint matching its kind.
func addServiceError(diags *diag.Diagnostics, summary string, err error) {
	var hint string
	switch dcerr.KindOf(err) {
	case dcerr.KindNotFound:
		hint = "The object does not exist on the domain controller."
	case dcerr.KindAlreadyExists:
		hint = "The object already exists. Import it instead of creating it."
	case dcerr.KindTransport:
		hint = "The directory server could not be reached or rejected the request."
	case dcerr.KindToolInvocation:
		hint = "samba-tool failed or its result could not be confirmed."
	case dcerr.KindPrecondition:
		hint = "The request is invalid for the current configuration."
	default:
		hint = "Unexpected error."
	}

	diags.AddError(summary, hint+"\n\n"+err.Error())
}

// trackOperation logs entry and exit of a CRUD or Read method. The returned
// func is deferred and reports the first error diagnostic, if any.
func trackOperation(ctx context.Context, kind, name, operation string, fields map[string]any, diags *diag.Diagnostics) func() {
	done := logging.Track(ctx, kind, name, operation, logging.SanitizeFields(fields))
	return func() {
		var err error
		if errs := diags.Errors(); len(errs) > 0 {
			err = errors.New(errs[0].Summary() + ": " + errs[0].Detail())
		}
		done(err)
	}
}
