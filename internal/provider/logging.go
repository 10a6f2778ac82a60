package provider

import (
	"context"

	"github.com/isometry/terraform-provider-dccon/internal/logging"
)

// initializeLogging registers the provider, directory and samba-tool
// subsystems. Levels follow TF_LOG_PROVIDER_DCCON_<SUBSYSTEM>. Call it at the
// top of every CRUD and Read method.
func initializeLogging(ctx context.Context) context.Context {
	return logging.WithSubsystems(ctx)
}
