// Package logging holds the tflog subsystem names and the timing helpers
// shared by the directory client, the domain tool runner and the provider.
package logging

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Subsystem names. Levels are read from TF_LOG_PROVIDER_DCCON_<NAME>.
const (
	SubsystemLDAP      = "ldap"
	SubsystemPool      = "pool"
	SubsystemKerberos  = "kerberos"
	SubsystemDNS       = "dns"
	SubsystemSambaTool = "sambatool"
	SubsystemConnector = "connector"
	SubsystemProvider  = "provider"
)

var subsystems = []string{
	SubsystemLDAP,
	SubsystemPool,
	SubsystemKerberos,
	SubsystemDNS,
	SubsystemSambaTool,
	SubsystemConnector,
	SubsystemProvider,
}

// WithSubsystems registers every subsystem logger on ctx.
func WithSubsystems(ctx context.Context) context.Context {
	for _, name := range subsystems {
		ctx = tflog.NewSubsystem(ctx, name,
			tflog.WithLevelFromEnv("TF_LOG_PROVIDER_DCCON_"+strings.ToUpper(name)))
	}
	return ctx
}

// Operation logs the start and the outcome of fn with its duration.
func Operation(ctx context.Context, subsystem, operation string, fields map[string]any, fn func() error) error {
	start := time.Now()

	f := make(map[string]any, len(fields)+3)
	maps.Copy(f, fields)
	f["operation"] = operation

	tflog.SubsystemDebug(ctx, subsystem, "Starting operation", f)

	err := fn()

	f["duration_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		f["error"] = err.Error()
		tflog.SubsystemError(ctx, subsystem, "Operation failed", f)
	} else {
		tflog.SubsystemDebug(ctx, subsystem, "Operation completed successfully", f)
	}

	return err
}

// Track returns a completion callback for entry/exit logging of a
// presentation-tier operation.
func Track(ctx context.Context, kind, name, operation string, fields map[string]any) func(error) {
	start := time.Now()

	entry := make(map[string]any, len(fields)+2)
	maps.Copy(entry, fields)
	entry[kind] = name
	entry["operation"] = operation
	tflog.SubsystemDebug(ctx, SubsystemProvider, "Starting "+strings.ReplaceAll(kind, "_", " ")+" operation", entry)

	return func(err error) {
		exit := maps.Clone(entry)
		exit["duration_ms"] = time.Since(start).Milliseconds()
		exit["has_error"] = err != nil

		if err != nil {
			exit["error"] = err.Error()
			tflog.SubsystemError(ctx, SubsystemProvider, "Operation failed", exit)
			return
		}
		tflog.SubsystemDebug(ctx, SubsystemProvider, "Operation completed", exit)
	}
}

var sensitiveKeys = map[string]bool{
	"password":     true,
	"passwd":       true,
	"new_password": true,
	"secret":       true,
	"token":        true,
	"credential":   true,
	"credentials":  true,
}

// SanitizeFields redacts sensitive keys and values.
func SanitizeFields(fields map[string]any) map[string]any {
	sanitized := make(map[string]any, len(fields))
	for k, v := range fields {
		if sensitiveKeys[strings.ToLower(k)] {
			sanitized[k] = "[REDACTED]"
			continue
		}
		if s, ok := v.(string); ok && containsSensitivePattern(s) {
			sanitized[k] = "[REDACTED]"
			continue
		}
		sanitized[k] = v
	}
	return sanitized
}

func containsSensitivePattern(s string) bool {
	lower := strings.ToLower(s)
	for _, pattern := range []string{"password=", "passwd=", "secret=", "token=", "newpassword="} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// RedactArgs masks the values of password-bearing command line arguments.
func RedactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = arg
		if k, _, ok := strings.Cut(arg, "="); ok && containsSensitivePattern(k+"=") {
			out[i] = k + "=***"
		}
	}
	return out
}
