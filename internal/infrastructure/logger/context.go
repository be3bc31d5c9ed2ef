package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	runIDKey          contextKey = "run_id"
	organizationIDKey contextKey = "organization_id"
)

// WithRunID tags a context with a reconcile run identifier so database
// traces and per-organization log entries from the same sweep correlate.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID retrieves the run identifier from context
func RunID(ctx context.Context) string {
	if runID, ok := ctx.Value(runIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithOrganizationID tags a context with the organization being processed
func WithOrganizationID(ctx context.Context, organizationID string) context.Context {
	return context.WithValue(ctx, organizationIDKey, organizationID)
}

// OrganizationID retrieves the organization identifier from context
func OrganizationID(ctx context.Context) string {
	if organizationID, ok := ctx.Value(organizationIDKey).(string); ok {
		return organizationID
	}
	return ""
}

// ContextFields returns zap fields for the correlation identifiers the
// context carries. Absent identifiers produce no field.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if runID := RunID(ctx); runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	if organizationID := OrganizationID(ctx); organizationID != "" {
		fields = append(fields, zap.String("organization_id", organizationID))
	}
	return fields
}
