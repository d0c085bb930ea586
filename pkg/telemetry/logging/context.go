package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// RunIDKey is the context key for the export run identifier.
	RunIDKey contextKey = "run_id"

	// WorkspaceKey is the context key for the exported workspace.
	WorkspaceKey contextKey = "workspace"

	// TriggerKey is the context key for what started the run ("cli", "schedule").
	TriggerKey contextKey = "trigger"
)

// WithRunID adds an export run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the export run ID from the context.
func GetRunID(ctx context.Context) string {
	if v, ok := ctx.Value(RunIDKey).(string); ok {
		return v
	}
	return ""
}

// WithWorkspace adds a workspace name to the context.
func WithWorkspace(ctx context.Context, workspace string) context.Context {
	return context.WithValue(ctx, WorkspaceKey, workspace)
}

// GetWorkspace retrieves the workspace name from the context.
func GetWorkspace(ctx context.Context) string {
	if v, ok := ctx.Value(WorkspaceKey).(string); ok {
		return v
	}
	return ""
}

// WithTrigger records what started the run.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, TriggerKey, trigger)
}

// GetTrigger retrieves the run trigger from the context.
func GetTrigger(ctx context.Context) string {
	if v, ok := ctx.Value(TriggerKey).(string); ok {
		return v
	}
	return ""
}

// Fields returns the non-empty context values as slog attributes.
func Fields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	if v := GetRunID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(RunIDKey), v))
	}
	if v := GetWorkspace(ctx); v != "" {
		attrs = append(attrs, slog.String(string(WorkspaceKey), v))
	}
	if v := GetTrigger(ctx); v != "" {
		attrs = append(attrs, slog.String(string(TriggerKey), v))
	}
	return attrs
}
