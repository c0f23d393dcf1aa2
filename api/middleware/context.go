package middleware

import "context"

type contextKey string

const ctxSchoolID contextKey = "school_id"

// SchoolIDFromContext returns the tenant school id, or zero when absent.
// Handlers behind the Tenant middleware can rely on a non-zero value.
func SchoolIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxSchoolID).(int64); ok {
		return v
	}
	return 0
}

// WithSchoolID injects the tenant school identifier for downstream
// handlers.
func WithSchoolID(ctx context.Context, schoolID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSchoolID, schoolID)
}
