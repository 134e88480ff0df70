package ai

import (
	"context"
	"time"
)

const WeatherHTTPTimeout = 10 * time.Second

type toolUserContextKey struct{}

// WithToolUser binds the acting user to the generation context so tools can
// attribute the artifacts they create.
func WithToolUser(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, toolUserContextKey{}, userID)
}

// ToolUserFromContext returns the user bound by WithToolUser.
func ToolUserFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(toolUserContextKey{})
	if val == nil {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}
