package api

import (
	"context"
	"time"

	"github.com/adhivakta/adhivakta-api/models"
)

// QueryTimeout is the default timeout for database queries
const QueryTimeout = 10 * time.Second

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

// Caller is the authenticated principal attached to a request context
type Caller struct {
	ID   string
	Role models.Role
}

type contextKey string

const callerContextKey contextKey = "caller"

// WithCaller attaches the authenticated caller to a context
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerFromContext pulls the authenticated caller off a request context
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerContextKey).(Caller)
	return caller, ok
}
