package cmn

import (
	"context"

	"github.com/teris-io/shortid"
)

type ctxKey int

const correlationCtxKey ctxKey = iota

// NewCorrelationID mints a correlation id when a request arrives without
// one (§4.11). shortid is the teacher's direct dependency for compact,
// collision-resistant ids; it is not used for entity identity (those are
// UUIDs per §3), only for this low-stakes, human-readable trace token.
func NewCorrelationID() string {
	id, err := shortid.Generate()
	if err != nil {
		// shortid's generator is process-local and effectively infallible
		// once initialized; degrade to a fixed marker rather than fail
		// the request pipeline over a tracing concern.
		return "cid-unavailable"
	}
	return id
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationCtxKey, id)
}

func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationCtxKey).(string); ok {
		return id
	}
	return ""
}
