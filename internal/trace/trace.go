package trace

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Context carries the correlation id for one request/operation through the
// call chain, from the HTTP boundary down into the audit log and events.
type Context struct {
	TraceID string
	SpanID  string
}

// New creates a Context with a fresh trace id.
func New() Context {
	return Context{TraceID: uuid.NewString()}
}

// WithTraceID builds a Context around an already-known trace id, e.g. one
// read from an inbound X-Trace-Id header.
func WithTraceID(traceID string) Context {
	if traceID == "" {
		return New()
	}
	return Context{TraceID: traceID}
}

// Into stores tc on ctx.
func Into(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// From reads the Context stored on ctx, generating one on the fly if the
// caller never set one — callers deep in the stack should never fail just
// because a trace id wasn't propagated.
func From(ctx context.Context) Context {
	if tc, ok := ctx.Value(ctxKey{}).(Context); ok {
		return tc
	}
	return New()
}
