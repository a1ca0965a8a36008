package ports

import (
	"context"
	"io"
)

//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Telemetry records the progress of rule executions.
type Telemetry interface {
	// Record starts a vertex for the named unit of work and attaches it to
	// the returned context.
	Record(ctx context.Context, name string) (context.Context, Vertex)

	// Close flushes and ends the recording session.
	Close() error
}

// Vertex is one recorded unit of work.
type Vertex interface {
	// Stdout returns a writer capturing the unit's standard output.
	Stdout() io.Writer

	// Stderr returns a writer capturing the unit's error output.
	Stderr() io.Writer

	// Cached marks the unit as satisfied from cache without running.
	Cached()

	// Complete finishes the unit, recording err if non-nil.
	Complete(err error)
}

type vertexContextKey struct{}

// ContextWithVertex attaches a vertex to the context so nested work can
// stream output into it.
func ContextWithVertex(ctx context.Context, v Vertex) context.Context {
	return context.WithValue(ctx, vertexContextKey{}, v)
}

// VertexFromContext returns the vertex attached to the context, or nil.
func VertexFromContext(ctx context.Context) Vertex {
	v, _ := ctx.Value(vertexContextKey{}).(Vertex)
	return v
}
