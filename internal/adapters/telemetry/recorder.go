// Package telemetry provides the progrock implementation of the telemetry
// port, rendering rule progress as a vertex per rule.
package telemetry

import (
	"context"
	"io"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"

	"go.trai.ch/forge/internal/core/ports"
)

// Recorder implements ports.Telemetry on a progrock recording session.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a recorder over a default progrock tape.
func New() *Recorder {
	return NewRecorder(progrock.NewTape())
}

// NewRecorder creates a recorder emitting updates to w.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{
		w:   w,
		rec: progrock.NewRecorder(w),
	}
}

// Record starts a vertex for the named unit of work and attaches it to the
// returned context.
func (r *Recorder) Record(ctx context.Context, name string) (context.Context, ports.Vertex) {
	v := r.rec.Vertex(digest.FromString(name), name)
	vertex := &Vertex{vertex: v}
	return ports.ContextWithVertex(ctx, vertex), vertex
}

// Close flushes and ends the recording session.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Vertex implements ports.Vertex wrapping *progrock.VertexRecorder.
type Vertex struct {
	vertex *progrock.VertexRecorder
}

// Stdout returns a writer capturing the unit's standard output.
func (v *Vertex) Stdout() io.Writer {
	return v.vertex.Stdout()
}

// Stderr returns a writer capturing the unit's error output.
func (v *Vertex) Stderr() io.Writer {
	return v.vertex.Stderr()
}

// Cached marks the unit as satisfied from cache.
func (v *Vertex) Cached() {
	v.vertex.Cached()
}

// Complete finishes the unit, recording err if non-nil.
func (v *Vertex) Complete(err error) {
	v.vertex.Done(err)
}
