// Package transport defines the interface for pluggable request transports.
//
// Each transport (HTTP, gRPC) accepts render work from outside the process
// and hands it to the renderer through a Handler. The renderer doesn't care
// how requests arrive.
package transport

import (
	"context"

	"github.com/nadzzz/scriptvoice/internal/queue"
	"github.com/nadzzz/scriptvoice/internal/render"
)

// Handler renders one request. The render pipeline provides it to each
// transport.
type Handler func(ctx context.Context, req render.Request) (*render.Result, error)

// Enqueuer submits a render for asynchronous processing and returns its id.
type Enqueuer func(ctx context.Context, payload queue.RenderPayload) (string, error)

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting requests and passes them to the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
