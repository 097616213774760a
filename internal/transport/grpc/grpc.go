// Package grpc implements the gRPC transport for scriptvoice.
//
// The server exposes the scriptvoice.Render service, the standard gRPC health
// service and server reflection. Render messages travel with the "json"
// content subtype, so clients need no generated stubs:
//
//	conn.Invoke(ctx, "/scriptvoice.Render/Render", req, &resp, grpc.CallContentSubtype("json"))
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/nadzzz/scriptvoice/internal/transport"
)

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *grpchealth.Server
}

// New creates a new gRPC transport on the given port. The render service
// reports NOT_SERVING until SetServing(true).
func New(port int) *Transport {
	h := grpchealth.NewServer()
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Transport{port: port, health: h}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// SetServing updates the health status of the render service.
func (t *Transport) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	t.health.SetServingStatus(ServiceName, status)
}

// Listen starts the gRPC server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.Serve(ctx, lis, handler)
}

// Serve runs the server on an existing listener until ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, handler transport.Handler) error {
	t.server = grpc.NewServer()
	t.server.RegisterService(&serviceDesc, &renderServer{handler: handler})
	healthpb.RegisterHealthServer(t.server, t.health)
	reflection.Register(t.server)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		t.server.GracefulStop()
	}()

	return t.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}
