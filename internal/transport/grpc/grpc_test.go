package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nadzzz/scriptvoice/internal/audio"
	"github.com/nadzzz/scriptvoice/internal/render"
	"github.com/nadzzz/scriptvoice/internal/script"
)

func dial(t *testing.T, handler func(context.Context, render.Request) (*render.Result, error)) (*Transport, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	tr := New(0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tr.Serve(ctx, lis, handler)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient failed: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})
	return tr, conn
}

func TestRenderRPC(t *testing.T) {
	var got render.Request
	_, conn := dial(t, func(ctx context.Context, req render.Request) (*render.Result, error) {
		got = req
		buf := &audio.Buffer{Samples: []float32{0, 0.5}, SampleRate: 24000, Channels: 1}
		return &render.Result{RunID: "run-1", Audio: buf, Segments: 1, Jobs: 1}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var resp RenderResponse
	req := &RenderRequest{ID: "run-1", Script: "{[hero]}Hi", Format: "pcm"}
	if err := conn.Invoke(ctx, RenderMethod, req, &resp, grpc.CallContentSubtype("json")); err != nil {
		t.Fatalf("Render RPC failed: %v", err)
	}
	if resp.RunID != "run-1" || resp.ContentType != "audio/L16" || len(resp.Audio) != 4 {
		t.Errorf("Unexpected response %+v", resp)
	}
	if got.Script != "{[hero]}Hi" {
		t.Errorf("Expected script to reach handler, got %q", got.Script)
	}
}

func TestRenderRPCErrorCodes(t *testing.T) {
	tests := []struct {
		name   string
		format string
		err    error
		want   codes.Code
	}{
		{"bad format", "mp3", nil, codes.InvalidArgument},
		{"unknown character", "", &script.UnknownCharacterError{ID: "ghost"}, codes.InvalidArgument},
		{"empty script", "", render.ErrEmptyScript, codes.InvalidArgument},
		{"internal", "", errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, conn := dial(t, func(ctx context.Context, req render.Request) (*render.Result, error) {
				return nil, tt.err
			})
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			var resp RenderResponse
			err := conn.Invoke(ctx, RenderMethod, &RenderRequest{Script: "x", Format: tt.format}, &resp, grpc.CallContentSubtype("json"))
			if got := status.Code(err); got != tt.want {
				t.Errorf("Expected %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}

func TestHealthStatus(t *testing.T) {
	tr, conn := dial(t, nil)
	client := healthpb.NewHealthClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING before ready, got %s", resp.GetStatus())
	}

	tr.SetServing(true)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING, got %s", resp.GetStatus())
	}
}
