package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/scriptvoice/internal/character"
	"github.com/nadzzz/scriptvoice/internal/orchestrator"
	"github.com/nadzzz/scriptvoice/internal/render"
	"github.com/nadzzz/scriptvoice/internal/script"
	"github.com/nadzzz/scriptvoice/internal/transport"
)

// ServiceName is the fully-qualified render service name, also used for
// health checks.
const ServiceName = "scriptvoice.Render"

// RenderMethod is the full method path of the Render RPC.
const RenderMethod = "/" + ServiceName + "/Render"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec carries render messages as JSON.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

// RenderRequest is the Render RPC input.
type RenderRequest struct {
	ID         string                             `json:"id,omitempty"`
	Script     string                             `json:"script"`
	Characters map[string]character.ProfileConfig `json:"characters,omitempty"`
	Format     string                             `json:"format,omitempty"`
}

// RenderResponse is the Render RPC output.
type RenderResponse struct {
	RunID       string   `json:"run_id"`
	Audio       []byte   `json:"audio"`
	ContentType string   `json:"content_type"`
	Segments    int      `json:"segments"`
	Jobs        int      `json:"jobs"`
	Warnings    []string `json:"warnings,omitempty"`
}

type renderService interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*renderService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Render", Handler: renderHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func renderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RenderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(renderService).Render(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RenderMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(renderService).Render(ctx, req.(*RenderRequest))
	})
}

type renderServer struct {
	handler transport.Handler
}

func (s *renderServer) Render(ctx context.Context, req *RenderRequest) (*RenderResponse, error) {
	format := req.Format
	if format == "" {
		format = render.FormatWAV
	}
	if format != render.FormatWAV && format != render.FormatPCM {
		return nil, status.Errorf(codes.InvalidArgument, "unsupported output format %q", format)
	}

	result, err := s.handler(ctx, render.Request{ID: req.ID, Script: req.Script, Characters: req.Characters})
	if err != nil {
		return nil, toStatus(err)
	}
	data, contentType, err := render.Encode(format, result.Audio)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &RenderResponse{
		RunID:       result.RunID,
		Audio:       data,
		ContentType: contentType,
		Segments:    result.Segments,
		Jobs:        result.Jobs,
		Warnings:    result.Warnings,
	}, nil
}

func toStatus(err error) error {
	var (
		perr *script.ParseError
		uerr *script.UnknownCharacterError
		cerr *character.ConfigError
		oerr *orchestrator.Error
	)
	switch {
	case errors.As(err, &perr), errors.As(err, &uerr), errors.As(err, &cerr), errors.Is(err, render.ErrEmptyScript):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &oerr):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
