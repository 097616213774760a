// Scriptvoice renders annotated multi-character scripts to audio.
//
// Usage:
//
//	scriptvoice [flags] serve                       run the HTTP/gRPC service
//	scriptvoice [flags] worker                      process queued render jobs
//	scriptvoice [flags] render -in doc.yaml -out story.wav
//	scriptvoice --config /path/to/scriptvoice.yaml serve
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/nadzzz/scriptvoice/internal/config"
	"github.com/nadzzz/scriptvoice/internal/orchestrator"
	"github.com/nadzzz/scriptvoice/internal/queue"
	"github.com/nadzzz/scriptvoice/internal/render"
	"github.com/nadzzz/scriptvoice/internal/script"
	"github.com/nadzzz/scriptvoice/internal/transport"
	grpctransport "github.com/nadzzz/scriptvoice/internal/transport/grpc"
	httptransport "github.com/nadzzz/scriptvoice/internal/transport/http"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/scriptvoice.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("scriptvoice %s\n", version)
		os.Exit(0)
	}

	mode, args := "serve", flag.Args()
	if len(args) > 0 {
		mode, args = args[0], args[1:]
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("scriptvoice starting", "version", version, "mode", mode)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	switch mode {
	case "render":
		err = runRender(ctx, app, args)
	case "serve":
		err = runServe(ctx, app)
	case "worker":
		err = runWorker(ctx, app)
	default:
		err = fmt.Errorf("unknown mode %q (want serve, worker or render)", mode)
	}
	if err != nil {
		slog.Error("scriptvoice failed", "mode", mode, "error", err)
		cancel()
		app.Close()
		os.Exit(1)
	}
	slog.Info("scriptvoice stopped")
}

// runRender renders one document to a file.
func runRender(ctx context.Context, app *app, args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	in := fs.String("in", "", "input document (JSON or YAML with characters and script)")
	out := fs.String("out", "output.wav", "output file (.wav or .pcm)")
	id := fs.String("id", "", "run id; generated when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("render: -in is required")
	}
	if _, err := render.FormatFromPath(*out); err != nil {
		return err
	}

	doc, err := script.LoadDocument(*in)
	if err != nil {
		return err
	}

	result, err := app.renderer.RenderDocument(ctx, *id, doc)
	if err != nil {
		var oerr *orchestrator.Error
		if errors.As(err, &oerr) {
			slog.Error("segments to re-run", "run_id", oerr.RunID, "indices", oerr.FailedIndices())
		}
		return err
	}

	if err := render.WriteOutput(*out, result.Audio); err != nil {
		return err
	}
	slog.Info("wrote output",
		"path", *out,
		"run_id", result.RunID,
		"segments", result.Segments,
		"audio_duration", result.Duration)
	return nil
}

// runServe runs the enabled transports until shutdown.
func runServe(ctx context.Context, app *app) error {
	cfg := app.cfg

	var jobs transport.Enqueuer
	if cfg.Queue.Enabled {
		client := queue.NewClient(cfg.Redis)
		defer client.Close()
		jobs = client.EnqueueRender
	}

	// Initialize enabled transports.
	var transports []transport.Transport
	var grpcT *grpctransport.Transport

	if cfg.Transports.GRPC.Enabled {
		grpcT = grpctransport.New(cfg.Transports.GRPC.Port)
		transports = append(transports, grpcT)
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, jobs))
	}

	if len(transports) == 0 {
		return errors.New("no transports enabled, enable at least one in config")
	}

	// Start health check server.
	healthServer := app.healthServer()
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, app.renderer.Render); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	if grpcT != nil {
		grpcT.SetServing(true)
	}
	slog.Info("scriptvoice ready",
		"transports", len(transports),
		"backend", app.synth.Name(),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	return nil
}

// runWorker processes queued render jobs until shutdown.
func runWorker(ctx context.Context, app *app) error {
	cfg := app.cfg
	if !cfg.Queue.Enabled {
		return errors.New("queue is disabled, set queue.enabled to run a worker")
	}

	srv := queue.NewServer(cfg.Redis, cfg.Queue)
	worker := queue.NewRenderWorker(app.renderer, cfg.Queue.OutputDir)

	inspector := asynq.NewInspector(queue.RedisOpt(cfg.Redis))
	defer inspector.Close()

	healthServer := app.healthServer()
	healthServer.AddCheck("queue", func(context.Context) error {
		_, err := inspector.Queues()
		return err
	})
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	if err := srv.Start(queue.NewMux(worker)); err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}
	healthServer.SetReady(true)
	slog.Info("worker ready",
		"concurrency", cfg.Queue.Concurrency,
		"output_dir", cfg.Queue.OutputDir,
		"backend", app.synth.Name())

	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	srv.Shutdown()
	return nil
}
