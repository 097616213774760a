package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/nadzzz/scriptvoice/internal/character"
	"github.com/nadzzz/scriptvoice/internal/config"
	"github.com/nadzzz/scriptvoice/internal/render"
	"github.com/nadzzz/scriptvoice/internal/script"
)

// Renderer is the part of *render.Renderer the worker needs.
type Renderer interface {
	Render(ctx context.Context, req render.Request) (*render.Result, error)
}

// RenderWorker processes render tasks and writes the audio to disk.
type RenderWorker struct {
	renderer  Renderer
	outputDir string
}

func NewRenderWorker(r Renderer, outputDir string) *RenderWorker {
	return &RenderWorker{renderer: r, outputDir: outputDir}
}

func (w *RenderWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload RenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	path, err := OutputPath(w.outputDir, payload.ID, payload.Format)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	logger := slog.With("run_id", payload.ID, "task", t.Type())
	logger.Info("processing render task")

	res, err := w.renderer.Render(ctx, payload.Request())
	if err != nil {
		// Input problems fail the same way on every attempt.
		if permanent(err) {
			return fmt.Errorf("render %s: %v: %w", payload.ID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("render %s: %w", payload.ID, err)
	}

	if err := render.WriteOutput(path, res.Audio); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.Info("render task complete", "output", path, "audio_duration", res.Duration)
	return nil
}

func permanent(err error) bool {
	var (
		perr *script.ParseError
		uerr *script.UnknownCharacterError
		cerr *character.ConfigError
	)
	return errors.As(err, &perr) ||
		errors.As(err, &uerr) ||
		errors.As(err, &cerr) ||
		errors.Is(err, render.ErrEmptyScript)
}

// NewServer creates the asynq worker server.
func NewServer(redis config.RedisConfig, cfg config.QueueConfig) *asynq.Server {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return asynq.NewServer(RedisOpt(redis), asynq.Config{
		Concurrency: concurrency,
		Logger:      slogAdapter{},
	})
}

// NewMux routes render tasks to w.
func NewMux(w *RenderWorker) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRenderScript, w.ProcessTask)
	return mux
}

// slogAdapter routes asynq's internal logging through slog.
type slogAdapter struct{}

func (slogAdapter) Debug(args ...interface{}) { slog.Debug(fmt.Sprint(args...), "component", "asynq") }
func (slogAdapter) Info(args ...interface{})  { slog.Info(fmt.Sprint(args...), "component", "asynq") }
func (slogAdapter) Warn(args ...interface{})  { slog.Warn(fmt.Sprint(args...), "component", "asynq") }
func (slogAdapter) Error(args ...interface{}) { slog.Error(fmt.Sprint(args...), "component", "asynq") }
func (slogAdapter) Fatal(args ...interface{}) {
	slog.Error(fmt.Sprint(args...), "component", "asynq")
	os.Exit(1)
}
