// Package http implements the HTTP transport for scriptvoice.
//
// This transport exposes a REST API that renders a script document
// synchronously and returns the audio, plus an endpoint that queues the
// render as a background job when the queue is enabled.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nadzzz/scriptvoice/internal/character"
	"github.com/nadzzz/scriptvoice/internal/orchestrator"
	"github.com/nadzzz/scriptvoice/internal/queue"
	"github.com/nadzzz/scriptvoice/internal/render"
	"github.com/nadzzz/scriptvoice/internal/script"
	"github.com/nadzzz/scriptvoice/internal/transport"

	_ "github.com/nadzzz/scriptvoice/internal/docs"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const maxDocumentBytes = 5 << 20

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port   int
	jobs   transport.Enqueuer
	server *http.Server
}

// New creates a new HTTP transport on the given port. jobs may be nil, in
// which case POST /jobs answers 503.
func New(port int, jobs transport.Enqueuer) *Transport {
	return &Transport{port: port, jobs: jobs}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Routes builds the request multiplexer.
func (t *Transport) Routes(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	// POST /render: renders a document and returns the audio.
	mux.HandleFunc("POST /render", func(w http.ResponseWriter, r *http.Request) {
		t.handleRender(w, r, handler)
	})

	// POST /jobs: queues a document for background rendering.
	mux.HandleFunc("POST /jobs", t.handleEnqueue)

	// Swagger UI: serves the OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	RunID string `json:"run_id,omitempty"`
	Error string `json:"error"`

	// Failed lists jobs that ended in failure, with their cause.
	Failed []FailedJob `json:"failed,omitempty"`

	// Skipped lists jobs never dispatched after the run stopped.
	Skipped []string `json:"skipped,omitempty"`

	// RetryIndices are the segment indices to re-run.
	RetryIndices []int `json:"retry_indices,omitempty"`
}

// FailedJob describes one failed synthesis job.
type FailedJob struct {
	Key         string `json:"key"`
	CharacterID string `json:"character_id"`
	Attempts    int    `json:"attempts"`
	Cause       string `json:"cause"`
}

// JobResponse is returned by POST /jobs.
type JobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// handleRender processes a POST /render request.
//
// @Summary     Render a script to audio
// @Description Accepts a document holding character profiles and an annotated script (JSON or YAML).
// @Description The script is parsed, split, synthesized per segment and stitched into one track.
// @Description When a segment cannot be synthesized the response lists the failed keys to re-run.
// @Tags        render
// @Accept      json
// @Accept      application/yaml
// @Produce     audio/wav
// @Produce     json
// @Param       document  body      script.Document  true   "Characters and annotated script"
// @Param       format    query     string           false  "Output format: wav (default) or pcm"
// @Param       id        query     string           false  "Run id; generated when omitted"
// @Success     200  {file}    binary         "Rendered audio"
// @Failure     400  {object}  ErrorResponse  "Invalid document or script"
// @Failure     502  {object}  ErrorResponse  "Synthesis failed for one or more segments"
// @Failure     500  {object}  ErrorResponse  "Internal processing error"
// @Router      /render [post]
func (t *Transport) handleRender(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	format := r.URL.Query().Get("format")
	switch format {
	case "":
		format = render.FormatWAV
	case render.FormatWAV, render.FormatPCM:
	default:
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unsupported output format %q", format)})
		return
	}

	doc, ok := readDocument(w, r)
	if !ok {
		return
	}

	result, err := handler(r.Context(), render.Request{
		ID:         r.URL.Query().Get("id"),
		Script:     doc.Script,
		Characters: doc.Characters,
	})
	if err != nil {
		status, body := describe(err)
		if result != nil {
			body.RunID = result.RunID
		}
		slog.Error("render failed", "run_id", body.RunID, "status", status, "error", err)
		writeError(w, status, body)
		return
	}

	data, contentType, err := render.Encode(format, result.Audio)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrorResponse{RunID: result.RunID, Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Scriptvoice-Run-Id", result.RunID)
	w.Header().Set("X-Scriptvoice-Segments", strconv.Itoa(result.Segments))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleEnqueue processes a POST /jobs request.
//
// @Summary     Queue a render job
// @Description Queues the document for background rendering. The worker writes the audio to its output directory as <id>.<format>.
// @Tags        render
// @Accept      json
// @Accept      application/yaml
// @Produce     json
// @Param       document  body      script.Document  true   "Characters and annotated script"
// @Param       format    query     string           false  "Output format: wav (default) or pcm"
// @Param       id        query     string           false  "Job id; generated when omitted"
// @Success     202  {object}  JobResponse
// @Failure     400  {object}  ErrorResponse  "Invalid document"
// @Failure     409  {object}  ErrorResponse  "Job id already queued"
// @Failure     503  {object}  ErrorResponse  "Queue disabled or unavailable"
// @Router      /jobs [post]
func (t *Transport) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	if t.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, ErrorResponse{Error: "job queue is not enabled"})
		return
	}
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}

	id, err := t.jobs(r.Context(), queue.RenderPayload{
		ID:         r.URL.Query().Get("id"),
		Script:     doc.Script,
		Characters: doc.Characters,
		Format:     r.URL.Query().Get("format"),
	})
	if err != nil {
		status := enqueueStatus(err)
		if status == http.StatusServiceUnavailable {
			slog.Error("enqueue failed", "error", err)
		} else {
			slog.Warn("enqueue rejected", "error", err)
		}
		writeError(w, status, ErrorResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(JobResponse{ID: id, Status: "queued"})
}

func enqueueStatus(err error) int {
	switch {
	case errors.Is(err, queue.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, queue.ErrDuplicateJob):
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

func readDocument(w http.ResponseWriter, r *http.Request) (*script.Document, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "reading body: " + err.Error()})
		return nil, false
	}
	doc, err := script.DecodeDocument(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return nil, false
	}
	return doc, true
}

// describe maps a render error to a status code and response body.
func describe(err error) (int, ErrorResponse) {
	body := ErrorResponse{Error: err.Error()}

	var (
		perr *script.ParseError
		uerr *script.UnknownCharacterError
		cerr *character.ConfigError
		oerr *orchestrator.Error
	)
	switch {
	case errors.As(err, &perr), errors.As(err, &uerr), errors.As(err, &cerr), errors.Is(err, render.ErrEmptyScript):
		return http.StatusBadRequest, body
	case errors.As(err, &oerr):
		for _, f := range oerr.Failures {
			body.Failed = append(body.Failed, FailedJob{
				Key:         f.Key.String(),
				CharacterID: f.CharacterID,
				Attempts:    f.Attempts,
				Cause:       f.Cause(),
			})
		}
		for _, k := range oerr.Skipped {
			body.Skipped = append(body.Skipped, k.String())
		}
		body.RetryIndices = oerr.FailedIndices()
		return http.StatusBadGateway, body
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, body
	default:
		return http.StatusInternalServerError, body
	}
}

func writeError(w http.ResponseWriter, status int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}
