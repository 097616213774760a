// Package render implements the end-to-end pipeline that turns an annotated
// script into one audio buffer:
//
//	parse → segment → resolve + synthesize → stitch
//
// Parse and configuration errors abort before any synthesis work begins.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/scriptvoice/internal/audio"
	"github.com/nadzzz/scriptvoice/internal/character"
	"github.com/nadzzz/scriptvoice/internal/emotion"
	"github.com/nadzzz/scriptvoice/internal/orchestrator"
	"github.com/nadzzz/scriptvoice/internal/script"
	"github.com/nadzzz/scriptvoice/internal/segmenter"
	"github.com/nadzzz/scriptvoice/internal/synth"
)

// ErrEmptyScript is returned for scripts without any speakable text.
var ErrEmptyScript = errors.New("script contains no speakable text")

// Request is one render.
type Request struct {
	// ID becomes the run id. A random one is assigned when empty.
	ID string `json:"id,omitempty"`

	// Script is the annotated script text.
	Script string `json:"script"`

	// Characters overrides the configured cast when non-empty.
	Characters map[string]character.ProfileConfig `json:"characters,omitempty"`
}

// Result is the outcome of a render.
type Result struct {
	RunID    string                 `json:"run_id"`
	Audio    *audio.Buffer          `json:"-"`
	Segments int                    `json:"segments"`
	Jobs     int                    `json:"jobs"`
	Retries  int                    `json:"retries"`
	Failures []orchestrator.Failure `json:"failures,omitempty"`
	Skipped  []script.Key           `json:"skipped,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
	Duration time.Duration          `json:"duration"`
}

// Options configures the pipeline.
type Options struct {
	NarratorID        string
	FallbackCharacter string
	MaxChars          int

	Emotion      emotion.Options
	Orchestrator orchestrator.Options
	Output       audio.StitcherOptions

	// Characters is the cast used when a request brings none.
	Characters map[string]character.ProfileConfig
}

// Renderer runs the pipeline against one synthesis backend.
type Renderer struct {
	synth     synth.Synthesizer
	opts      Options
	parser    *script.Parser
	segmenter *segmenter.Segmenter
	resolver  *emotion.Resolver
	stitcher  *audio.Stitcher
}

// New creates a renderer.
func New(s synth.Synthesizer, opts Options) *Renderer {
	if opts.Emotion == (emotion.Options{}) {
		opts.Emotion = emotion.DefaultOptions()
	}
	// Silence substituted in best-effort mode matches the output format.
	if opts.Orchestrator.SampleRate == 0 {
		opts.Orchestrator.SampleRate = opts.Output.SampleRate
	}
	if opts.Orchestrator.Channels == 0 {
		opts.Orchestrator.Channels = opts.Output.Channels
	}
	return &Renderer{
		synth: s,
		opts:  opts,
		parser: script.NewParser(script.ParserOptions{
			NarratorID:        opts.NarratorID,
			FallbackCharacter: opts.FallbackCharacter,
		}),
		segmenter: segmenter.New(opts.MaxChars),
		resolver:  emotion.NewResolver(opts.Emotion),
		stitcher:  audio.NewStitcher(opts.Output),
	}
}

// Render processes a single request through the full pipeline. On a
// synthesis failure the partial result is returned alongside the error so
// callers can report which segments to re-run.
func (r *Renderer) Render(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := req.ID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := slog.With("run_id", runID, "backend", r.synth.Name())
	result := &Result{RunID: runID}

	// Step 1: Build the character registry.
	cast := req.Characters
	if len(cast) == 0 {
		cast = r.opts.Characters
	}
	reg, warnings, err := character.Load(cast)
	if err != nil {
		return result, fmt.Errorf("loading characters: %w", err)
	}
	for _, w := range warnings {
		logger.Warn("character parameter clamped", "character", w.CharacterID, "field", w.Field, "value", w.Value, "clamped", w.Clamped)
		result.Warnings = append(result.Warnings, w.String())
	}

	// Step 2: Parse the script into ordered segments.
	segs, err := r.parser.Parse(req.Script, reg)
	if err != nil {
		return result, fmt.Errorf("parsing script: %w", err)
	}
	if len(segs) == 0 {
		return result, ErrEmptyScript
	}
	result.Segments = len(segs)

	// Step 3: Split over-long segments.
	chunks := r.segmenter.Segment(segs)
	result.Jobs = len(chunks)
	logger.Info("render started", "segments", len(segs), "jobs", len(chunks), "characters", reg.Len())

	// Step 4: Resolve emotions and synthesize.
	orch := orchestrator.New(r.synth, reg, r.resolver, r.opts.Orchestrator)
	run, err := orch.Run(ctx, runID, chunks)
	if run != nil {
		result.Failures = run.Failures
		result.Skipped = run.Skipped
		for _, j := range run.Jobs {
			result.Retries += j.RetryCount
		}
	}
	if err != nil {
		logger.Error("synthesis failed", "error", err)
		return result, fmt.Errorf("synthesizing: %w", err)
	}

	// Step 5: Stitch clips in script order.
	buf, err := r.stitcher.Stitch(run.Keys(), run.Clips)
	if err != nil {
		return result, fmt.Errorf("stitching: %w", err)
	}
	result.Audio = buf
	result.Duration = buf.Duration()

	logger.Info("render complete",
		"audio_duration", buf.Duration(),
		"retries", result.Retries,
		"failures", len(result.Failures),
		"elapsed", time.Since(start),
	)
	return result, nil
}

// RenderDocument renders a decoded input document.
func (r *Renderer) RenderDocument(ctx context.Context, id string, doc *script.Document) (*Result, error) {
	return r.Render(ctx, Request{ID: id, Script: doc.Script, Characters: doc.Characters})
}
