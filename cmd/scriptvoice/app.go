package main

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/nadzzz/scriptvoice/internal/audio"
	"github.com/nadzzz/scriptvoice/internal/cache"
	"github.com/nadzzz/scriptvoice/internal/config"
	"github.com/nadzzz/scriptvoice/internal/emotion"
	"github.com/nadzzz/scriptvoice/internal/health"
	"github.com/nadzzz/scriptvoice/internal/orchestrator"
	"github.com/nadzzz/scriptvoice/internal/render"
	"github.com/nadzzz/scriptvoice/internal/synth"
	"github.com/nadzzz/scriptvoice/internal/synth/indextts"
	"github.com/nadzzz/scriptvoice/internal/synth/openai"
	"github.com/nadzzz/scriptvoice/internal/synth/wyoming"
)

// app holds the components shared by every mode.
type app struct {
	cfg      *config.Config
	synth    synth.Synthesizer
	cache    *cache.ClipCache
	renderer *render.Renderer

	closeOnce sync.Once
	closers   []func() error
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	// Initialize the synthesis backend.
	s, err := newSynthesizer(cfg.Synthesis)
	if err != nil {
		return nil, err
	}
	a.synth = s
	a.closers = append(a.closers, s.Close)

	opts := renderOptions(cfg)

	if cfg.Cache.Enabled {
		client := cache.NewClient(cfg.Redis)
		a.cache = cache.New(client, cfg.Cache.TTL)
		a.closers = append(a.closers, client.Close)
		opts.Orchestrator.Cache = a.cache
		slog.Info("clip cache enabled", "redis", cfg.Redis.Addr, "ttl", cfg.Cache.TTL)
	}

	a.renderer = render.New(s, opts)
	return a, nil
}

func newSynthesizer(cfg config.SynthesisConfig) (synth.Synthesizer, error) {
	switch cfg.Backend {
	case "indextts":
		slog.Info("using IndexTTS backend", "endpoint", cfg.IndexTTS.Endpoint)
		return indextts.New(cfg.IndexTTS), nil
	case "wyoming":
		slog.Info("using Wyoming backend", "endpoint", cfg.Wyoming.Endpoint, "default_voice", cfg.Wyoming.DefaultVoice)
		return wyoming.New(cfg.Wyoming), nil
	case "openai":
		slog.Info("using OpenAI backend", "model", cfg.OpenAI.Model)
		return openai.New(cfg.OpenAI), nil
	default:
		return nil, fmt.Errorf("unknown synthesis backend %q", cfg.Backend)
	}
}

func renderOptions(cfg *config.Config) render.Options {
	return render.Options{
		NarratorID:        cfg.Emotion.NarratorID,
		FallbackCharacter: cfg.Script.UnknownCharacterFallback,
		MaxChars:          cfg.Script.MaxChars,
		Emotion: emotion.Options{
			DialogueScale:    cfg.Emotion.DialogueScale,
			NarrationScale:   cfg.Emotion.NarrationScale,
			BypassThreshold:  cfg.Emotion.BypassThreshold,
			DescriptiveAlpha: cfg.Emotion.DescriptiveAlpha,
		},
		Orchestrator: orchestrator.Options{
			Concurrency:     cfg.Orchestrator.Concurrency,
			MaxRetries:      cfg.Orchestrator.MaxRetries,
			JobTimeout:      cfg.Orchestrator.JobTimeout,
			ExclusiveVoices: cfg.Orchestrator.ExclusiveVoices,
			BestEffort:      cfg.Orchestrator.BestEffort,
			SilenceDuration: cfg.Orchestrator.SilenceDuration,
			Backoff: orchestrator.ExponentialBackoff{
				Base: cfg.Orchestrator.BackoffBase,
				Max:  cfg.Orchestrator.BackoffMax,
			},
		},
		Output: audio.StitcherOptions{
			SampleRate:   cfg.Output.SampleRate,
			Channels:     cfg.Output.Channels,
			SpeakerPause: cfg.Output.SpeakerPause,
		},
		Characters: cfg.Characters,
	}
}

// healthServer builds the health server with a check per external dependency.
func (a *app) healthServer() *health.Server {
	h := health.New(a.cfg.Server.HealthPort)
	if p, ok := a.synth.(synth.Prober); ok {
		h.AddCheck("synthesis", p.Probe)
	}
	if a.cache != nil {
		h.AddCheck("cache", a.cache.Ping)
	}
	return h
}

// Close releases the backend and redis connections.
func (a *app) Close() {
	a.closeOnce.Do(func() {
		for _, c := range a.closers {
			if err := c(); err != nil {
				slog.Warn("close error", "error", err)
			}
		}
	})
}
