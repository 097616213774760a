// Package orchestrator turns segments into synthesis jobs and runs them with
// bounded concurrency, per-character exclusivity, per-job timeouts and
// retries with backoff.
//
// Job completion order is irrelevant: results are collected by segment key,
// and Result.Clips is always in key order.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nadzzz/scriptvoice/internal/audio"
	"github.com/nadzzz/scriptvoice/internal/character"
	"github.com/nadzzz/scriptvoice/internal/emotion"
	"github.com/nadzzz/scriptvoice/internal/script"
	"github.com/nadzzz/scriptvoice/internal/synth"
)

// Profiles looks up character profiles. *character.Registry implements it.
type Profiles interface {
	Get(id string) (*character.Profile, error)
}

// ClipCache stores synthesized clips by job fingerprint.
type ClipCache interface {
	Get(ctx context.Context, key string) (*audio.Buffer, bool, error)
	Put(ctx context.Context, key string, buf *audio.Buffer) error
}

// Options configures a run.
type Options struct {
	Concurrency int
	MaxRetries  int
	JobTimeout  time.Duration

	// ExclusiveVoices serializes jobs of the same character.
	ExclusiveVoices bool

	// BestEffort substitutes silence for failed jobs instead of failing the run.
	BestEffort      bool
	SilenceDuration time.Duration
	SampleRate      int
	Channels        int

	Backoff Backoff
	Sleep   Sleeper
	Events  EventSink
	Cache   ClipCache
	Logger  *slog.Logger
}

// Job is one unit of synthesis work.
type Job struct {
	Key         script.Key
	CharacterID string
	Request     synth.Request

	State      State
	RetryCount int
	Err        error
	Cached     bool

	audio *audio.Buffer
}

// Result is the outcome of a run.
type Result struct {
	RunID string

	// Clips holds one clip per job in key order. In best-effort mode failed
	// jobs contribute silence.
	Clips []audio.Clip

	// Jobs is every job in key order with its final state.
	Jobs []*Job

	Failures []Failure
	Skipped  []script.Key
}

// Keys returns the key of every job in order.
func (r *Result) Keys() []script.Key {
	keys := make([]script.Key, len(r.Jobs))
	for i, j := range r.Jobs {
		keys[i] = j.Key
	}
	return keys
}

// Orchestrator runs synthesis jobs. It is safe to call Run concurrently.
type Orchestrator struct {
	synth    synth.Synthesizer
	profiles Profiles
	resolver *emotion.Resolver
	opts     Options
}

// New creates an orchestrator. Zero options get defaults: concurrency 1,
// exponential backoff from 500ms to 10s, real sleeping and slog events.
func New(s synth.Synthesizer, profiles Profiles, resolver *emotion.Resolver, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff == nil {
		opts.Backoff = ExponentialBackoff{Base: 500 * time.Millisecond, Max: 10 * time.Second}
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Events == nil {
		opts.Events = LogSink{Logger: opts.Logger}
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = audio.DefaultSampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	if resolver == nil {
		resolver = emotion.NewResolver(emotion.DefaultOptions())
	}
	return &Orchestrator{synth: s, profiles: profiles, resolver: resolver, opts: opts}
}

// Plan builds one pending job per segment, resolving profile and emotion.
// It fails before any synthesis if a character is unknown or keys repeat.
func (o *Orchestrator) Plan(segs []script.Segment) ([]*Job, error) {
	jobs := make([]*Job, 0, len(segs))
	seen := make(map[script.Key]bool, len(segs))
	for _, seg := range segs {
		if seen[seg.Key] {
			return nil, fmt.Errorf("duplicate segment key %s", seg.Key)
		}
		seen[seg.Key] = true

		profile, err := o.profiles.Get(seg.CharacterID)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", seg.Key, err)
		}
		res := o.resolver.Resolve(seg.Emotion, seg.Role, emotion.Defaults{
			Emotion:   profile.DefaultEmotion,
			Intensity: profile.EmotionIntensity,
		})
		if res.Warning != nil {
			o.opts.Logger.Warn("emotion fallback", "job_key", seg.Key.String(), "character", seg.CharacterID, "error", res.Warning, "emotion", res.Emotion)
		}
		jobs = append(jobs, &Job{
			Key:         seg.Key,
			CharacterID: seg.CharacterID,
			Request: synth.Request{
				Text:       seg.Text,
				Profile:    profile,
				Emotion:    res,
				Pitch:      profile.Pitch,
				SpeechRate: profile.SpeechRate,
				Volume:     profile.Volume,
			},
		})
	}
	sort.SliceStable(jobs, func(i, k int) bool { return jobs[i].Key.Less(jobs[k].Key) })
	return jobs, nil
}

// Run plans and executes jobs for segs under runID.
//
// Without best-effort, the first terminal failure stops dispatch; jobs
// already in flight settle and the rest are reported skipped in an *Error.
// Cancelling ctx stops dispatch the same way and returns the context error.
func (o *Orchestrator) Run(ctx context.Context, runID string, segs []script.Segment) (*Result, error) {
	jobs, err := o.Plan(segs)
	if err != nil {
		return nil, err
	}
	return o.Execute(ctx, runID, jobs)
}

// Execute runs planned jobs.
func (o *Orchestrator) Execute(ctx context.Context, runID string, jobs []*Job) (*Result, error) {
	logger := o.opts.Logger.With("run_id", runID)
	start := time.Now()
	for _, j := range jobs {
		o.emit(runID, j, 0, nil)
	}

	var (
		failed  atomic.Bool
		pool    = newVoicePool(o.opts.ExclusiveVoices)
		slots   = semaphore.NewWeighted(int64(o.opts.Concurrency))
		settled = make(chan struct{}, 1)
		g       errgroup.Group
	)

	stopped := func() bool {
		return ctx.Err() != nil || (!o.opts.BestEffort && failed.Load())
	}

	pending := jobs
	for len(pending) > 0 {
		// Step 1: Wait for a worker slot.
		if stopped() || slots.Acquire(ctx, 1) != nil {
			break
		}

		// Step 2: Take the first job in key order whose lane is free. Jobs of a
		// busy character never hold a slot while others could run.
		idx, release := -1, func() {}
		for idx < 0 && !stopped() {
			for i, j := range pending {
				if rel, ok := pool.TryAcquire(j.CharacterID); ok {
					idx, release = i, rel
					break
				}
			}
			if idx < 0 {
				select {
				case <-settled:
				case <-ctx.Done():
				}
			}
		}
		if idx < 0 {
			slots.Release(1)
			break
		}

		j := pending[idx]
		pending = append(pending[:idx:idx], pending[idx+1:]...)

		// Step 3: Run it. The outcome is recorded before the slot and lane free up.
		g.Go(func() error {
			defer func() {
				release()
				slots.Release(1)
				select {
				case settled <- struct{}{}:
				default:
				}
			}()
			if stopped() {
				o.transition(runID, j, StateSkipped, nil)
				return nil
			}
			if !o.runJob(ctx, runID, j) {
				failed.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, j := range pending {
		o.transition(runID, j, StateSkipped, nil)
	}

	res := o.collect(runID, jobs)
	logger.Info("synthesis run complete",
		"jobs", len(jobs),
		"failed", len(res.Failures),
		"skipped", len(res.Skipped),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("run %s canceled: %w", runID, err)
	}
	if !o.opts.BestEffort && (len(res.Failures) > 0 || len(res.Skipped) > 0) {
		return res, &Error{RunID: runID, Failures: res.Failures, Skipped: res.Skipped}
	}
	return res, nil
}

func (o *Orchestrator) collect(runID string, jobs []*Job) *Result {
	res := &Result{RunID: runID, Jobs: jobs}
	for _, j := range jobs {
		switch j.State {
		case StateSucceeded:
			res.Clips = append(res.Clips, audio.Clip{Key: j.Key, CharacterID: j.CharacterID, Audio: j.audio})
		case StateFailed:
			res.Failures = append(res.Failures, Failure{Key: j.Key, CharacterID: j.CharacterID, Attempts: j.RetryCount + 1, Err: j.Err})
			if o.opts.BestEffort {
				res.Clips = append(res.Clips, audio.Clip{
					Key:         j.Key,
					CharacterID: j.CharacterID,
					Audio:       audio.Silence(o.opts.SilenceDuration, o.opts.SampleRate, o.opts.Channels),
				})
			}
		case StateSkipped:
			res.Skipped = append(res.Skipped, j.Key)
		}
	}
	return res
}

// runJob drives one job to a terminal state and reports whether it succeeded.
func (o *Orchestrator) runJob(ctx context.Context, runID string, j *Job) bool {
	fp := Fingerprint(o.synth.Name(), j.Request)
	if buf := o.cached(ctx, fp); buf != nil {
		j.Cached = true
		j.audio = buf
		o.transition(runID, j, StateRunning, nil)
		o.transition(runID, j, StateSucceeded, nil)
		return true
	}

	for {
		o.transition(runID, j, StateRunning, nil)
		buf, err := o.attempt(ctx, j)
		if err == nil {
			j.audio = buf
			o.store(ctx, fp, buf)
			o.transition(runID, j, StateSucceeded, nil)
			return true
		}

		if ctx.Err() != nil || !synth.IsTransient(err) || j.RetryCount >= o.opts.MaxRetries {
			o.transition(runID, j, StateFailed, err)
			return false
		}

		j.RetryCount++
		o.transition(runID, j, StateRetryScheduled, err)
		if serr := o.opts.Sleep(ctx, o.opts.Backoff.Delay(j.RetryCount)); serr != nil {
			o.transition(runID, j, StateFailed, serr)
			return false
		}
	}
}

// attempt makes one synthesis call under the per-job timeout. A timeout of
// the job's own deadline is a transient failure.
func (o *Orchestrator) attempt(ctx context.Context, j *Job) (*audio.Buffer, error) {
	jctx := ctx
	if o.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		jctx, cancel = context.WithTimeout(ctx, o.opts.JobTimeout)
		defer cancel()
	}

	buf, err := o.synth.Synthesize(jctx, j.Request)
	if err != nil {
		if ctx.Err() == nil && errors.Is(jctx.Err(), context.DeadlineExceeded) {
			return nil, synth.Transient(o.synth.Name(), fmt.Errorf("job timed out after %s: %w", o.opts.JobTimeout, err))
		}
		return nil, err
	}
	if buf == nil || buf.SampleRate <= 0 || buf.Channels <= 0 {
		return nil, synth.Fatal(o.synth.Name(), errors.New("backend returned no audio"))
	}
	return buf, nil
}

func (o *Orchestrator) cached(ctx context.Context, fp string) *audio.Buffer {
	if o.opts.Cache == nil {
		return nil
	}
	buf, ok, err := o.opts.Cache.Get(ctx, fp)
	if err != nil {
		o.opts.Logger.Warn("clip cache read failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return buf
}

func (o *Orchestrator) store(ctx context.Context, fp string, buf *audio.Buffer) {
	if o.opts.Cache == nil {
		return
	}
	if err := o.opts.Cache.Put(ctx, fp, buf); err != nil {
		o.opts.Logger.Warn("clip cache write failed", "error", err)
	}
}

func (o *Orchestrator) transition(runID string, j *Job, next State, err error) {
	if !j.State.CanTransition(next) {
		o.opts.Logger.Error("invalid job transition", "job_key", j.Key.String(), "from", j.State.String(), "to", next.String())
		return
	}
	j.State = next
	if err != nil {
		j.Err = err
	}
	attempt := j.RetryCount + 1
	if next == StateSkipped {
		attempt = 0
	}
	o.emit(runID, j, attempt, err)
}

func (o *Orchestrator) emit(runID string, j *Job, attempt int, err error) {
	o.opts.Events.Emit(Event{
		RunID:       runID,
		Key:         j.Key,
		CharacterID: j.CharacterID,
		State:       j.State,
		Attempt:     attempt,
		Err:         err,
		Cached:      j.Cached,
		Time:        time.Now(),
	})
}

// Fingerprint identifies a synthesis request's output for caching. Requests
// with equal fingerprints produce interchangeable audio.
func Fingerprint(backend string, req synth.Request) string {
	h := sha256.New()
	voice := ""
	if req.Profile != nil {
		voice = req.Profile.ID + "\x00" + req.Profile.VoiceReference
	}
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%g\x00%g\x00%g\x00",
		backend, voice, req.Text, req.Emotion.Mode, req.Pitch, req.SpeechRate, req.Volume)
	switch req.Emotion.Mode {
	case emotion.ModeVector:
		fmt.Fprintf(h, "%v\x00%g", req.Emotion.Vector.Slice(), req.Emotion.Alpha)
	case emotion.ModeDescriptive:
		fmt.Fprintf(h, "%s\x00%g", req.Emotion.Payload.EngineText(), req.Emotion.Alpha)
	}
	return hex.EncodeToString(h.Sum(nil))
}
