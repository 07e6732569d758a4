// Package synth buffers assistant text and turns it into paced telephony
// audio. It enforces the single-run rule: at most one synthesis operation in
// flight per session, with hard cancellation on barge-in or teardown.
package synth

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"ai-voice-bridge-service/internal/media"
	"ai-voice-bridge-service/internal/observability/metrics"
	"ai-voice-bridge-service/internal/service/tts"
)

// Text shorter than this is held back unless flushed, so the synthesizer gets
// utterance-sized inputs instead of word fragments.
const minUtteranceBytes = 24

// AudioSink receives compressed audio ready for pacing.
type AudioSink interface {
	Append(b []byte)
}

// RecordingSink receives the linear PCM copy of synthesized audio.
type RecordingSink interface {
	Write(pcm []byte) (int, error)
}

// Controller accumulates text deltas and schedules synthesis runs.
type Controller struct {
	synth    tts.Synthesizer
	sink     AudioSink
	recorder RecordingSink // may be nil
	voice    string
	format   string
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	mu        sync.Mutex
	pending   strings.Builder
	inFlight  bool
	cancelled bool
	cancelRun context.CancelFunc

	wg sync.WaitGroup
}

// New creates a synthesis controller for one session.
func New(synth tts.Synthesizer, sink AudioSink, recorder RecordingSink, voice, format string, logger zerolog.Logger) *Controller {
	return &Controller{
		synth:    synth,
		sink:     sink,
		recorder: recorder,
		voice:    voice,
		format:   format,
		logger:   logger,
		metrics:  metrics.DefaultMetrics,
	}
}

// OnTextDelta appends assistant text to the pending buffer and starts a
// synthesis run when the buffer forms a speakable utterance. force flushes
// whatever is pending regardless of size, used at end of response. If a run
// is already in flight the trigger is dropped; the text stays buffered for
// the next trigger.
func (c *Controller) OnTextDelta(text string, force bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending.WriteString(text)
	if !c.shouldTrigger(force) {
		return
	}

	if c.inFlight {
		c.metrics.SynthesisDropped.Inc()
		c.logger.Debug().Int("pendingBytes", c.pending.Len()).Msg("Synthesis trigger dropped, run in flight")
		return
	}

	utterance := c.pending.String()
	c.pending.Reset()
	c.inFlight = true
	c.cancelled = false

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelRun = cancel

	c.wg.Add(1)
	go c.run(ctx, utterance)
}

// shouldTrigger reports whether the pending buffer is worth synthesizing.
// Caller holds c.mu.
func (c *Controller) shouldTrigger(force bool) bool {
	s := c.pending.String()
	if s == "" {
		return false
	}
	if force {
		return true
	}
	if len(s) < minUtteranceBytes {
		return false
	}
	return strings.ContainsRune(".!?,;:", rune(s[len(s)-1]))
}

// Cancel aborts any in-flight run. When Cancel returns, no further audio from
// that run reaches the sink or the recorder.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if !c.inFlight {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	cancel := c.cancelRun
	c.mu.Unlock()

	cancel()
	c.metrics.SynthesisCancelled.Inc()
}

// PendingBytes returns the size of buffered, not yet synthesized text.
func (c *Controller) PendingBytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.Len()
}

// Wait blocks until any in-flight run has finished. Intended for tests and
// teardown; does not prevent new runs from starting.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) run(ctx context.Context, utterance string) {
	defer c.wg.Done()
	c.metrics.SynthesisRuns.Inc()

	err := c.synth.Synthesize(ctx, tts.Request{
		Text:         utterance,
		Voice:        c.voice,
		OutputFormat: c.format,
	}, func(chunk []byte) {
		// The cancelled check and the sink append happen under the same lock
		// Cancel takes, so once Cancel returns nothing more can be appended.
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.cancelled || ctx.Err() != nil {
			return
		}
		c.sink.Append(media.EncodeUlaw(chunk))
		if c.recorder != nil {
			if n, err := c.recorder.Write(chunk); err == nil {
				c.metrics.RecordingBytes.Add(float64(n))
			}
		}
	})

	c.mu.Lock()
	c.inFlight = false
	c.cancelRun = nil
	c.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		c.metrics.SynthesisErrors.Inc()
		c.logger.Warn().Err(err).Msg("Synthesis run failed")
	}
}
