// Package pacer drains the per-session outbound audio queue into fixed
// 20ms telephony frames at the telephony clock rate, decoupling bursty
// synthesis output from playout cadence.
package pacer

import (
	"encoding/base64"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-bridge-service/internal/media"
	"ai-voice-bridge-service/internal/observability/metrics"
)

// Send logging decays after the first few frames so a long call does not
// drown the log while the first frames stay visible.
const (
	logFirstFrames   = 5
	logEveryNthFrame = 250
)

// MediaSender delivers one encoded frame to the telephony leg.
type MediaSender interface {
	SendMediaFrame(streamID, payload string) error
}

// Pacer owns the session's outbound byte queue. The synthesis path is its
// only writer (Append) and the tick loop its only reader.
type Pacer struct {
	mu       sync.Mutex
	queue    []byte
	streamID string
	started  bool
	stopped  bool
	sent     uint64

	done     chan struct{}
	stopOnce sync.Once

	codec   media.Codec
	sender  MediaSender
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New creates a pacer for one session. The tick loop starts lazily on the
// first Append.
func New(sender MediaSender, logger zerolog.Logger) *Pacer {
	return &Pacer{
		codec:   media.CodecPCMU,
		sender:  sender,
		logger:  logger,
		metrics: metrics.DefaultMetrics,
		done:    make(chan struct{}),
	}
}

// SetStreamID records the telephony stream identifier once the provider's
// start event arrives. Queued audio is held until the identifier is known.
func (p *Pacer) SetStreamID(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streamID = id
}

// Append queues compressed audio bytes and starts the tick loop if it is not
// already running. Appends after Stop are discarded.
func (p *Pacer) Append(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.queue = append(p.queue, b...)
	if !p.started {
		p.started = true
		go p.run()
	}
}

// QueuedBytes returns the number of bytes awaiting pacing.
func (p *Pacer) QueuedBytes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// FramesSent returns the number of frames delivered so far.
func (p *Pacer) FramesSent() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

// Stop cancels the tick loop. Idempotent; safe to call whether or not the
// loop ever started.
func (p *Pacer) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *Pacer) run() {
	ticker := time.NewTicker(p.codec.FrameDur)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

// tick sends at most one whole frame. A queue holding less than one frame's
// worth of bytes, or no known stream identifier yet, sends nothing; short
// remainders are never flushed early.
func (p *Pacer) tick() {
	frameBytes := p.codec.BytesPerFrame()

	p.mu.Lock()
	if p.stopped || p.streamID == "" || len(p.queue) < frameBytes {
		p.mu.Unlock()
		return
	}
	frame := make([]byte, frameBytes)
	copy(frame, p.queue[:frameBytes])
	p.queue = p.queue[frameBytes:]
	streamID := p.streamID
	p.mu.Unlock()

	payload := base64.StdEncoding.EncodeToString(frame)
	if err := p.sender.SendMediaFrame(streamID, payload); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to send media frame")
		return
	}

	p.mu.Lock()
	p.sent++
	sent := p.sent
	p.mu.Unlock()

	p.metrics.RecordFrameSent(frameBytes)
	if sent <= logFirstFrames || sent%logEveryNthFrame == 0 {
		p.logger.Debug().
			Uint64("framesSent", sent).
			Int("queuedBytes", p.QueuedBytes()).
			Msg("Paced media frame")
	}
}
