package pacer

import (
	"encoding/base64"
	"testing"

	"github.com/rs/zerolog"

	"ai-voice-bridge-service/internal/media"
)

type captureSender struct {
	streamIDs []string
	payloads  []string
}

func (c *captureSender) SendMediaFrame(streamID, payload string) error {
	c.streamIDs = append(c.streamIDs, streamID)
	c.payloads = append(c.payloads, payload)
	return nil
}

// preload puts bytes on the queue without starting the real tick loop, so
// tests can drive ticks deterministically.
func preload(p *Pacer, b []byte) {
	p.mu.Lock()
	p.queue = append(p.queue, b...)
	p.mu.Unlock()
}

func TestTick_EmitsExactlyKFramesThenIdles(t *testing.T) {
	const k = 3
	frameBytes := media.CodecPCMU.BytesPerFrame()

	sender := &captureSender{}
	p := New(sender, zerolog.Nop())
	p.SetStreamID("MZ123")
	preload(p, make([]byte, k*frameBytes))

	for i := 0; i < k+5; i++ {
		p.tick()
	}

	if len(sender.payloads) != k {
		t.Fatalf("sent %d frames, want %d", len(sender.payloads), k)
	}
	if p.QueuedBytes() != 0 {
		t.Errorf("queue holds %d bytes after drain, want 0", p.QueuedBytes())
	}
	if got := p.FramesSent(); got != k {
		t.Errorf("FramesSent() = %d, want %d", got, k)
	}
	for i, payload := range sender.payloads {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			t.Fatalf("frame %d is not valid base64: %v", i, err)
		}
		if len(decoded) != frameBytes {
			t.Errorf("frame %d is %d bytes, want %d", i, len(decoded), frameBytes)
		}
	}
}

func TestTick_NeverSendsPartialFrame(t *testing.T) {
	frameBytes := media.CodecPCMU.BytesPerFrame()

	sender := &captureSender{}
	p := New(sender, zerolog.Nop())
	p.SetStreamID("MZ123")
	preload(p, make([]byte, frameBytes+frameBytes/2))

	p.tick()
	p.tick()
	p.tick()

	if len(sender.payloads) != 1 {
		t.Fatalf("sent %d frames, want 1", len(sender.payloads))
	}
	if got := p.QueuedBytes(); got != frameBytes/2 {
		t.Errorf("remainder = %d bytes, want %d", got, frameBytes/2)
	}
}

func TestTick_HoldsUntilStreamIDKnown(t *testing.T) {
	frameBytes := media.CodecPCMU.BytesPerFrame()

	sender := &captureSender{}
	p := New(sender, zerolog.Nop())
	preload(p, make([]byte, 2*frameBytes))

	p.tick()
	if len(sender.payloads) != 0 {
		t.Fatal("sent a frame before the stream identifier was known")
	}

	p.SetStreamID("MZ456")
	p.tick()
	if len(sender.payloads) != 1 {
		t.Fatalf("sent %d frames after stream id, want 1", len(sender.payloads))
	}
	if sender.streamIDs[0] != "MZ456" {
		t.Errorf("frame tagged with stream id %q, want MZ456", sender.streamIDs[0])
	}
}

func TestTick_PreservesFIFOOrder(t *testing.T) {
	frameBytes := media.CodecPCMU.BytesPerFrame()

	sender := &captureSender{}
	p := New(sender, zerolog.Nop())
	p.SetStreamID("MZ123")

	first := make([]byte, frameBytes)
	second := make([]byte, frameBytes)
	for i := range first {
		first[i] = 0x11
		second[i] = 0x22
	}
	preload(p, first)
	preload(p, second)

	p.tick()
	p.tick()

	if len(sender.payloads) != 2 {
		t.Fatalf("sent %d frames, want 2", len(sender.payloads))
	}
	got0, _ := base64.StdEncoding.DecodeString(sender.payloads[0])
	got1, _ := base64.StdEncoding.DecodeString(sender.payloads[1])
	if got0[0] != 0x11 || got1[0] != 0x22 {
		t.Error("frames emitted out of order")
	}
}

func TestStop_IsIdempotentAndDiscardsAppends(t *testing.T) {
	frameBytes := media.CodecPCMU.BytesPerFrame()

	sender := &captureSender{}
	p := New(sender, zerolog.Nop())
	p.SetStreamID("MZ123")

	p.Stop()
	p.Stop()

	p.Append(make([]byte, frameBytes))
	if p.QueuedBytes() != 0 {
		t.Error("append after Stop should be discarded")
	}

	p.tick()
	if len(sender.payloads) != 0 {
		t.Error("tick after Stop should not send")
	}
}
