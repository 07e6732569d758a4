package synth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-bridge-service/internal/service/tts"
)

type captureSink struct {
	mu    sync.Mutex
	bytes int
	calls int
}

func (s *captureSink) Append(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytes += len(b)
	s.calls++
}

func (s *captureSink) snapshot() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes, s.calls
}

type captureRecorder struct {
	mu    sync.Mutex
	bytes int
}

func (r *captureRecorder) Write(pcm []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytes += len(pcm)
	return len(pcm), nil
}

func (r *captureRecorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytes
}

// immediate emits one fixed chunk per request and returns.
func immediate(chunk []byte, requests *[]string) tts.Synthesizer {
	var mu sync.Mutex
	return tts.SynthesizerFunc(func(ctx context.Context, req tts.Request, fn tts.ChunkFunc) error {
		mu.Lock()
		if requests != nil {
			*requests = append(*requests, req.Text)
		}
		mu.Unlock()
		fn(chunk)
		return nil
	})
}

func TestOnTextDelta_HoldsShortFragments(t *testing.T) {
	sink := &captureSink{}
	c := New(immediate(make([]byte, 320), nil), sink, nil, "v", "pcm_8000", zerolog.Nop())

	c.OnTextDelta("Hello.", false)
	c.Wait()

	if _, calls := sink.snapshot(); calls != 0 {
		t.Error("short fragment should not trigger synthesis")
	}
	if c.PendingBytes() != len("Hello.") {
		t.Errorf("pending = %d, want %d", c.PendingBytes(), len("Hello."))
	}
}

func TestOnTextDelta_HoldsLongTextWithoutPunctuation(t *testing.T) {
	sink := &captureSink{}
	c := New(immediate(make([]byte, 320), nil), sink, nil, "v", "pcm_8000", zerolog.Nop())

	c.OnTextDelta("this is a long run of words with no boundary yet", false)
	c.Wait()

	if _, calls := sink.snapshot(); calls != 0 {
		t.Error("text without a trailing boundary should not trigger synthesis")
	}
}

func TestOnTextDelta_TriggersOnBoundary(t *testing.T) {
	var requests []string
	sink := &captureSink{}
	c := New(immediate(make([]byte, 320), &requests), sink, nil, "v", "pcm_8000", zerolog.Nop())

	c.OnTextDelta("Bonjour, comment puis-je", false)
	c.OnTextDelta(" vous aider aujourd'hui?", false)
	c.Wait()

	if len(requests) != 1 {
		t.Fatalf("synthesis ran %d times, want 1", len(requests))
	}
	want := "Bonjour, comment puis-je vous aider aujourd'hui?"
	if requests[0] != want {
		t.Errorf("synthesized %q, want %q", requests[0], want)
	}
	if c.PendingBytes() != 0 {
		t.Errorf("pending = %d after trigger, want 0", c.PendingBytes())
	}
}

func TestOnTextDelta_ForceFlushesShortText(t *testing.T) {
	var requests []string
	sink := &captureSink{}
	c := New(immediate(make([]byte, 320), &requests), sink, nil, "v", "pcm_8000", zerolog.Nop())

	c.OnTextDelta("Bye", true)
	c.Wait()

	if len(requests) != 1 {
		t.Fatalf("synthesis ran %d times, want 1", len(requests))
	}
	if requests[0] != "Bye" {
		t.Errorf("synthesized %q, want Bye", requests[0])
	}
}

func TestOnTextDelta_ForceWithEmptyBufferIsNoop(t *testing.T) {
	var requests []string
	sink := &captureSink{}
	c := New(immediate(make([]byte, 320), &requests), sink, nil, "v", "pcm_8000", zerolog.Nop())

	c.OnTextDelta("", true)
	c.Wait()

	if len(requests) != 0 {
		t.Error("empty buffer should never trigger synthesis")
	}
}

func TestRun_TranscodesAndRecords(t *testing.T) {
	lpcm := make([]byte, 640)
	sink := &captureSink{}
	rec := &captureRecorder{}
	c := New(immediate(lpcm, nil), sink, rec, "v", "pcm_8000", zerolog.Nop())

	c.OnTextDelta("A full sentence that is long enough.", false)
	c.Wait()

	bytes, calls := sink.snapshot()
	if calls != 1 {
		t.Fatalf("sink received %d appends, want 1", calls)
	}
	if bytes != len(lpcm)/2 {
		t.Errorf("sink received %d compressed bytes, want %d", bytes, len(lpcm)/2)
	}
	if rec.total() != len(lpcm) {
		t.Errorf("recorder received %d bytes, want %d", rec.total(), len(lpcm))
	}
}

func TestOnTextDelta_DropsTriggerWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var runs int
	var mu sync.Mutex

	blocking := tts.SynthesizerFunc(func(ctx context.Context, req tts.Request, fn tts.ChunkFunc) error {
		mu.Lock()
		runs++
		mu.Unlock()
		close(started)
		<-release
		return nil
	})

	sink := &captureSink{}
	c := New(blocking, sink, nil, "v", "pcm_8000", zerolog.Nop())

	c.OnTextDelta("The first complete sentence goes here.", false)
	<-started

	c.OnTextDelta("A second complete sentence arrives now.", false)
	if c.PendingBytes() == 0 {
		t.Error("dropped trigger should leave its text buffered")
	}

	close(release)
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	if runs != 1 {
		t.Errorf("synthesis ran %d times, want 1", runs)
	}
}

func TestCancel_StopsAudioBeforeReturning(t *testing.T) {
	started := make(chan struct{})
	emitting := tts.SynthesizerFunc(func(ctx context.Context, req tts.Request, fn tts.ChunkFunc) error {
		close(started)
		chunk := make([]byte, 320)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				fn(chunk)
			}
		}
	})

	sink := &captureSink{}
	c := New(emitting, sink, nil, "v", "pcm_8000", zerolog.Nop())

	c.OnTextDelta("Please cancel this response midway through.", false)
	<-started

	c.Cancel()
	bytesAtCancel, _ := sink.snapshot()

	time.Sleep(20 * time.Millisecond)
	bytesAfter, _ := sink.snapshot()
	if bytesAfter != bytesAtCancel {
		t.Errorf("sink grew from %d to %d bytes after Cancel returned", bytesAtCancel, bytesAfter)
	}
	c.Wait()
}

func TestCancel_WithoutRunIsNoop(t *testing.T) {
	sink := &captureSink{}
	c := New(immediate(make([]byte, 320), nil), sink, nil, "v", "pcm_8000", zerolog.Nop())

	c.Cancel()
	c.Cancel()
}

func TestController_RunsAgainAfterCompletion(t *testing.T) {
	var requests []string
	sink := &captureSink{}
	c := New(immediate(make([]byte, 320), &requests), sink, nil, "v", "pcm_8000", zerolog.Nop())

	c.OnTextDelta("The first complete sentence goes here.", false)
	c.Wait()
	c.OnTextDelta("A second complete sentence arrives now.", false)
	c.Wait()

	if len(requests) != 2 {
		t.Fatalf("synthesis ran %d times, want 2", len(requests))
	}
}
