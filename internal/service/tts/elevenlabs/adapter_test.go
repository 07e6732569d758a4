package elevenlabs

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-voice-bridge-service/internal/service/tts"
)

// oddStreamHandler writes the PCM body in deliberately odd-sized flushes so
// the client sees reads that split 16-bit samples.
func oddStreamHandler(t *testing.T, pcm []byte, writes []int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("xi-api-key = %q, want test-key", got)
		}
		if !strings.Contains(r.URL.Path, "/v1/text-to-speech/voice-1/stream") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("output_format"); got != "pcm_8000" {
			t.Errorf("output_format = %q, want pcm_8000", got)
		}

		flusher := w.(http.Flusher)
		off := 0
		for _, n := range writes {
			w.Write(pcm[off : off+n])
			flusher.Flush()
			off += n
		}
		if off < len(pcm) {
			w.Write(pcm[off:])
		}
	}
}

func TestSynthesize_ChunksStaySampleAligned(t *testing.T) {
	pcm := make([]byte, 4000)
	for i := range pcm {
		pcm[i] = byte(i)
	}

	srv := httptest.NewServer(oddStreamHandler(t, pcm, []int{3, 1, 7, 501, 2, 999}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, APIKey: "test-key"})

	var got []byte
	err := a.Synthesize(context.Background(), tts.Request{
		Text:         "hello there",
		Voice:        "voice-1",
		OutputFormat: "pcm_8000",
	}, func(chunk []byte) {
		if len(chunk)%2 != 0 {
			t.Errorf("received odd-sized chunk of %d bytes", len(chunk))
		}
		got = append(got, chunk...)
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !bytes.Equal(got, pcm) {
		t.Fatalf("reassembled stream differs: got %d bytes, want %d", len(got), len(pcm))
	}
}

func TestSynthesize_OddTotalDropsTrailingByte(t *testing.T) {
	pcm := make([]byte, 333)
	srv := httptest.NewServer(oddStreamHandler(t, pcm, nil))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, APIKey: "test-key"})

	total := 0
	err := a.Synthesize(context.Background(), tts.Request{Voice: "voice-1"}, func(chunk []byte) {
		if len(chunk)%2 != 0 {
			t.Errorf("received odd-sized chunk of %d bytes", len(chunk))
		}
		total += len(chunk)
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if total != len(pcm)-1 {
		t.Errorf("received %d bytes, want %d with the mid-sample tail dropped", total, len(pcm)-1)
	}
}

func TestSynthesize_RequiresVoice(t *testing.T) {
	a := New(Config{APIKey: "test-key"})
	err := a.Synthesize(context.Background(), tts.Request{Text: "hi"}, func([]byte) {})
	if err == nil {
		t.Fatal("expected error for missing voice id")
	}
}

func TestSynthesize_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, APIKey: "wrong"})
	err := a.Synthesize(context.Background(), tts.Request{Voice: "voice-1"}, func([]byte) {})
	if err == nil {
		t.Fatal("expected error for rejected request")
	}
}
