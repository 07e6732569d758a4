// Package tts defines the speech synthesis provider contract. Providers
// stream raw LPCM16 audio chunks through a callback as they arrive so the
// caller can start pacing before synthesis completes.
package tts

import "context"

// Request describes one synthesis run.
type Request struct {
	Text         string
	Voice        string
	OutputFormat string
}

// ChunkFunc receives one chunk of synthesized LPCM16 audio. Chunks arrive in
// order; the slice is only valid for the duration of the call.
type ChunkFunc func(chunk []byte)

// Synthesizer converts text to streamed audio. Implementations must stop
// promptly when ctx is cancelled and return ctx.Err().
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request, fn ChunkFunc) error
}

// SynthesizerFunc adapts a function to the Synthesizer interface.
type SynthesizerFunc func(ctx context.Context, req Request, fn ChunkFunc) error

// Synthesize calls f.
func (f SynthesizerFunc) Synthesize(ctx context.Context, req Request, fn ChunkFunc) error {
	return f(ctx, req, fn)
}
