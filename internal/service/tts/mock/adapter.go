// Package mock provides a deterministic synthesis adapter for local
// development and tests. No external API calls are made.
package mock

import (
	"context"
	"time"

	"ai-voice-bridge-service/internal/service/tts"
)

const chunkSize = 640 // 40ms of LPCM16 at 8kHz

// Adapter generates deterministic audio sized from the input text: 20ms of
// 8kHz LPCM16 per character, emitted in fixed-size chunks.
type Adapter struct {
	// ChunkDelay, when set, paces chunk delivery to simulate a streaming
	// provider.
	ChunkDelay time.Duration
}

// New creates a mock synthesis adapter.
func New() *Adapter {
	return &Adapter{}
}

// Synthesize emits len(req.Text) * 320 bytes of silence in chunkSize pieces,
// honoring ctx between chunks.
func (a *Adapter) Synthesize(ctx context.Context, req tts.Request, fn tts.ChunkFunc) error {
	total := len(req.Text) * 320
	chunk := make([]byte, chunkSize)

	for emitted := 0; emitted < total; emitted += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		if a.ChunkDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.ChunkDelay):
			}
		}
		n := chunkSize
		if remaining := total - emitted; remaining < n {
			n = remaining
		}
		fn(chunk[:n])
	}
	return nil
}
