// Package elevenlabs implements streaming speech synthesis against the
// ElevenLabs HTTP API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"ai-voice-bridge-service/internal/service/tts"
)

const (
	defaultBaseURL      = "https://api.elevenlabs.io"
	defaultModel        = "eleven_flash_v2_5"
	defaultOutputFormat = "pcm_8000"
	readChunkSize       = 4096
)

// Adapter streams synthesized audio from the ElevenLabs API.
type Adapter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// Config holds ElevenLabs connection parameters.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// New creates an ElevenLabs synthesis adapter.
func New(cfg Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Adapter{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize streams raw PCM from the provider's streaming endpoint,
// delivering chunks as they arrive. Returns ctx.Err() on cancellation.
func (a *Adapter) Synthesize(ctx context.Context, req tts.Request, fn tts.ChunkFunc) error {
	if req.Voice == "" {
		return errors.New("elevenlabs: voice id required")
	}

	format := req.OutputFormat
	if format == "" {
		format = defaultOutputFormat
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream?output_format=%s",
		a.baseURL, url.PathEscape(req.Voice), url.QueryEscape(format))

	body, err := json.Marshal(synthesisRequest{
		Text:    req.Text,
		ModelID: a.model,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("elevenlabs: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("elevenlabs: synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn().
			Int("status", resp.StatusCode).
			Str("detail", string(detail)).
			Msg("Synthesis request rejected")
		return fmt.Errorf("elevenlabs: synthesis failed with status %d", resp.StatusCode)
	}

	// Chunked reads can split a 16-bit sample across two reads. A trailing
	// odd byte is carried into the next chunk so every emitted chunk stays
	// sample-aligned; downstream transcoding drops odd tails otherwise.
	buf := make([]byte, readChunkSize)
	var carry byte
	haveCarry := false
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if haveCarry {
				chunk = append([]byte{carry}, chunk...)
				haveCarry = false
			}
			if len(chunk)%2 != 0 {
				carry = chunk[len(chunk)-1]
				haveCarry = true
				chunk = chunk[:len(chunk)-1]
			}
			if len(chunk) > 0 {
				fn(chunk)
			}
		}
		if err == io.EOF {
			if haveCarry {
				log.Warn().Msg("Synthesis stream ended mid-sample, dropping trailing byte")
			}
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("elevenlabs: read audio stream: %w", err)
		}
	}
}
