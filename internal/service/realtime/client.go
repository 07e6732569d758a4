// Package realtime implements the AI conversation leg: a WebSocket client
// speaking the realtime conversational protocol, configured for text-only
// responses over 16-bit PCM input with server-side voice activity detection.
package realtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// VADConfig tunes the provider's server-side voice activity detection.
type VADConfig struct {
	Threshold         float64
	PrefixPaddingMs   int
	SilenceDurationMs int
}

// Config holds AI-leg connection parameters. Language and Instructions come
// from the resolved per-call profile.
type Config struct {
	URL          string
	APIKey       string
	Language     string
	Instructions string
	VAD          VADConfig
}

// Client is the session's AI leg. One goroutine reads provider events onto
// the Events channel; writes are serialized by writeMu.
type Client struct {
	conn   *websocket.Conn
	events chan Event
	logger zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects and configures the provider session: text-only output,
// pcm16 input, caller-speech transcription and server VAD. The returned
// client is already reading; consume Events until it closes.
func Dial(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial realtime endpoint: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial realtime endpoint: %w", err)
	}

	c := &Client{
		conn:   conn,
		events: make(chan Event, 64),
		logger: logger,
	}

	if err := c.configureSession(cfg); err != nil {
		conn.Close()
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

func (c *Client) configureSession(cfg Config) error {
	instructions := cfg.Instructions
	if cfg.Language != "" {
		instructions = fmt.Sprintf("%s\nRespond in language: %s.", instructions, cfg.Language)
	}

	update := map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"modalities":         []string{"text"},
			"instructions":       instructions,
			"input_audio_format": "pcm16",
			"input_audio_transcription": map[string]any{
				"model": "whisper-1",
			},
			"turn_detection": map[string]any{
				"type":                "server_vad",
				"threshold":           cfg.VAD.Threshold,
				"prefix_padding_ms":   cfg.VAD.PrefixPaddingMs,
				"silence_duration_ms": cfg.VAD.SilenceDurationMs,
			},
		},
	}
	if err := c.writeJSON(update); err != nil {
		return fmt.Errorf("configure realtime session: %w", err)
	}
	return nil
}

// SendAudio appends one chunk of LPCM16 audio to the provider's input buffer.
func (c *Client) SendAudio(lpcm []byte) error {
	return c.writeJSON(map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(lpcm),
	})
}

// CommitAndRespond commits buffered input and asks for a final response.
// Used at drain time to flush any caller audio VAD has not yet closed.
func (c *Client) CommitAndRespond() error {
	if err := c.writeJSON(map[string]any{"type": "input_audio_buffer.commit"}); err != nil {
		return err
	}
	return c.writeJSON(map[string]any{"type": "response.create"})
}

// Events returns the provider event stream. The channel closes after
// EventDisconnected.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Close tears down the connection. Idempotent. The read loop notices the
// closed socket and emits EventDisconnected.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *Client) readLoop() {
	defer func() {
		c.events <- Event{Type: EventDisconnected}
		close(c.events)
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("Realtime connection closed unexpectedly")
			}
			return
		}

		ev, ok := decodeEvent(raw)
		if !ok {
			continue
		}
		c.events <- ev
	}
}
