// Command callsim simulates a telephony provider: it opens the media
// WebSocket, streams µ-law frames at the 20ms cadence and counts the audio
// the bridge sends back. Useful for exercising the service without a real
// telephony trunk.
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ai-voice-bridge-service/internal/media"
)

type wireEvent struct {
	Event    string `json:"event"`
	StreamID string `json:"stream_id,omitempty"`
	Media    *struct {
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
}

func main() {
	var (
		serverURL = flag.String("url", "ws://localhost:8080/v1/media", "media endpoint URL")
		callID    = flag.String("call", "", "call identifier (random when empty)")
		campaign  = flag.String("campaign", "", "campaign identifier")
		language  = flag.String("language", "", "language hint")
		wavPath   = flag.String("wav", "", "mono 8kHz 16-bit WAV to stream (silence when empty)")
		duration  = flag.Duration("duration", 10*time.Second, "how long to stream")
	)
	flag.Parse()

	if *callID == "" {
		*callID = uuid.NewString()
	}

	target := fmt.Sprintf("%s?call_id=%s", *serverURL, *callID)
	if *campaign != "" {
		target += "&campaign_id=" + *campaign
	}
	if *language != "" {
		target += "&language=" + *language
	}

	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", target, err)
	}
	defer conn.Close()
	log.Printf("connected as call %s", *callID)

	frames := loadFrames(*wavPath)
	streamID := "SIM" + uuid.NewString()[:8]

	received := make(chan int)
	go func() {
		count := 0
		for {
			var ev wireEvent
			if err := conn.ReadJSON(&ev); err != nil {
				received <- count
				return
			}
			if ev.Event == "media" && ev.Media != nil {
				count++
			}
		}
	}()

	send := func(v any) {
		if err := conn.WriteJSON(v); err != nil {
			log.Fatalf("write: %v", err)
		}
	}

	send(wireEvent{Event: "start", StreamID: streamID})

	ticker := time.NewTicker(media.CodecPCMU.FrameDur)
	defer ticker.Stop()
	deadline := time.After(*duration)
	sent := 0

loop:
	for {
		select {
		case <-deadline:
			break loop
		case <-ticker.C:
			payload := base64.StdEncoding.EncodeToString(frames[sent%len(frames)])
			send(map[string]any{
				"event":     "media",
				"stream_id": streamID,
				"media":     map[string]string{"payload": payload},
			})
			sent++
		}
	}

	send(wireEvent{Event: "stop", StreamID: streamID})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	select {
	case count := <-received:
		log.Printf("sent %d frames, received %d frames back", sent, count)
	case <-time.After(2 * time.Second):
		log.Printf("sent %d frames, reader still open", sent)
	}
}

// loadFrames slices the source audio into per-frame µ-law payloads. With no
// WAV it produces one frame of µ-law silence.
func loadFrames(wavPath string) [][]byte {
	frameBytes := media.CodecPCMU.BytesPerFrame()

	if wavPath == "" {
		silence := make([]byte, frameBytes)
		for i := range silence {
			silence[i] = 0xFF
		}
		return [][]byte{silence}
	}

	raw, err := os.ReadFile(wavPath)
	if err != nil {
		log.Fatalf("read %s: %v", wavPath, err)
	}
	if len(raw) <= 44 {
		log.Fatalf("%s: too short to be a WAV file", wavPath)
	}
	compressed := media.EncodeUlaw(raw[44:])

	var frames [][]byte
	for off := 0; off+frameBytes <= len(compressed); off += frameBytes {
		frames = append(frames, compressed[off:off+frameBytes])
	}
	if len(frames) == 0 {
		log.Fatalf("%s: no full frames of audio", wavPath)
	}
	return frames
}
