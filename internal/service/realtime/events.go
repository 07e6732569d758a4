package realtime

import (
	"encoding/json"
	"fmt"
)

// EventType classifies events surfaced to the session.
type EventType string

const (
	// EventTextDelta carries an incremental piece of the assistant reply.
	EventTextDelta EventType = "text_delta"
	// EventTranscriptionDelta carries an incremental piece of caller-speech
	// transcription.
	EventTranscriptionDelta EventType = "transcription_delta"
	// EventTranscriptionDone carries one completed caller utterance.
	EventTranscriptionDone EventType = "transcription_done"
	// EventResponseDone marks the end of one assistant response.
	EventResponseDone EventType = "response_done"
	// EventError carries a provider-reported error.
	EventError EventType = "error"
	// EventDisconnected is the final event on the channel before it closes.
	EventDisconnected EventType = "disconnected"
)

// Event is one provider event normalized for the session. Text is set for
// delta and transcription events, Err for error events.
type Event struct {
	Type EventType
	Text string
	Err  error
}

// wireEvent mirrors the subset of the provider's JSON event envelope the
// bridge consumes. Fields vary by type; unused ones stay zero.
type wireEvent struct {
	Type       string `json:"type"`
	Delta      string `json:"delta,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Error      *struct {
		Type    string `json:"type,omitempty"`
		Code    string `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error,omitempty"`
}

// decodeEvent maps one raw provider message to a session event. Unknown
// event types return ok=false and are skipped without error; the provider
// adds types over time and the bridge only reacts to the ones it knows.
func decodeEvent(raw []byte) (Event, bool) {
	var we wireEvent
	if err := json.Unmarshal(raw, &we); err != nil {
		return Event{Type: EventError, Err: fmt.Errorf("decode provider event: %w", err)}, true
	}

	switch we.Type {
	case "response.text.delta":
		return Event{Type: EventTextDelta, Text: we.Delta}, true
	case "conversation.item.input_audio_transcription.completed":
		return Event{Type: EventTranscriptionDone, Text: we.Transcript}, true
	case "conversation.item.input_audio_transcription.delta":
		return Event{Type: EventTranscriptionDelta, Text: we.Delta}, true
	case "response.done":
		return Event{Type: EventResponseDone}, true
	case "error":
		msg := "unknown provider error"
		if we.Error != nil && we.Error.Message != "" {
			msg = we.Error.Message
		}
		return Event{Type: EventError, Err: fmt.Errorf("provider error: %s", msg)}, true
	default:
		return Event{}, false
	}
}
