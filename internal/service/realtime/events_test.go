package realtime

import "testing"

func TestDecodeEvent_TextDelta(t *testing.T) {
	raw := []byte(`{"type":"response.text.delta","delta":"Bonjour"}`)

	ev, ok := decodeEvent(raw)
	if !ok {
		t.Fatal("expected event to decode")
	}
	if ev.Type != EventTextDelta {
		t.Errorf("type = %s, want %s", ev.Type, EventTextDelta)
	}
	if ev.Text != "Bonjour" {
		t.Errorf("text = %q, want Bonjour", ev.Text)
	}
}

func TestDecodeEvent_TranscriptionCompleted(t *testing.T) {
	raw := []byte(`{"type":"conversation.item.input_audio_transcription.completed","transcript":"hello there"}`)

	ev, ok := decodeEvent(raw)
	if !ok {
		t.Fatal("expected event to decode")
	}
	if ev.Type != EventTranscriptionDone {
		t.Errorf("type = %s, want %s", ev.Type, EventTranscriptionDone)
	}
	if ev.Text != "hello there" {
		t.Errorf("text = %q, want 'hello there'", ev.Text)
	}
}

func TestDecodeEvent_TranscriptionDelta(t *testing.T) {
	raw := []byte(`{"type":"conversation.item.input_audio_transcription.delta","delta":"hel"}`)

	ev, ok := decodeEvent(raw)
	if !ok {
		t.Fatal("expected event to decode")
	}
	if ev.Type != EventTranscriptionDelta {
		t.Errorf("type = %s, want %s", ev.Type, EventTranscriptionDelta)
	}
	if ev.Text != "hel" {
		t.Errorf("text = %q, want hel", ev.Text)
	}
}

func TestDecodeEvent_ResponseDone(t *testing.T) {
	raw := []byte(`{"type":"response.done"}`)

	ev, ok := decodeEvent(raw)
	if !ok {
		t.Fatal("expected event to decode")
	}
	if ev.Type != EventResponseDone {
		t.Errorf("type = %s, want %s", ev.Type, EventResponseDone)
	}
}

func TestDecodeEvent_Error(t *testing.T) {
	raw := []byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad session"}}`)

	ev, ok := decodeEvent(raw)
	if !ok {
		t.Fatal("expected event to decode")
	}
	if ev.Type != EventError {
		t.Errorf("type = %s, want %s", ev.Type, EventError)
	}
	if ev.Err == nil {
		t.Fatal("expected non-nil error")
	}
	if got := ev.Err.Error(); got != "provider error: bad session" {
		t.Errorf("error = %q", got)
	}
}

func TestDecodeEvent_ErrorWithoutMessage(t *testing.T) {
	raw := []byte(`{"type":"error"}`)

	ev, ok := decodeEvent(raw)
	if !ok {
		t.Fatal("expected event to decode")
	}
	if ev.Err == nil {
		t.Fatal("expected non-nil error")
	}
}

func TestDecodeEvent_UnknownTypeSkipped(t *testing.T) {
	unknown := [][]byte{
		[]byte(`{"type":"session.created"}`),
		[]byte(`{"type":"response.audio.delta","delta":"AAAA"}`),
		[]byte(`{"type":"rate_limits.updated"}`),
		[]byte(`{"type":""}`),
	}

	for _, raw := range unknown {
		if _, ok := decodeEvent(raw); ok {
			t.Errorf("expected %s to be skipped", raw)
		}
	}
}

func TestDecodeEvent_MalformedJSON(t *testing.T) {
	ev, ok := decodeEvent([]byte(`{not json`))
	if !ok {
		t.Fatal("malformed payload should surface as an error event")
	}
	if ev.Type != EventError || ev.Err == nil {
		t.Errorf("got type %s err %v, want error event", ev.Type, ev.Err)
	}
}
