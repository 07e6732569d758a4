package call

// providerEvent is the inbound telephony message envelope. Providers differ
// on the stream identifier key, so both spellings are accepted.
type providerEvent struct {
	Event     string        `json:"event"`
	StreamID  string        `json:"stream_id,omitempty"`
	StreamSid string        `json:"streamSid,omitempty"`
	Media     *mediaPayload `json:"media,omitempty"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

// streamIdentifier returns the stream identifier, preferring stream_id when
// both spellings are present.
func (e providerEvent) streamIdentifier() string {
	if e.StreamID != "" {
		return e.StreamID
	}
	return e.StreamSid
}

// outboundMedia is the outbound media frame envelope. Outbound frames always
// use the stream_id spelling.
type outboundMedia struct {
	Event    string       `json:"event"`
	StreamID string       `json:"stream_id"`
	Media    mediaPayload `json:"media"`
}

// Telephony event names.
const (
	eventStart = "start"
	eventMedia = "media"
	eventStop  = "stop"
)
