// Package models defines the data structures shared across the bridge:
// resolved per-call configuration, call-log records and published events.
package models

import "time"

// AgentProfile is the per-call configuration resolved once at negotiation and
// immutable for the rest of the session.
type AgentProfile struct {
	Instructions string `json:"instructions,omitempty"`
	Voice        string `json:"voice,omitempty"`
	Language     string `json:"language,omitempty"`
}

// CallRecord is the ops-platform call-log record correlated to a session.
type CallRecord struct {
	CallID       string    `json:"callId"`
	CampaignID   string    `json:"campaignId,omitempty"`
	Status       string    `json:"status,omitempty"`
	Transcript   string    `json:"transcript,omitempty"`
	RecordingURL string    `json:"recordingUrl,omitempty"`
	StartTime    time.Time `json:"startTime,omitempty"`
	EndTime      time.Time `json:"endTime,omitempty"`
}

// CallLogUpdate is the terminal upsert payload written exactly once per call.
type CallLogUpdate struct {
	Status       string    `json:"status"`
	Transcript   string    `json:"transcript"`
	RecordingURL string    `json:"recordingUrl"`
	EndTime      time.Time `json:"endTime"`
}

// Call-log status values.
const (
	CallStatusSuccess = "success"
	CallStatusFailed  = "failed"
)

// CallStarted is published when a session enters streaming.
type CallStarted struct {
	EventType  string `json:"eventType"`
	CallID     string `json:"callId"`
	CampaignID string `json:"campaignId,omitempty"`
	Language   string `json:"language,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// CallCompleted is published on the terminal transition with the final
// transcript and recording location.
type CallCompleted struct {
	EventType    string `json:"eventType"`
	CallID       string `json:"callId"`
	Status       string `json:"status"`
	Transcript   string `json:"transcript"`
	RecordingURL string `json:"recordingUrl,omitempty"`
	DurationMs   int64  `json:"durationMs"`
	Timestamp    int64  `json:"timestamp"`
}
