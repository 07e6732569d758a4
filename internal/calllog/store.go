// Package calllog reads and writes the ops platform's call-log records.
// Each session correlates to at most one record by call identifier.
package calllog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ai-voice-bridge-service/internal/models"
)

// Store is the call-log persistence contract. FindByCallID returns
// (nil, nil) when no record exists for the call.
type Store interface {
	FindByCallID(ctx context.Context, callID string) (*models.CallRecord, error)
	Upsert(ctx context.Context, callID string, update models.CallLogUpdate) error
}

// HTTPStore talks to the ops platform's call-log API.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStore creates a store against the given base URL.
func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *HTTPStore) recordURL(callID string) string {
	return fmt.Sprintf("%s/api/call-logs/%s", s.baseURL, url.PathEscape(callID))
}

// FindByCallID fetches the record for one call. A 404 is not an error; it
// means no record has been created yet.
func (s *HTTPStore) FindByCallID(ctx context.Context, callID string) (*models.CallRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.recordURL(callID), nil)
	if err != nil {
		return nil, fmt.Errorf("build call-log request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch call log: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var rec models.CallRecord
		if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode call log: %w", err)
		}
		return &rec, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("call-log lookup returned status %d", resp.StatusCode)
	}
}

// Upsert writes the terminal update for one call.
func (s *HTTPStore) Upsert(ctx context.Context, callID string, update models.CallLogUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal call-log update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.recordURL(callID), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build call-log update: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("upsert call log: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("call-log upsert returned status %d", resp.StatusCode)
	}

	log.Debug().Str("callId", callID).Str("status", update.Status).Msg("Upserted call log")
	return nil
}

// Memory is an in-process store for tests and local development.
type Memory struct {
	mu      sync.Mutex
	records map[string]*models.CallRecord
	upserts map[string]int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*models.CallRecord),
		upserts: make(map[string]int),
	}
}

// Seed inserts a record, replacing any existing one for the same call.
func (m *Memory) Seed(rec models.CallRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := rec
	m.records[rec.CallID] = &cp
}

// FindByCallID returns a copy of the stored record, or (nil, nil).
func (m *Memory) FindByCallID(_ context.Context, callID string) (*models.CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[callID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// Upsert applies the update, creating the record when missing.
func (m *Memory) Upsert(_ context.Context, callID string, update models.CallLogUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[callID]
	if !ok {
		rec = &models.CallRecord{CallID: callID}
		m.records[callID] = rec
	}
	rec.Status = update.Status
	rec.Transcript = update.Transcript
	rec.RecordingURL = update.RecordingURL
	rec.EndTime = update.EndTime
	m.upserts[callID]++
	return nil
}

// UpsertCount returns how many times Upsert ran for a call.
func (m *Memory) UpsertCount(callID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts[callID]
}
