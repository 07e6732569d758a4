// Package call orchestrates one telephony session end to end: the inbound
// media loop, the AI conversation leg, speech synthesis, pacing, recording
// and the terminal call-log write.
package call

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-bridge-service/internal/calllog"
	"ai-voice-bridge-service/internal/directory"
	"ai-voice-bridge-service/internal/events"
	"ai-voice-bridge-service/internal/media"
	"ai-voice-bridge-service/internal/models"
	"ai-voice-bridge-service/internal/observability/metrics"
	"ai-voice-bridge-service/internal/service/pacer"
	"ai-voice-bridge-service/internal/service/realtime"
	"ai-voice-bridge-service/internal/service/synth"
	"ai-voice-bridge-service/internal/service/tts"
)

const drainTimeout = 5 * time.Second

// TelephonyConn is the outbound half of the provider WebSocket.
type TelephonyConn interface {
	WriteJSON(v any) error
}

// AILeg is the conversation leg consumed by a session. Satisfied by
// *realtime.Client.
type AILeg interface {
	SendAudio(lpcm []byte) error
	CommitAndRespond() error
	Events() <-chan realtime.Event
	Close() error
}

// Options carries per-session parameters and service-level defaults.
type Options struct {
	CallID       string
	CampaignID   string
	LanguageHint string

	RecordingsDir string

	Realtime            realtime.Config
	DefaultVoice        string
	DefaultLanguage     string
	DefaultInstructions string
	TTSOutputFormat     string
}

// Collaborators bundles the session's external dependencies so tests can
// substitute fakes.
type Collaborators struct {
	Resolver  directory.Resolver
	CallLogs  calllog.Store
	Publisher *events.Publisher
	Synth     tts.Synthesizer
	DialAI    func(ctx context.Context, cfg realtime.Config) (AILeg, error)
}

// Session is one telephony call bridged to the AI leg.
type Session struct {
	opts   Options
	collab Collaborators
	logger zerolog.Logger

	lifecycle *Lifecycle
	conn      TelephonyConn
	writeMu   sync.Mutex

	pacer    *pacer.Pacer
	synth    *synth.Controller
	recorder *media.Recorder
	ai       AILeg

	profile   models.AgentProfile
	startTime time.Time

	transcriptMu sync.Mutex
	transcript   strings.Builder

	aiDone chan struct{}
}

// NewSession creates a session for one accepted connection.
func NewSession(conn TelephonyConn, opts Options, collab Collaborators, logger zerolog.Logger) *Session {
	s := &Session{
		opts:      opts,
		collab:    collab,
		logger:    logger,
		lifecycle: NewLifecycle(),
		conn:      conn,
		aiDone:    make(chan struct{}),
	}
	s.pacer = pacer.New(s, logger)
	return s
}

// SendMediaFrame delivers one paced frame to the telephony leg.
func (s *Session) SendMediaFrame(streamID, payload string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(outboundMedia{
		Event:    eventMedia,
		StreamID: streamID,
		Media:    mediaPayload{Payload: payload},
	})
}

// Negotiate resolves the call's profile, opens the recording, connects the AI
// leg and moves the session to streaming. Collaborator failures are logged
// and degrade the session rather than abort it; only a lifecycle violation is
// fatal.
func (s *Session) Negotiate(ctx context.Context) error {
	if err := s.lifecycle.BeginNegotiation(); err != nil {
		return err
	}
	s.startTime = time.Now()

	s.profile = s.resolveProfile(ctx)
	s.openRecorder()
	s.correlateCallLog(ctx)
	s.dialAI(ctx)

	voice := s.profile.Voice
	if voice == "" {
		voice = s.opts.DefaultVoice
	}
	s.synth = synth.New(s.collab.Synth, s.pacer, s.recorder, voice, s.opts.TTSOutputFormat, s.logger)

	if err := s.lifecycle.BeginStreaming(); err != nil {
		return err
	}

	metrics.DefaultMetrics.RecordCallStart()
	s.publishStarted(ctx)
	s.logger.Info().
		Str("language", s.profile.Language).
		Str("voice", voice).
		Msg("Session streaming")
	return nil
}

func (s *Session) resolveProfile(ctx context.Context) models.AgentProfile {
	fallback := models.AgentProfile{
		Instructions: s.opts.DefaultInstructions,
		Voice:        s.opts.DefaultVoice,
		Language:     s.opts.DefaultLanguage,
	}
	if s.opts.LanguageHint != "" {
		fallback.Language = s.opts.LanguageHint
	}
	if s.collab.Resolver == nil {
		return fallback
	}

	profile, err := s.collab.Resolver.Resolve(ctx, s.opts.CallID, s.opts.CampaignID, s.opts.LanguageHint)
	if err != nil {
		metrics.DefaultMetrics.ResolverFailures.Inc()
		s.logger.Warn().Err(err).Msg("Profile resolution failed, using defaults")
		return fallback
	}
	if profile.Instructions == "" {
		profile.Instructions = fallback.Instructions
	}
	if profile.Voice == "" {
		profile.Voice = fallback.Voice
	}
	if profile.Language == "" {
		profile.Language = fallback.Language
	}
	return profile
}

func (s *Session) openRecorder() {
	if s.opts.RecordingsDir == "" {
		return
	}
	name := fmt.Sprintf("%s-%s.wav", s.opts.CallID, s.startTime.UTC().Format("20060102T150405"))
	rec, err := media.NewRecorder(filepath.Join(s.opts.RecordingsDir, name))
	if err != nil {
		metrics.DefaultMetrics.RecordingFailures.Inc()
		s.logger.Warn().Err(err).Msg("Recording unavailable for this session")
		return
	}
	s.recorder = rec
}

func (s *Session) correlateCallLog(ctx context.Context) {
	if s.collab.CallLogs == nil {
		return
	}
	rec, err := s.collab.CallLogs.FindByCallID(ctx, s.opts.CallID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Call-log lookup failed")
		return
	}
	if rec != nil && rec.CampaignID != "" && s.opts.CampaignID == "" {
		s.opts.CampaignID = rec.CampaignID
	}
}

func (s *Session) dialAI(ctx context.Context) {
	if s.collab.DialAI == nil {
		return
	}
	cfg := s.opts.Realtime
	cfg.Language = s.profile.Language
	cfg.Instructions = s.profile.Instructions

	leg, err := s.collab.DialAI(ctx, cfg)
	if err != nil {
		metrics.DefaultMetrics.AILegFailures.Inc()
		s.logger.Error().Err(err).Msg("AI leg unavailable, session degraded to recording only")
		close(s.aiDone)
		return
	}
	s.ai = leg
	go s.consumeAIEvents()
}

// HandleTelephonyEvent processes one inbound provider message.
func (s *Session) HandleTelephonyEvent(raw providerEvent) {
	switch raw.Event {
	case eventStart:
		s.pacer.SetStreamID(raw.streamIdentifier())
		s.logger.Info().Str("streamId", raw.streamIdentifier()).Msg("Telephony stream started")
	case eventMedia:
		s.handleMedia(raw)
	case eventStop:
		s.logger.Info().Msg("Telephony stream stopped")
		s.Drain("provider stop")
	default:
		// Providers send marks and connected events the bridge ignores.
	}
}

func (s *Session) handleMedia(raw providerEvent) {
	if raw.Media == nil {
		return
	}
	compressed, err := base64.StdEncoding.DecodeString(raw.Media.Payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Discarding undecodable media payload")
		return
	}
	metrics.DefaultMetrics.RecordFrameReceived(len(compressed))

	lpcm := media.DecodeUlaw(compressed)
	if s.recorder != nil {
		if n, err := s.recorder.Write(lpcm); err == nil {
			metrics.DefaultMetrics.RecordingBytes.Add(float64(n))
		}
	}
	if s.ai != nil {
		if err := s.ai.SendAudio(lpcm); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to forward audio to AI leg")
		}
	}
}

func (s *Session) consumeAIEvents() {
	defer close(s.aiDone)
	for ev := range s.ai.Events() {
		metrics.DefaultMetrics.RecordAIEvent(string(ev.Type))
		switch ev.Type {
		case realtime.EventTextDelta:
			s.appendTranscript(ev.Text)
			if s.lifecycle.State() == StateStreaming {
				s.synth.OnTextDelta(ev.Text, false)
			}
		case realtime.EventTranscriptionDone:
			s.appendUtterance(ev.Text)
		case realtime.EventTranscriptionDelta:
			// Partial caller transcription; the completed utterance follows.
		case realtime.EventResponseDone:
			if s.lifecycle.State() == StateStreaming {
				s.synth.OnTextDelta("", true)
			}
		case realtime.EventError:
			s.logger.Warn().Err(ev.Err).Msg("AI leg reported error")
		case realtime.EventDisconnected:
			s.logger.Info().Msg("AI leg disconnected")
			return
		}
	}
}

// appendTranscript concatenates delta text exactly as received. Deltas are
// token-level and can split words, so no separator is inserted.
func (s *Session) appendTranscript(text string) {
	if text == "" {
		return
	}
	s.transcriptMu.Lock()
	defer s.transcriptMu.Unlock()
	s.transcript.WriteString(text)
}

// appendUtterance records one completed caller utterance, separated from the
// surrounding assistant text.
func (s *Session) appendUtterance(text string) {
	if text == "" {
		return
	}
	s.transcriptMu.Lock()
	defer s.transcriptMu.Unlock()
	if s.transcript.Len() > 0 && !strings.HasSuffix(s.transcript.String(), " ") {
		s.transcript.WriteString(" ")
	}
	s.transcript.WriteString(text)
}

// Transcript returns the accumulated conversation text.
func (s *Session) Transcript() string {
	s.transcriptMu.Lock()
	defer s.transcriptMu.Unlock()
	return strings.TrimSpace(s.transcript.String())
}

// HandleDisconnect tears the session down after the telephony socket drops.
func (s *Session) HandleDisconnect() {
	s.Drain("telephony disconnect")
}

// Drain runs the terminal sequence exactly once: stop pacing, cancel
// synthesis, flush the AI leg, finalize the recording and write the call log.
// Subsequent calls are no-ops.
func (s *Session) Drain(reason string) {
	if err := s.lifecycle.BeginDraining(); err != nil {
		return
	}
	s.logger.Info().Str("reason", reason).Msg("Draining session")

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	s.pacer.Stop()
	if s.synth != nil {
		s.synth.Cancel()
		s.synth.Wait()
	}

	if s.ai != nil {
		if err := s.ai.CommitAndRespond(); err != nil {
			s.logger.Debug().Err(err).Msg("Final commit failed")
		}
	}

	recordingURL := s.finalizeRecording()
	transcript := s.Transcript()
	status := models.CallStatusSuccess

	if s.collab.CallLogs != nil {
		update := models.CallLogUpdate{
			Status:       status,
			Transcript:   transcript,
			RecordingURL: recordingURL,
			EndTime:      time.Now(),
		}
		err := s.collab.CallLogs.Upsert(ctx, s.opts.CallID, update)
		metrics.DefaultMetrics.RecordCallLogUpsert(err)
		if err != nil {
			s.logger.Error().Err(err).Msg("Call-log upsert failed")
		}
	}

	s.publishCompleted(ctx, status, transcript, recordingURL)

	if s.ai != nil {
		s.ai.Close()
		select {
		case <-s.aiDone:
		case <-ctx.Done():
		}
	}

	s.lifecycle.Close()
	metrics.DefaultMetrics.RecordCallEnd(status, time.Since(s.startTime).Seconds())
	s.logger.Info().
		Str("status", status).
		Int("transcriptBytes", len(transcript)).
		Msg("Session closed")
}

func (s *Session) finalizeRecording() string {
	if s.recorder == nil {
		return ""
	}
	if err := s.recorder.Finalize(); err != nil {
		metrics.DefaultMetrics.RecordingFailures.Inc()
		s.logger.Error().Err(err).Msg("Recording finalize failed, abandoning file")
		if aerr := s.recorder.Abandon(); aerr != nil {
			s.logger.Debug().Err(aerr).Msg("Recording abandon failed")
		}
		return ""
	}
	return s.recorder.Path()
}

func (s *Session) publishStarted(ctx context.Context) {
	if s.collab.Publisher == nil {
		return
	}
	err := s.collab.Publisher.PublishCall(ctx, s.opts.CallID, models.CallStarted{
		EventType:  "call.started",
		CallID:     s.opts.CallID,
		CampaignID: s.opts.CampaignID,
		Language:   s.profile.Language,
		Timestamp:  time.Now().UnixMilli(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish call started event")
	}
}

func (s *Session) publishCompleted(ctx context.Context, status, transcript, recordingURL string) {
	if s.collab.Publisher == nil {
		return
	}
	completed := models.CallCompleted{
		EventType:    "call.completed",
		CallID:       s.opts.CallID,
		Status:       status,
		Transcript:   transcript,
		RecordingURL: recordingURL,
		DurationMs:   time.Since(s.startTime).Milliseconds(),
		Timestamp:    time.Now().UnixMilli(),
	}
	if err := s.collab.Publisher.PublishCall(ctx, s.opts.CallID, completed); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish call completed event")
	}
	if transcript != "" {
		if err := s.collab.Publisher.PublishTranscript(ctx, s.opts.CallID, completed); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish transcript event")
		}
	}
}
