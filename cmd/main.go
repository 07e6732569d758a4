package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"ai-voice-bridge-service/internal/app"
	"ai-voice-bridge-service/internal/calllog"
	"ai-voice-bridge-service/internal/config"
	"ai-voice-bridge-service/internal/directory"
	"ai-voice-bridge-service/internal/events"
	httprouter "ai-voice-bridge-service/internal/http"
	"ai-voice-bridge-service/internal/models"
	"ai-voice-bridge-service/internal/observability"
	"ai-voice-bridge-service/internal/service/call"
	"ai-voice-bridge-service/internal/service/realtime"
	"ai-voice-bridge-service/internal/service/tts"
	"ai-voice-bridge-service/internal/service/tts/elevenlabs"
	ttsmock "ai-voice-bridge-service/internal/service/tts/mock"
)

func main() {
	cfg := config.Load()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application startup failed")
	}
	defer application.Shutdown()

	// Kafka publisher with separate topics for call lifecycle and transcripts
	publisher := events.New(&events.Config{
		Enabled:          cfg.Kafka.Enabled,
		Brokers:          cfg.Kafka.Brokers,
		TopicCalls:       cfg.Kafka.TopicCalls,
		TopicTranscripts: cfg.Kafka.TopicTranscripts,
		Principal:        cfg.Kafka.Principal,
	})
	defer publisher.Close()

	obsServer := observability.NewServer(cfg.Observability.MetricsAddr)
	obsServer.Start()

	collab := call.Collaborators{
		Resolver:  newResolver(cfg),
		CallLogs:  newCallLogStore(cfg),
		Publisher: publisher,
		Synth:     newSynthesizer(cfg),
		DialAI:    call.DialRealtime,
	}

	base := call.Options{
		RecordingsDir: cfg.Telephony.RecordingsDir,
		Realtime: realtime.Config{
			URL:    cfg.Realtime.URL,
			APIKey: cfg.Realtime.APIKey,
			VAD: realtime.VADConfig{
				Threshold:         cfg.Realtime.VADThreshold,
				PrefixPaddingMs:   cfg.Realtime.VADPrefixPaddingMs,
				SilenceDurationMs: cfg.Realtime.VADSilenceDurationMs,
			},
		},
		DefaultVoice:        agentVoice(cfg),
		DefaultLanguage:     cfg.Agent.DefaultLanguage,
		DefaultInstructions: cfg.Agent.DefaultInstructions,
		TTSOutputFormat:     cfg.TTS.OutputFormat,
	}

	mediaHandler := call.NewHandler(base, collab)
	router := httprouter.NewRouter(application, mediaHandler)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Service.HTTPPort),
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Service.HTTPPort).Msg("Voice bridge service started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Observability shutdown failed")
	}
}

func newResolver(cfg *config.Config) directory.Resolver {
	if cfg.Agent.ResolverURL != "" {
		return directory.NewHTTPResolver(cfg.Agent.ResolverURL)
	}
	return directory.StaticResolver{Profile: models.AgentProfile{
		Instructions: cfg.Agent.DefaultInstructions,
		Voice:        agentVoice(cfg),
		Language:     cfg.Agent.DefaultLanguage,
	}}
}

func newCallLogStore(cfg *config.Config) calllog.Store {
	if cfg.CallLog.BaseURL != "" {
		return calllog.NewHTTPStore(cfg.CallLog.BaseURL)
	}
	log.Warn().Msg("No call-log endpoint configured, using in-memory store")
	return calllog.NewMemory()
}

func newSynthesizer(cfg *config.Config) tts.Synthesizer {
	if cfg.TTS.Provider == "elevenlabs" {
		return elevenlabs.New(elevenlabs.Config{
			APIKey: cfg.TTS.APIKey,
			Model:  cfg.TTS.Model,
		})
	}
	log.Warn().Str("provider", cfg.TTS.Provider).Msg("Using mock synthesis provider")
	return ttsmock.New()
}

func agentVoice(cfg *config.Config) string {
	if cfg.Agent.DefaultVoice != "" {
		return cfg.Agent.DefaultVoice
	}
	return cfg.TTS.VoiceID
}
