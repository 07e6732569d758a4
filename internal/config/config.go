// Package config loads service configuration from environment variables
// with sensible defaults for local development.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is the root service configuration.
type Config struct {
	Service       ServiceConfig
	Observability ObservabilityConfig
	Telephony     TelephonyConfig
	Realtime      RealtimeConfig
	TTS           TTSConfig
	Agent         AgentConfig
	CallLog       CallLogConfig
	Kafka         KafkaConfig
}

// ServiceConfig holds service identity and listener settings.
type ServiceConfig struct {
	Principal string
	HTTPPort  int
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// TelephonyConfig holds media stream settings.
type TelephonyConfig struct {
	RecordingsDir string
}

// RealtimeConfig holds AI-leg connection settings.
type RealtimeConfig struct {
	URL                  string
	APIKey               string
	VADThreshold         float64
	VADPrefixPaddingMs   int
	VADSilenceDurationMs int
}

// TTSConfig holds speech synthesis provider settings.
type TTSConfig struct {
	Provider     string // elevenlabs, mock
	APIKey       string
	VoiceID      string
	Model        string
	OutputFormat string
}

// AgentConfig holds default agent behavior and the optional directory
// endpoint that overrides it per call.
type AgentConfig struct {
	DefaultVoice        string
	DefaultLanguage     string
	DefaultInstructions string
	ResolverURL         string
}

// CallLogConfig holds the ops-platform call-log API settings.
type CallLogConfig struct {
	BaseURL string
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	TopicCalls       string
	TopicTranscripts string
	Principal        string
}

// Load reads configuration from the environment.
func Load() *Config {
	cfg := &Config{
		Service: ServiceConfig{
			Principal: envOrDefault("SERVICE_PRINCIPAL", "ai-voice-bridge-service"),
			HTTPPort:  envOrDefaultInt("HTTP_PORT", 8080),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
		Telephony: TelephonyConfig{
			RecordingsDir: envOrDefault("RECORDINGS_DIR", "recordings"),
		},
		Realtime: RealtimeConfig{
			URL:                  envOrDefault("REALTIME_URL", "wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview"),
			APIKey:               envOrDefault("OPENAI_API_KEY", ""),
			VADThreshold:         envOrDefaultFloat("REALTIME_VAD_THRESHOLD", 0.5),
			VADPrefixPaddingMs:   envOrDefaultInt("REALTIME_VAD_PREFIX_PADDING_MS", 300),
			VADSilenceDurationMs: envOrDefaultInt("REALTIME_VAD_SILENCE_DURATION_MS", 500),
		},
		TTS: TTSConfig{
			Provider:     envOrDefault("TTS_PROVIDER", "mock"),
			APIKey:       envOrDefault("ELEVENLABS_API_KEY", ""),
			VoiceID:      envOrDefault("TTS_VOICE_ID", ""),
			Model:        envOrDefault("TTS_MODEL", ""),
			OutputFormat: envOrDefault("TTS_OUTPUT_FORMAT", "pcm_8000"),
		},
		Agent: AgentConfig{
			DefaultVoice:        envOrDefault("AGENT_DEFAULT_VOICE", ""),
			DefaultLanguage:     envOrDefault("AGENT_DEFAULT_LANGUAGE", "en"),
			DefaultInstructions: envOrDefault("AGENT_DEFAULT_INSTRUCTIONS", "You are a helpful voice assistant on a phone call. Keep replies short and conversational."),
			ResolverURL:         envOrDefault("AGENT_RESOLVER_URL", ""),
		},
		CallLog: CallLogConfig{
			BaseURL: envOrDefault("CALLLOG_BASE_URL", ""),
		},
		Kafka: KafkaConfig{
			Enabled:          envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:          envOrDefaultSlice("KAFKA_BROKERS", nil),
			TopicCalls:       envOrDefault("KAFKA_TOPIC_CALLS", "voice.calls"),
			TopicTranscripts: envOrDefault("KAFKA_TOPIC_TRANSCRIPTS", "voice.transcripts"),
			Principal:        envOrDefault("KAFKA_PRINCIPAL", ""),
		},
	}

	if cfg.Kafka.Principal == "" {
		cfg.Kafka.Principal = cfg.Service.Principal
	}
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultSlice(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
