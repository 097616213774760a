// Package config handles loading and validating the scriptvoice configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nadzzz/scriptvoice/internal/character"
)

// Config is the root configuration for the scriptvoice daemon and CLI.
type Config struct {
	Server       ServerConfig                       `mapstructure:"server"`
	Transports   TransportsConfig                   `mapstructure:"transports"`
	Synthesis    SynthesisConfig                    `mapstructure:"synthesis"`
	Orchestrator OrchestratorConfig                 `mapstructure:"orchestrator"`
	Emotion      EmotionConfig                      `mapstructure:"emotion"`
	Script       ScriptConfig                       `mapstructure:"script"`
	Output       OutputConfig                       `mapstructure:"output"`
	Cache        CacheConfig                        `mapstructure:"cache"`
	Redis        RedisConfig                        `mapstructure:"redis"`
	Queue        QueueConfig                        `mapstructure:"queue"`
	Characters   map[string]character.ProfileConfig `mapstructure:"characters"`
	Logging      LoggingConfig                      `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// SynthesisConfig selects and configures the speech-synthesis backend.
type SynthesisConfig struct {
	Backend  string         `mapstructure:"backend"` // "indextts", "wyoming" or "openai"
	IndexTTS IndexTTSConfig `mapstructure:"indextts"`
	Wyoming  WyomingConfig  `mapstructure:"wyoming"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
}

// IndexTTSConfig configures an emotion-capable HTTP synthesis server.
type IndexTTSConfig struct {
	Endpoint string        `mapstructure:"endpoint"` // base URL, e.g. http://localhost:7860
	Timeout  time.Duration `mapstructure:"timeout"`
}

// WyomingConfig holds Piper settings (Wyoming protocol).
//
// Each character speaks with the voice named in Voices, else its voice
// reference, else DefaultVoice.
type WyomingConfig struct {
	Endpoint     string            `mapstructure:"endpoint"` // Wyoming TCP endpoint (host:port)
	DefaultVoice string            `mapstructure:"default_voice"`
	Voices       map[string]string `mapstructure:"voices"` // character id -> Piper voice model name
}

// OpenAIConfig holds OpenAI speech API settings.
type OpenAIConfig struct {
	APIKey       string            `mapstructure:"api_key"`
	BaseURL      string            `mapstructure:"base_url"`
	Model        string            `mapstructure:"model"`
	DefaultVoice string            `mapstructure:"default_voice"`
	Voices       map[string]string `mapstructure:"voices"` // character id -> OpenAI voice
}

// OrchestratorConfig tunes job scheduling and retries.
type OrchestratorConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	MaxRetries      int           `mapstructure:"max_retries"`
	JobTimeout      time.Duration `mapstructure:"job_timeout"`
	BackoffBase     time.Duration `mapstructure:"backoff_base"`
	BackoffMax      time.Duration `mapstructure:"backoff_max"`
	ExclusiveVoices bool          `mapstructure:"exclusive_voices"`
	BestEffort      bool          `mapstructure:"best_effort"`
	SilenceDuration time.Duration `mapstructure:"silence_duration"`
}

// EmotionConfig holds the emotion scaling rules.
type EmotionConfig struct {
	NarratorID       string  `mapstructure:"narrator_id"`
	BypassThreshold  float64 `mapstructure:"bypass_threshold"`
	DialogueScale    float64 `mapstructure:"dialogue_scale"`
	NarrationScale   float64 `mapstructure:"narration_scale"`
	DescriptiveAlpha float64 `mapstructure:"descriptive_alpha"`
}

// ScriptConfig controls parsing and segmentation.
type ScriptConfig struct {
	MaxChars                 int    `mapstructure:"max_chars"`
	UnknownCharacterFallback string `mapstructure:"unknown_character_fallback"` // empty = fail
}

// OutputConfig sets the stitched output format.
type OutputConfig struct {
	SampleRate   int           `mapstructure:"sample_rate"`
	Channels     int           `mapstructure:"channels"`
	SpeakerPause time.Duration `mapstructure:"speaker_pause"`
}

// CacheConfig enables the redis clip cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// RedisConfig is shared by the clip cache and the job queue.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// QueueConfig enables asynchronous render jobs.
type QueueConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Concurrency int    `mapstructure:"concurrency"`
	OutputDir   string `mapstructure:"output_dir"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./scriptvoice.yaml, ./configs/scriptvoice.yaml, /etc/scriptvoice/scriptvoice.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("synthesis.backend", "indextts")
	v.SetDefault("synthesis.indextts.endpoint", "http://localhost:7860")
	v.SetDefault("synthesis.indextts.timeout", "120s")
	v.SetDefault("synthesis.wyoming.endpoint", "localhost:10200")
	v.SetDefault("synthesis.wyoming.default_voice", "en_US-lessac-medium")
	v.SetDefault("synthesis.openai.model", "gpt-4o-mini-tts")
	v.SetDefault("synthesis.openai.default_voice", "alloy")
	v.SetDefault("orchestrator.concurrency", 1)
	v.SetDefault("orchestrator.max_retries", 3)
	v.SetDefault("orchestrator.job_timeout", "120s")
	v.SetDefault("orchestrator.backoff_base", "500ms")
	v.SetDefault("orchestrator.backoff_max", "10s")
	v.SetDefault("orchestrator.exclusive_voices", true)
	v.SetDefault("orchestrator.best_effort", false)
	v.SetDefault("orchestrator.silence_duration", "500ms")
	v.SetDefault("emotion.narrator_id", "narrator")
	v.SetDefault("emotion.bypass_threshold", 0.1)
	v.SetDefault("emotion.dialogue_scale", 1.2)
	v.SetDefault("emotion.narration_scale", 0.8)
	v.SetDefault("emotion.descriptive_alpha", 0.8)
	v.SetDefault("script.max_chars", 200)
	v.SetDefault("script.unknown_character_fallback", "")
	v.SetDefault("output.sample_rate", 24000)
	v.SetDefault("output.channels", 1)
	v.SetDefault("output.speaker_pause", "0s")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.concurrency", 2)
	v.SetDefault("queue.output_dir", "output")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("scriptvoice")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/scriptvoice")
	}

	// Environment variables: SCRIPTVOICE_SYNTHESIS_BACKEND, SCRIPTVOICE_ORCHESTRATOR_CONCURRENCY, etc.
	v.SetEnvPrefix("SCRIPTVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional, env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.Synthesis.OpenAI.APIKey = resolveEnvRef(cfg.Synthesis.OpenAI.APIKey)
	cfg.Redis.Password = resolveEnvRef(cfg.Redis.Password)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no run could work with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Synthesis.Backend {
	case "indextts", "wyoming", "openai":
	default:
		errs = append(errs, fmt.Errorf("synthesis.backend: unknown backend %q", c.Synthesis.Backend))
	}
	if c.Orchestrator.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("orchestrator.concurrency must be positive, got %d", c.Orchestrator.Concurrency))
	}
	if c.Orchestrator.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("orchestrator.max_retries must not be negative, got %d", c.Orchestrator.MaxRetries))
	}
	if c.Script.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("script.max_chars must be positive, got %d", c.Script.MaxChars))
	}
	if c.Output.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("output.sample_rate must be positive, got %d", c.Output.SampleRate))
	}
	if c.Output.Channels < 1 || c.Output.Channels > 2 {
		errs = append(errs, fmt.Errorf("output.channels must be 1 or 2, got %d", c.Output.Channels))
	}
	if c.Emotion.NarratorID == "" {
		errs = append(errs, errors.New("emotion.narrator_id must not be empty"))
	}
	if c.Queue.Enabled && c.Queue.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("queue.concurrency must be positive, got %d", c.Queue.Concurrency))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
