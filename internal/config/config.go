package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Identity IdentityConfig `yaml:"identity"`
	Session  SessionConfig  `yaml:"session"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen"`
	// PublicHost is the externally-reachable hostname used in the TwiML
	// stream URL. When empty, the webhook request's Host header is used.
	PublicHost string `yaml:"public_host"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	APISID     string `yaml:"api_sid"`
	SecretKey  string `yaml:"secret_key"`
	// TransferNumber is the protected party's real number, dialed after a
	// caller passes verification.
	TransferNumber string `yaml:"transfer_number"`
}

type OpenAIConfig struct {
	APIKey             string  `yaml:"api_key"`
	Model              string  `yaml:"model"`
	Voice              string  `yaml:"voice"`
	TranscriptionModel string  `yaml:"transcription_model"`
	VADThreshold       float64 `yaml:"vad_threshold"`
	SilenceDurationMs  int     `yaml:"silence_duration_ms"`
	PrefixPaddingMs    int     `yaml:"prefix_padding_ms"`
	IdleTimeoutMs      int     `yaml:"idle_timeout_ms"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type IdentityConfig struct {
	// DatabaseURL selects the Postgres-backed challenge store when set;
	// otherwise lookups are served from the static challenge table.
	DatabaseURL string               `yaml:"database_url"`
	Challenges  map[string]Challenge `yaml:"challenges"`
}

type Challenge struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

type SessionConfig struct {
	// GracePeriodSeconds is how long pending synthesized audio may drain
	// before the telephony leg is hard-closed.
	GracePeriodSeconds int `yaml:"grace_period_seconds"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in configuration before any file overrides.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Listen: ":8080",
		},
		OpenAI: OpenAIConfig{
			Model:              "gpt-realtime",
			Voice:              "marin",
			TranscriptionModel: "gpt-4o-mini-transcribe",
			VADThreshold:       0.6,
			SilenceDurationMs:  800,
			PrefixPaddingMs:    50,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "callsentry",
			TopicPrefix: "live",
		},
		Session: SessionConfig{
			GracePeriodSeconds: 4,
		},
	}
}

func (c *Config) validate() error {
	if c.HTTP.Listen == "" {
		return fmt.Errorf("http.listen is required")
	}
	if c.Twilio.AccountSID == "" {
		return fmt.Errorf("twilio.account_sid is required")
	}
	if c.Twilio.APISID == "" {
		return fmt.Errorf("twilio.api_sid is required")
	}
	if c.Twilio.SecretKey == "" {
		return fmt.Errorf("twilio.secret_key is required")
	}
	if c.Twilio.TransferNumber == "" {
		return fmt.Errorf("twilio.transfer_number is required")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if c.OpenAI.VADThreshold < 0 || c.OpenAI.VADThreshold > 1 {
		return fmt.Errorf("openai.vad_threshold must be between 0 and 1, got %v", c.OpenAI.VADThreshold)
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.MQTT.ClientID == "" {
		return fmt.Errorf("mqtt.client_id is required")
	}
	if c.MQTT.TopicPrefix == "" {
		return fmt.Errorf("mqtt.topic_prefix is required")
	}
	if c.Session.GracePeriodSeconds < 0 {
		return fmt.Errorf("session.grace_period_seconds must not be negative, got %d", c.Session.GracePeriodSeconds)
	}
	return nil
}
