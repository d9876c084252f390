package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type FoxieServerConfig struct {
	HTTPAddr         string
	UserID           string
	PetName          string
	DBDSN            string
	MQTTBrokerURL    string
	MQTTClientID     string
	MQTTUsername     string
	MQTTPassword     string
	MQTTTopicPrefix  string
	LLMProvider      string
	LLMModel         string
	OpenAIBaseURL    string
	OpenAIAPIKey     string
	AnthropicBaseURL string
	AnthropicAPIKey  string
	SpeechBridgeURL  string
	TerminalTTL      time.Duration
	WakeTimeout      time.Duration
	NeedsInterval    time.Duration
	MoodInterval     time.Duration
	DriftInterval    time.Duration
	RandomSeed       int64
}

func LoadFoxieServerConfig() (FoxieServerConfig, error) {
	cfg := FoxieServerConfig{
		HTTPAddr:         getenvDefault("FOXIE_HTTP_ADDR", ":9020"),
		UserID:           getenvDefault("USER_ID", "demo-user"),
		PetName:          getenvDefault("PET_NAME", "Foxie"),
		DBDSN:            os.Getenv("DB_DSN"),
		MQTTBrokerURL:    getenvDefault("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:     getenvDefault("FOXIE_MQTT_CLIENT_ID", "foxie-server"),
		MQTTUsername:     os.Getenv("MQTT_USERNAME"),
		MQTTPassword:     os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix:  getenvDefault("MQTT_TOPIC_PREFIX", "foxie"),
		LLMProvider:      getenvDefault("LLM_PROVIDER", "openai"),
		LLMModel:         getenvDefault("LLM_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    getenvDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		AnthropicBaseURL: getenvDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		SpeechBridgeURL:  os.Getenv("SPEECH_BRIDGE_URL"),
		TerminalTTL:      time.Duration(getenvIntDefault("TERMINAL_TTL_SECONDS", 60)) * time.Second,
		WakeTimeout:      time.Duration(getenvIntDefault("WAKE_TIMEOUT_SECONDS", 30)) * time.Second,
		NeedsInterval:    time.Duration(getenvIntDefault("NEEDS_TICK_SECONDS", 60)) * time.Second,
		MoodInterval:     time.Duration(getenvIntDefault("MOOD_TICK_SECONDS", 5)) * time.Second,
		DriftInterval:    time.Duration(getenvIntDefault("TRAIT_DRIFT_SECONDS", 10)) * time.Second,
		RandomSeed:       getenvInt64Default("FOXIE_RANDOM_SEED", 0),
	}

	if cfg.DBDSN == "" {
		return FoxieServerConfig{}, fmt.Errorf("DB_DSN is required")
	}

	if cfg.LLMProvider == "openai" && cfg.OpenAIAPIKey == "" {
		return FoxieServerConfig{}, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
	}
	if cfg.LLMProvider == "claude" && cfg.AnthropicAPIKey == "" {
		return FoxieServerConfig{}, fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=claude")
	}

	return cfg, nil
}

func getenvDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}

func getenvIntDefault(key string, val int) int {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return val
	}
	return n
}

func getenvInt64Default(key string, val int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return val
	}
	return n
}
