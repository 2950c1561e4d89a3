// Package config loads engine settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Settings holds all runtime configuration. Values come from environment
// variables with the defaults below; cmd/server loads .env first.
type Settings struct {
	AppName    string
	ListenAddr string

	// Storage. Empty DSN selects the in-memory stores.
	PostgresDSN string

	// Reasoning (OpenAI-compatible chat completions API).
	LLMBaseURL        string
	LLMAPIKey         string
	LLMModel          string
	LLMTimeout        time.Duration
	LLMMaxConcurrency int

	// Scheduler.
	SchedulerEnabled bool
	ScanInterval     time.Duration

	// Guardrails.
	Cooldown                time.Duration
	EvidenceMinItems        int
	MaxPositionAggressive   int
	MaxPositionNeutral      int
	MaxPositionConservative int

	// Prefilter.
	MinTurnover20d float64
}

// Load reads settings from the environment, applying defaults.
func Load() Settings {
	return Settings{
		AppName:                 envStr("APP_NAME", "stock-advisor"),
		ListenAddr:              envStr("LISTEN_ADDR", ":8080"),
		PostgresDSN:             envStr("POSTGRES_DSN", ""),
		LLMBaseURL:              envStr("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:               envStr("LLM_API_KEY", ""),
		LLMModel:                envStr("LLM_MODEL", "gpt-4.1-mini"),
		LLMTimeout:              envDurationSeconds("LLM_TIMEOUT_SECONDS", 20),
		LLMMaxConcurrency:       envInt("LLM_MAX_CONCURRENCY", 20),
		SchedulerEnabled:        envBool("SCHEDULER_ENABLED", true),
		ScanInterval:            envDurationMinutes("SCAN_INTERVAL_MINUTES", 15),
		Cooldown:                envDurationMinutes("COOLDOWN_MINUTES", 240),
		EvidenceMinItems:        envInt("EVIDENCE_MIN_ITEMS", 2),
		MaxPositionAggressive:   envInt("MAX_POSITION_AGGRESSIVE", 50),
		MaxPositionNeutral:      envInt("MAX_POSITION_NEUTRAL", 35),
		MaxPositionConservative: envInt("MAX_POSITION_CONSERVATIVE", 20),
		MinTurnover20d:          envFloat("MIN_TURNOVER_20D", 100_000_000),
	}
}

// Validate rejects settings the engine cannot run with.
func (s Settings) Validate() error {
	if s.LLMMaxConcurrency < 1 {
		return fmt.Errorf("LLM_MAX_CONCURRENCY must be >= 1, got %d", s.LLMMaxConcurrency)
	}
	if s.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL_MINUTES must be positive, got %s", s.ScanInterval)
	}
	if s.EvidenceMinItems < 0 {
		return fmt.Errorf("EVIDENCE_MIN_ITEMS must be >= 0, got %d", s.EvidenceMinItems)
	}
	for _, p := range []struct {
		name string
		val  int
	}{
		{"MAX_POSITION_AGGRESSIVE", s.MaxPositionAggressive},
		{"MAX_POSITION_NEUTRAL", s.MaxPositionNeutral},
		{"MAX_POSITION_CONSERVATIVE", s.MaxPositionConservative},
	} {
		if p.val < 0 || p.val > 100 {
			return fmt.Errorf("%s must be within [0,100], got %d", p.name, p.val)
		}
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDurationSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}

func envDurationMinutes(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Minute
}
