package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxContractChars   = 200000
	DefaultMaxComparisonChars = 180000
	DefaultChunkSize          = 12000
	DefaultDatabaseURL        = "./data/contract-decoder.db"
)

// Config holds application configuration.
type Config struct {
	Port               string   `yaml:"port"`
	Env                string   `yaml:"env"`
	CORSAllowOrigin    []string `yaml:"cors_allow_origins"`
	LLMProvider        string   `yaml:"llm_provider"`
	LLMModel           string   `yaml:"llm_model"`
	APIKey             string   `yaml:"api_key"`
	LLMTimeoutSeconds  int      `yaml:"llm_timeout_seconds"`
	DatabaseURL        string   `yaml:"database_url"`
	ChunkSize          int      `yaml:"chunk_size"`
	MaxContractChars   int      `yaml:"max_contract_chars"`
	MaxComparisonChars int      `yaml:"max_comparison_chars"`
	LogLevel           string   `yaml:"log_level"`
	LogFormat          string   `yaml:"log_format"`
	RateLimitRPS       float64  `yaml:"rate_limit_rps"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
}

// Load reads configuration from environment variables with sensible defaults.
// When CONFIG_FILE points at a YAML file its values are applied first and env vars win.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			log.Printf("config: ignoring %s: %v", path, err)
		} else {
			cfg = fileCfg
		}
	}

	cfg.Port = getEnv("PORT", orDefault(cfg.Port, "8080"))
	cfg.Env = normalizeEnv(getEnv("ENV", orDefault(cfg.Env, "dev")))
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" || len(cfg.CORSAllowOrigin) == 0 {
		cfg.CORSAllowOrigin = splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"))
	}
	cfg.LLMProvider = normalizeProvider(getEnv("LLM_PROVIDER", orDefault(cfg.LLMProvider, "gemini")))
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.APIKey = firstNonEmpty(os.Getenv("API_KEY"), providerKey(cfg.LLMProvider), cfg.APIKey)
	cfg.LLMTimeoutSeconds = getEnvInt("LLM_TIMEOUT_SECONDS", orDefaultInt(cfg.LLMTimeoutSeconds, 120))
	cfg.DatabaseURL = getEnv("DATABASE_URL", orDefault(cfg.DatabaseURL, DefaultDatabaseURL))
	cfg.ChunkSize = getEnvInt("CHUNK_SIZE", orDefaultInt(cfg.ChunkSize, DefaultChunkSize))
	cfg.MaxContractChars = getEnvInt("MAX_CONTRACT_CHARS", orDefaultInt(cfg.MaxContractChars, DefaultMaxContractChars))
	cfg.MaxComparisonChars = getEnvInt("MAX_COMPARISON_CHARS", orDefaultInt(cfg.MaxComparisonChars, DefaultMaxComparisonChars))
	cfg.LogLevel = getEnv("LOG_LEVEL", orDefault(cfg.LogLevel, "info"))
	cfg.LogFormat = getEnv("LOG_FORMAT", orDefault(cfg.LogFormat, "json"))
	cfg.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", orDefaultFloat(cfg.RateLimitRPS, 2))
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", orDefaultInt(cfg.RateLimitBurst, 5))

	if cfg.APIKey == "" {
		log.Printf("config: no API key configured; LLM features are unavailable")
	}
	return cfg
}

// LoadFile parses a YAML config file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Diagnostics reports configuration problems that leave the app degraded.
func (c Config) Diagnostics() []string {
	var out []string
	if strings.TrimSpace(c.APIKey) == "" {
		out = append(out, "API_KEY is not set; analysis, chat, comparison and drafting are unavailable")
	}
	if c.ChunkSize <= 0 {
		out = append(out, "CHUNK_SIZE must be positive")
	}
	return out
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config: %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || val < 0 {
		log.Printf("config: %s invalid number %q, using %v", key, raw, def)
		return def
	}
	return val
}

func orDefault(val, def string) string {
	if strings.TrimSpace(val) == "" {
		return def
	}
	return val
}

func orDefaultInt(val, def int) int {
	if val <= 0 {
		return def
	}
	return val
}

func orDefaultFloat(val, def float64) float64 {
	if val <= 0 {
		return def
	}
	return val
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func providerKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	default:
		return os.Getenv("GEMINI_API_KEY")
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	default:
		return "gemini"
	}
}
