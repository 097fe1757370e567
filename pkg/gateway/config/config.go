package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	LogLevel  string // debug|info|warn|error
	LogFormat string // text|json

	// HMAC secret for bearer-token verification.
	JWTSecret string

	// Postgres connection string. Empty selects the in-memory store.
	DatabaseURL string

	// CORS
	CORSAllowedOrigins map[string]struct{} // empty => disabled

	// Google / Gemini
	GoogleProject  string
	GoogleLocation string
	GoogleAPIKey   string
	// GoogleAccessToken authenticates the Vertex Live endpoint when a
	// project is configured. The API key path does not use it.
	GoogleAccessToken string
	LiveModel         string
	TextModel         string

	// Voice session timings.
	HandshakeTimeout  time.Duration
	KeepAliveInterval time.Duration
	WSWriteTimeout    time.Duration

	// Plan limits.
	FreeTrialMinutes  int
	ProMonthlyMinutes int
	SessionMaxMinutes int
	FreeDailyMessages int
	MaxMessageLen     int
	MaxAboutMeLen     int

	// Operational defaults
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("MIRA_ADDR", ":8080"),
		LogLevel:            strings.ToLower(envOr("MIRA_LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(envOr("MIRA_LOG_FORMAT", "text")),
		JWTSecret:           os.Getenv("MIRA_JWT_SECRET"),
		DatabaseURL:         os.Getenv("MIRA_DATABASE_URL"),
		CORSAllowedOrigins:  make(map[string]struct{}),
		GoogleProject:       os.Getenv("MIRA_GOOGLE_PROJECT"),
		GoogleLocation:      envOr("MIRA_GOOGLE_LOCATION", "us-central1"),
		GoogleAPIKey:        os.Getenv("MIRA_GOOGLE_API_KEY"),
		GoogleAccessToken:   os.Getenv("MIRA_GOOGLE_ACCESS_TOKEN"),
		LiveModel:           envOr("MIRA_LIVE_MODEL", "gemini-2.0-flash-live-preview-04-09"),
		TextModel:           envOr("MIRA_TEXT_MODEL", "gemini-2.0-flash"),
		HandshakeTimeout:    envDurationOr("MIRA_LIVE_HANDSHAKE_TIMEOUT", 10*time.Second),
		KeepAliveInterval:   envDurationOr("MIRA_LIVE_KEEPALIVE_INTERVAL", 30*time.Second),
		WSWriteTimeout:      envDurationOr("MIRA_WS_WRITE_TIMEOUT", 5*time.Second),
		FreeTrialMinutes:    envIntOr("MIRA_FREE_TRIAL_MINUTES", 5),
		ProMonthlyMinutes:   envIntOr("MIRA_PRO_MONTHLY_MINUTES", 60),
		SessionMaxMinutes:   envIntOr("MIRA_SESSION_MAX_MINUTES", 30),
		FreeDailyMessages:   envIntOr("MIRA_FREE_DAILY_MESSAGES", 10),
		MaxMessageLen:       envIntOr("MIRA_MAX_MESSAGE_LEN", 2000),
		MaxAboutMeLen:       envIntOr("MIRA_MAX_ABOUT_ME_LEN", 500),
		ReadHeaderTimeout:   envDurationOr("MIRA_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         envDurationOr("MIRA_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod: envDurationOr("MIRA_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("MIRA_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("MIRA_LOG_LEVEL must be one of debug|info|warn|error")
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("MIRA_LOG_FORMAT must be one of text|json")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, fmt.Errorf("MIRA_JWT_SECRET must be set")
	}
	if strings.TrimSpace(cfg.GoogleAPIKey) == "" && strings.TrimSpace(cfg.GoogleProject) == "" {
		return Config{}, fmt.Errorf("one of MIRA_GOOGLE_API_KEY or MIRA_GOOGLE_PROJECT must be set")
	}
	if strings.TrimSpace(cfg.GoogleLocation) == "" {
		return Config{}, fmt.Errorf("MIRA_GOOGLE_LOCATION must not be empty")
	}
	if strings.TrimSpace(cfg.LiveModel) == "" {
		return Config{}, fmt.Errorf("MIRA_LIVE_MODEL must not be empty")
	}
	if strings.TrimSpace(cfg.TextModel) == "" {
		return Config{}, fmt.Errorf("MIRA_TEXT_MODEL must not be empty")
	}
	if cfg.HandshakeTimeout <= 0 {
		return Config{}, fmt.Errorf("MIRA_LIVE_HANDSHAKE_TIMEOUT must be > 0")
	}
	if cfg.KeepAliveInterval <= 0 {
		return Config{}, fmt.Errorf("MIRA_LIVE_KEEPALIVE_INTERVAL must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("MIRA_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.FreeTrialMinutes <= 0 {
		return Config{}, fmt.Errorf("MIRA_FREE_TRIAL_MINUTES must be > 0")
	}
	if cfg.ProMonthlyMinutes <= 0 {
		return Config{}, fmt.Errorf("MIRA_PRO_MONTHLY_MINUTES must be > 0")
	}
	if cfg.SessionMaxMinutes <= 0 {
		return Config{}, fmt.Errorf("MIRA_SESSION_MAX_MINUTES must be > 0")
	}
	if cfg.FreeDailyMessages <= 0 {
		return Config{}, fmt.Errorf("MIRA_FREE_DAILY_MESSAGES must be > 0")
	}
	if cfg.MaxMessageLen <= 0 {
		return Config{}, fmt.Errorf("MIRA_MAX_MESSAGE_LEN must be > 0")
	}
	if cfg.MaxAboutMeLen <= 0 {
		return Config{}, fmt.Errorf("MIRA_MAX_ABOUT_ME_LEN must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("MIRA_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("MIRA_READ_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("MIRA_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
