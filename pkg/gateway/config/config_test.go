package config

import (
	"strings"
	"testing"
	"time"
)

var gatewayEnvKeys = []string{
	"MIRA_ADDR",
	"MIRA_LOG_LEVEL",
	"MIRA_LOG_FORMAT",
	"MIRA_JWT_SECRET",
	"MIRA_DATABASE_URL",
	"MIRA_CORS_ORIGINS",
	"MIRA_GOOGLE_PROJECT",
	"MIRA_GOOGLE_LOCATION",
	"MIRA_GOOGLE_API_KEY",
	"MIRA_LIVE_MODEL",
	"MIRA_TEXT_MODEL",
	"MIRA_LIVE_HANDSHAKE_TIMEOUT",
	"MIRA_LIVE_KEEPALIVE_INTERVAL",
	"MIRA_WS_WRITE_TIMEOUT",
	"MIRA_FREE_TRIAL_MINUTES",
	"MIRA_PRO_MONTHLY_MINUTES",
	"MIRA_SESSION_MAX_MINUTES",
	"MIRA_FREE_DAILY_MESSAGES",
	"MIRA_MAX_MESSAGE_LEN",
	"MIRA_MAX_ABOUT_ME_LEN",
	"MIRA_READ_HEADER_TIMEOUT",
	"MIRA_READ_TIMEOUT",
	"MIRA_SHUTDOWN_GRACE_PERIOD",
}

func clearGatewayEnv(t *testing.T) {
	t.Helper()
	for _, key := range gatewayEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("MIRA_JWT_SECRET", "test-secret")
	t.Setenv("MIRA_GOOGLE_API_KEY", "test-key")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Fatalf("LogLevel/LogFormat = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.GoogleLocation != "us-central1" {
		t.Fatalf("GoogleLocation = %q, want us-central1", cfg.GoogleLocation)
	}
	if cfg.LiveModel != "gemini-2.0-flash-live-preview-04-09" {
		t.Fatalf("LiveModel = %q", cfg.LiveModel)
	}
	if cfg.TextModel != "gemini-2.0-flash" {
		t.Fatalf("TextModel = %q", cfg.TextModel)
	}
	if cfg.HandshakeTimeout != 10*time.Second {
		t.Fatalf("HandshakeTimeout = %v, want 10s", cfg.HandshakeTimeout)
	}
	if cfg.KeepAliveInterval != 30*time.Second {
		t.Fatalf("KeepAliveInterval = %v, want 30s", cfg.KeepAliveInterval)
	}
	if cfg.FreeTrialMinutes != 5 || cfg.ProMonthlyMinutes != 60 || cfg.SessionMaxMinutes != 30 {
		t.Fatalf("plan limits = %d/%d/%d, want 5/60/30", cfg.FreeTrialMinutes, cfg.ProMonthlyMinutes, cfg.SessionMaxMinutes)
	}
	if cfg.FreeDailyMessages != 10 || cfg.MaxMessageLen != 2000 || cfg.MaxAboutMeLen != 500 {
		t.Fatalf("chat limits = %d/%d/%d, want 10/2000/500", cfg.FreeDailyMessages, cfg.MaxMessageLen, cfg.MaxAboutMeLen)
	}
	if cfg.ShutdownGracePeriod != 30*time.Second {
		t.Fatalf("ShutdownGracePeriod = %v, want 30s", cfg.ShutdownGracePeriod)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("MIRA_JWT_SECRET", "s")
	t.Setenv("MIRA_GOOGLE_PROJECT", "proj-1")
	t.Setenv("MIRA_ADDR", ":9090")
	t.Setenv("MIRA_LOG_FORMAT", "json")
	t.Setenv("MIRA_GOOGLE_LOCATION", "europe-west4")
	t.Setenv("MIRA_LIVE_HANDSHAKE_TIMEOUT", "4s")
	t.Setenv("MIRA_LIVE_KEEPALIVE_INTERVAL", "12s")
	t.Setenv("MIRA_FREE_TRIAL_MINUTES", "3")
	t.Setenv("MIRA_PRO_MONTHLY_MINUTES", "90")
	t.Setenv("MIRA_SESSION_MAX_MINUTES", "20")
	t.Setenv("MIRA_CORS_ORIGINS", "https://a.example, https://b.example,,")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Addr != ":9090" || cfg.LogFormat != "json" {
		t.Fatalf("Addr/LogFormat = %q/%q", cfg.Addr, cfg.LogFormat)
	}
	if cfg.GoogleProject != "proj-1" || cfg.GoogleLocation != "europe-west4" {
		t.Fatalf("google config mismatch: %q/%q", cfg.GoogleProject, cfg.GoogleLocation)
	}
	if cfg.HandshakeTimeout != 4*time.Second || cfg.KeepAliveInterval != 12*time.Second {
		t.Fatalf("live timings mismatch: %v/%v", cfg.HandshakeTimeout, cfg.KeepAliveInterval)
	}
	if cfg.FreeTrialMinutes != 3 || cfg.ProMonthlyMinutes != 90 || cfg.SessionMaxMinutes != 20 {
		t.Fatalf("plan limits mismatch: %d/%d/%d", cfg.FreeTrialMinutes, cfg.ProMonthlyMinutes, cfg.SessionMaxMinutes)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("CORSAllowedOrigins len=%d, want 2", len(cfg.CORSAllowedOrigins))
	}
	if _, ok := cfg.CORSAllowedOrigins["https://b.example"]; !ok {
		t.Fatalf("missing https://b.example")
	}
}

func TestLoadFromEnv_RequiresSecret(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("MIRA_GOOGLE_API_KEY", "k")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "MIRA_JWT_SECRET") {
		t.Fatalf("error = %v, expected MIRA_JWT_SECRET in message", err)
	}
}

func TestLoadFromEnv_RequiresGoogleCredentials(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("MIRA_JWT_SECRET", "s")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "MIRA_GOOGLE_API_KEY") {
		t.Fatalf("error = %v, expected credential hint", err)
	}
}

func TestLoadFromEnv_InvalidBounds(t *testing.T) {
	cases := []struct {
		name      string
		env       map[string]string
		errSubstr string
	}{
		{
			name:      "invalid log level",
			env:       map[string]string{"MIRA_LOG_LEVEL": "loud"},
			errSubstr: "MIRA_LOG_LEVEL",
		},
		{
			name:      "invalid handshake timeout",
			env:       map[string]string{"MIRA_LIVE_HANDSHAKE_TIMEOUT": "0s"},
			errSubstr: "MIRA_LIVE_HANDSHAKE_TIMEOUT",
		},
		{
			name:      "invalid keepalive interval",
			env:       map[string]string{"MIRA_LIVE_KEEPALIVE_INTERVAL": "0s"},
			errSubstr: "MIRA_LIVE_KEEPALIVE_INTERVAL",
		},
		{
			name:      "invalid trial minutes",
			env:       map[string]string{"MIRA_FREE_TRIAL_MINUTES": "0"},
			errSubstr: "MIRA_FREE_TRIAL_MINUTES",
		},
		{
			name:      "invalid shutdown grace period",
			env:       map[string]string{"MIRA_SHUTDOWN_GRACE_PERIOD": "0s"},
			errSubstr: "MIRA_SHUTDOWN_GRACE_PERIOD",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearGatewayEnv(t)
			t.Setenv("MIRA_JWT_SECRET", "s")
			t.Setenv("MIRA_GOOGLE_API_KEY", "k")
			for key, value := range tc.env {
				t.Setenv(key, value)
			}
			_, err := LoadFromEnv()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errSubstr) {
				t.Fatalf("error = %v, expected substring %q", err, tc.errSubstr)
			}
		})
	}
}
