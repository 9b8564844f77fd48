package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "LEDGER_BACKEND", "LEDGER_PATH", "TRANSCRIBE_TIMEOUT", "MEDIA_BACKEND"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Ledger.Backend != "sqlite" || cfg.Ledger.Path != "history/results.json" {
		t.Errorf("unexpected ledger defaults: %+v", cfg.Ledger)
	}
	if cfg.Transcription.Timeout != 120*time.Second {
		t.Errorf("Transcription.Timeout = %v", cfg.Transcription.Timeout)
	}
	if cfg.Media.Backend != "http" {
		t.Errorf("Media.Backend = %q", cfg.Media.Backend)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "Postgres")
	t.Setenv("LEDGER_MAX_RETRY", "3")
	t.Setenv("LLM_TIMEOUT", "not-a-number")

	cfg := Load()
	if cfg.Ledger.Backend != "postgres" {
		t.Errorf("backend should be lower-cased, got %q", cfg.Ledger.Backend)
	}
	if cfg.Ledger.MaxRetry != 3*time.Second {
		t.Errorf("MaxRetry = %v", cfg.Ledger.MaxRetry)
	}
	if cfg.LLM.Timeout != 90*time.Second {
		t.Errorf("invalid LLM_TIMEOUT should fall back, got %v", cfg.LLM.Timeout)
	}
}
