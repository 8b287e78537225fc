package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			env: map[string]string{
				"NARRATIVE_PROVIDER": "",
				"LLM_TIMEOUT":        "",
				"STRICT_METRICS":     "",
				"DB_HOST":            "",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.NarrativeProvider != ProviderIONet {
					t.Errorf("provider = %q, want %q", cfg.NarrativeProvider, ProviderIONet)
				}
				if cfg.LLMTimeoutDuration() != 20*time.Second {
					t.Errorf("timeout = %v, want 20s", cfg.LLMTimeoutDuration())
				}
				if !cfg.StrictMetrics {
					t.Error("strict metrics should default to true")
				}
				if cfg.DatabaseEnabled() {
					t.Error("database should be disabled without DB_HOST")
				}
			},
		},
		{
			name: "llm timeout clamped to 30s",
			env:  map[string]string{"LLM_TIMEOUT": "300"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.LLMTimeout != 30 {
					t.Errorf("timeout = %d, want 30", cfg.LLMTimeout)
				}
			},
		},
		{
			name: "llm timeout clamped to 10s",
			env:  map[string]string{"LLM_TIMEOUT": "1"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.LLMTimeout != 10 {
					t.Errorf("timeout = %d, want 10", cfg.LLMTimeout)
				}
			},
		},
		{
			name: "watch interval and cooldown clamped",
			env:  map[string]string{"WATCH_INTERVAL": "0", "WATCH_COOLDOWN": "-5"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.WatchInterval != 1 {
					t.Errorf("watch interval = %d, want 1", cfg.WatchInterval)
				}
				if cfg.WatchCooldown != 1 {
					t.Errorf("watch cooldown = %d, want 1", cfg.WatchCooldown)
				}
			},
		},
		{
			name: "invalid int keeps default",
			env:  map[string]string{"BASELINE_CACHE_SIZE": "lots"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.BaselineCacheSize != 4096 {
					t.Errorf("cache size = %d, want 4096", cfg.BaselineCacheSize)
				}
			},
		},
		{
			name: "database and lenient metrics",
			env: map[string]string{
				"DB_HOST":        "localhost",
				"DB_NAME":        "subnets",
				"STRICT_METRICS": "false",
			},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.DatabaseEnabled() {
					t.Error("database should be enabled")
				}
				if cfg.StrictMetrics {
					t.Error("strict metrics should be off")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}
