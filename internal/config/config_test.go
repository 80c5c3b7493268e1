package config

import (
	"strings"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(map[string]string{})
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if cfg.Interval != 30 || cfg.OutputSuffix != "_ocr.txt" || cfg.Language != "eng" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(map[string]string{
		EnvInterval:    "60",
		EnvLanguage:    "eng+fra",
		EnvSuffix:      SlidesOutputSuffix,
		EnvEngine:      "Gemini",
		EnvTessdataDir: "/usr/share/tessdata",
		EnvConcurrency: "4",
	})
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Interval != 60 {
		t.Errorf("Interval = %d, want 60", cfg.Interval)
	}
	if cfg.Language != "eng+fra" {
		t.Errorf("Language = %q", cfg.Language)
	}
	if cfg.OutputSuffix != "_slides.txt" {
		t.Errorf("OutputSuffix = %q", cfg.OutputSuffix)
	}
	if cfg.Engine != "gemini" {
		t.Errorf("Engine = %q, want gemini", cfg.Engine)
	}
	if cfg.TessdataDir != "/usr/share/tessdata" {
		t.Errorf("TessdataDir = %q", cfg.TessdataDir)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Concurrency)
	}
}

func TestFromEnvBadInterval(t *testing.T) {
	_, err := FromEnv(map[string]string{EnvInterval: "soon"})
	if err == nil {
		t.Fatal("expected error for non-numeric interval")
	}
	if !strings.Contains(err.Error(), "soon") {
		t.Errorf("error should quote the bad value: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		extracting bool
		wantErr    bool
	}{
		{"defaults", func(*Config) {}, true, false},
		{"zero interval", func(c *Config) { c.Interval = 0 }, true, true},
		{"negative interval", func(c *Config) { c.Interval = -5 }, true, true},
		{"zero interval without extraction", func(c *Config) { c.Interval = 0 }, false, false},
		{"blank language", func(c *Config) { c.Language = "  " }, false, true},
		{"empty suffix", func(c *Config) { c.OutputSuffix = "" }, false, true},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate(tt.extracting)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
