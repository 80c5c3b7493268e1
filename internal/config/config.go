package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultInterval     = 30
	DefaultLanguage     = "eng"
	DefaultOutputSuffix = "_ocr.txt"
	DefaultEngine       = "tesseract"
	DefaultConcurrency  = 1

	// SlidesOutputSuffix is the suffix used by the slide-oriented variant of the tool.
	SlidesOutputSuffix = "_slides.txt"
)

// environment variables read by FromEnv
const (
	EnvInterval    = "VIDOCR_INTERVAL"
	EnvLanguage    = "VIDOCR_LANG"
	EnvSuffix      = "VIDOCR_SUFFIX"
	EnvEngine      = "VIDOCR_ENGINE"
	EnvTessdataDir = "VIDOCR_TESSDATA_DIR"
	EnvConcurrency = "VIDOCR_CONCURRENCY"
)

// Config holds the tunables shared by the snapshot and OCR stages.
type Config struct {
	Interval     int    `env:"VIDOCR_INTERVAL"     envDefault:"30"`        // seconds between snapshots
	Language     string `env:"VIDOCR_LANG"         envDefault:"eng"`       // OCR language codes, e.g. "eng+fra"
	OutputSuffix string `env:"VIDOCR_SUFFIX"       envDefault:"_ocr.txt"`  // appended to the video stem
	Engine       string `env:"VIDOCR_ENGINE"       envDefault:"tesseract"` // OCR engine name
	TessdataDir  string `env:"VIDOCR_TESSDATA_DIR"`
	Concurrency  int    `env:"VIDOCR_CONCURRENCY"  envDefault:"1"` // videos processed at once
}

func Default() Config {
	return Config{
		Interval:     DefaultInterval,
		Language:     DefaultLanguage,
		OutputSuffix: DefaultOutputSuffix,
		Engine:       DefaultEngine,
		Concurrency:  DefaultConcurrency,
	}
}

// FromEnv returns Default overlaid with the VIDOCR_* variables of environ.
// A nil environ reads the process environment.
func FromEnv(environ map[string]string) (Config, error) {
	var cfg Config

	var err error
	if environ == nil {
		err = env.Parse(&cfg)
	} else {
		err = env.ParseWithOptions(&cfg, env.Options{Environment: environ})
	}
	if err != nil {
		return Default(), fmt.Errorf("invalid environment: %w", err)
	}

	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))
	return cfg, nil
}

// Validate rejects settings that cannot drive a run. The interval only
// matters when snapshots are being extracted.
func (c Config) Validate(extracting bool) error {
	if extracting && c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %d", c.Interval)
	}
	if strings.TrimSpace(c.Language) == "" {
		return fmt.Errorf("language is required")
	}
	if c.OutputSuffix == "" {
		return fmt.Errorf("output suffix is required")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	return nil
}
