//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// implements Engine with libtesseract linked in through cgo
type GosseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func NewGosseractEngine(opts Options) (Engine, error) {
	if err := checkModes(opts.PSM, opts.OEM); err != nil {
		return nil, err
	}
	if opts.OEM >= 0 && opts.Logger != nil {
		// gosseract has no engine mode setter
		opts.Logger.Warnw("Ignoring engine mode, gosseract uses the library default", "oem", opts.OEM)
	}

	client := gosseract.NewClient()
	if opts.TessdataDir != "" {
		if err := client.SetTessdataPrefix(opts.TessdataDir); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to set tessdata dir: %w", err)
		}
	}
	if opts.PSM >= 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PSM)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}
	return &GosseractEngine{client: client}, nil
}

// Recognize splits "eng+fra" into the language list gosseract expects.
func (e *GosseractEngine) Recognize(ctx context.Context, img Image, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetLanguage(strings.Split(lang, "+")...); err != nil {
		return "", fmt.Errorf("gosseract: %w", err)
	}
	if err := e.client.SetImageFromBytes(img.Data); err != nil {
		return "", fmt.Errorf("gosseract: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("gosseract: %w", err)
	}
	return text, nil
}

func (e *GosseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
