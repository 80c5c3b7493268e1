//go:build !gosseract

package ocr

import "fmt"

// NewGosseractEngine needs libtesseract; rebuild with -tags gosseract.
func NewGosseractEngine(Options) (Engine, error) {
	return nil, fmt.Errorf("%w: gosseract support not compiled in (rebuild with -tags gosseract)", ErrEngineUnavailable)
}
