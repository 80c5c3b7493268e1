package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"
	"os"
	"path/filepath"
)

const defaultJPEGQuality = 95

// outcome of one snapshot extraction
type Result struct {
	Dir       string
	Count     int     // snapshots written
	Stride    int     // source frames between snapshots
	FrameRate float64 // rate the stride was derived from
}

// writes periodic snapshots of a video as JPEG files
type Extractor struct {
	opener  Opener
	quality int
}

func NewExtractor(opener Opener) *Extractor {
	if opener == nil {
		opener = FFmpegOpener{}
	}
	return &Extractor{opener: opener, quality: defaultJPEGQuality}
}

// Stride is the number of source frames per snapshot for a declared frame
// rate and an interval in seconds. Unusable rates fall back to 30 fps and
// the result is never below 1.
func Stride(frameRate float64, intervalSeconds int) int {
	if frameRate <= 0 || math.IsNaN(frameRate) || math.IsInf(frameRate, 0) {
		frameRate = FallbackFrameRate
	}
	stride := int(math.RoundToEven(frameRate * float64(intervalSeconds)))
	if stride < 1 {
		stride = 1
	}
	return stride
}

// ExtractSnapshots writes frame 0 and every stride-th frame after it to
// <stem>_snapshots/snapshot_NNNNN.jpg, numbering outputs 0, 1, 2, ...
// An existing snapshot directory is reused; files are overwritten by index.
func (e *Extractor) ExtractSnapshots(
	ctx context.Context,
	videoPath string,
	intervalSeconds int,
) (*Result, error) {
	if intervalSeconds <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidInterval, intervalSeconds)
	}

	videoPath, err := ResolvePath(videoPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(videoPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, videoPath)
	}

	outDir := SnapshotDir(videoPath)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	dec, err := e.opener.Open(ctx, videoPath)
	if err != nil {
		if errors.Is(err, ErrOpenVideo) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenVideo, videoPath, err)
	}
	defer dec.Close()

	rate := dec.FrameRate()
	stride := Stride(rate, intervalSeconds)
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = FallbackFrameRate
	}
	if h, ok := dec.(StrideHinter); ok {
		h.HintStride(stride)
	}

	result := &Result{Dir: outDir, Stride: stride, FrameRate: rate}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if frame.Number%stride != 0 {
			continue
		}

		snapPath := filepath.Join(outDir, SnapshotName(result.Count))
		if err := e.writeJPEG(snapPath, frame.Image); err != nil {
			return nil, err
		}
		result.Count++
	}

	return result, nil
}

func (e *Extractor) writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: e.quality}); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode snapshot %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", filepath.Base(path), err)
	}
	return nil
}
