package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrVideoNotFound   = errors.New("video file not found")
	ErrOpenVideo       = errors.New("unable to open video")
	ErrInvalidInterval = errors.New("snapshot interval must be positive")
	ErrNoVideoStream   = errors.New("no video stream")
)

const (
	// FallbackFrameRate is assumed when a decoder reports no usable rate.
	FallbackFrameRate = 30.0

	snapshotDirSuffix = "_snapshots"
	snapshotNameFmt   = "snapshot_%05d.jpg"
)

// video file information
type Info struct {
	Path      string
	Duration  time.Duration
	Width     int
	Height    int
	FrameRate float64 // declared rate, 0 when unknown
	Frames    int     // declared frame count, 0 when unknown
	Codec     string
}

// single decoded frame
type Frame struct {
	Number int // 0-based source frame number
	Image  image.Image
}

// sequential frame source for one video
type Decoder interface {
	// declared frame rate, 0 if unavailable
	FrameRate() float64

	// returns the next frame, io.EOF at end of stream
	Next() (Frame, error)

	Close() error
}

// StrideHinter is implemented by decoders that can drop frames themselves.
// HintStride is called once before the first Next; a decoder honoring it
// must still report true source frame numbers.
type StrideHinter interface {
	HintStride(stride int)
}

// opens decoders by path
type Opener interface {
	Open(ctx context.Context, path string) (Decoder, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, path string) (Decoder, error)

func (f OpenerFunc) Open(ctx context.Context, path string) (Decoder, error) {
	return f(ctx, path)
}

// ResolvePath expands a leading "~" and makes the path absolute.
func ResolvePath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}

// Stem returns the file name without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SnapshotDir is <video-stem>_snapshots next to the video.
func SnapshotDir(videoPath string) string {
	return filepath.Join(filepath.Dir(videoPath), Stem(videoPath)+snapshotDirSuffix)
}

func SnapshotName(index int) string {
	return fmt.Sprintf(snapshotNameFmt, index)
}

// OutputPath is <video-stem><suffix> next to the video.
func OutputPath(videoPath, suffix string) string {
	return filepath.Join(filepath.Dir(videoPath), Stem(videoPath)+suffix)
}
