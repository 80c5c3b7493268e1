package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/vidocr/internal/ffmpeg"
	"github.com/mgpai22/vidocr/internal/logging"
)

// FFmpegOpener opens videos with ffprobe and streams raw RGBA frames out of
// ffmpeg. Empty paths are resolved through internal/ffmpeg.
type FFmpegOpener struct {
	FFmpegPath  string
	FFprobePath string
	Logger      *logging.Logger
}

func (o FFmpegOpener) Open(ctx context.Context, path string) (Decoder, error) {
	ffprobePath := o.FFprobePath
	ffmpegPath := o.FFmpegPath
	if ffprobePath == "" || ffmpegPath == "" {
		paths, err := ffmpegbin.Ensure()
		if err != nil {
			return nil, err
		}
		if ffprobePath == "" {
			ffprobePath = paths.FFprobe
		}
		if ffmpegPath == "" {
			ffmpegPath = paths.FFmpeg
		}
	}

	info, err := Probe(ctx, ffprobePath, path)
	if err != nil {
		return nil, err
	}

	logger := o.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &ffmpegDecoder{
		ctx:        ctx,
		logger:     logger,
		ffmpegPath: ffmpegPath,
		info:       info,
		stride:     1,
		frameSize:  info.Width * info.Height * 4,
	}, nil
}

type ffmpegDecoder struct {
	ctx        context.Context
	logger     *logging.Logger
	ffmpegPath string
	info       *Info
	stride     int
	frameSize  int

	cmd       *exec.Cmd
	stdout    io.ReadCloser
	reader    *bufio.Reader
	stderr    bytes.Buffer
	stopWatch func() bool

	started bool
	done    bool
	emitted int
}

func (d *ffmpegDecoder) FrameRate() float64 {
	return d.info.FrameRate
}

// HintStride makes ffmpeg emit only every stride-th frame.
func (d *ffmpegDecoder) HintStride(stride int) {
	if !d.started && stride > 0 {
		d.stride = stride
	}
}

func (d *ffmpegDecoder) start() error {
	d.started = true

	outArgs := ffmpeg.KwArgs{
		"an":      "",
		"sn":      "",
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"vsync":   "passthrough",
	}
	if d.stride > 1 {
		outArgs["vf"] = fmt.Sprintf(`select=not(mod(n\,%d))`, d.stride)
	}

	cmd := ffmpeg.Input(d.info.Path, ffmpeg.KwArgs{"loglevel": "error", "nostdin": ""}).
		Output("pipe:", outArgs).
		WithErrorOutput(&d.stderr).
		SetFfmpegPath(d.ffmpegPath).
		Silent(true).
		Compile()

	d.logger.Debugw("Starting ffmpeg",
		"video", d.info.Path,
		"stride", d.stride,
		"args", strings.Join(cmd.Args[1:], " "),
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpenVideo, d.info.Path, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpenVideo, d.info.Path, err)
	}

	d.cmd = cmd
	d.stdout = stdout
	d.reader = bufio.NewReaderSize(stdout, d.frameSize)
	d.stopWatch = context.AfterFunc(d.ctx, func() {
		_ = cmd.Process.Kill()
	})
	return nil
}

func (d *ffmpegDecoder) Next() (Frame, error) {
	if d.done {
		return Frame{}, io.EOF
	}
	if !d.started {
		if err := d.start(); err != nil {
			d.done = true
			return Frame{}, err
		}
	}

	buf := make([]byte, d.frameSize)
	if _, err := io.ReadFull(d.reader, buf); err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("failed to read frame: %w", err)
		}
		return Frame{}, d.finish()
	}

	frame := Frame{
		Number: d.emitted * d.stride,
		Image: &image.RGBA{
			Pix:    buf,
			Stride: d.info.Width * 4,
			Rect:   image.Rect(0, 0, d.info.Width, d.info.Height),
		},
	}
	d.emitted++
	return frame, nil
}

// finish reaps ffmpeg at end of stream. A failure before any frame was
// produced means the file could not be decoded at all.
func (d *ffmpegDecoder) finish() error {
	d.done = true
	err := d.wait()
	if ctxErr := d.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil && d.emitted == 0 {
		if msg := strings.TrimSpace(d.stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s: %w: %s", ErrOpenVideo, d.info.Path, err, msg)
		}
		return fmt.Errorf("%w: %s: %w", ErrOpenVideo, d.info.Path, err)
	}
	return io.EOF
}

func (d *ffmpegDecoder) wait() error {
	if d.cmd == nil {
		return nil
	}
	err := d.cmd.Wait()
	d.cmd = nil
	if d.stopWatch != nil {
		d.stopWatch()
	}
	return err
}

// Close stops ffmpeg if it is still running. Safe to call more than once.
func (d *ffmpegDecoder) Close() error {
	d.done = true
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	_ = d.wait()
	return nil
}
