package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/vidocr/internal/logging"
	"github.com/mgpai22/vidocr/internal/video"
)

// one snapshot's entry in the output file
type Block struct {
	Index int
	Name  string
	Text  string
	Err   error
}

func (b Block) String() string {
	body := b.Text
	if b.Err != nil {
		body = fmt.Sprintf("[OCR failed: %v]", b.Err)
	}
	return fmt.Sprintf("# Snapshot %d — %s\n%s\n", b.Index, b.Name, body)
}

// outcome of one collation
type Result struct {
	Path   string
	Blocks []Block
	Failed int
}

// collation settings
type CollateOptions struct {
	Language     string // passed to the engine verbatim
	OutputSuffix string // e.g. "_ocr.txt"
}

// runs an engine over a video's snapshots and writes one text file
type Collator struct {
	engine Engine
	opts   CollateOptions
	logger *logging.Logger
}

func NewCollator(engine Engine, opts CollateOptions, logger *logging.Logger) *Collator {
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if opts.OutputSuffix == "" {
		opts.OutputSuffix = "_ocr.txt"
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Collator{engine: engine, opts: opts, logger: logger}
}

// Collate OCRs every snapshot of videoPath in numeric order and writes
// <stem><suffix> next to the video, replacing any previous file. An empty
// snapshotDir means <stem>_snapshots. A snapshot that cannot be read or
// recognized gets an inline failure marker; it never aborts the batch.
func (c *Collator) Collate(ctx context.Context, videoPath, snapshotDir string) (*Result, error) {
	videoPath, err := video.ResolvePath(videoPath)
	if err != nil {
		return nil, err
	}
	if snapshotDir == "" {
		snapshotDir = video.SnapshotDir(videoPath)
	}

	snaps, err := ListSnapshots(snapshotDir)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSnapshots, snapshotDir)
	}

	result := &Result{
		Path:   video.OutputPath(videoPath, c.opts.OutputSuffix),
		Blocks: make([]Block, 0, len(snaps)),
	}

	for idx, snap := range snaps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		block := Block{Index: idx, Name: filepath.Base(snap)}
		block.Text, block.Err = c.recognize(ctx, idx, snap)
		if block.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			result.Failed++
			c.logger.Warnw("OCR failed for snapshot",
				"snapshot", block.Name,
				"error", block.Err,
			)
		} else {
			c.logger.Debugw("Recognized snapshot",
				"snapshot", block.Name,
				"chars", len(block.Text),
			)
		}
		result.Blocks = append(result.Blocks, block)
	}

	if err := os.WriteFile(result.Path, []byte(Render(result.Blocks)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write OCR output: %w", err)
	}

	return result, nil
}

func (c *Collator) recognize(ctx context.Context, idx int, path string) (string, error) {
	img, err := loadImage(path)
	if err != nil {
		return "", err
	}
	img.Index = idx
	return c.engine.Recognize(ctx, img, c.opts.Language)
}

// Render joins blocks with a blank line between them.
func Render(blocks []Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.String()
	}
	return strings.Join(parts, "\n")
}

// loadImage reads a snapshot and checks that it decodes.
func loadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, err
	}

	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("cannot decode %s: %w", filepath.Base(path), err)
	}

	return Image{
		Name:     filepath.Base(path),
		Path:     path,
		Data:     data,
		MIMEType: "image/" + format,
	}, nil
}
