package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"

	"github.com/mgpai22/vidocr/internal/logging"
	"github.com/mgpai22/vidocr/internal/ocr"
	"github.com/mgpai22/vidocr/internal/video"
)

// Snapshotter is satisfied by *video.Extractor.
type Snapshotter interface {
	ExtractSnapshots(ctx context.Context, videoPath string, intervalSeconds int) (*video.Result, error)
}

// Collator is satisfied by *ocr.Collator.
type Collator interface {
	Collate(ctx context.Context, videoPath, snapshotDir string) (*ocr.Result, error)
}

// which stages run for every video
type Stages struct {
	Snapshots bool
	OCR       bool
}

func (s Stages) Any() bool {
	return s.Snapshots || s.OCR
}

type Options struct {
	Stages      Stages
	Interval    int  // seconds between snapshots
	Concurrency int  // videos in flight, 1 = sequential
	FailFast    bool // stop at the first failing video
}

// result of processing one video
type Outcome struct {
	Video       string
	SnapshotDir string
	Snapshots   int // written by this run, 0 when extraction was skipped
	OutputPath  string
	OCRFailures int
	Err         error
}

// Runner applies the requested stages to a work-list of videos.
type Runner struct {
	extractor Snapshotter
	collator  Collator
	opts      Options
	out       io.Writer
	logger    *logging.Logger
}

// NewRunner wires the stages. extractor or collator may be nil when the
// matching stage is not requested. Progress lines go to out.
func NewRunner(
	extractor Snapshotter,
	collator Collator,
	opts Options,
	out io.Writer,
	logger *logging.Logger,
) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Runner{
		extractor: extractor,
		collator:  collator,
		opts:      opts,
		out:       out,
		logger:    logger,
	}
}

// Run processes videos in order and returns one Outcome per attempted
// video. A failing video does not stop the others unless FailFast is set;
// the returned error combines every per-video failure.
func (r *Runner) Run(ctx context.Context, videos []string) ([]Outcome, error) {
	if !r.opts.Stages.Any() {
		return nil, fmt.Errorf("no stage requested")
	}
	if r.opts.Stages.Snapshots && r.extractor == nil {
		return nil, fmt.Errorf("snapshot stage requested without an extractor")
	}
	if r.opts.Stages.OCR && r.collator == nil {
		return nil, fmt.Errorf("ocr stage requested without a collator")
	}

	if r.opts.Concurrency == 1 || len(videos) <= 1 {
		return r.runSequential(ctx, videos)
	}
	return r.runConcurrent(ctx, videos)
}

func (r *Runner) runSequential(ctx context.Context, videos []string) ([]Outcome, error) {
	var (
		outcomes []Outcome
		errs     error
	)
	for _, v := range videos {
		if err := ctx.Err(); err != nil {
			return outcomes, multierr.Append(errs, err)
		}

		outcome := r.processVideo(ctx, v, r.out)
		outcomes = append(outcomes, outcome)
		if outcome.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", v, outcome.Err))
			if r.opts.FailFast {
				break
			}
		}
	}
	return outcomes, errs
}

// runConcurrent buffers each video's progress and flushes it in work-list
// order so output reads the same as a sequential run.
func (r *Runner) runConcurrent(ctx context.Context, videos []string) ([]Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type slot struct {
		outcome  Outcome
		progress []byte
		done     bool
	}
	slots := make([]slot, len(videos))

	var (
		mu   sync.Mutex
		next int
	)
	flush := func() {
		for next < len(slots) && slots[next].done {
			_, _ = r.out.Write(slots[next].progress)
			next++
		}
	}

	work := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < r.opts.Concurrency && i < len(videos); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				var buf bytes.Buffer
				outcome := r.processVideo(ctx, videos[idx], &buf)

				mu.Lock()
				slots[idx].outcome = outcome
				slots[idx].progress = buf.Bytes()
				slots[idx].done = true
				if outcome.Err != nil && r.opts.FailFast {
					cancel()
				}
				flush()
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(work)
		for i := range videos {
			select {
			case <-ctx.Done():
				return
			case work <- i:
			}
		}
	}()

	wg.Wait()

	var (
		outcomes []Outcome
		errs     error
	)
	for i := range slots {
		if !slots[i].done {
			continue
		}
		outcomes = append(outcomes, slots[i].outcome)
		if err := slots[i].outcome.Err; err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", videos[i], err))
		}
	}
	// flush anything stranded behind a video that never started
	for i := range slots {
		if slots[i].done && i >= next {
			_, _ = r.out.Write(slots[i].progress)
		}
	}

	if errs == nil {
		if err := ctx.Err(); err != nil && len(outcomes) < len(videos) {
			errs = err
		}
	}
	return outcomes, errs
}

func (r *Runner) processVideo(ctx context.Context, videoPath string, progress io.Writer) Outcome {
	outcome := Outcome{Video: videoPath}
	fmt.Fprintf(progress, "→ %s\n", videoPath)

	resolved, err := video.ResolvePath(videoPath)
	if err != nil {
		return r.fail(progress, outcome, err)
	}

	if r.opts.Stages.Snapshots {
		r.logger.Debugw("Extracting snapshots",
			"video", resolved,
			"interval", r.opts.Interval,
		)
		res, err := r.extractor.ExtractSnapshots(ctx, resolved, r.opts.Interval)
		if err != nil {
			return r.fail(progress, outcome, err)
		}
		outcome.SnapshotDir = res.Dir
		outcome.Snapshots = res.Count
		r.logger.Infow("Snapshots extracted",
			"video", resolved,
			"count", res.Count,
			"stride", res.Stride,
			"frame_rate", res.FrameRate,
		)
		fmt.Fprintf(progress, "   Snapshots → %s\n", res.Dir)
	} else {
		// existence is checked by the collator
		outcome.SnapshotDir = video.SnapshotDir(resolved)
	}

	if r.opts.Stages.OCR {
		r.logger.Debugw("Running OCR",
			"video", resolved,
			"snapshots", outcome.SnapshotDir,
		)
		res, err := r.collator.Collate(ctx, resolved, outcome.SnapshotDir)
		if err != nil {
			return r.fail(progress, outcome, err)
		}
		outcome.OutputPath = res.Path
		outcome.OCRFailures = res.Failed
		if res.Failed > 0 {
			r.logger.Warnw("Some snapshots failed OCR",
				"video", resolved,
				"failed", res.Failed,
				"total", len(res.Blocks),
			)
		}
		fmt.Fprintf(progress, "   OCR → %s\n", res.Path)
	}

	return outcome
}

func (r *Runner) fail(progress io.Writer, outcome Outcome, err error) Outcome {
	outcome.Err = err
	r.logger.Errorw("Video failed",
		"video", outcome.Video,
		"error", err,
	)
	fmt.Fprintf(progress, "   ✗ %v\n", err)
	return outcome
}
