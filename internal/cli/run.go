package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mgpai22/vidocr/internal/config"
	"github.com/mgpai22/vidocr/internal/ocr"
	"github.com/mgpai22/vidocr/internal/pipeline"
	"github.com/mgpai22/vidocr/internal/video"
	"github.com/spf13/cobra"
)

// swapped out by tests
var (
	newEngine = ocr.Factory
	newOpener = func() video.Opener { return video.FFmpegOpener{Logger: logger.Named("ffmpeg")} }
)

type runOptions struct {
	list      bool
	videoPath string
	dir       string
	snapshots bool
	ocr       bool
	failFast  bool

	cfg config.Config

	engine ocr.Provider
	apiKey string
	model  string
	prompt string
	psm    int
	oem    int
}

// readOptions layers flags over the environment over the defaults. A flag
// only wins when it was given on the command line.
func readOptions(cmd *cobra.Command) (runOptions, error) {
	var opts runOptions

	cfg, err := config.FromEnv(nil)
	if err != nil {
		return opts, err
	}

	flags := cmd.Flags()
	if flags.Changed("interval") {
		cfg.Interval, _ = flags.GetInt("interval")
	}
	if flags.Changed("lang") {
		cfg.Language, _ = flags.GetString("lang")
	}
	if flags.Changed("suffix") {
		cfg.OutputSuffix, _ = flags.GetString("suffix")
	}
	if flags.Changed("engine") {
		cfg.Engine, _ = flags.GetString("engine")
	}
	if flags.Changed("tessdata-dir") {
		cfg.TessdataDir, _ = flags.GetString("tessdata-dir")
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency, _ = flags.GetInt("concurrency")
	}
	opts.cfg = cfg

	opts.list, _ = flags.GetBool("list")
	opts.videoPath, _ = flags.GetString("video")
	opts.dir, _ = flags.GetString("dir")
	opts.snapshots, _ = flags.GetBool("snapshots")
	opts.ocr, _ = flags.GetBool("ocr")
	opts.failFast, _ = flags.GetBool("fail-fast")
	opts.apiKey, _ = flags.GetString("api-key")
	opts.model, _ = flags.GetString("model")
	opts.prompt, _ = flags.GetString("prompt")
	opts.psm, _ = flags.GetInt("psm")
	opts.oem, _ = flags.GetInt("oem")

	opts.engine, err = ocr.ParseProvider(cfg.Engine)
	if err != nil {
		return opts, err
	}

	if opts.engine.RequiresAPIKey() && opts.apiKey == "" {
		opts.apiKey = os.Getenv(opts.engine.APIKeyEnv())
	}

	return opts, nil
}

func (o runOptions) listOnly() bool {
	return o.list && !o.snapshots && !o.ocr
}

func (o runOptions) stages() pipeline.Stages {
	return pipeline.Stages{Snapshots: o.snapshots, OCR: o.ocr}
}

func (o runOptions) validate() error {
	if o.listOnly() {
		return nil
	}
	if o.videoPath != "" && o.dir != "" {
		return fmt.Errorf("--video and --dir cannot be used together")
	}
	if o.videoPath == "" && o.dir == "" {
		return fmt.Errorf("either --video or --dir must be supplied (or use --list)")
	}
	if !o.stages().Any() {
		return fmt.Errorf("no action specified: add --snapshots and/or --ocr (or use --list)")
	}
	if err := o.cfg.Validate(o.snapshots); err != nil {
		return err
	}
	if o.ocr && o.engine.RequiresAPIKey() && o.apiKey == "" {
		return fmt.Errorf(
			"%s API key is required: use --api-key flag or set %s environment variable",
			o.engine,
			o.engine.APIKeyEnv(),
		)
	}
	return nil
}

func (o runOptions) workList() ([]string, error) {
	if o.videoPath != "" {
		path, err := video.ResolvePath(o.videoPath)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}
	return video.ListVideos(o.dir)
}

func runRoot(cmd *cobra.Command, args []string) error {
	opts, err := readOptions(cmd)
	if err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.listOnly() {
		return printVideos(out, opts.dir)
	}

	// from here on failures are not usage mistakes
	cmd.SilenceUsage = true

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	videos, err := opts.workList()
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		logger.Warnw("No video files found", "dir", opts.dir)
		return nil
	}

	logger.Infow("Starting",
		"videos", len(videos),
		"snapshots", opts.snapshots,
		"ocr", opts.ocr,
		"interval", opts.cfg.Interval,
		"lang", opts.cfg.Language,
		"engine", opts.engine,
		"concurrency", opts.cfg.Concurrency,
	)

	var extractor pipeline.Snapshotter
	if opts.snapshots {
		extractor = video.NewExtractor(newOpener())
	}

	var collator pipeline.Collator
	if opts.ocr {
		engine, err := newEngine(ctx, opts.engine, ocr.Options{
			APIKey:      opts.apiKey,
			Model:       opts.model,
			Prompt:      opts.prompt,
			TessdataDir: opts.cfg.TessdataDir,
			PSM:         opts.psm,
			OEM:         opts.oem,
			Logger:      logger.Named("ocr"),
		})
		if err != nil {
			return fmt.Errorf("failed to create ocr engine: %w", err)
		}
		defer engine.Close()

		collator = ocr.NewCollator(engine, ocr.CollateOptions{
			Language:     opts.cfg.Language,
			OutputSuffix: opts.cfg.OutputSuffix,
		}, logger.Named("collate"))
	}

	runner := pipeline.NewRunner(extractor, collator, pipeline.Options{
		Stages:      opts.stages(),
		Interval:    opts.cfg.Interval,
		Concurrency: opts.cfg.Concurrency,
		FailFast:    opts.failFast,
	}, out, logger.Named("pipeline"))

	outcomes, err := runner.Run(ctx, videos)

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warnw("Interrupted", "processed", len(outcomes), "total", len(videos))
		}
		return fmt.Errorf("%d of %d video(s) failed: %w", failed, len(videos), err)
	}

	logger.Infow("Done", "videos", len(outcomes))
	return nil
}

// printVideos prints the videos of dir relative to it, one per line.
func printVideos(out io.Writer, dir string) error {
	if dir == "" {
		dir = "."
	}
	videos, err := video.ListVideos(dir)
	if err != nil {
		return err
	}
	for _, v := range videos {
		rel, err := filepath.Rel(dir, v)
		if err != nil {
			rel = filepath.Base(v)
		}
		fmt.Fprintln(out, rel)
	}
	return nil
}
