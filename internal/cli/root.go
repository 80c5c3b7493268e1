package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mgpai22/vidocr/internal/config"
	"github.com/mgpai22/vidocr/internal/logging"
	"github.com/mgpai22/vidocr/internal/ocr"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	logger  *logging.Logger
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vidocr",
		Short: "Extract snapshots from videos and OCR them into text",
		Long: `Vidocr turns recorded lectures and slide videos into searchable text.

It lists the videos of a directory, saves a still frame every --interval
seconds into <video>_snapshots/, and runs OCR over those snapshots, writing
one text file per video next to it.

Examples:
  vidocr --list --dir ~/lectures
  vidocr --video talk.mp4 --snapshots --ocr
  vidocr --dir ~/lectures --snapshots --interval 60
  vidocr --dir ~/lectures --ocr --lang eng+fra --concurrency 4
  vidocr --video talk.mp4 --ocr --engine gemini --api-key YOUR_KEY`,
		Args: cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewLogger(verbose)
		},
		RunE: runRoot,
	}

	cmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	cmd.Flags().Bool("list", false, "List video files instead of processing them")
	cmd.Flags().String("video", "", "Single video file to process")
	cmd.Flags().String("dir", "", "Process all video files inside this directory")
	cmd.MarkFlagsMutuallyExclusive("video", "dir")

	cmd.Flags().Bool("snapshots", false, "Extract snapshots from the video(s)")
	cmd.Flags().Bool("ocr", false, "Run OCR on the snapshots of the video(s)")

	cmd.Flags().
		Int("interval", config.DefaultInterval, "Snapshot interval in seconds (or set "+config.EnvInterval+")")
	cmd.Flags().
		String("lang", config.DefaultLanguage, "OCR language codes, e.g. 'eng+fra' (or set "+config.EnvLanguage+")")
	cmd.Flags().
		String("suffix", config.DefaultOutputSuffix, "Suffix of the OCR text file (or set "+config.EnvSuffix+")")

	cmd.Flags().
		String("engine", config.DefaultEngine, "OCR engine: tesseract, gosseract, gemini, openai, anthropic (or set "+config.EnvEngine+")")
	cmd.Flags().
		StringP("api-key", "k", "", "API key for hosted engines (or set GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY)")
	cmd.Flags().
		String("model", "", "Model for hosted engines (provider default when empty)")
	cmd.Flags().
		String("prompt", "", "Extra instructions for hosted engines")

	cmd.Flags().
		String("tessdata-dir", "", "Tesseract data directory (or set "+config.EnvTessdataDir+")")
	cmd.Flags().Int("psm", ocr.DefaultMode, "Tesseract page segmentation mode 0-13 (-1 = engine default)")
	cmd.Flags().Int("oem", ocr.DefaultMode, "Tesseract OCR engine mode 0-3 (-1 = engine default)")

	cmd.Flags().
		Int("concurrency", config.DefaultConcurrency, "Number of videos processed in parallel (or set "+config.EnvConcurrency+")")
	cmd.Flags().Bool("fail-fast", false, "Stop at the first video that fails")

	cmd.AddCommand(newLicenseCmd())

	return cmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel in-flight
// ffmpeg and OCR subprocesses.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		if logger != nil {
			logger.Sync()
		}
	}()

	return rootCmd.ExecuteContext(ctx)
}
