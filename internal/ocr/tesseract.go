package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mgpai22/vidocr/internal/logging"
)

const EnvTesseractPath = "VIDOCR_TESSERACT_PATH"

// DefaultMode leaves the page segmentation or engine mode to tesseract.
// Any negative value behaves the same.
const DefaultMode = -1

const (
	maxPSM = 13
	maxOEM = 3
)

// checkModes rejects modes tesseract does not know.
func checkModes(psm, oem int) error {
	if psm > maxPSM {
		return fmt.Errorf("%w: page segmentation mode %d (want 0-%d)", ErrInvalidMode, psm, maxPSM)
	}
	if oem > maxOEM {
		return fmt.Errorf("%w: engine mode %d (want 0-%d)", ErrInvalidMode, oem, maxOEM)
	}
	return nil
}

// Runner lets tests stub external commands.
type Runner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger *logging.Logger
}

func (r execRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		r.logger.Debugw("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncateString(errb.String(), 8<<10),
		)
	} else {
		r.logger.Debugw("exec ok",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

// implements Engine by shelling out to the tesseract CLI
type TesseractEngine struct {
	binary      string
	tessdataDir string
	psm         int
	oem         int
	runner      Runner
}

func NewTesseractEngine(opts Options) (*TesseractEngine, error) {
	if err := checkModes(opts.PSM, opts.OEM); err != nil {
		return nil, err
	}
	binary, err := resolveTesseract(opts.Tesseract)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &TesseractEngine{
		binary:      binary,
		tessdataDir: opts.TessdataDir,
		psm:         opts.PSM,
		oem:         opts.OEM,
		runner:      execRunner{logger: logger},
	}, nil
}

func resolveTesseract(configured string) (string, error) {
	if configured == "" {
		configured = os.Getenv(EnvTesseractPath)
	}
	if configured == "" {
		configured = "tesseract"
	}
	path, err := exec.LookPath(configured)
	if err != nil {
		return "", fmt.Errorf(
			"%w: tesseract binary %q not found (install tesseract or set %s)",
			ErrEngineUnavailable,
			configured,
			EnvTesseractPath,
		)
	}
	return path, nil
}

// Recognize runs `tesseract <image> stdout -l <lang>`. Images without a
// path are streamed on stdin.
func (e *TesseractEngine) Recognize(ctx context.Context, img Image, lang string) (string, error) {
	input := img.Path
	var stdin io.Reader
	if input == "" {
		input = "stdin"
		stdin = bytes.NewReader(img.Data)
	}

	out, errb, err := e.runner.Run(ctx, stdin, e.binary, e.args(input, lang)...)
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, truncateString(msg, 500))
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}

func (e *TesseractEngine) args(input, lang string) []string {
	args := []string{input, "stdout", "-l", lang}
	if e.tessdataDir != "" {
		args = append(args, "--tessdata-dir", e.tessdataDir)
	}
	if e.psm >= 0 {
		args = append(args, "--psm", strconv.Itoa(e.psm))
	}
	if e.oem >= 0 {
		args = append(args, "--oem", strconv.Itoa(e.oem))
	}
	return args
}

func (e *TesseractEngine) Close() error {
	return nil
}

// truncates a string to maxLen bytes
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
