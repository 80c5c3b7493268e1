package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgpai22/vidocr/internal/video"
)

// fakeEngine answers with "text of <name>" and records what it saw
type fakeEngine struct {
	calls  []Image
	langs  []string
	failOn map[string]error
}

func (e *fakeEngine) Recognize(ctx context.Context, img Image, lang string) (string, error) {
	e.calls = append(e.calls, img)
	e.langs = append(e.langs, lang)
	if err, ok := e.failOn[img.Name]; ok {
		return "", err
	}
	return "text of " + img.Name + "\n", nil
}

func (e *fakeEngine) Close() error { return nil }

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(3, 3, color.Gray{Y: 10})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

// setupVideo creates a fake video and its snapshot dir holding the named files
func setupVideo(t *testing.T, names ...string) (videoPath, snapDir string) {
	t.Helper()
	dir := t.TempDir()
	videoPath = filepath.Join(dir, "lecture.mp4")
	if err := os.WriteFile(videoPath, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	snapDir = video.SnapshotDir(videoPath)
	if err := os.MkdirAll(snapDir, 0755); err != nil {
		t.Fatal(err)
	}
	data := jpegBytes(t)
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(snapDir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return videoPath, snapDir
}

func TestCollateNumericOrder(t *testing.T) {
	videoPath, snapDir := setupVideo(t,
		"snapshot_00002.jpg",
		"snapshot_00010.jpg",
		"snapshot_00001.jpg",
	)
	engine := &fakeEngine{}

	res, err := NewCollator(engine, CollateOptions{Language: "eng+fra"}, nil).
		Collate(context.Background(), videoPath, snapDir)
	if err != nil {
		t.Fatalf("Collate error: %v", err)
	}

	want := "# Snapshot 0 — snapshot_00001.jpg\ntext of snapshot_00001.jpg\n\n" +
		"\n" +
		"# Snapshot 1 — snapshot_00002.jpg\ntext of snapshot_00002.jpg\n\n" +
		"\n" +
		"# Snapshot 2 — snapshot_00010.jpg\ntext of snapshot_00010.jpg\n\n"

	got, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(got) != want {
		t.Errorf("output mismatch\ngot:\n%q\nwant:\n%q", got, want)
	}

	if res.Path != video.OutputPath(videoPath, "_ocr.txt") {
		t.Errorf("Path = %q", res.Path)
	}
	for _, lang := range engine.langs {
		if lang != "eng+fra" {
			t.Errorf("engine got lang %q, want eng+fra passed through", lang)
		}
	}
	if engine.calls[2].Index != 2 || engine.calls[2].MIMEType != "image/jpeg" {
		t.Errorf("unexpected image metadata: %+v", engine.calls[2])
	}
}

func TestCollateIsolatesFailures(t *testing.T) {
	videoPath, snapDir := setupVideo(t,
		"snapshot_00000.jpg",
		"snapshot_00002.jpg",
		"snapshot_00003.jpg",
	)
	// corrupt image
	if err := os.WriteFile(filepath.Join(snapDir, "snapshot_00001.jpg"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	engine := &fakeEngine{failOn: map[string]error{
		"snapshot_00003.jpg": errors.New("tessdata for klingon missing"),
	}}

	res, err := NewCollator(engine, CollateOptions{}, nil).Collate(context.Background(), videoPath, "")
	if err != nil {
		t.Fatalf("Collate error: %v", err)
	}

	if len(res.Blocks) != 4 {
		t.Fatalf("got %d blocks, want 4", len(res.Blocks))
	}
	if res.Failed != 2 {
		t.Errorf("Failed = %d, want 2", res.Failed)
	}

	out, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)

	if strings.Count(text, "# Snapshot ") != 4 {
		t.Errorf("expected 4 headers in output:\n%s", text)
	}
	if !strings.Contains(text, "# Snapshot 1 — snapshot_00001.jpg\n[OCR failed: cannot decode snapshot_00001.jpg: image: unknown format]\n") {
		t.Errorf("missing decode failure marker:\n%s", text)
	}
	if !strings.Contains(text, "# Snapshot 3 — snapshot_00003.jpg\n[OCR failed: tessdata for klingon missing]\n") {
		t.Errorf("missing engine failure marker:\n%s", text)
	}
	if !strings.Contains(text, "# Snapshot 2 — snapshot_00002.jpg\ntext of snapshot_00002.jpg\n") {
		t.Errorf("healthy snapshot affected:\n%s", text)
	}
	// the corrupt image never reaches the engine
	if len(engine.calls) != 3 {
		t.Errorf("engine called %d times, want 3", len(engine.calls))
	}
}

func TestCollateIsIdempotent(t *testing.T) {
	videoPath, snapDir := setupVideo(t, "snapshot_00000.jpg", "snapshot_00001.jpg")
	collator := NewCollator(&fakeEngine{}, CollateOptions{OutputSuffix: "_slides.txt"}, nil)

	first, err := collator.Collate(context.Background(), videoPath, snapDir)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := os.ReadFile(first.Path)

	second, err := collator.Collate(context.Background(), videoPath, snapDir)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(second.Path)

	if !bytes.Equal(a, b) {
		t.Error("second run produced different output")
	}
	if filepath.Base(second.Path) != "lecture_slides.txt" {
		t.Errorf("Path = %q, want lecture_slides.txt", second.Path)
	}
}

func TestCollateOverwritesOutput(t *testing.T) {
	videoPath, snapDir := setupVideo(t, "snapshot_00000.jpg")
	outPath := video.OutputPath(videoPath, "_ocr.txt")
	if err := os.WriteFile(outPath, []byte(strings.Repeat("old content\n", 100)), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewCollator(&fakeEngine{}, CollateOptions{}, nil).Collate(context.Background(), videoPath, snapDir); err != nil {
		t.Fatal(err)
	}

	got, _ := os.ReadFile(outPath)
	if strings.Contains(string(got), "old content") {
		t.Error("output file was appended to instead of replaced")
	}
}

func TestCollateMissingSnapshotDir(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "fresh.mp4")
	if err := os.WriteFile(videoPath, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewCollator(&fakeEngine{}, CollateOptions{}, nil).Collate(context.Background(), videoPath, "")
	if !errors.Is(err, ErrSnapshotDirNotFound) {
		t.Fatalf("expected ErrSnapshotDirNotFound, got %v", err)
	}
	if _, err := os.Stat(video.OutputPath(videoPath, "_ocr.txt")); !os.IsNotExist(err) {
		t.Error("no output file should be written")
	}
}

func TestCollateEmptySnapshotDir(t *testing.T) {
	videoPath, snapDir := setupVideo(t)
	// non-matching files do not count
	if err := os.WriteFile(filepath.Join(snapDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewCollator(&fakeEngine{}, CollateOptions{}, nil).Collate(context.Background(), videoPath, snapDir)
	if !errors.Is(err, ErrNoSnapshots) {
		t.Fatalf("expected ErrNoSnapshots, got %v", err)
	}
	if _, err := os.Stat(video.OutputPath(videoPath, "_ocr.txt")); !os.IsNotExist(err) {
		t.Error("no output file should be written")
	}
}

func TestCollateStopsOnCancellation(t *testing.T) {
	videoPath, snapDir := setupVideo(t, "snapshot_00000.jpg")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCollator(&fakeEngine{}, CollateOptions{}, nil).Collate(ctx, videoPath, snapDir)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRender(t *testing.T) {
	blocks := []Block{
		{Index: 0, Name: "snapshot_00000.jpg", Text: "Intro"},
		{Index: 1, Name: "snapshot_00001.jpg", Err: errors.New("boom")},
	}
	want := "# Snapshot 0 — snapshot_00000.jpg\nIntro\n\n# Snapshot 1 — snapshot_00001.jpg\n[OCR failed: boom]\n"
	if got := Render(blocks); got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestCollateRejectsTruncatedJPEG(t *testing.T) {
	videoPath, snapDir := setupVideo(t, "snapshot_00000.jpg")

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = byte((i*7919)%251) ^ byte(i>>3)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()*3/4]

	// the header survives, only the scan data is cut
	if _, _, err := image.DecodeConfig(bytes.NewReader(truncated)); err != nil {
		t.Fatalf("header should still parse: %v", err)
	}
	if err := os.WriteFile(filepath.Join(snapDir, "snapshot_00001.jpg"), truncated, 0644); err != nil {
		t.Fatal(err)
	}

	engine := &fakeEngine{}
	res, err := NewCollator(engine, CollateOptions{}, nil).Collate(context.Background(), videoPath, "")
	if err != nil {
		t.Fatalf("Collate error: %v", err)
	}
	if res.Failed != 1 {
		t.Errorf("Failed = %d, want 1", res.Failed)
	}
	if got := res.Blocks[1].String(); !strings.Contains(got, "[OCR failed: cannot decode snapshot_00001.jpg: ") {
		t.Errorf("missing decode failure marker: %q", got)
	}
	if len(engine.calls) != 1 {
		t.Errorf("engine called %d times, want 1", len(engine.calls))
	}
}
