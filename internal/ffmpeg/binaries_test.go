package ffmpeg

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func TestAssetForPlatform(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
		wantErr      bool
	}{
		{"linux", "amd64", "ffmpeg-6.1-linux-64.zip", false},
		{"linux", "arm64", "ffmpeg-6.1-linux-arm-64.zip", false},
		{"darwin", "amd64", "ffmpeg-6.1-macos-64.zip", false},
		{"windows", "amd64", "ffmpeg-6.1-win-64.zip", false},
		{"plan9", "386", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := assetForPlatform(tt.goos, tt.goarch)
			if (err != nil) != tt.wantErr {
				t.Fatalf("assetForPlatform error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("assetForPlatform = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBinaryName(t *testing.T) {
	tests := map[string]string{
		"ffmpeg":      "ffmpeg",
		"FFMPEG.EXE":  "ffmpeg",
		"ffprobe":     "ffprobe",
		"ffprobe.exe": "ffprobe",
		"ffplay":      "",
		"README.txt":  "",
	}
	for in, want := range tests {
		if got := binaryName(in); got != want {
			t.Errorf("binaryName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLocatePrefersEnvironment(t *testing.T) {
	t.Setenv(EnvFFmpegPath, "/opt/ff/ffmpeg")
	t.Setenv(EnvFFprobePath, "/opt/ff/ffprobe")

	paths, err := locate()
	if err != nil {
		t.Fatalf("locate error: %v", err)
	}
	if paths.FFmpeg != "/opt/ff/ffmpeg" || paths.FFprobe != "/opt/ff/ffprobe" {
		t.Errorf("unexpected paths: %+v", paths)
	}
}

func TestExtractArchive(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bundle.zip")

	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, name := range []string{"bin/ffmpeg", "bin/ffprobe", "bin/readme.txt"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte("#!/bin/sh\n")); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	installDir := filepath.Join(dir, "install")
	if err := extractArchive(archivePath, installDir); err != nil {
		t.Fatalf("extractArchive error: %v", err)
	}

	paths := BinaryPaths{
		FFmpeg:  filepath.Join(installDir, "ffmpeg"+executableSuffix()),
		FFprobe: filepath.Join(installDir, "ffprobe"+executableSuffix()),
	}
	if !binariesExist(paths) {
		t.Errorf("expected both binaries in %s", installDir)
	}
	if _, err := os.Stat(filepath.Join(installDir, "readme.txt")); !os.IsNotExist(err) {
		t.Errorf("unrelated archive entries should be skipped")
	}
}

func TestExtractArchiveMissingProbe(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bundle.zip")

	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("ffmpeg")
	_, _ = w.Write([]byte("x"))
	_ = zw.Close()
	_ = f.Close()

	if err := extractArchive(archivePath, filepath.Join(dir, "out")); err == nil {
		t.Error("expected error when ffprobe is absent")
	}
}
