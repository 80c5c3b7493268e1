//go:build ffmpeg_embedded

package ffmpeg

import (
	"embed"
	"errors"
	"io"
	"io/fs"
)

// assets/ holds the ffbinaries zip for each supported platform.
//
//go:embed assets/*
var bundledAssets embed.FS

func openEmbeddedAsset(name string) (io.ReadCloser, bool, error) {
	file, err := bundledAssets.Open("assets/" + name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return file, true, nil
}
