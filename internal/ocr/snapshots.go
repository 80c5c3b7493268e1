package ocr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var snapshotPattern = regexp.MustCompile(`^snapshot_(\d+)\.jpg$`)

type snapshotFile struct {
	name   string
	path   string
	number int
}

// ListSnapshots returns the snapshot images in dir ordered by the number in
// their name, so snapshot_00010.jpg sorts after snapshot_00002.jpg.
func ListSnapshots(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotDirNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var snaps []snapshotFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := snapshotPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		snaps = append(snaps, snapshotFile{
			name:   entry.Name(),
			path:   filepath.Join(dir, entry.Name()),
			number: n,
		})
	}

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].number != snaps[j].number {
			return snaps[i].number < snaps[j].number
		}
		return snaps[i].name < snaps[j].name
	})

	paths := make([]string, len(snaps))
	for i, s := range snaps {
		paths[i] = s.path
	}
	return paths, nil
}
