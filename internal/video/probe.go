package video

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Probe runs ffprobe on the first video stream of path.
func Probe(ctx context.Context, ffprobePath, path string) (*Info, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_streams",
		"-show_format",
		"-of", "json",
		path,
	)

	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(errb.String())
		if msg != "" {
			return nil, fmt.Errorf("ffprobe failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbe(path, out.Bytes())
}

func parseProbe(path string, raw []byte) (*Info, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("failed to parse ffprobe output for %s", path)
	}
	doc := gjson.ParseBytes(raw)

	stream := doc.Get(`streams.#(codec_type=="video")`)
	if !stream.Exists() {
		return nil, fmt.Errorf("%w in %s", ErrNoVideoStream, path)
	}

	rate := parseFrameRate(stream.Get("avg_frame_rate").String())
	if rate <= 0 {
		rate = parseFrameRate(stream.Get("r_frame_rate").String())
	}

	seconds := stream.Get("duration").Float()
	if seconds <= 0 {
		seconds = doc.Get("format.duration").Float()
	}

	info := &Info{
		Path:      path,
		Width:     int(stream.Get("width").Int()),
		Height:    int(stream.Get("height").Int()),
		FrameRate: rate,
		Frames:    int(stream.Get("nb_frames").Int()),
		Codec:     stream.Get("codec_name").String(),
		Duration:  time.Duration(seconds * float64(time.Second)),
	}

	// ffmpeg autorotates on decode, so quarter turns swap the output size
	if rotation(stream)%180 != 0 {
		info.Width, info.Height = info.Height, info.Width
	}

	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d in %s", info.Width, info.Height, path)
	}

	return info, nil
}

func rotation(stream gjson.Result) int {
	deg := stream.Get("tags.rotate")
	stream.Get("side_data_list").ForEach(func(_, sd gjson.Result) bool {
		if v := sd.Get("rotation"); v.Exists() {
			deg = v
			return false
		}
		return true
	})
	r := int(deg.Int())
	if r < 0 {
		r = -r
	}
	return r
}

// parseFrameRate accepts "30", "29.97" and "30000/1001"; anything unusable is 0.
func parseFrameRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	var rate float64
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		rate = n / d
	} else {
		r, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		rate = r
	}

	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return 0
	}
	return rate
}
