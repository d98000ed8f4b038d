package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/kikiluvv/kawaiicut/pkg/util"
)

// MediaInfo is the probed shape of a media file. Duration is in seconds
// to match timeline arithmetic.
type MediaInfo struct {
	Path       string
	Duration   float64
	Width      int
	Height     int
	FPS        float64
	HasVideo   bool
	HasAudio   bool
	VideoCodec string
	AudioCodec string
}

// Probe extracts metadata from a media file
func (e *Executor) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	info, err := parseProbeOutput(output)
	if err != nil {
		return nil, fmt.Errorf("parse ffprobe output for %s: %w", path, err)
	}
	info.Path = path
	return info, nil
}

// probeResult matches ffprobe's JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

func parseProbeOutput(output []byte) (*MediaInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, err
	}

	info := &MediaInfo{}
	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = dur
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			info.HasVideo = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName
			if stream.RFrameRate != "" {
				info.FPS = util.ParseFrameRate(stream.RFrameRate)
			}
		case "audio":
			info.HasAudio = true
			info.AudioCodec = stream.CodecName
		}
	}
	return info, nil
}
