// Package mediainfo extracts technical metadata (duration, frame rate,
// resolution, codec, bitrate) from video containers by shelling out to
// ffprobe.
package mediainfo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"subflow/internal/catalog"
	"subflow/internal/services"
)

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

// Extract probes a video file and returns its technical metadata. A probe
// failure is an IO error; the pipeline records it without blocking
// identification, since a file can be upload-ready with no metadata at all.
func Extract(ctx context.Context, binary, path string) (*catalog.MediaInfo, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "mediainfo", "extract", "empty path", nil)
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error", "-hide_banner",
		"-show_format", "-show_streams",
		"-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "mediainfo", "extract",
			fmt.Sprintf("probe failed: %s", strings.TrimSpace(string(output))), err)
	}
	return decode(output)
}

// decode converts raw ffprobe JSON into MediaInfo.
func decode(output []byte) (*catalog.MediaInfo, error) {
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, services.Wrap(services.ErrIO, "mediainfo", "extract", "parse probe output", err)
	}

	info := &catalog.MediaInfo{
		DurationSeconds: parseFloat(result.Format.Duration),
		BitRate:         parseInt(result.Format.BitRate),
	}
	for _, stream := range result.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		info.VideoCodec = stream.CodecName
		info.Width = stream.Width
		info.Height = stream.Height
		info.FrameRate = parseRatio(stream.AvgFrameRate)
		if info.FrameRate == 0 {
			info.FrameRate = parseRatio(stream.RFrameRate)
		}
		break
	}
	return info, nil
}

// parseRatio evaluates ffprobe rational values like "24000/1001".
func parseRatio(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" || value == "0/0" {
		return 0
	}
	num, den, found := strings.Cut(value, "/")
	if !found {
		return parseFloat(value)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d == 0 || math.IsNaN(n) || math.IsNaN(d) {
		return 0
	}
	return n / d
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func parseInt(value string) int64 {
	parsed := parseFloat(value)
	if math.IsNaN(parsed) || parsed < 0 {
		return 0
	}
	return int64(parsed)
}
