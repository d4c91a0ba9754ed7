package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"streamvault/video-platform/internal/domain"
)

// MetadataProbe extracts media metadata from a stored file. Implementations
// return an error when probing fails; the pipeline absorbs probe errors into
// DefaultMetadata rather than failing the run.
type MetadataProbe interface {
	Probe(ctx context.Context, filePath string) (*domain.VideoMetadata, error)
}

// DefaultMetadata is the safe fallback used when probing fails.
func DefaultMetadata() *domain.VideoMetadata {
	return &domain.VideoMetadata{
		Duration:  0,
		Width:     1920,
		Height:    1080,
		FrameRate: 30,
		Bitrate:   "5000k",
		HasAudio:  true,
	}
}

// ffprobeOutput mirrors the JSON that ffprobe emits with -print_format json.
type ffprobeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width,omitempty"`
		Height       int    `json:"height,omitempty"`
		AvgFrameRate string `json:"avg_frame_rate,omitempty"`
		Duration     string `json:"duration,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
}

// FFProbe implements MetadataProbe by shelling out to ffprobe.
type FFProbe struct {
	// BinaryPath is the ffprobe executable; "ffprobe" resolves via PATH.
	BinaryPath string
}

// NewFFProbe creates a probe using the given ffprobe binary, or "ffprobe"
// when empty.
func NewFFProbe(binaryPath string) *FFProbe {
	if binaryPath == "" {
		binaryPath = "ffprobe"
	}
	return &FFProbe{BinaryPath: binaryPath}
}

// Probe runs ffprobe against filePath and parses its JSON output.
func (p *FFProbe) Probe(ctx context.Context, filePath string) (*domain.VideoMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	output, err := exec.CommandContext(ctx, p.BinaryPath, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probed ffprobeOutput
	if err := json.Unmarshal(output, &probed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	meta := DefaultMetadata()

	if probed.Format.Duration != "" {
		if duration, err := strconv.ParseFloat(probed.Format.Duration, 64); err == nil {
			meta.Duration = int(duration + 0.5)
		}
	}
	if probed.Format.BitRate != "" {
		meta.Bitrate = probed.Format.BitRate
	}

	meta.HasAudio = false
	for _, stream := range probed.Streams {
		switch stream.CodecType {
		case "video":
			if stream.Width > 0 {
				meta.Width = stream.Width
				meta.Height = stream.Height
			}
			if fps := parseFrameRate(stream.AvgFrameRate); fps > 0 {
				meta.FrameRate = fps
			}
			// Fall back to the stream duration when the container lacks one.
			if meta.Duration == 0 && stream.Duration != "" {
				if duration, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
					meta.Duration = int(duration + 0.5)
				}
			}
		case "audio":
			meta.HasAudio = true
		}
	}

	return meta, nil
}

// parseFrameRate parses ffprobe's fractional rate notation ("30000/1001").
func parseFrameRate(raw string) float64 {
	parts := strings.Split(raw, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
