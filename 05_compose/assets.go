package compose

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// AudioInfo describes a clip's speech file as found on disk.
type AudioInfo struct {
	Exists      bool
	Path        string
	DurationSec float64
	SampleRate  int
	Channels    int
}

// AssetResolver locates the generated assets for a clip.
type AssetResolver interface {
	// Image returns the clip's image path and whether it exists.
	Image(clipIndex int) (string, bool)
	// Audio probes the clip's speech file. A missing file is not an error:
	// Exists is false and the configured defaults fill SampleRate/Channels.
	Audio(clipIndex int) (AudioInfo, error)
}

// DirResolver resolves assets from the conventional output layout,
// <ImageDir>/clipN.png and <AudioDir>/clipN.wav.
type DirResolver struct {
	ImageDir          string
	AudioDir          string
	DefaultSampleRate int
	DefaultChannels   int

	probe func(path string) (string, error)
}

func NewDirResolver(imageDir, audioDir string, sampleRate, channels int) *DirResolver {
	return &DirResolver{
		ImageDir:          imageDir,
		AudioDir:          audioDir,
		DefaultSampleRate: sampleRate,
		DefaultChannels:   channels,
		probe: func(path string) (string, error) {
			return ffmpeg.Probe(path)
		},
	}
}

func (r *DirResolver) Image(clipIndex int) (string, bool) {
	path := filepath.Join(r.ImageDir, fmt.Sprintf("clip%d.png", clipIndex))
	_, err := os.Stat(path)
	return path, err == nil
}

func (r *DirResolver) Audio(clipIndex int) (AudioInfo, error) {
	path := filepath.Join(r.AudioDir, fmt.Sprintf("clip%d.wav", clipIndex))
	if _, err := os.Stat(path); err != nil {
		return AudioInfo{Path: path, SampleRate: r.DefaultSampleRate, Channels: r.DefaultChannels}, nil
	}
	out, err := r.probe(path)
	if err != nil {
		return AudioInfo{}, fmt.Errorf("probe %s: %w", path, err)
	}
	info, err := parseProbe(out)
	if err != nil {
		return AudioInfo{}, fmt.Errorf("probe %s: %w", path, err)
	}
	info.Exists = true
	info.Path = path
	if info.SampleRate == 0 {
		info.SampleRate = r.DefaultSampleRate
	}
	if info.Channels == 0 {
		info.Channels = r.DefaultChannels
	}
	return info, nil
}

// parseProbe pulls duration and audio stream parameters out of ffprobe JSON.
func parseProbe(out string) (AudioInfo, error) {
	var probe struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return AudioInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info AudioInfo
	for _, s := range probe.Streams {
		if s.CodecType != "audio" {
			continue
		}
		if sr, err := strconv.Atoi(s.SampleRate); err == nil {
			info.SampleRate = sr
		}
		info.Channels = s.Channels
		break
	}
	dur, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return AudioInfo{}, fmt.Errorf("parse ffprobe duration %q: %w", probe.Format.Duration, err)
	}
	info.DurationSec = dur
	return info, nil
}
