package render

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"devotional-pipeline/config"
	"devotional-pipeline/types"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Renderer encodes composed segments into the final video.
type Renderer struct {
	cfg *config.Config
}

// New creates a new Renderer
func New(cfg *config.Config) *Renderer {
	return &Renderer{cfg: cfg}
}

// Run encodes each segment (still image held for the segment duration plus
// its realized audio track), then concatenates them into the final MP4.
func (r *Renderer) Run(segments []types.Segment, outFile string) error {
	if len(segments) == 0 {
		return fmt.Errorf("no segments to render")
	}
	log.Printf("[render] Encoding %d segment(s)...", len(segments))

	workDir := filepath.Join(filepath.Dir(outFile), "segments")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create render dir: %w", err)
	}

	segmentFiles := make([]string, 0, len(segments))
	for _, seg := range segments {
		segFile := filepath.Join(workDir, segmentFileName(seg.ClipIndex))
		log.Printf("[render] clip %d → %s (%.2fs)", seg.ClipIndex, filepath.Base(segFile), seg.DurationSec())
		if err := r.encodeSegment(seg, segFile); err != nil {
			return fmt.Errorf("encode clip %d: %w", seg.ClipIndex, err)
		}
		segmentFiles = append(segmentFiles, segFile)
	}

	if err := r.concatenate(segmentFiles, outFile); err != nil {
		return fmt.Errorf("concatenate segments: %w", err)
	}

	log.Printf("[render] ✅ Final video ready: %s", outFile)
	return nil
}

// encodeSegment renders one still image over the segment's audio track. The
// image loops and the audio is padded, so the output -t is what bounds the
// segment to its exact duration.
func (r *Renderer) encodeSegment(seg types.Segment, outFile string) error {
	video := ffmpeg.Input(seg.ImageRef, ffmpeg.KwArgs{
		"loop":      1,
		"framerate": r.cfg.Render.FPS,
	})

	return ffmpeg.Output(
		[]*ffmpeg.Stream{video, audioStream(seg.Audio)},
		outFile,
		ffmpeg.KwArgs{
			"t":       fmt.Sprintf("%.3f", seg.DurationSec()),
			"c:v":     r.cfg.Render.VideoCodec,
			"c:a":     r.cfg.Render.AudioCodec,
			"b:v":     r.cfg.Render.VideoBitrate,
			"b:a":     "192k",
			"ar":      seg.Audio.SampleRate,
			"preset":  r.cfg.Render.Preset,
			"pix_fmt": "yuv420p",
			"r":       r.cfg.Render.FPS,
		},
	).OverWriteOutput().Run()
}

// audioStream realizes an AudioSpec as a filter chain: trim the source take,
// delay it by the lead, pad out the tail. A spec without source audio
// becomes a lavfi silence input instead.
func audioStream(spec types.AudioSpec) *ffmpeg.Stream {
	if !spec.Present {
		return ffmpeg.Input(silenceSource(spec.SampleRate, spec.Channels), ffmpeg.KwArgs{
			"f": "lavfi",
			"t": fmt.Sprintf("%.3f", spec.TotalSec()),
		})
	}

	stream := ffmpeg.Input(spec.Path).Get("a").
		Filter("atrim", ffmpeg.Args{}, ffmpeg.KwArgs{
			"start":    0,
			"duration": fmt.Sprintf("%.3f", spec.SourceSec),
		})
	if spec.LeadSec > 0 {
		delayMs := int(math.Round(spec.LeadSec * 1000))
		stream = stream.Filter("adelay", ffmpeg.Args{fmt.Sprintf("%d", delayMs)}, ffmpeg.KwArgs{"all": 1})
	}
	return stream.Filter("apad", ffmpeg.Args{})
}

// silenceSource is the anullsrc descriptor for the given format.
func silenceSource(sampleRate, channels int) string {
	return fmt.Sprintf("anullsrc=r=%d:cl=%s", sampleRate, channelLayout(channels))
}

func channelLayout(channels int) string {
	if channels >= 2 {
		return "stereo"
	}
	return "mono"
}

// concatenate joins the encoded segment files with the concat demuxer. The
// segments share one encode profile, so the streams are copied as-is.
func (r *Renderer) concatenate(segmentFiles []string, outFile string) error {
	listFile := filepath.Join(filepath.Dir(outFile), "segments_concat.txt")
	list, err := concatList(segmentFiles)
	if err != nil {
		return err
	}
	if err := os.WriteFile(listFile, []byte(list), 0644); err != nil {
		return err
	}

	return ffmpeg.Input(listFile, ffmpeg.KwArgs{"f": "concat", "safe": 0}).
		Output(outFile, ffmpeg.KwArgs{
			"c":        "copy",
			"movflags": "+faststart",
		}).
		OverWriteOutput().Run()
}

// concatList renders the demuxer list, one absolute path per line.
func concatList(files []string) (string, error) {
	lines := make([]string, 0, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", f, err)
		}
		lines = append(lines, fmt.Sprintf("file '%s'", abs))
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func segmentFileName(clipIndex int) string {
	return fmt.Sprintf("seg_%03d.mp4", clipIndex)
}
