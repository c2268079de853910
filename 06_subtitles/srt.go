package subtitles

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"devotional-pipeline/types"
)

// Records pairs each composed segment with its clip's caption. Subtitle
// timing always comes from the segment timeline, never from the plan's own
// clip timing.
func Records(segments []types.Segment, plan *types.Plan) []types.SubtitleRecord {
	captions := make(map[int]string, len(plan.Clips))
	for _, c := range plan.Clips {
		captions[c.Index] = c.CaptionText
	}

	records := make([]types.SubtitleRecord, 0, len(segments))
	for i, seg := range segments {
		records = append(records, types.SubtitleRecord{
			Index:    i + 1,
			StartSec: seg.StartSec,
			EndSec:   seg.EndSec,
			Text:     captions[seg.ClipIndex],
		})
	}
	return records
}

// FormatTimestamp renders seconds as an SRT timestamp HH:MM:SS,mmm. The
// value is rounded to whole milliseconds exactly once, so 59.9996 rolls over
// to a full minute instead of printing 60 seconds.
func FormatTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParseTimestamp inverts FormatTimestamp back to seconds.
func ParseTimestamp(ts string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid srt timestamp %q", ts)
	}
	secParts := strings.Split(parts[2], ",")
	if len(secParts) != 2 {
		return 0, fmt.Errorf("invalid srt timestamp %q", ts)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid srt timestamp %q: %w", ts, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid srt timestamp %q: %w", ts, err)
	}
	s, err := strconv.Atoi(secParts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid srt timestamp %q: %w", ts, err)
	}
	ms, err := strconv.Atoi(secParts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid srt timestamp %q: %w", ts, err)
	}
	return float64(h)*3600 + float64(m)*60 + float64(s) + float64(ms)/1000.0, nil
}

// Render lays the records out as an SRT document: numbered blocks separated
// by one blank line, caption text flattened to a single line, file
// terminated by a single newline.
func Render(records []types.SubtitleRecord) string {
	blocks := make([]string, 0, len(records))
	for _, rec := range records {
		text := strings.TrimSpace(strings.ReplaceAll(rec.Text, "\n", " "))
		blocks = append(blocks, fmt.Sprintf("%d\n%s --> %s\n%s",
			rec.Index, FormatTimestamp(rec.StartSec), FormatTimestamp(rec.EndSec), text))
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// Write renders the records and writes the SRT file next to the video.
func Write(path string, records []types.SubtitleRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create subtitle dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(Render(records)), 0644); err != nil {
		return fmt.Errorf("write subtitles: %w", err)
	}
	log.Printf("[subtitles] ✅ SRT written: %s (%d records)", path, len(records))
	return nil
}
