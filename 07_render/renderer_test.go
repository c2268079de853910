package render

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestChannelLayout(t *testing.T) {
	if got := channelLayout(1); got != "mono" {
		t.Fatalf("channelLayout(1) = %q, want mono", got)
	}
	if got := channelLayout(2); got != "stereo" {
		t.Fatalf("channelLayout(2) = %q, want stereo", got)
	}
	if got := channelLayout(6); got != "stereo" {
		t.Fatalf("channelLayout(6) = %q, want stereo", got)
	}
}

func TestSilenceSource(t *testing.T) {
	got := silenceSource(24000, 1)
	want := "anullsrc=r=24000:cl=mono"
	if got != want {
		t.Fatalf("silenceSource = %q, want %q", got, want)
	}
}

func TestSegmentFileName(t *testing.T) {
	if got := segmentFileName(7); got != "seg_007.mp4" {
		t.Fatalf("segmentFileName(7) = %q, want seg_007.mp4", got)
	}
}

func TestConcatList(t *testing.T) {
	got, err := concatList([]string{"/tmp/run/seg_001.mp4", "/tmp/run/seg_002.mp4"})
	if err != nil {
		t.Fatalf("concatList: %v", err)
	}
	want := "file '/tmp/run/seg_001.mp4'\nfile '/tmp/run/seg_002.mp4'\n"
	if got != want {
		t.Fatalf("concatList = %q, want %q", got, want)
	}
}

func TestConcatListResolvesRelativePaths(t *testing.T) {
	got, err := concatList([]string{filepath.Join("segments", "seg_001.mp4")})
	if err != nil {
		t.Fatalf("concatList: %v", err)
	}
	if !strings.HasPrefix(got, "file '/") {
		t.Fatalf("relative path was not resolved to absolute: %q", got)
	}
}
