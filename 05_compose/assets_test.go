package compose

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

const sampleProbeJSON = `{
	"streams": [
		{"codec_type": "audio", "sample_rate": "22050", "channels": 1}
	],
	"format": {"duration": "4.250000"}
}`

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testResolver(t *testing.T) *DirResolver {
	t.Helper()
	r := NewDirResolver(t.TempDir(), t.TempDir(), 24000, 1)
	r.probe = func(string) (string, error) { return sampleProbeJSON, nil }
	return r
}

func TestDirResolverImageNaming(t *testing.T) {
	r := testResolver(t)
	writeFile(t, filepath.Join(r.ImageDir, "clip4.png"))

	path, ok := r.Image(4)
	if !ok {
		t.Fatalf("existing image not found at %s", path)
	}
	if filepath.Base(path) != "clip4.png" {
		t.Errorf("unexpected image name %s", filepath.Base(path))
	}
	if _, ok := r.Image(5); ok {
		t.Error("missing image reported as present")
	}
}

func TestDirResolverAudioProbe(t *testing.T) {
	r := testResolver(t)
	writeFile(t, filepath.Join(r.AudioDir, "clip2.wav"))

	info, err := r.Audio(2)
	if err != nil {
		t.Fatalf("audio probe failed: %v", err)
	}
	if !info.Exists {
		t.Fatal("existing audio reported missing")
	}
	if math.Abs(info.DurationSec-4.25) > 1e-9 {
		t.Errorf("duration %.4f, want 4.25", info.DurationSec)
	}
	if info.SampleRate != 22050 || info.Channels != 1 {
		t.Errorf("stream params %d Hz %d ch", info.SampleRate, info.Channels)
	}
}

func TestDirResolverMissingAudioUsesDefaults(t *testing.T) {
	r := testResolver(t)

	info, err := r.Audio(1)
	if err != nil {
		t.Fatalf("missing audio must not error: %v", err)
	}
	if info.Exists {
		t.Fatal("missing audio reported present")
	}
	if info.SampleRate != 24000 || info.Channels != 1 {
		t.Errorf("defaults not applied: %d Hz %d ch", info.SampleRate, info.Channels)
	}
}

func TestParseProbeRejectsBadDuration(t *testing.T) {
	if _, err := parseProbe(`{"streams": [], "format": {}}`); err == nil {
		t.Fatal("expected error for probe output without duration")
	}
}
