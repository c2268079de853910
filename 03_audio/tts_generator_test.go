package audio

import (
	"context"
	"reflect"
	"testing"
)

func TestBuildPiperCmd(t *testing.T) {
	cmd := buildPiperCmd(context.Background(), "piper", "voices/en_US-amy-medium.onnx", "out/clip3.wav")

	want := []string{"piper", "-m", "voices/en_US-amy-medium.onnx", "-f", "out/clip3.wav"}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Fatalf("piper args = %v, want %v", cmd.Args, want)
	}
}

func TestBuildPiperCmdUsesConfiguredExe(t *testing.T) {
	cmd := buildPiperCmd(context.Background(), "/opt/piper/piper", "m.onnx", "clip1.wav")
	if cmd.Args[0] != "/opt/piper/piper" {
		t.Fatalf("exe = %q, want configured path", cmd.Args[0])
	}
}
