package audio

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	plan "devotional-pipeline/01_plan"
	"devotional-pipeline/config"
	"devotional-pipeline/types"
)

// Generator turns each clip's spoken text into a WAV file with Piper.
type Generator struct {
	cfg *config.Config
}

// New creates a new Generator
func New(cfg *config.Config) *Generator {
	return &Generator{cfg: cfg}
}

// Run synthesizes one WAV per speakable clip. File names follow the clipN
// convention the asset resolver expects, so a clip the plan left silent
// simply has no file here.
func (g *Generator) Run(ctx context.Context, p *types.Plan, outputDir string) error {
	log.Println("[audio] Synthesizing speech for all clips...")

	if _, err := exec.LookPath(g.cfg.Audio.PiperExe); err != nil {
		return fmt.Errorf("piper executable %q not found: %w", g.cfg.Audio.PiperExe, err)
	}
	if _, err := os.Stat(g.cfg.Audio.VoiceModel); err != nil {
		return fmt.Errorf("voice model %s: %w", g.cfg.Audio.VoiceModel, err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	jobs := plan.TTSJobs(p, g.cfg.Audio.Voice)
	if len(jobs) == 0 {
		return fmt.Errorf("plan has no speakable lines")
	}
	if skipped := len(p.Clips) - len(jobs); skipped > 0 {
		log.Printf("[audio] %d clip(s) have no speech and will stay silent", skipped)
	}

	for i, job := range jobs {
		outFile := filepath.Join(outputDir, job.LineID+".wav")
		log.Printf("[audio] [%d/%d] %s → %s", i+1, len(jobs), job.LineID, filepath.Base(outFile))
		if err := g.synthesize(ctx, job.Text, outFile); err != nil {
			return fmt.Errorf("%s: piper failed: %w", job.LineID, err)
		}
	}

	log.Printf("[audio] ✅ %d clips voiced", len(jobs))
	return nil
}

// synthesize runs one Piper invocation with the text on stdin.
func (g *Generator) synthesize(ctx context.Context, text, outFile string) error {
	cmd := buildPiperCmd(ctx, g.cfg.Audio.PiperExe, g.cfg.Audio.VoiceModel, outFile)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func buildPiperCmd(ctx context.Context, exe, model, outFile string) *exec.Cmd {
	return exec.CommandContext(ctx, exe, "-m", model, "-f", outFile)
}
