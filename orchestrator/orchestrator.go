package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"devotional-pipeline/01_plan"
	"devotional-pipeline/02_validate"
	"devotional-pipeline/03_audio"
	"devotional-pipeline/04_visuals"
	"devotional-pipeline/05_compose"
	"devotional-pipeline/06_subtitles"
	"devotional-pipeline/07_render"
	"devotional-pipeline/config"
	"devotional-pipeline/types"

	"github.com/google/uuid"
)

// Options selects which stages a run executes.
type Options struct {
	Prompt     string // overrides the saved intent file when non-empty
	SkipPlan   bool   // reuse outputs/plan.json instead of calling the model
	SkipTTS    bool
	SkipImages bool
	SkipVideo  bool // stop after the asset stages
}

// Runner drives one pipeline run over the fixed outputs layout. Runs are
// not safe to overlap: every run reads and writes the same tree.
type Runner struct {
	cfg *config.Config
}

// New creates a new Runner
func New(cfg *config.Config) *Runner {
	return &Runner{cfg: cfg}
}

// Run executes the staged pipeline: plan, validate, speech, images, compose,
// subtitles, render. The first failing stage aborts the run; the run state
// lands in outputs/pipeline_state.json either way.
func (r *Runner) Run(ctx context.Context, opts Options) (state *types.PipelineState, err error) {
	outputs := r.cfg.Paths.Outputs
	rawPlanPath := filepath.Join(outputs, "plan_raw.json")
	planPath := filepath.Join(outputs, "plan.json")
	audioDir := filepath.Join(outputs, "audio")
	imageDir := filepath.Join(outputs, "images")
	videoPath := filepath.Join(outputs, "video", "final.mp4")
	srtPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".srt"

	if err := os.MkdirAll(outputs, 0755); err != nil {
		return nil, fmt.Errorf("create outputs dir: %w", err)
	}

	runID := uuid.NewString()[:8]
	state = &types.PipelineState{
		RunID:     runID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Prompt:    opts.Prompt,
	}
	log.Printf("🎬 Devotional pipeline starting — Run ID: %s", runID)
	log.Printf("📁 Output dir: %s", outputs)

	// Save state on exit
	defer func() {
		state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		if err != nil {
			state.Error = err.Error()
		}
		saveJSON(filepath.Join(outputs, "pipeline_state.json"), state)
	}()

	// ─────────────────────────────────────────────
	// STAGE 1: Plan
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 1: Plan ━━━")
	var raw string
	if opts.SkipPlan {
		data, readErr := os.ReadFile(planPath)
		if readErr != nil {
			return state, fmt.Errorf("Stage 1 Plan: skip-plan needs an existing plan: %w", readErr)
		}
		raw = string(data)
		log.Printf("[plan] Reusing %s", planPath)
	} else {
		planner, newErr := plan.New(r.cfg)
		if newErr != nil {
			return state, fmt.Errorf("Stage 1 Plan: %w", newErr)
		}
		raw, err = planner.Run(ctx, opts.Prompt)
		if err != nil {
			return state, fmt.Errorf("Stage 1 Plan: %w", err)
		}
		// Keep the untouched model output around for debugging
		if err := os.WriteFile(rawPlanPath, []byte(raw), 0644); err != nil {
			log.Printf("Warning: could not save %s: %v", rawPlanPath, err)
		}
	}

	// ─────────────────────────────────────────────
	// STAGE 2: Validate
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 2: Validate ━━━")
	schema, schemaErr := validate.LoadSchema(r.cfg.Plan.SchemaFile)
	if schemaErr != nil {
		return state, fmt.Errorf("Stage 2 Validate: %w", schemaErr)
	}
	validator := validate.New(schema, validate.Params{
		ClipCount:      r.cfg.Plan.ClipCount,
		ClipSeconds:    r.cfg.Plan.ClipSeconds,
		MinSpeechChars: r.cfg.Plan.MinSpeechChars,
	})
	p, valErr := validator.ParseAndValidate(raw)
	if valErr != nil {
		return state, fmt.Errorf("Stage 2 Validate: %w", valErr)
	}
	saveJSON(planPath, p)
	state.PlanTitle = p.Title
	state.PlanFile = planPath
	log.Printf("[validate] ✅ %q (version %d): %s",
		p.Title, p.Version, plan.SummarizeJobs(plan.ImageJobs(p), plan.TTSJobs(p, r.cfg.Audio.Voice)))

	// ─────────────────────────────────────────────
	// STAGE 3: Speech
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 3: Speech ━━━")
	if opts.SkipTTS {
		log.Println("[audio] Skipped (existing WAVs are reused)")
	} else {
		if err := audio.New(r.cfg).Run(ctx, p, audioDir); err != nil {
			return state, fmt.Errorf("Stage 3 Speech: %w", err)
		}
		state.AudioDir = audioDir
	}

	// ─────────────────────────────────────────────
	// STAGE 4: Images
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 4: Images ━━━")
	if opts.SkipImages {
		log.Println("[visuals] Skipped (existing PNGs are reused)")
	} else {
		fetcher, fetchErr := visuals.NewFetcher(r.cfg)
		if fetchErr != nil {
			return state, fmt.Errorf("Stage 4 Images init: %w", fetchErr)
		}
		if err := fetcher.Run(ctx, p, imageDir); err != nil {
			return state, fmt.Errorf("Stage 4 Images: %w", err)
		}
		state.ImageDir = imageDir
	}

	if opts.SkipVideo {
		log.Println("\n━━━ Video stages skipped ━━━")
		return state, nil
	}

	// ─────────────────────────────────────────────
	// STAGE 5: Compose
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 5: Compose ━━━")
	resolver := compose.NewDirResolver(imageDir, audioDir, r.cfg.Audio.SampleRate, r.cfg.Audio.Channels)
	policy := compose.PolicyFor(p, r.cfg.Timing, r.cfg.Audio)
	segments, composeErr := compose.Compose(p, resolver, policy)
	if composeErr != nil {
		return state, fmt.Errorf("Stage 5 Compose: %w", composeErr)
	}

	// ─────────────────────────────────────────────
	// STAGE 6: Subtitles
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 6: Subtitles ━━━")
	if err := subtitles.Write(srtPath, subtitles.Records(segments, p)); err != nil {
		return state, fmt.Errorf("Stage 6 Subtitles: %w", err)
	}
	state.SubtitleFile = srtPath

	// ─────────────────────────────────────────────
	// STAGE 7: Render
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 7: Render ━━━")
	if err := render.New(r.cfg).Run(segments, videoPath); err != nil {
		return state, fmt.Errorf("Stage 7 Render: %w", err)
	}
	state.VideoFile = videoPath

	log.Printf("✅ Pipeline complete! Video: %s", videoPath)
	return state, nil
}

func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Warning: could not marshal JSON for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}
