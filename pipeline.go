package main

import (
	"context"
	"flag"
	"log"

	"devotional-pipeline/config"
	"devotional-pipeline/orchestrator"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	prompt := flag.String("prompt", "", "devotional request (falls back to the saved intent file)")
	skipPlan := flag.Bool("skip-plan", false, "reuse outputs/plan.json instead of calling the model")
	skipTTS := flag.Bool("skip-tts", false, "skip speech synthesis")
	skipImages := flag.Bool("skip-img", false, "skip image generation")
	skipVideo := flag.Bool("skip-video", false, "stop after the asset stages")
	flag.Parse()

	// Load .env (local dev only)
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	runner := orchestrator.New(cfg)
	if _, err := runner.Run(context.Background(), orchestrator.Options{
		Prompt:     *prompt,
		SkipPlan:   *skipPlan,
		SkipTTS:    *skipTTS,
		SkipImages: *skipImages,
		SkipVideo:  *skipVideo,
	}); err != nil {
		log.Fatalf("❌ Pipeline failed: %v", err)
	}
}
