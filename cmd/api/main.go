package main

import (
	"flag"
	"log"

	"devotional-pipeline/api"
	"devotional-pipeline/config"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Load .env (local dev only)
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	srv := api.NewServer(cfg)
	log.Printf("[api] Listening on %s", cfg.API.Addr)
	if err := srv.Router().Run(cfg.API.Addr); err != nil {
		log.Fatalf("API server stopped: %v", err)
	}
}
