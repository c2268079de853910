package visuals

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	plan "devotional-pipeline/01_plan"
	"devotional-pipeline/config"
	"devotional-pipeline/types"
)

// Fetcher generates clip images through a Stable Diffusion WebUI txt2img
// endpoint running locally.
type Fetcher struct {
	cfg        *config.Config
	httpClient *http.Client
	blocked    []*regexp.Regexp
}

// NewFetcher creates a new fetcher, compiling the block patterns once.
func NewFetcher(cfg *config.Config) (*Fetcher, error) {
	blocked := make([]*regexp.Regexp, 0, len(cfg.Images.BlockPatterns))
	for _, pat := range cfg.Images.BlockPatterns {
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			return nil, fmt.Errorf("bad block pattern %q: %w", pat, err)
		}
		blocked = append(blocked, re)
	}

	return &Fetcher{
		cfg: cfg,
		// Diffusion on CPU boxes can take minutes per image
		httpClient: &http.Client{Timeout: 300 * time.Second},
		blocked:    blocked,
	}, nil
}

type txt2imgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	CfgScale       float64 `json:"cfg_scale"`
	SamplerName    string  `json:"sampler_name"`
	Seed           int     `json:"seed"`
	RestoreFaces   bool    `json:"restore_faces"`
	EnableHR       bool    `json:"enable_hr"`
	SaveImages     bool    `json:"save_images"`
	BatchSize      int     `json:"batch_size"`
	NIter          int     `json:"n_iter"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
}

// Run generates one PNG per image job. A prompt that trips a block pattern
// is skipped with a log line and leaves its file missing; composition later
// reports that clip as a missing asset.
func (f *Fetcher) Run(ctx context.Context, p *types.Plan, outputDir string) error {
	log.Println("[visuals] Generating clip images...")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}

	jobs := plan.ImageJobs(p)
	for i, job := range jobs {
		if pattern := f.blockedBy(job.Prompt); pattern != "" {
			log.Printf("[visuals] ⚠️  %s skipped due to unsafe prompt content (matched %q)", job.SceneID, pattern)
			continue
		}

		outFile := filepath.Join(outputDir, job.SceneID+".png")
		log.Printf("[visuals] [%d/%d] %s: %q", i+1, len(jobs), job.SceneID, truncate(job.Prompt, 60))

		if err := f.generate(ctx, job.Prompt, outFile); err != nil {
			return fmt.Errorf("%s: %w", job.SceneID, err)
		}

		// Give the WebUI a breather between jobs
		time.Sleep(200 * time.Millisecond)
	}

	log.Println("[visuals] ✅ Image stage complete")
	return nil
}

// blockedBy returns the first block pattern the prompt matches, or "".
func (f *Fetcher) blockedBy(prompt string) string {
	for _, re := range f.blocked {
		if re.MatchString(prompt) {
			return re.String()
		}
	}
	return ""
}

// buildPrompt appends the configured painting style and anti-typography
// modifiers to the scene prompt.
func (f *Fetcher) buildPrompt(base string) string {
	base = strings.TrimSuffix(strings.TrimSpace(base), ".")
	return fmt.Sprintf("%s, %s, no text, no typography", base, f.cfg.Images.StyleSuffix)
}

func (f *Fetcher) generate(ctx context.Context, prompt, outFile string) error {
	payload := txt2imgRequest{
		Prompt:         f.buildPrompt(prompt),
		NegativePrompt: f.cfg.Images.NegativePrompt,
		Width:          f.cfg.Images.Width,
		Height:         f.cfg.Images.Height,
		Steps:          f.cfg.Images.Steps,
		CfgScale:       f.cfg.Images.CfgScale,
		SamplerName:    f.cfg.Images.Sampler,
		Seed:           -1,
		BatchSize:      1,
		NIter:          1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", f.cfg.Images.APIURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("txt2img request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("txt2img HTTP %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("parse txt2img response: %w", err)
	}
	if len(parsed.Images) == 0 {
		return fmt.Errorf("txt2img returned no images")
	}

	data, err := base64.StdEncoding.DecodeString(parsed.Images[0])
	if err != nil {
		return fmt.Errorf("decode image data: %w", err)
	}

	return os.WriteFile(outFile, data, 0644)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
