package plan

import (
	"fmt"

	"devotional-pipeline/types"
)

// ImageJobs derives one image-generation job per clip. A blank prompt is
// skipped rather than sent upstream.
func ImageJobs(p *types.Plan) []types.ImageJob {
	jobs := make([]types.ImageJob, 0, len(p.Clips))
	for _, c := range p.Clips {
		if c.ImagePrompt == "" {
			continue
		}
		jobs = append(jobs, types.ImageJob{
			SceneID: fmt.Sprintf("clip%d", c.Index),
			Prompt:  c.ImagePrompt,
			Aspect:  "16:9",
		})
	}
	return jobs
}

// TTSJobs derives one speech-synthesis job per clip with spoken text.
func TTSJobs(p *types.Plan, voice string) []types.TTSJob {
	jobs := make([]types.TTSJob, 0, len(p.Clips))
	for _, c := range p.Clips {
		if c.SpokenText == "" {
			continue
		}
		jobs = append(jobs, types.TTSJob{
			LineID: fmt.Sprintf("clip%d", c.Index),
			Voice:  voice,
			Text:   c.SpokenText,
		})
	}
	return jobs
}

// SummarizeJobs is the one-line stage log for a derived job batch.
func SummarizeJobs(images []types.ImageJob, tts []types.TTSJob) string {
	return fmt.Sprintf("images=%d, tts_lines=%d", len(images), len(tts))
}
