package types

import "strings"

// PlanVersion tags which plan generation a document belongs to. It is
// resolved once during validation and persisted with the plan; downstream
// stages switch on the tag, never on field presence.
type PlanVersion int

const (
	PlanV1 PlanVersion = 1 // fixed clip count, fixed slot durations
	PlanV2 PlanVersion = 2 // variable clips, verse/dialogue modes
)

// Mode says which narration fields a v2 clip carries.
type Mode string

const (
	ModeDialogue Mode = "dialogue"
	ModeVerse    Mode = "verse"
	ModeBoth     Mode = "both"
)

// Verse is a quoted scripture passage with an optional reference.
type Verse struct {
	Ref  string `json:"ref,omitempty"`
	Text string `json:"text"`
}

// Clip is one scene of the plan after normalization. The originating
// narration fields (Dialogue, DialogueText, Verse, Subtitle) are retained so
// a persisted plan can be validated again; SpokenText and CaptionText are
// derived during validation and are the only narration fields later stages
// read.
type Clip struct {
	Index        int     `json:"index"`
	StartSec     float64 `json:"start_sec"`
	EndSec       float64 `json:"end_sec"`
	Mode         Mode    `json:"mode"`
	Dialogue     string  `json:"dialogue,omitempty"`
	DialogueText string  `json:"dialogue_text,omitempty"`
	Verse        *Verse  `json:"verse,omitempty"`
	Subtitle     string  `json:"subtitle,omitempty"`
	ImagePrompt  string  `json:"image_prompt"`
	SpokenText   string  `json:"spoken_text"`
	CaptionText  string  `json:"caption_text"`
}

// Plan is the validated, normalized plan. Immutable once produced; persisted
// as plan.json and treated as the single source of truth by every later
// stage.
type Plan struct {
	Title     string      `json:"title"`
	Version   PlanVersion `json:"version"`
	VerseRefs []string    `json:"verse_refs,omitempty"`
	Clips     []Clip      `json:"clips"`
}

// AudioSpec tells the renderer how to realize one segment's audio track.
// LeadSec and TrailSec are silence around SourceSec seconds of the source
// file; LeadSec+SourceSec+TrailSec always equals the segment duration. When
// Present is false the whole duration is synthesized silence and SampleRate/
// Channels carry the configured defaults.
type AudioSpec struct {
	Present    bool    `json:"present"`
	Path       string  `json:"path,omitempty"`
	LeadSec    float64 `json:"lead_sec"`
	SourceSec  float64 `json:"source_sec"`
	TrailSec   float64 `json:"trail_sec"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
}

// TotalSec is the segment duration this audio track realizes.
func (a AudioSpec) TotalSec() float64 {
	return a.LeadSec + a.SourceSec + a.TrailSec
}

// Segment is one fully resolved timeline entry: where a clip sits on the
// output timeline and which assets fill it. Segments are recomputed every
// run and never persisted.
type Segment struct {
	ClipIndex int       `json:"clip_index"`
	StartSec  float64   `json:"start_sec"`
	EndSec    float64   `json:"end_sec"`
	ImageRef  string    `json:"image_ref"`
	Audio     AudioSpec `json:"audio_source"`
}

// DurationSec is the segment's length on the timeline.
func (s Segment) DurationSec() float64 {
	return s.EndSec - s.StartSec
}

// SubtitleRecord is one SRT entry, timed from the composed timeline.
type SubtitleRecord struct {
	Index    int     `json:"index"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

// ImageJob is one image-generation request derived from the plan.
type ImageJob struct {
	SceneID string `json:"scene_id"`
	Prompt  string `json:"prompt"`
	Aspect  string `json:"aspect"`
}

// TTSJob is one speech-synthesis request derived from the plan.
type TTSJob struct {
	LineID string `json:"line_id"`
	Voice  string `json:"voice"`
	Text   string `json:"text"`
}

// NormalizeSpeech collapses all whitespace runs to single spaces and trims.
// Every narration string is passed through this exactly once.
func NormalizeSpeech(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PipelineState tracks the full state of one pipeline run
type PipelineState struct {
	RunID        string `json:"run_id"`
	StartedAt    string `json:"started_at"`
	CompletedAt  string `json:"completed_at"`
	Prompt       string `json:"prompt"`
	PlanTitle    string `json:"plan_title,omitempty"`
	PlanFile     string `json:"plan_file,omitempty"`
	AudioDir     string `json:"audio_dir,omitempty"`
	ImageDir     string `json:"image_dir,omitempty"`
	VideoFile    string `json:"video_file,omitempty"`
	SubtitleFile string `json:"subtitle_file,omitempty"`
	Error        string `json:"error,omitempty"`
}
