package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Plan   PlanConfig   `yaml:"plan"`
	Audio  AudioConfig  `yaml:"audio"`
	Images ImagesConfig `yaml:"images"`
	Timing TimingConfig `yaml:"timing"`
	Render RenderConfig `yaml:"render"`
	API    APIConfig    `yaml:"api"`
	Paths  PathsConfig  `yaml:"paths"`
}

type PlanConfig struct {
	APIURL         string  `yaml:"api_url"`
	TokenURL       string  `yaml:"token_url"`
	Model          string  `yaml:"model"`
	SchemaFile     string  `yaml:"schema_file"`
	PromptTemplate string  `yaml:"prompt_template"`
	ClipCount      int     `yaml:"clip_count"`
	ClipSeconds    float64 `yaml:"clip_seconds"`
	MinSpeechChars int     `yaml:"min_speech_chars"`
}

type AudioConfig struct {
	PiperExe   string `yaml:"piper_exe"`
	VoiceModel string `yaml:"voice_model"`
	Voice      string `yaml:"voice"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type ImagesConfig struct {
	APIURL         string   `yaml:"api_url"`
	Width          int      `yaml:"width"`
	Height         int      `yaml:"height"`
	Steps          int      `yaml:"steps"`
	CfgScale       float64  `yaml:"cfg_scale"`
	Sampler        string   `yaml:"sampler"`
	StyleSuffix    string   `yaml:"style_suffix"`
	NegativePrompt string   `yaml:"negative_prompt"`
	BlockPatterns  []string `yaml:"block_patterns"`
}

type TimingConfig struct {
	LeadSec       float64 `yaml:"lead_sec"`
	TrailSec      float64 `yaml:"trail_sec"`
	MinSegmentSec float64 `yaml:"min_segment_sec"`
}

type RenderConfig struct {
	FPS          int    `yaml:"fps"`
	VideoCodec   string `yaml:"video_codec"`
	AudioCodec   string `yaml:"audio_codec"`
	VideoBitrate string `yaml:"video_bitrate"`
	Preset       string `yaml:"preset"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`
}

type PathsConfig struct {
	Inputs  string `yaml:"inputs"`
	Outputs string `yaml:"outputs"`
}

// Load reads config.yaml and returns a Config struct
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
