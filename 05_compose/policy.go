package compose

import (
	"devotional-pipeline/config"
	"devotional-pipeline/types"
)

// CompositionPolicy decides how one clip's audio becomes a segment. The
// returned AudioSpec's total is the segment duration.
type CompositionPolicy interface {
	Name() string
	Fit(clip types.Clip, audio AudioInfo) types.AudioSpec
}

// SlotFitPolicy fills fixed plan slots exactly: speech is trimmed to the
// slot length and the remainder padded with trailing silence, so segment
// timing always reproduces the plan's own timing.
type SlotFitPolicy struct {
	SampleRate int
	Channels   int
}

func (SlotFitPolicy) Name() string { return "slot-fit" }

func (p SlotFitPolicy) Fit(clip types.Clip, audio AudioInfo) types.AudioSpec {
	slot := clip.EndSec - clip.StartSec
	if !audio.Exists {
		return types.AudioSpec{TrailSec: slot, SampleRate: p.SampleRate, Channels: p.Channels}
	}
	src := audio.DurationSec
	if src > slot {
		src = slot
	}
	return types.AudioSpec{
		Present:    true,
		Path:       audio.Path,
		SourceSec:  src,
		TrailSec:   slot - src,
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	}
}

// LeadTrailPolicy sizes each segment from its measured speech instead of the
// plan timing: a silent lead-in, the whole take, a silent trail-out.
// Speechless clips hold for at least MinSegmentSec.
type LeadTrailPolicy struct {
	LeadSec       float64
	TrailSec      float64
	MinSegmentSec float64
	SampleRate    int
	Channels      int
}

func (LeadTrailPolicy) Name() string { return "lead-trail-pad" }

func (p LeadTrailPolicy) Fit(clip types.Clip, audio AudioInfo) types.AudioSpec {
	if !audio.Exists {
		dur := p.LeadSec + p.TrailSec
		if dur < p.MinSegmentSec {
			dur = p.MinSegmentSec
		}
		return types.AudioSpec{TrailSec: dur, SampleRate: p.SampleRate, Channels: p.Channels}
	}
	return types.AudioSpec{
		Present:    true,
		Path:       audio.Path,
		LeadSec:    p.LeadSec,
		SourceSec:  audio.DurationSec,
		TrailSec:   p.TrailSec,
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	}
}

// PolicyFor selects the policy a plan's version calls for. This is the only
// place composition branches on the version tag.
func PolicyFor(plan *types.Plan, timing config.TimingConfig, audio config.AudioConfig) CompositionPolicy {
	if plan.Version == types.PlanV1 {
		return SlotFitPolicy{SampleRate: audio.SampleRate, Channels: audio.Channels}
	}
	return LeadTrailPolicy{
		LeadSec:       timing.LeadSec,
		TrailSec:      timing.TrailSec,
		MinSegmentSec: timing.MinSegmentSec,
		SampleRate:    audio.SampleRate,
		Channels:      audio.Channels,
	}
}
