package validate

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"devotional-pipeline/types"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// durationEpsilon is the tolerance for fixed-slot duration comparisons.
const durationEpsilon = 1e-6

// Params are the plan-level constants the semantic checks enforce.
type Params struct {
	ClipCount      int     // fixed-slot plans must have exactly this many clips
	ClipSeconds    float64 // fixed slot length; also the default span for derived timing
	MinSpeechChars int     // below this the clip gets a warning, never an error
}

// Validator runs the full parse → schema → invariant → normalize chain over
// raw model output.
type Validator struct {
	schema *jsonschema.Schema
	params Params
}

func New(schema *jsonschema.Schema, params Params) *Validator {
	return &Validator{schema: schema, params: params}
}

// rawPlan mirrors the wire shape before normalization. Pointers distinguish
// absent fields from zero values.
type rawPlan struct {
	Title     string    `json:"title"`
	Version   *int      `json:"version"`
	VerseRefs []string  `json:"verse_refs"`
	Clips     []rawClip `json:"clips"`
}

type rawClip struct {
	Index        *float64  `json:"index"`
	StartSec     *float64  `json:"start_sec"`
	EndSec       *float64  `json:"end_sec"`
	Mode         *string   `json:"mode"`
	Dialogue     *string   `json:"dialogue"`
	DialogueText *string   `json:"dialogue_text"`
	Verse        *rawVerse `json:"verse"`
	Subtitle     *string   `json:"subtitle"`
	ImagePrompt  *string   `json:"image_prompt"`
}

type rawVerse struct {
	Ref  string `json:"ref"`
	Text string `json:"text"`
}

type timespan struct {
	start float64
	end   float64
}

// ParseAndValidate takes raw model output and returns the normalized plan.
// Failures are typed: *MalformedOutputError (not JSON), *SchemaViolationError
// (wrong shape), *InvariantViolationError (semantic rule broken, checked in
// order: count, index sequence, timing, fixed-slot duration, mode/field
// consistency). Validating an already normalized plan document returns the
// identical plan.
func (v *Validator) ParseAndValidate(raw string) (*types.Plan, error) {
	cleaned, doc, err := parse(raw)
	if err != nil {
		return nil, err
	}
	if err := checkSchema(v.schema, doc); err != nil {
		return nil, err
	}

	var rp rawPlan
	if err := json.Unmarshal(cleaned, &rp); err != nil {
		return nil, &MalformedOutputError{Reason: err.Error()}
	}

	version := resolveVersion(rp)
	spans, err := v.checkInvariants(rp, version)
	if err != nil {
		return nil, err
	}
	return v.normalize(rp, version, spans), nil
}

// resolveVersion decides which plan generation the document is. A persisted
// plan carries an explicit version tag; fresh model output is classified by
// the presence of any second-generation field.
func resolveVersion(rp rawPlan) types.PlanVersion {
	if rp.Version != nil {
		if *rp.Version == 2 {
			return types.PlanV2
		}
		return types.PlanV1
	}
	for _, c := range rp.Clips {
		if c.DialogueText != nil || c.Verse != nil || c.Mode != nil {
			return types.PlanV2
		}
	}
	return types.PlanV1
}

func (v *Validator) checkInvariants(rp rawPlan, version types.PlanVersion) ([]timespan, error) {
	if len(rp.Clips) == 0 {
		return nil, &InvariantViolationError{Rule: RuleClipCount, Message: "plan has no clips"}
	}
	if version == types.PlanV1 && len(rp.Clips) != v.params.ClipCount {
		return nil, &InvariantViolationError{
			Rule:    RuleClipCount,
			Message: fmt.Sprintf("expected exactly %d clips, found %d", v.params.ClipCount, len(rp.Clips)),
		}
	}

	for i, c := range rp.Clips {
		if c.Index == nil || *c.Index != float64(i+1) {
			return nil, &InvariantViolationError{
				Rule:      RuleIndexSequence,
				ClipIndex: i + 1,
				Message:   fmt.Sprintf("clip at position %d must have index %d", i+1, i+1),
			}
		}
	}

	spans := make([]timespan, len(rp.Clips))
	prevEnd := 0.0
	for i, c := range rp.Clips {
		var start, end float64
		switch version {
		case types.PlanV1:
			if c.StartSec == nil || c.EndSec == nil {
				return nil, &InvariantViolationError{
					Rule:      RuleTiming,
					ClipIndex: i + 1,
					Message:   "fixed-slot clips must carry explicit start_sec and end_sec",
				}
			}
			start, end = *c.StartSec, *c.EndSec
		default:
			// Absent timing chains from the previous clip's end.
			start = prevEnd
			if c.StartSec != nil {
				start = *c.StartSec
			}
			end = start + v.params.ClipSeconds
			if c.EndSec != nil {
				end = *c.EndSec
			}
		}

		if end <= start {
			return nil, &InvariantViolationError{
				Rule:      RuleTiming,
				ClipIndex: i + 1,
				Message:   fmt.Sprintf("end_sec %.3f must be greater than start_sec %.3f", end, start),
			}
		}
		if start < prevEnd-durationEpsilon {
			return nil, &InvariantViolationError{
				Rule:      RuleTiming,
				ClipIndex: i + 1,
				Message:   fmt.Sprintf("start_sec %.3f overlaps previous clip ending at %.3f", start, prevEnd),
			}
		}
		spans[i] = timespan{start: start, end: end}
		prevEnd = end
	}

	if version == types.PlanV1 {
		d := v.params.ClipSeconds
		for i, span := range spans {
			if math.Abs((span.end-span.start)-d) > durationEpsilon {
				return nil, &InvariantViolationError{
					Rule:      RuleDuration,
					ClipIndex: i + 1,
					Message:   fmt.Sprintf("duration %.6f differs from required %.1f", span.end-span.start, d),
				}
			}
			wantStart, wantEnd := float64(i)*d, float64(i+1)*d
			if math.Abs(span.start-wantStart) > durationEpsilon || math.Abs(span.end-wantEnd) > durationEpsilon {
				return nil, &InvariantViolationError{
					Rule:      RuleDuration,
					ClipIndex: i + 1,
					Message:   fmt.Sprintf("clip must span exactly [%.1f, %.1f)", wantStart, wantEnd),
				}
			}
		}
	}

	for i, c := range rp.Clips {
		mode, err := clipMode(c, version, i+1)
		if err != nil {
			return nil, err
		}
		if err := checkModeFields(c, version, mode, i+1); err != nil {
			return nil, err
		}
		speech := spokenLine(c, version, mode)
		if len(speech) < v.params.MinSpeechChars {
			log.Printf("[validate] ⚠️  clip %d: spoken text is short (%d chars) — audio may feel rushed", i+1, len(speech))
		}
	}

	return spans, nil
}

// clipMode resolves the effective mode. First-generation clips are always
// dialogue; second-generation clips must declare one.
func clipMode(c rawClip, version types.PlanVersion, idx int) (types.Mode, error) {
	if version == types.PlanV1 {
		return types.ModeDialogue, nil
	}
	if c.Mode == nil {
		return "", &InvariantViolationError{
			Rule:      RuleModeFields,
			ClipIndex: idx,
			Message:   "clip is missing mode",
		}
	}
	switch types.Mode(*c.Mode) {
	case types.ModeDialogue, types.ModeVerse, types.ModeBoth:
		return types.Mode(*c.Mode), nil
	}
	return "", &InvariantViolationError{
		Rule:      RuleModeFields,
		ClipIndex: idx,
		Message:   fmt.Sprintf("unknown mode %q", *c.Mode),
	}
}

func checkModeFields(c rawClip, version types.PlanVersion, mode types.Mode, idx int) error {
	if version == types.PlanV1 {
		if types.NormalizeSpeech(deref(c.Dialogue)) == "" {
			return &InvariantViolationError{
				Rule:      RuleModeFields,
				ClipIndex: idx,
				Message:   "clip requires non-empty dialogue",
			}
		}
		return nil
	}
	if mode == types.ModeDialogue || mode == types.ModeBoth {
		if types.NormalizeSpeech(deref(c.DialogueText)) == "" {
			return &InvariantViolationError{
				Rule:      RuleModeFields,
				ClipIndex: idx,
				Message:   fmt.Sprintf("mode %q requires non-empty dialogue_text", mode),
			}
		}
	}
	if mode == types.ModeVerse || mode == types.ModeBoth {
		if c.Verse == nil || types.NormalizeSpeech(c.Verse.Text) == "" {
			return &InvariantViolationError{
				Rule:      RuleModeFields,
				ClipIndex: idx,
				Message:   fmt.Sprintf("mode %q requires verse with non-empty text", mode),
			}
		}
	}
	return nil
}

// spokenLine assembles the text the narrator reads for one clip: the verse
// (with its reference spoken as a trailing citation) and then the dialogue,
// as the mode dictates, whitespace-normalized once.
func spokenLine(c rawClip, version types.PlanVersion, mode types.Mode) string {
	if version == types.PlanV1 {
		return types.NormalizeSpeech(deref(c.Dialogue))
	}
	var parts []string
	if (mode == types.ModeVerse || mode == types.ModeBoth) && c.Verse != nil {
		verse := c.Verse.Text
		if strings.TrimSpace(c.Verse.Ref) != "" {
			verse = fmt.Sprintf("%s (%s).", verse, strings.TrimSpace(c.Verse.Ref))
		}
		parts = append(parts, verse)
	}
	if mode == types.ModeDialogue || mode == types.ModeBoth {
		parts = append(parts, deref(c.DialogueText))
	}
	return types.NormalizeSpeech(strings.Join(parts, " "))
}

// normalize builds the immutable plan: effective timing, resolved mode,
// derived narration, originating fields retained for re-validation.
func (v *Validator) normalize(rp rawPlan, version types.PlanVersion, spans []timespan) *types.Plan {
	plan := &types.Plan{
		Title:     rp.Title,
		Version:   version,
		VerseRefs: rp.VerseRefs,
		Clips:     make([]types.Clip, len(rp.Clips)),
	}
	for i, c := range rp.Clips {
		mode, _ := clipMode(c, version, i+1)
		spoken := spokenLine(c, version, mode)
		caption := types.NormalizeSpeech(deref(c.Subtitle))
		if caption == "" {
			caption = spoken
		}
		clip := types.Clip{
			Index:        i + 1,
			StartSec:     spans[i].start,
			EndSec:       spans[i].end,
			Mode:         mode,
			Dialogue:     deref(c.Dialogue),
			DialogueText: deref(c.DialogueText),
			Subtitle:     deref(c.Subtitle),
			ImagePrompt:  strings.TrimSpace(deref(c.ImagePrompt)),
			SpokenText:   spoken,
			CaptionText:  caption,
		}
		if c.Verse != nil {
			clip.Verse = &types.Verse{Ref: c.Verse.Ref, Text: c.Verse.Text}
		}
		plan.Clips[i] = clip
	}
	return plan
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
