package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"devotional-pipeline/types"
)

func validV1JSON() string {
	clips := make([]string, 6)
	for i := 0; i < 6; i++ {
		clips[i] = fmt.Sprintf(
			`{"index":%d,"start_sec":%d,"end_sec":%d,"dialogue":"Scene %d reminds us that quiet moments carry their own kind of grace.","image_prompt":"A quiet chapel at dawn, scene %d"}`,
			i+1, i*10, (i+1)*10, i+1, i+1,
		)
	}
	return fmt.Sprintf(`{"title":"Morning Devotional","clips":[%s]}`, strings.Join(clips, ","))
}

func validV2JSON() string {
	return `{
		"title": "Psalm 23 Reflection",
		"clips": [
			{"index": 1, "mode": "both",
			 "verse": {"ref": "Psalm 23:1", "text": "The Lord is my shepherd; I shall not want."},
			 "dialogue_text": "When everything feels uncertain, this single line steadies us.",
			 "image_prompt": "A shepherd leading sheep through a green valley at dawn"},
			{"index": 2, "mode": "dialogue",
			 "dialogue_text": "Rest is not a reward for finishing. It is a gift offered in the middle of things.",
			 "image_prompt": "Still waters beside a quiet meadow, morning mist"},
			{"index": 3, "mode": "verse",
			 "verse": {"text": "He restores my soul."},
			 "subtitle": "He restores my soul",
			 "image_prompt": "Sunlight breaking through olive trees onto a stone path"}
		]
	}`
}

func mutate(t *testing.T, raw string, fn func(m map[string]interface{})) string {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	fn(m)
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("re-marshal fixture: %v", err)
	}
	return string(out)
}

func clipAt(m map[string]interface{}, i int) map[string]interface{} {
	return m["clips"].([]interface{})[i].(map[string]interface{})
}

func assertInvariant(t *testing.T, err error, rule string, clipIndex int) *InvariantViolationError {
	t.Helper()
	var ive *InvariantViolationError
	if !errors.As(err, &ive) {
		t.Fatalf("expected InvariantViolationError, got %v", err)
	}
	if ive.Rule != rule {
		t.Fatalf("expected rule %q, got %q (%v)", rule, ive.Rule, ive)
	}
	if ive.ClipIndex != clipIndex {
		t.Fatalf("expected clip %d, got %d (%v)", clipIndex, ive.ClipIndex, ive)
	}
	return ive
}

func TestValidFixedSlotPlan(t *testing.T) {
	v := testValidator(t)

	plan, err := v.ParseAndValidate(validV1JSON())
	if err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}
	if plan.Version != types.PlanV1 {
		t.Errorf("expected version %d, got %d", types.PlanV1, plan.Version)
	}
	if len(plan.Clips) != 6 {
		t.Fatalf("expected 6 clips, got %d", len(plan.Clips))
	}
	for i, c := range plan.Clips {
		if c.Index != i+1 {
			t.Errorf("clip %d has index %d", i, c.Index)
		}
		if c.Mode != types.ModeDialogue {
			t.Errorf("clip %d mode = %q, want dialogue", c.Index, c.Mode)
		}
		if c.StartSec != float64(i)*10 || c.EndSec != float64(i+1)*10 {
			t.Errorf("clip %d spans [%.1f, %.1f)", c.Index, c.StartSec, c.EndSec)
		}
		if c.SpokenText == "" || c.CaptionText != c.SpokenText {
			t.Errorf("clip %d narration not derived: spoken=%q caption=%q", c.Index, c.SpokenText, c.CaptionText)
		}
	}
}

func TestFixedSlotClipCount(t *testing.T) {
	v := testValidator(t)

	raw := mutate(t, validV1JSON(), func(m map[string]interface{}) {
		m["clips"] = m["clips"].([]interface{})[:5]
	})
	_, err := v.ParseAndValidate(raw)
	assertInvariant(t, err, RuleClipCount, 0)
}

func TestIndexSequenceGap(t *testing.T) {
	v := testValidator(t)

	raw := mutate(t, validV1JSON(), func(m map[string]interface{}) {
		clipAt(m, 2)["index"] = 5
	})
	_, err := v.ParseAndValidate(raw)
	assertInvariant(t, err, RuleIndexSequence, 3)
}

func TestFixedSlotTimingRequired(t *testing.T) {
	v := testValidator(t)

	raw := mutate(t, validV1JSON(), func(m map[string]interface{}) {
		delete(clipAt(m, 1), "start_sec")
	})
	_, err := v.ParseAndValidate(raw)
	assertInvariant(t, err, RuleTiming, 2)
}

func TestFixedSlotWrongDuration(t *testing.T) {
	v := testValidator(t)

	raw := mutate(t, validV1JSON(), func(m map[string]interface{}) {
		clipAt(m, 1)["end_sec"] = 19.5
	})
	_, err := v.ParseAndValidate(raw)
	assertInvariant(t, err, RuleDuration, 2)
}

func TestFixedSlotMisalignedSpan(t *testing.T) {
	v := testValidator(t)

	// Right duration, wrong slot: clip 2 occupies [15, 25) instead of [10, 20).
	raw := mutate(t, validV1JSON(), func(m map[string]interface{}) {
		clipAt(m, 1)["start_sec"] = 15.0
		clipAt(m, 1)["end_sec"] = 25.0
	})
	_, err := v.ParseAndValidate(raw)
	assertInvariant(t, err, RuleDuration, 2)
}

func TestFixedSlotDurationTolerance(t *testing.T) {
	v := testValidator(t)

	raw := mutate(t, validV1JSON(), func(m map[string]interface{}) {
		clipAt(m, 3)["end_sec"] = 40.0000000001
	})
	if _, err := v.ParseAndValidate(raw); err != nil {
		t.Fatalf("sub-epsilon drift rejected: %v", err)
	}
}

func TestVariablePlanOverlap(t *testing.T) {
	v := testValidator(t)

	raw := mutate(t, validV2JSON(), func(m map[string]interface{}) {
		clipAt(m, 0)["start_sec"] = 0.0
		clipAt(m, 0)["end_sec"] = 8.0
		clipAt(m, 1)["start_sec"] = 6.0
		clipAt(m, 1)["end_sec"] = 14.0
	})
	_, err := v.ParseAndValidate(raw)
	assertInvariant(t, err, RuleTiming, 2)
}

func TestVariablePlanEndNotAfterStart(t *testing.T) {
	v := testValidator(t)

	raw := mutate(t, validV2JSON(), func(m map[string]interface{}) {
		clipAt(m, 0)["start_sec"] = 5.0
		clipAt(m, 0)["end_sec"] = 5.0
	})
	_, err := v.ParseAndValidate(raw)
	assertInvariant(t, err, RuleTiming, 1)
}

func TestVariablePlanDerivedTiming(t *testing.T) {
	v := testValidator(t)

	plan, err := v.ParseAndValidate(validV2JSON())
	if err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}
	if plan.Version != types.PlanV2 {
		t.Fatalf("expected version %d, got %d", types.PlanV2, plan.Version)
	}
	for i, c := range plan.Clips {
		wantStart, wantEnd := float64(i)*10, float64(i+1)*10
		if math.Abs(c.StartSec-wantStart) > 1e-9 || math.Abs(c.EndSec-wantEnd) > 1e-9 {
			t.Errorf("clip %d derived span [%.1f, %.1f), want [%.1f, %.1f)",
				c.Index, c.StartSec, c.EndSec, wantStart, wantEnd)
		}
	}
}

func TestModeRequired(t *testing.T) {
	v := testValidator(t)

	raw := mutate(t, validV2JSON(), func(m map[string]interface{}) {
		delete(clipAt(m, 1), "mode")
	})
	_, err := v.ParseAndValidate(raw)
	assertInvariant(t, err, RuleModeFields, 2)
}

func TestModeFieldConsistency(t *testing.T) {
	v := testValidator(t)

	cases := []struct {
		name string
		fn   func(m map[string]interface{})
		clip int
	}{
		{"both without verse", func(m map[string]interface{}) { delete(clipAt(m, 0), "verse") }, 1},
		{"dialogue without text", func(m map[string]interface{}) { clipAt(m, 1)["dialogue_text"] = "   " }, 2},
		{"verse with empty text", func(m map[string]interface{}) {
			clipAt(m, 2)["verse"] = map[string]interface{}{"text": " \n "}
		}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.ParseAndValidate(mutate(t, validV2JSON(), tc.fn))
			assertInvariant(t, err, RuleModeFields, tc.clip)
		})
	}
}

func TestSpokenTextDerivation(t *testing.T) {
	v := testValidator(t)

	plan, err := v.ParseAndValidate(validV2JSON())
	if err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}

	want := "The Lord is my shepherd; I shall not want. (Psalm 23:1). When everything feels uncertain, this single line steadies us."
	if got := plan.Clips[0].SpokenText; got != want {
		t.Errorf("clip 1 spoken text:\n got %q\nwant %q", got, want)
	}

	// No reference: the verse is spoken without a citation.
	if got := plan.Clips[2].SpokenText; got != "He restores my soul." {
		t.Errorf("clip 3 spoken text: %q", got)
	}
}

func TestSpokenTextWhitespaceNormalized(t *testing.T) {
	v := testValidator(t)

	raw := mutate(t, validV2JSON(), func(m map[string]interface{}) {
		clipAt(m, 1)["dialogue_text"] = "  Rest\n\tis   a gift.  "
	})
	plan, err := v.ParseAndValidate(raw)
	if err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}
	if got := plan.Clips[1].SpokenText; got != "Rest is a gift." {
		t.Errorf("whitespace not collapsed: %q", got)
	}
}

func TestCaptionOverride(t *testing.T) {
	v := testValidator(t)

	plan, err := v.ParseAndValidate(validV2JSON())
	if err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}
	if got := plan.Clips[2].CaptionText; got != "He restores my soul" {
		t.Errorf("subtitle override lost: %q", got)
	}
	if got := plan.Clips[0].CaptionText; got != plan.Clips[0].SpokenText {
		t.Errorf("caption should fall back to spoken text, got %q", got)
	}
}

func TestIgnoredFieldsOutsideMode(t *testing.T) {
	v := testValidator(t)

	// A verse on a dialogue clip is allowed but contributes nothing.
	raw := mutate(t, validV2JSON(), func(m map[string]interface{}) {
		clipAt(m, 1)["verse"] = map[string]interface{}{"ref": "John 3:16", "text": "For God so loved the world."}
	})
	plan, err := v.ParseAndValidate(raw)
	if err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}
	if strings.Contains(plan.Clips[1].SpokenText, "John 3:16") {
		t.Errorf("dialogue clip spoke its unused verse: %q", plan.Clips[1].SpokenText)
	}
}

func TestRevalidateNormalizedPlan(t *testing.T) {
	v := testValidator(t)

	for name, raw := range map[string]string{"fixed": validV1JSON(), "variable": validV2JSON()} {
		t.Run(name, func(t *testing.T) {
			first, err := v.ParseAndValidate(raw)
			if err != nil {
				t.Fatalf("valid plan rejected: %v", err)
			}
			persisted, err := json.Marshal(first)
			if err != nil {
				t.Fatalf("marshal plan: %v", err)
			}
			second, err := v.ParseAndValidate(string(persisted))
			if err != nil {
				t.Fatalf("normalized plan rejected on second pass: %v", err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Errorf("second validation changed the plan:\nfirst  %+v\nsecond %+v", first, second)
			}
		})
	}
}

func TestShortSpeechIsNotFatal(t *testing.T) {
	schema, err := LoadSchema("../schemas/plan_schema.json")
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	v := New(schema, Params{ClipCount: 6, ClipSeconds: 10.0, MinSpeechChars: 500})

	if _, err := v.ParseAndValidate(validV2JSON()); err != nil {
		t.Fatalf("short speech must warn, not fail: %v", err)
	}
}
