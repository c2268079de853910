package compose

import (
	"fmt"
	"log"

	"devotional-pipeline/types"
)

// MissingAssetError is fatal: a clip has no image to show and there is no
// placeholder fallback.
type MissingAssetError struct {
	ClipIndex int
	Path      string
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("clip %d has no image asset (expected %s)", e.ClipIndex, e.Path)
}

// Compose turns a validated plan into the playback timeline. Clips are laid
// end to end by a cumulative cursor in index order; the policy decides each
// segment's duration. A clip without an image aborts composition before any
// segment is emitted for it; a clip without speech just gets synthesized
// silence and a log line.
func Compose(plan *types.Plan, assets AssetResolver, policy CompositionPolicy) ([]types.Segment, error) {
	log.Printf("[compose] composing %d clips with %s policy", len(plan.Clips), policy.Name())

	segments := make([]types.Segment, 0, len(plan.Clips))
	cursor := 0.0
	for _, clip := range plan.Clips {
		imagePath, ok := assets.Image(clip.Index)
		if !ok {
			return nil, &MissingAssetError{ClipIndex: clip.Index, Path: imagePath}
		}
		audio, err := assets.Audio(clip.Index)
		if err != nil {
			return nil, fmt.Errorf("clip %d: %w", clip.Index, err)
		}

		spec := policy.Fit(clip, audio)
		if !spec.Present {
			log.Printf("[compose] clip %d has no speech — synthesizing %.2fs of silence", clip.Index, spec.TotalSec())
		}

		segments = append(segments, types.Segment{
			ClipIndex: clip.Index,
			StartSec:  cursor,
			EndSec:    cursor + spec.TotalSec(),
			ImageRef:  imagePath,
			Audio:     spec,
		})
		cursor += spec.TotalSec()
	}

	log.Printf("[compose] ✅ timeline ready: %d segments, %.1fs total", len(segments), cursor)
	return segments, nil
}
