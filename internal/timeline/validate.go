package timeline

import (
	"fmt"

	"github.com/reelforge/reelforge-agent/internal/apperr"
)

// Validate checks compositor inputs. ComputeSchedule trusts its arguments,
// so callers run this at the boundary and reject bad requests there.
func Validate(items []MediaItem, targetFrames, dissolveFrames int) error {
	if targetFrames < 0 {
		return apperr.Invalid("target duration %d is negative", targetFrames)
	}
	if dissolveFrames < 0 {
		return apperr.Invalid("dissolve %d is negative", dissolveFrames)
	}
	if len(items) > 0 && targetFrames == 0 {
		return apperr.Invalid("target duration is empty")
	}
	for i, item := range items {
		if err := ValidateItem(item); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// ValidateItem checks one item in isolation.
func ValidateItem(item MediaItem) error {
	if !item.Kind.Valid() {
		return apperr.Invalid("unknown kind %q", item.Kind)
	}
	if item.NaturalDurationFrames < 1 {
		return apperr.Invalid("natural duration %d is below one frame", item.NaturalDurationFrames)
	}
	if !item.Transform.Valid() {
		return apperr.Invalid("transform %+v out of range", item.Transform)
	}
	return nil
}
