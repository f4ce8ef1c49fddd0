package timeline

import "math"

const (
	// ZoomAmount is the Ken Burns drift applied to still images.
	ZoomAmount = 1.08
	// DefaultAudioFadeSeconds is the length of the music fade-out.
	DefaultAudioFadeSeconds = 1.5
)

// OpacityAt is the crossfade law. A segment fades in over its first
// dissolveFrames unless it is first, and fades out over its last
// dissolveFrames unless it is last. When both windows cover the same frame
// the fade-in wins.
func OpacityAt(seg Segment, localFrame, dissolveFrames int, isFirst, isLast bool) float64 {
	if dissolveFrames <= 0 {
		return 1
	}
	duration := seg.RetimedDurationFrames

	if !isFirst && localFrame < dissolveFrames {
		return interpolate(float64(localFrame), 0, float64(dissolveFrames), 0, 1)
	}
	if !isLast && localFrame > duration-dissolveFrames {
		return interpolate(float64(localFrame), float64(duration-dissolveFrames), float64(duration), 1, 0)
	}
	return 1
}

// AudioGainAt is the only audio processing: full volume until fadeFrames
// before the end, then a linear ramp to silence at totalFrames.
func AudioGainAt(frame, totalFrames, fadeFrames int) float64 {
	if totalFrames <= 0 {
		return 0
	}
	fadeStart := totalFrames - fadeFrames
	if fadeStart < 0 {
		fadeStart = 0
	}
	if fadeStart >= totalFrames {
		if frame >= totalFrames {
			return 0
		}
		return 1
	}
	return interpolate(float64(frame), float64(fadeStart), float64(totalFrames), 1, 0)
}

// ZoomAt is the slow zoom applied to still images: even positions zoom in
// from 1 to ZoomAmount across the segment, odd positions zoom back out.
func ZoomAt(index, localFrame, durationFrames int) float64 {
	from, to := 1.0, ZoomAmount
	if index%2 != 0 {
		from, to = ZoomAmount, 1.0
	}
	if durationFrames <= 0 {
		return from
	}
	return interpolate(float64(localFrame), 0, float64(durationFrames), from, to)
}

// FramesFromSeconds converts a media length to whole frames, rounding up so
// the last partial frame is kept.
func FramesFromSeconds(seconds float64, fps int) int {
	if seconds <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Ceil(seconds * float64(fps)))
}

// DissolveFrames converts a crossfade length in seconds to frames.
func DissolveFrames(seconds float64, fps int) int {
	if seconds <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Round(seconds * float64(fps)))
}

// interpolate maps x from [x0,x1] onto [y0,y1], clamping at both ends.
func interpolate(x, x0, x1, y0, y1 float64) float64 {
	if x1 == x0 {
		if x < x0 {
			return y0
		}
		return y1
	}
	t := (x - x0) / (x1 - x0)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return y0 + t*(y1-y0)
}
