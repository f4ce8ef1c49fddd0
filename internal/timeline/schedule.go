package timeline

import "math"

// Schedule is the compositor output for one render pass. It is a value: the
// segment slice is never handed out, so a Schedule cannot be changed after
// ComputeSchedule returns it. Replace it wholesale when inputs change.
type Schedule struct {
	segments []Segment
	dissolve int
}

func (s Schedule) Len() int {
	return len(s.segments)
}

func (s Schedule) Empty() bool {
	return len(s.segments) == 0
}

// Segment returns the i-th segment. It panics when i is out of range, like a
// slice index would.
func (s Schedule) Segment(i int) Segment {
	return s.segments[i]
}

// Segments returns a copy of the segment list.
func (s Schedule) Segments() []Segment {
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

func (s Schedule) DissolveFrames() int {
	return s.dissolve
}

// Span is the total schedule length in frames: the end of the last segment.
func (s Schedule) Span() int {
	if len(s.segments) == 0 {
		return 0
	}
	return s.segments[len(s.segments)-1].EndFrame
}

// NaturalDuration is the unstretched timeline length: every item at its
// natural duration, minus one dissolve per adjacent pair, floored at zero.
func NaturalDuration(items []MediaItem, dissolveFrames int) int {
	if len(items) == 0 {
		return 0
	}
	total := 0
	for _, item := range items {
		total += item.NaturalDurationFrames
	}
	total -= (len(items) - 1) * dissolveFrames
	if total < 0 {
		return 0
	}
	return total
}

// ComputeSchedule lays items out back to back so the timeline spans roughly
// targetFrames. Each item is scaled by target/natural and rounded on its own
// (half away from zero) with no drift correction, so the span can differ
// from the target by up to one frame per item. No segment is shorter than
// the dissolve, which can overshoot a very small target.
//
// Inputs are assumed valid; see Validate.
func ComputeSchedule(items []MediaItem, targetFrames, dissolveFrames int) Schedule {
	natural := NaturalDuration(items, dissolveFrames)
	if natural == 0 {
		return Schedule{dissolve: dissolveFrames}
	}

	stretch := float64(targetFrames) / float64(natural)

	segments := make([]Segment, 0, len(items))
	start := 0
	for _, item := range items {
		retimed := int(math.Round(float64(item.NaturalDurationFrames) * stretch))
		if retimed < dissolveFrames {
			retimed = dissolveFrames
		}

		seg := Segment{
			Item:                   item,
			StartFrame:             start,
			EndFrame:               start + retimed,
			RetimedDurationFrames:  retimed,
			OriginalDurationFrames: item.NaturalDurationFrames,
		}
		segments = append(segments, seg)
		start = seg.EndFrame - dissolveFrames
	}

	return Schedule{segments: segments, dissolve: dissolveFrames}
}

// FrameToActiveSegmentIndex maps a playback frame to the segment to
// highlight. The frame is clamped into [0, span-1]; the first segment whose
// window contains it wins, so during a crossfade the outgoing segment is
// reported. Returns false only for an empty schedule.
func FrameToActiveSegmentIndex(s Schedule, frame int) (int, bool) {
	n := len(s.segments)
	if n == 0 {
		return 0, false
	}

	span := s.Span()
	if frame > span-1 {
		frame = span - 1
	}
	if frame < 0 {
		frame = 0
	}

	for i, seg := range s.segments {
		if seg.Contains(frame) {
			return i, true
		}
	}
	return n - 1, true
}

// ActiveIndex is FrameToActiveSegmentIndex as a method.
func (s Schedule) ActiveIndex(frame int) (int, bool) {
	return FrameToActiveSegmentIndex(s, frame)
}

// Opacity evaluates the crossfade law for segment i at a frame local to it.
func (s Schedule) Opacity(i, localFrame int) float64 {
	return OpacityAt(s.segments[i], localFrame, s.dissolve, i == 0, i == len(s.segments)-1)
}
