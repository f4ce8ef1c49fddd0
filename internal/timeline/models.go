// Package timeline turns an ordered list of media items into a frame-accurate
// schedule that fits a target duration, with crossfade overlaps between
// adjacent segments. Everything here is pure: no I/O, no goroutines, no errors
// except from Validate.
package timeline

const (
	// DefaultImageDurationFrames is the natural length of a still image.
	DefaultImageDurationFrames = 120
	// DefaultDissolveFrames is 0.5s at 30fps.
	DefaultDissolveFrames = 15
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

func (k Kind) Valid() bool {
	return k == KindImage || k == KindVideo
}

// ParseKind accepts "image" and "video"; anything else reports false.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	return k, k.Valid()
}

// MediaItem is one source clip or photo in the timeline.
type MediaItem struct {
	Kind Kind
	// SourceRef points at the bytes: a local handle before save, a content
	// key afterwards.
	SourceRef             string
	NaturalDurationFrames int
	Transform             Transform
	OriginalFileName      string
}

// Segment is one item's placed span inside a Schedule. StartFrame is
// inclusive, EndFrame exclusive.
type Segment struct {
	Item                   MediaItem
	StartFrame             int
	EndFrame               int
	RetimedDurationFrames  int
	OriginalDurationFrames int
}

// PlaybackRate is the video retiming rate. Clips shorter than their slot are
// slowed down to fill it; longer clips keep rate 1 and are trimmed at the
// retimed duration. Images always report 1.
func (s Segment) PlaybackRate() float64 {
	if s.Item.Kind != KindVideo || s.RetimedDurationFrames <= 0 {
		return 1
	}
	if s.OriginalDurationFrames < s.RetimedDurationFrames {
		return float64(s.OriginalDurationFrames) / float64(s.RetimedDurationFrames)
	}
	return 1
}

// SourceFrames is how many frames of source media the segment consumes.
func (s Segment) SourceFrames() int {
	if s.Item.Kind == KindVideo && s.OriginalDurationFrames < s.RetimedDurationFrames {
		return s.OriginalDurationFrames
	}
	return s.RetimedDurationFrames
}

func (s Segment) Contains(frame int) bool {
	return frame >= s.StartFrame && frame < s.EndFrame
}
