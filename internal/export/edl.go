package export

import (
	"fmt"
	"strings"

	"github.com/reelforge/reelforge-agent/internal/timeline"
)

const maxClipNameLength = 160

// MediaPathFunc resolves where the bytes of segment index live for the
// editor.
type MediaPathFunc func(index int, item timeline.MediaItem) string

// Events lays out one EDL event per schedule segment. Every event after the
// first dissolves in over the schedule's dissolve length.
func Events(s timeline.Schedule, mediaPath MediaPathFunc) []Event {
	events := make([]Event, 0, s.Len())
	for i, seg := range s.Segments() {
		name := ClipName(seg.Item.OriginalFileName, maxClipNameLength)
		if name == "" {
			name = fmt.Sprintf("clip %d", i+1)
		}
		ev := Event{
			ClipName:  name,
			SourceOut: seg.SourceFrames(),
			RecordIn:  seg.StartFrame,
			RecordOut: seg.EndFrame,
		}
		if mediaPath != nil {
			ev.MediaPath = mediaPath(i, seg.Item)
		}
		if i > 0 {
			ev.Transition = s.DissolveFrames()
		}
		events = append(events, ev)
	}
	return events
}

// GenerateEDL renders events as a CMX3600 edit decision list.
func GenerateEDL(events []Event, title string, fps int) string {
	if fps <= 0 {
		fps = 30
	}

	lines := []string{
		fmt.Sprintf("TITLE: %s", title),
		"FCM: NON-DROP FRAME",
		"",
	}

	for i, ev := range events {
		transition := "C"
		if ev.Transition > 0 {
			transition = fmt.Sprintf("D    %03d", ev.Transition)
		}
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s %-8s %s %s %s %s", i+1, "AX", "V", transition,
				framesToTimecode(ev.SourceIn, fps), framesToTimecode(ev.SourceOut, fps),
				framesToTimecode(ev.RecordIn, fps), framesToTimecode(ev.RecordOut, fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", ev.ClipName),
		)
		if ev.MediaPath != "" {
			lines = append(lines, fmt.Sprintf("* MEDIA PATH:  %s", ev.MediaPath))
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func framesToTimecode(totalFrames, fps int) string {
	if totalFrames < 0 {
		totalFrames = 0
	}
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
