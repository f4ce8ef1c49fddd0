package render

import (
	"github.com/google/uuid"

	"github.com/reelforge/reelforge-agent/internal/project"
	"github.com/reelforge/reelforge-agent/internal/timeline"
)

// Job is the payload a render service needs to produce the final video.
type Job struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	FPS            int          `json:"fps"`
	DurationFrames int          `json:"durationFrames"`
	DissolveFrames int          `json:"dissolveFrames"`
	Segments       []JobSegment `json:"segments"`
	Audio          *JobAudio    `json:"audio,omitempty"`
}

type JobSegment struct {
	Kind           timeline.Kind `json:"kind"`
	MediaURL       string        `json:"mediaUrl"`
	StartFrame     int           `json:"startFrame"`
	EndFrame       int           `json:"endFrame"`
	SourceFrames   int           `json:"sourceFrames"`
	PlaybackRate   float64       `json:"playbackRate"`
	ZoomFrom       float64       `json:"zoomFrom"`
	ZoomTo         float64       `json:"zoomTo"`
	ObjectPosition string        `json:"objectPosition"`
	Scale          float64       `json:"scale"`
}

type JobAudio struct {
	MediaURL   string `json:"mediaUrl"`
	FadeFrames int    `json:"fadeFrames"`
}

// URLFunc builds a fetchable URL for a project's media, addressed either by
// content key or by a private path inside the project directory.
type URLFunc func(title, contentKey, privatePath string) string

type JobOptions struct {
	FPS             int
	DurationFrames  int
	AudioFadeFrames int
	MediaURL        URLFunc
}

// BuildJob assembles a render job for p laid out by s.
func BuildJob(p *project.Project, s timeline.Schedule, opts JobOptions) Job {
	w, h := p.Platform.Dimensions()
	duration := opts.DurationFrames
	if span := s.Span(); span > duration {
		duration = span
	}

	job := Job{
		ID:             uuid.NewString(),
		Title:          p.Title,
		Width:          w,
		Height:         h,
		FPS:            opts.FPS,
		DurationFrames: duration,
		DissolveFrames: s.DissolveFrames(),
		Segments:       make([]JobSegment, 0, s.Len()),
	}

	segs := s.Segments()
	for i, seg := range segs {
		js := JobSegment{
			Kind:           seg.Item.Kind,
			StartFrame:     seg.StartFrame,
			EndFrame:       seg.EndFrame,
			SourceFrames:   seg.SourceFrames(),
			PlaybackRate:   seg.PlaybackRate(),
			ZoomFrom:       1,
			ZoomTo:         1,
			ObjectPosition: seg.Item.Transform.Position(),
			Scale:          seg.Item.Transform.Scale,
		}
		if seg.Item.Kind == timeline.KindImage {
			js.ZoomFrom = timeline.ZoomAt(i, 0, seg.RetimedDurationFrames)
			js.ZoomTo = timeline.ZoomAt(i, seg.RetimedDurationFrames, seg.RetimedDurationFrames)
		}
		if opts.MediaURL != nil && i < len(p.Items) {
			it := p.Items[i]
			js.MediaURL = opts.MediaURL(p.Title, string(it.ContentKey()), it.PrivatePath)
		}
		job.Segments = append(job.Segments, js)
	}

	if p.Audio != nil && len(segs) > 0 {
		job.Audio = &JobAudio{FadeFrames: opts.AudioFadeFrames}
		if opts.MediaURL != nil {
			job.Audio.MediaURL = opts.MediaURL(p.Title, string(p.Audio.ContentKey), p.Audio.PrivatePath)
		}
	}
	return job
}
