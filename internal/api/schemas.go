package api

import (
	"time"

	"github.com/reelforge/reelforge-agent/internal/media"
	"github.com/reelforge/reelforge-agent/internal/project"
	"github.com/reelforge/reelforge-agent/internal/render"
	"github.com/reelforge/reelforge-agent/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State         string `json:"state"`
	ProjectsCount int    `json:"projects_count"`
	BlobsCount    int    `json:"blobs_count"`
	BlobsBytes    int64  `json:"blobs_bytes"`
	BlobsSize     string `json:"blobs_size"`
	FreeBytes     uint64 `json:"free_bytes"`
	FreeSize      string `json:"free_size"`
	FPS           int    `json:"fps"`
	RenderTarget  string `json:"render_target"`
	CacheHits     uint64 `json:"schedule_cache_hits"`
	CacheMisses   uint64 `json:"schedule_cache_misses"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type MediaResponse struct {
	Key             media.Key   `json:"key"`
	Class           media.Class `json:"class"`
	ContentType     string      `json:"content_type"`
	Size            int         `json:"size"`
	Width           int         `json:"width,omitempty"`
	Height          int         `json:"height,omitempty"`
	DurationSeconds float64     `json:"duration_seconds,omitempty"`
	DurationFrames  int         `json:"duration_frames,omitempty"`
}

// ItemRequest is one timeline item as the editor sends it.
type ItemRequest struct {
	Kind           string    `json:"kind"`
	DurationFrames int       `json:"durationFrames"`
	FileName       string    `json:"fileName,omitempty"`
	ContentKey     media.Key `json:"contentKey,omitempty"`
	// Upload names a multipart file part carrying the bytes.
	Upload   string   `json:"upload,omitempty"`
	Position string   `json:"position,omitempty"`
	Scale    *float64 `json:"scale,omitempty"`
}

func (it ItemRequest) transform() timeline.Transform {
	t := timeline.DefaultTransform
	if it.Position != "" {
		t.PositionX, t.PositionY = timeline.ParsePosition(it.Position)
	}
	if it.Scale != nil {
		t.Scale = *it.Scale
	}
	return t
}

type AudioRequest struct {
	FileName        string    `json:"fileName"`
	DurationSeconds float64   `json:"durationSeconds"`
	ContentKey      media.Key `json:"contentKey,omitempty"`
	Upload          string    `json:"upload,omitempty"`
}

type SaveProjectRequest struct {
	Title          string        `json:"title"`
	Platform       string        `json:"platform"`
	Duration       string        `json:"duration"`
	FitToAudio     bool          `json:"fitToAudio"`
	DissolveFrames *int          `json:"dissolveFrames,omitempty"`
	Items          []ItemRequest `json:"items"`
	Audio          *AudioRequest `json:"audio,omitempty"`
}

type SaveProjectResponse struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	SavedAt  string `json:"savedAt"`
	Items    int    `json:"items"`
}

type ProjectsResponse struct {
	Projects []project.Summary `json:"projects"`
}

type ItemResponse struct {
	Kind           timeline.Kind `json:"kind"`
	DurationFrames int           `json:"durationFrames"`
	FileName       string        `json:"fileName,omitempty"`
	ContentKey     string        `json:"contentKey,omitempty"`
	PrivatePath    string        `json:"privatePath,omitempty"`
	Position       string        `json:"position"`
	Scale          float64       `json:"scale"`
	MediaURL       string        `json:"mediaUrl"`
}

type AudioResponse struct {
	FileName        string  `json:"fileName"`
	DurationSeconds float64 `json:"durationSeconds"`
	ContentKey      string  `json:"contentKey,omitempty"`
	PrivatePath     string  `json:"privatePath,omitempty"`
	MediaURL        string  `json:"mediaUrl"`
}

type ProjectResponse struct {
	Title          string            `json:"title"`
	Platform       project.Platform  `json:"platform"`
	Width          int               `json:"width"`
	Height         int               `json:"height"`
	Duration       string            `json:"duration"`
	FitToAudio     bool              `json:"fitToAudio"`
	DissolveFrames int               `json:"dissolveFrames"`
	Items          []ItemResponse    `json:"items"`
	Audio          *AudioResponse    `json:"audio,omitempty"`
	SavedAt        string            `json:"savedAt"`
	Skipped        int               `json:"skipped"`
	TargetFrames   int               `json:"targetFrames"`
	Schedule       *ScheduleResponse `json:"schedule"`
}

type SegmentResponse struct {
	Index                  int           `json:"index"`
	Kind                   timeline.Kind `json:"kind"`
	SourceRef              string        `json:"sourceRef,omitempty"`
	StartFrame             int           `json:"startFrame"`
	EndFrame               int           `json:"endFrame"`
	RetimedDurationFrames  int           `json:"retimedDurationFrames"`
	OriginalDurationFrames int           `json:"originalDurationFrames"`
	PlaybackRate           float64       `json:"playbackRate"`
}

type ScheduleResponse struct {
	Span           int               `json:"span"`
	DissolveFrames int               `json:"dissolveFrames"`
	Segments       []SegmentResponse `json:"segments"`
	Layers         []render.Layer    `json:"layers,omitempty"`
	// AudioGain is the soundtrack gain at the requested frame.
	AudioGain *float64 `json:"audioGain,omitempty"`
}

// ScheduleRequest asks for a schedule without saving anything. Frame, when
// set, also returns the layers visible at that frame.
type ScheduleRequest struct {
	Items          []ItemRequest `json:"items"`
	TargetFrames   int           `json:"targetFrames"`
	DissolveFrames *int          `json:"dissolveFrames,omitempty"`
	Frame          *int          `json:"frame,omitempty"`
}

type RenderResponse struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	StatusURL string `json:"statusUrl,omitempty"`
	Segments  int    `json:"segments"`
}

type PreviewStateRequest struct {
	Frame   int  `json:"frame"`
	Playing bool `json:"playing"`
}

type TransformsResponse struct {
	Transforms []project.TransformPreset `json:"transforms"`
}

func ScheduleToResponse(s timeline.Schedule) *ScheduleResponse {
	resp := &ScheduleResponse{
		Span:           s.Span(),
		DissolveFrames: s.DissolveFrames(),
		Segments:       make([]SegmentResponse, 0, s.Len()),
	}
	for i, seg := range s.Segments() {
		resp.Segments = append(resp.Segments, SegmentResponse{
			Index:                  i,
			Kind:                   seg.Item.Kind,
			SourceRef:              seg.Item.SourceRef,
			StartFrame:             seg.StartFrame,
			EndFrame:               seg.EndFrame,
			RetimedDurationFrames:  seg.RetimedDurationFrames,
			OriginalDurationFrames: seg.OriginalDurationFrames,
			PlaybackRate:           seg.PlaybackRate(),
		})
	}
	return resp
}

func ProjectToResponse(r *project.Restored) ProjectResponse {
	p := r.Project
	w, h := p.Platform.Dimensions()
	resp := ProjectResponse{
		Title:          p.Title,
		Platform:       p.Platform,
		Width:          w,
		Height:         h,
		Duration:       p.Duration.String(),
		FitToAudio:     p.FitToAudio,
		DissolveFrames: p.DissolveFrames,
		Items:          make([]ItemResponse, 0, len(p.Items)),
		SavedAt:        p.SavedAt.Format(time.RFC3339),
		Skipped:        r.Skipped,
		TargetFrames:   r.TargetFrames,
		Schedule:       ScheduleToResponse(r.Schedule),
	}
	for _, it := range p.Items {
		resp.Items = append(resp.Items, ItemResponse{
			Kind:           it.Kind,
			DurationFrames: it.NaturalDurationFrames,
			FileName:       it.OriginalFileName,
			ContentKey:     it.SourceRef,
			PrivatePath:    it.PrivatePath,
			Position:       it.Transform.Position(),
			Scale:          it.Transform.Scale,
			MediaURL:       mediaURL(p.Title, it.SourceRef, it.PrivatePath),
		})
	}
	if a := p.Audio; a != nil {
		resp.Audio = &AudioResponse{
			FileName:        a.FileName,
			DurationSeconds: a.DurationSeconds,
			ContentKey:      string(a.ContentKey),
			PrivatePath:     a.PrivatePath,
			MediaURL:        mediaURL(p.Title, string(a.ContentKey), a.PrivatePath),
		}
	}
	return resp
}

// mediaURL is the agent-relative URL the editor fetches media from.
func mediaURL(title, contentKey, privatePath string) string {
	if contentKey != "" {
		return "/media/" + contentKey
	}
	return "/projects/" + title + "/private/" + privatePath
}
