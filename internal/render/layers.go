// Package render turns a schedule into the per-frame parameters a renderer
// consumes and submits render jobs to a remote service.
package render

import (
	"github.com/reelforge/reelforge-agent/internal/timeline"
)

// Layer is one segment visible at a given output frame.
type Layer struct {
	Index        int                `json:"index"`
	Kind         timeline.Kind      `json:"kind"`
	SourceRef    string             `json:"sourceRef"`
	LocalFrame   int                `json:"localFrame"`
	Opacity      float64            `json:"opacity"`
	Zoom         float64            `json:"zoom"`
	PlaybackRate float64            `json:"playbackRate"`
	Transform    timeline.Transform `json:"transform"`
}

// Layers returns every segment whose window contains frame, bottom layer
// first. During a dissolve two layers are returned.
func Layers(s timeline.Schedule, frame int) []Layer {
	var layers []Layer
	for i, seg := range s.Segments() {
		if !seg.Contains(frame) {
			continue
		}
		local := frame - seg.StartFrame
		zoom := 1.0
		if seg.Item.Kind == timeline.KindImage {
			zoom = timeline.ZoomAt(i, local, seg.RetimedDurationFrames)
		}
		layers = append(layers, Layer{
			Index:        i,
			Kind:         seg.Item.Kind,
			SourceRef:    seg.Item.SourceRef,
			LocalFrame:   local,
			Opacity:      s.Opacity(i, local),
			Zoom:         zoom,
			PlaybackRate: seg.PlaybackRate(),
			Transform:    seg.Item.Transform,
		})
	}
	return layers
}
