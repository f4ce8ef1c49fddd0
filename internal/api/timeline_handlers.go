package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/render"
	"github.com/reelforge/reelforge-agent/internal/timeline"
)

// scheduleHandler lays out an unsaved timeline for the editor's preview.
func scheduleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
			return
		}

		items, err := mediaItems(req.Items, cfg.Editor.ImageDurationFrames)
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}

		dissolve := cfg.Editor.DissolveFrames
		if req.DissolveFrames != nil {
			dissolve = *req.DissolveFrames
		}
		if err := timeline.Validate(items, req.TargetFrames, dissolve); err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}

		var sched timeline.Schedule
		if cfg.Schedules != nil {
			sched = cfg.Schedules.Compute(items, req.TargetFrames, dissolve)
		} else {
			sched = timeline.ComputeSchedule(items, req.TargetFrames, dissolve)
		}

		resp := ScheduleToResponse(sched)
		if req.Frame != nil {
			resp.Layers = render.Layers(sched, *req.Frame)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// mediaItems converts request items. Images without a duration get the
// editor default.
func mediaItems(reqs []ItemRequest, imageDuration int) ([]timeline.MediaItem, error) {
	items := make([]timeline.MediaItem, 0, len(reqs))
	for i, it := range reqs {
		kind, ok := timeline.ParseKind(it.Kind)
		if !ok {
			return nil, apperr.Invalid("item %d: unknown kind %q", i, it.Kind)
		}
		duration := it.DurationFrames
		if duration == 0 && kind == timeline.KindImage {
			duration = imageDuration
		}
		ref := string(it.ContentKey)
		if ref == "" {
			ref = fmt.Sprintf("pending-%d", i)
		}
		items = append(items, timeline.MediaItem{
			Kind:                  kind,
			SourceRef:             ref,
			NaturalDurationFrames: duration,
			Transform:             it.transform(),
			OriginalFileName:      it.FileName,
		})
	}
	return items, nil
}
