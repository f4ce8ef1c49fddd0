package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/export"
	"github.com/reelforge/reelforge-agent/internal/logging"
	"github.com/reelforge/reelforge-agent/internal/media"
	"github.com/reelforge/reelforge-agent/internal/metrics"
	"github.com/reelforge/reelforge-agent/internal/project"
	"github.com/reelforge/reelforge-agent/internal/render"
	"github.com/reelforge/reelforge-agent/internal/timeline"
)

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Projects.List(r.Context())
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectsResponse{Projects: projects})
	}
}

// saveProjectHandler accepts either a JSON body referencing stored media by
// key, or a multipart form whose "project" field holds that JSON and whose
// file parts carry new media named by each item's "upload".
func saveProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)

		draft, err := readDraft(r, cfg.Editor)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				WriteError(w, http.StatusRequestEntityTooLarge, "upload too large", "INVALID_INPUT")
				return
			}
			writeAppError(w, r, cfg.Logger, err)
			return
		}

		p, location, err := cfg.Projects.Save(r.Context(), draft)
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}

		if cfg.Sessions != nil {
			target := cfg.Projects.TargetFrames(p)
			cfg.Sessions.SetSchedule(p.Title, timeline.ComputeSchedule(p.MediaItems(), target, p.DissolveFrames))
		}

		WriteJSON(w, http.StatusCreated, SaveProjectResponse{
			Title:    p.Title,
			Location: location,
			SavedAt:  p.SavedAt.Format(time.RFC3339),
			Items:    len(p.Items),
		})
	}
}

func readDraft(r *http.Request, editor EditorSettings) (project.Draft, error) {
	var req SaveProjectRequest
	uploads := map[string]*project.Upload{}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return project.Draft{}, err
			}
			return project.Draft{}, apperr.Invalid("invalid multipart body")
		}
		if err := json.Unmarshal([]byte(r.FormValue("project")), &req); err != nil {
			return project.Draft{}, apperr.Invalid("invalid project field")
		}
		for name, headers := range r.MultipartForm.File {
			if len(headers) == 0 {
				continue
			}
			f, err := headers[0].Open()
			if err != nil {
				return project.Draft{}, apperr.Invalid("unreadable upload %q", name)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return project.Draft{}, apperr.Invalid("unreadable upload %q", name)
			}
			uploads[name] = &project.Upload{FileName: headers[0].Filename, Data: data}
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return project.Draft{}, err
		}
		return project.Draft{}, apperr.Invalid("invalid request body")
	}

	return req.draft(uploads, editor)
}

func (req SaveProjectRequest) draft(uploads map[string]*project.Upload, editor EditorSettings) (project.Draft, error) {
	platform := project.DefaultPlatform
	if req.Platform != "" {
		p, ok := project.ParsePlatform(req.Platform)
		if !ok {
			return project.Draft{}, apperr.Invalid("unknown platform %q", req.Platform)
		}
		platform = p
	}
	duration, err := project.ParseDurationMode(req.Duration)
	if err != nil {
		return project.Draft{}, err
	}

	d := project.Draft{
		Title:          req.Title,
		Platform:       platform,
		Duration:       duration,
		FitToAudio:     req.FitToAudio,
		DissolveFrames: editor.DissolveFrames,
		Items:          make([]project.DraftItem, 0, len(req.Items)),
	}
	if req.DissolveFrames != nil {
		d.DissolveFrames = *req.DissolveFrames
	}

	items, err := mediaItems(req.Items, editor.ImageDurationFrames)
	if err != nil {
		return project.Draft{}, err
	}
	for i, it := range req.Items {
		di := project.DraftItem{
			Kind:           items[i].Kind,
			DurationFrames: items[i].NaturalDurationFrames,
			FileName:       it.FileName,
			Transform:      items[i].Transform,
			ContentKey:     it.ContentKey,
		}
		if it.Upload != "" {
			up, ok := uploads[it.Upload]
			if !ok {
				return project.Draft{}, apperr.Invalid("item %d: missing upload %q", i, it.Upload)
			}
			di.Upload = up
			if di.FileName == "" {
				di.FileName = up.FileName
			}
		}
		d.Items = append(d.Items, di)
	}

	if a := req.Audio; a != nil {
		da := &project.DraftAudio{
			FileName:        a.FileName,
			DurationSeconds: a.DurationSeconds,
			ContentKey:      a.ContentKey,
		}
		if a.Upload != "" {
			up, ok := uploads[a.Upload]
			if !ok {
				return project.Draft{}, apperr.Invalid("audio: missing upload %q", a.Upload)
			}
			da.Upload = up
			if da.FileName == "" {
				da.FileName = up.FileName
			}
		}
		d.Audio = da
	}
	return d, nil
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restored, err := cfg.Projects.Restore(r.Context(), chi.URLParam(r, "title"))
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(restored))
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title := chi.URLParam(r, "title")
		if err := cfg.Projects.Delete(r.Context(), title); err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}
		if cfg.Sessions != nil {
			cfg.Sessions.Close(project.SanitizeTitle(title))
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func projectScheduleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restored, err := cfg.Projects.Restore(r.Context(), chi.URLParam(r, "title"))
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}
		resp := ScheduleToResponse(restored.Schedule)
		if v := r.URL.Query().Get("frame"); v != "" {
			frame, err := strconv.Atoi(v)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "frame must be an integer", "INVALID_INPUT")
				return
			}
			resp.Layers = render.Layers(restored.Schedule, frame)
			if restored.Project.Audio != nil {
				gain := timeline.AudioGainAt(frame, restored.TargetFrames, cfg.Editor.AudioFadeFrames)
				resp.AudioGain = &gain
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// edlFor resolves media by segment index. Restore keeps Items and the
// schedule's segments aligned, and private file names need not be unique.
func edlFor(cfg ServerConfig, restored *project.Restored) string {
	title := restored.Project.Title
	items := restored.Project.Items
	events := export.Events(restored.Schedule, func(i int, item timeline.MediaItem) string {
		if key := media.Key(item.SourceRef); key.Valid() {
			return cfg.Blobs.Path(key)
		}
		if i < len(items) && items[i].PrivatePath != "" {
			if path, err := cfg.Projects.Store().PrivateFile(title, items[i].PrivatePath); err == nil {
				return path
			}
		}
		return item.OriginalFileName
	})
	return export.GenerateEDL(events, title, cfg.Editor.FPS)
}

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restored, err := cfg.Projects.Restore(r.Context(), chi.URLParam(r, "title"))
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+restored.Project.Title+`.edl"`)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, edlFor(cfg, restored))
	}
}

func exportToDirHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
			return
		}
		if req.Format != "" && req.Format != "edl" {
			WriteError(w, http.StatusBadRequest, "format must be edl", "INVALID_INPUT")
			return
		}

		restored, err := cfg.Projects.Restore(r.Context(), chi.URLParam(r, "title"))
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}
		edl := edlFor(cfg, restored)
		resp := export.ExportResponse{
			Status:     "ok",
			Format:     "edl",
			EventCount: restored.Schedule.Len(),
		}

		if req.OutputDir == "" {
			resp.EDL = edl
			WriteJSON(w, http.StatusOK, resp)
			return
		}

		path, err := export.WriteFile(req.OutputDir, restored.Project.Title, edl)
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}
		resp.OutputPath = path
		cfg.Logger.Info("edl exported", "project", restored.Project.Title, "path", logging.SanitizePath(path))
		WriteJSON(w, http.StatusOK, resp)
	}
}

func renderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restored, err := cfg.Projects.Restore(r.Context(), chi.URLParam(r, "title"))
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}
		if restored.Schedule.Empty() {
			WriteError(w, http.StatusBadRequest, "project has no media to render", "INVALID_INPUT")
			return
		}

		job := render.BuildJob(restored.Project, restored.Schedule, render.JobOptions{
			FPS:             cfg.Editor.FPS,
			DurationFrames:  restored.TargetFrames,
			AudioFadeFrames: cfg.Editor.AudioFadeFrames,
			MediaURL:        mediaURL,
		})

		receipt, err := cfg.Renderer.Submit(r.Context(), job)
		metrics.RecordRenderSubmission(err)
		if err != nil {
			var submitErr *render.SubmitError
			if errors.As(err, &submitErr) {
				cfg.Logger.Warn("render service rejected job",
					"job_id", job.ID, "status", submitErr.StatusCode, "retryable", submitErr.IsRetryable())
				WriteError(w, http.StatusBadGateway, "render service rejected the job", "RENDER_REJECTED")
				return
			}
			writeAppError(w, r, cfg.Logger, err)
			return
		}

		WriteJSON(w, http.StatusAccepted, RenderResponse{
			JobID:     receipt.JobID,
			Status:    receipt.Status,
			StatusURL: receipt.StatusURL,
			Segments:  len(job.Segments),
		})
	}
}

func getTransformsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presets, err := cfg.Presets.Load(r.Context())
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, TransformsResponse{Transforms: presets})
	}
}

func putTransformsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
			return
		}
		presets, err := cfg.Presets.Save(r.Context(), body)
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, TransformsResponse{Transforms: presets})
	}
}
