package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/media"
)

const maxMultipartMemory = 32 << 20

// uploadMediaHandler stores one multipart "file" part and probes it.
func uploadMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				WriteError(w, http.StatusRequestEntityTooLarge, "upload too large", "INVALID_INPUT")
				return
			}
			WriteError(w, http.StatusBadRequest, "multipart field \"file\" is required", "INVALID_INPUT")
			return
		}
		defer file.Close()

		class := media.ClassOf(header.Filename)
		if class == media.ClassUnknown {
			WriteError(w, http.StatusBadRequest, "unsupported media type", "INVALID_INPUT")
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "failed to read upload", "INVALID_INPUT")
			return
		}

		key, err := cfg.Blobs.Put(r.Context(), data, header.Filename)
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}

		resp := MediaResponse{
			Key:         key,
			Class:       class,
			ContentType: media.ContentType(key.String()),
			Size:        len(data),
		}
		if class == media.ClassImage {
			resp.DurationFrames = cfg.Editor.ImageDurationFrames
		}

		if cfg.Prober != nil {
			info, err := cfg.Prober.Probe(r.Context(), cfg.Blobs.Path(key))
			switch {
			case err == nil:
				resp.Width, resp.Height = info.Width, info.Height
				resp.DurationSeconds = info.DurationSeconds
				if class != media.ClassImage {
					resp.DurationFrames = info.Frames(cfg.Editor.FPS)
				}
			case errors.Is(err, apperr.ErrInvalidInput):
				// the blob is kept; nothing references it yet
				writeAppError(w, r, cfg.Logger, err)
				return
			default:
				cfg.Logger.Warn("probe failed", "key", key, "error", err)
			}
		}

		WriteJSON(w, http.StatusCreated, resp)
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := media.ParseKey(chi.URLParam(r, "key"))
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}
		if err := cfg.Playback.ServeBlob(w, r, key); err != nil {
			writeAppError(w, r, cfg.Logger, err)
		}
	}
}

func privateMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title := chi.URLParam(r, "title")
		rel := chi.URLParam(r, "*")
		if err := cfg.Playback.ServePrivate(w, r, title, rel); err != nil {
			writeAppError(w, r, cfg.Logger, err)
		}
	}
}
