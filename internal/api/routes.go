package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/logging"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = DefaultRatePerMinute
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Post("/timeline/schedule", scheduleHandler(cfg))

		r.Get("/transforms", getTransformsHandler(cfg))
		r.Put("/transforms", putTransformsHandler(cfg))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Get("/projects/{title}", getProjectHandler(cfg))
		r.Delete("/projects/{title}", deleteProjectHandler(cfg))
		r.Get("/projects/{title}/schedule", projectScheduleHandler(cfg))
		r.Get("/projects/{title}/export.edl", exportEDLHandler(cfg))
		r.Post("/projects/{title}/export", exportToDirHandler(cfg))
		r.Post("/projects/{title}/render", renderHandler(cfg))

		r.Post("/preview/{title}/state", previewStateHandler(cfg))
		r.Get("/preview/{title}/active", previewActiveHandler(cfg))
		r.Delete("/preview/{title}", previewCloseHandler(cfg))

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(cfg.RatePerMinute, time.Minute))
			r.Post("/media", uploadMediaHandler(cfg))
			r.Post("/projects", saveProjectHandler(cfg))
		})

		r.Group(func(r chi.Router) {
			r.Use(LoopbackGuard())
			r.Get("/media/{key}", mediaHandler(cfg))
			r.Head("/media/{key}", mediaHandler(cfg))
			r.Get("/projects/{title}/private/*", privateMediaHandler(cfg))
			r.Head("/projects/{title}/private/*", privateMediaHandler(cfg))
		})
	})

	return r
}

// writeAppError maps err onto the API error envelope. Unknown errors are
// logged with the request ID and answered generically.
func writeAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		requestID, _ := r.Context().Value(RequestIDKey).(string)
		logging.WithRequestID(logger, requestID).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	WriteError(w, status, apperr.Message(err), apperr.Code(err))
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			State:        "ready",
			FPS:          cfg.Editor.FPS,
			RenderTarget: cfg.RenderTarget,
		}

		projects, err := cfg.Projects.List(r.Context())
		if err != nil {
			resp.State = "error"
		}
		resp.ProjectsCount = len(projects)

		st, err := cfg.Blobs.Stats()
		if err != nil {
			resp.State = "error"
		}
		resp.BlobsCount = st.Blobs
		resp.BlobsBytes = st.Bytes
		resp.BlobsSize = logging.Bytes(st.Bytes)
		resp.FreeBytes = st.FreeBytes
		resp.FreeSize = logging.Bytes(int64(st.FreeBytes))
		if cfg.Schedules != nil {
			resp.CacheHits, resp.CacheMisses = cfg.Schedules.Stats()
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}
