package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/reelforge/reelforge-agent/internal/media"
	"github.com/reelforge/reelforge-agent/internal/playback"
	"github.com/reelforge/reelforge-agent/internal/probe"
	"github.com/reelforge/reelforge-agent/internal/project"
	"github.com/reelforge/reelforge-agent/internal/render"
	"github.com/reelforge/reelforge-agent/internal/timeline"
	"github.com/reelforge/reelforge-agent/internal/tracker"
)

// Defaults used when ServerConfig leaves a field zero.
const (
	DefaultMaxUploadBytes = 512 << 20
	DefaultRatePerMinute  = 120
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// EditorSettings are the timeline defaults applied to requests that omit them.
type EditorSettings struct {
	FPS                 int
	ImageDurationFrames int
	DissolveFrames      int
	AudioFadeFrames     int
}

type ServerConfig struct {
	Port           int
	Tokens         TokenSource
	Projects       *project.Service
	Blobs          *media.Store
	Presets        *project.Presets
	Playback       *playback.Server
	Prober         probe.Prober
	Renderer       render.Client
	RenderTarget   string
	Sessions       *tracker.Sessions
	Schedules      *timeline.Memo
	Editor         EditorSettings
	MaxUploadBytes int64
	// RatePerMinute caps uploads and saves per client.
	RatePerMinute int
	Logger        *slog.Logger
	StartTime     time.Time
	// Version is reported by /health.
	Version string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  5 * time.Minute,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
