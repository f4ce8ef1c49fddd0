// Package probe reads dimensions and durations from media files. Images are
// decoded natively; video and audio go through ffprobe.
package probe

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/media"
	"github.com/reelforge/reelforge-agent/internal/timeline"
)

type Result struct {
	Class           media.Class `json:"class"`
	Width           int         `json:"width,omitempty"`
	Height          int         `json:"height,omitempty"`
	DurationSeconds float64     `json:"durationSeconds,omitempty"`
}

// Frames converts the probed duration to whole frames, rounding up.
func (r *Result) Frames(fps int) int {
	return timeline.FramesFromSeconds(r.DurationSeconds, fps)
}

type Prober interface {
	Probe(ctx context.Context, path string) (*Result, error)
}

// ProbeImage decodes only the image header.
func ProbeImage(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Classify("open image", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, apperr.Invalid("undecodable image: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, apperr.Invalid("image %s has no pixels", format)
	}
	return &Result{Class: media.ClassImage, Width: cfg.Width, Height: cfg.Height}, nil
}

// StubProber decodes images and reports zero duration for everything else.
// It stands in when ffprobe is not installed.
type StubProber struct {
	logger *slog.Logger
}

func NewStubProber(logger *slog.Logger) *StubProber {
	return &StubProber{logger: logger}
}

func (p *StubProber) Probe(ctx context.Context, path string) (*Result, error) {
	class := media.ClassOf(path)
	switch class {
	case media.ClassImage:
		return ProbeImage(path)
	case media.ClassVideo, media.ClassAudio:
		if p.logger != nil {
			p.logger.Info("probe stub: duration unavailable without ffprobe", "class", class)
		}
		return &Result{Class: class}, nil
	default:
		return nil, errUnsupported(path)
	}
}

func errUnsupported(path string) error {
	return apperr.Invalid("unsupported media type %q", filepath.Ext(path))
}
