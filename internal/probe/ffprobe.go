package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"github.com/reelforge/reelforge-agent/internal/media"
)

const maxStderrBytes = 4096

// FFProbe runs the ffprobe binary for video and audio files.
type FFProbe struct {
	binary string
	logger *slog.Logger
}

// NewFFProbe resolves ffprobe from preferred or PATH.
func NewFFProbe(preferred string, logger *slog.Logger) (*FFProbe, error) {
	bin, err := resolveBinary(preferred)
	if err != nil {
		return nil, err
	}
	return &FFProbe{binary: bin, logger: logger}, nil
}

// Available picks FFProbe when the binary exists and the stub otherwise.
func Available(preferred string, logger *slog.Logger) Prober {
	p, err := NewFFProbe(preferred, logger)
	if err != nil {
		if logger != nil {
			logger.Warn("ffprobe not found, video durations must be supplied by the client", "error", err)
		}
		return NewStubProber(logger)
	}
	return p
}

func (p *FFProbe) Probe(ctx context.Context, path string) (*Result, error) {
	class := media.ClassOf(path)
	switch class {
	case media.ClassImage:
		return ProbeImage(path)
	case media.ClassVideo, media.ClassAudio:
	default:
		return nil, errUnsupported(path)
	}

	out, err := p.run(ctx, path)
	if err != nil {
		return nil, err
	}
	res, err := parseOutput(out)
	if err != nil {
		return nil, err
	}
	res.Class = class
	return res, nil
}

func (p *FFProbe) run(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_format", "-show_streams",
		"-of", "json",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderr, limit: maxStderrBytes})

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if p.logger != nil {
			p.logger.Warn("ffprobe failed",
				"exit_code", exitCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"stderr_tail", truncate(stderr.String(), 512),
			)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe exit %d: %s", exitCode, truncate(stderr.String(), 512))
	}
	return stdout.Bytes(), nil
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

func parseOutput(data []byte) (*Result, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	res := &Result{}
	duration := out.Format.Duration
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		res.Width, res.Height = s.Width, s.Height
		if duration == "" {
			duration = s.Duration
		}
		break
	}

	if duration != "" && duration != "N/A" {
		d, err := strconv.ParseFloat(duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parse ffprobe duration %q: %w", duration, err)
		}
		res.DurationSeconds = d
	}
	return res, nil
}

func resolveBinary(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured ffprobe %q not found", preferred)
	}
	p, err := exec.LookPath("ffprobe")
	if err != nil {
		return "", fmt.Errorf("no ffprobe binary found on PATH")
	}
	return p, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter keeps only the last limit bytes written.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if over := lw.w.Len() - lw.limit; over > 0 {
		lw.w.Next(over)
	}
	return n, nil
}
