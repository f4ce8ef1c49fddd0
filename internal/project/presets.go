package project

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/timeline"
)

// TransformsFilename is the shared preset list inside the data directory.
const TransformsFilename = "transforms.json"

// TransformPreset is one remembered position/scale, applied to the item at
// the same index when media is added.
type TransformPreset struct {
	Position string  `json:"position"`
	Scale    float64 `json:"scale"`
}

// Transform converts p to a timeline transform, falling back to the default
// for missing fields.
func (p TransformPreset) Transform() timeline.Transform {
	t := timeline.DefaultTransform
	t.PositionX, t.PositionY = timeline.ParsePosition(p.Position)
	if p.Scale >= timeline.MinScale && p.Scale <= timeline.MaxScale {
		t.Scale = p.Scale
	}
	return t
}

// Presets is the global transform preset list stored as a JSON array.
type Presets struct {
	mu   sync.Mutex
	path string
}

func NewPresets(dataDir string) *Presets {
	return &Presets{path: filepath.Join(dataDir, TransformsFilename)}
}

// Load returns the stored presets, or an empty list if none were saved.
func (p *Presets) Load(ctx context.Context) ([]TransformPreset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []TransformPreset{}, nil
	}
	if err != nil {
		return nil, apperr.Classify("read transforms", err)
	}

	var out []TransformPreset
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrCorrupt, TransformsFilename, err)
	}
	if out == nil {
		out = []TransformPreset{}
	}
	return out, nil
}

// Save replaces the preset list. body must be a JSON array.
func (p *Presets) Save(ctx context.Context, body []byte) ([]TransformPreset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, apperr.Invalid("expected array")
	}

	var presets []TransformPreset
	if err := json.Unmarshal(trimmed, &presets); err != nil {
		return nil, apperr.Invalid("malformed transforms: %v", err)
	}
	if presets == nil {
		presets = []TransformPreset{}
	}

	data, err := json.MarshalIndent(presets, "", "  ")
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return nil, apperr.Classify("create data directory", err)
	}
	if err := renameio.WriteFile(p.path, data, 0644); err != nil {
		return nil, apperr.Classify("write transforms", err)
	}
	return presets, nil
}
