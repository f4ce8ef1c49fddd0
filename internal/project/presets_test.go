package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/timeline"
)

func TestPresets_LoadMissingIsEmpty(t *testing.T) {
	p := NewPresets(t.TempDir())
	got, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPresets_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	p := NewPresets(dir)
	ctx := context.Background()

	saved, err := p.Save(ctx, []byte(` [{"position":"30% 70%","scale":1.5},{"position":"top left","scale":1}]`))
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	got, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	_, err = os.Stat(filepath.Join(dir, TransformsFilename))
	assert.NoError(t, err)
}

func TestPresets_SaveRejectsNonArray(t *testing.T) {
	p := NewPresets(t.TempDir())
	for _, body := range []string{`{"position":"top"}`, `"x"`, ``, `null`, `[{"scale":"big"}]`} {
		_, err := p.Save(context.Background(), []byte(body))
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "body %q", body)
	}
}

func TestTransformPreset_Transform(t *testing.T) {
	got := TransformPreset{Position: "30% 70%", Scale: 1.5}.Transform()
	assert.Equal(t, timeline.Transform{PositionX: 30, PositionY: 70, Scale: 1.5}, got)

	got = TransformPreset{Scale: 5}.Transform()
	assert.Equal(t, timeline.DefaultTransform, got)
}
