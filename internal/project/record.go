package project

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/media"
	"github.com/reelforge/reelforge-agent/internal/timeline"
)

const (
	durationKindMatchAudio = "match-audio"
	durationKindFixed      = "fixed"
)

type record struct {
	Title          string         `json:"title"`
	Platform       string         `json:"platform"`
	DurationMode   durationRecord `json:"durationMode"`
	FitToAudio     bool           `json:"fitToAudio"`
	DissolveFrames int            `json:"dissolveFrames"`
	Items          []itemRecord   `json:"items"`
	Audio          *audioRecord   `json:"audio"`
	SavedAt        time.Time      `json:"savedAt"`
}

type durationRecord struct {
	Kind    string `json:"kind"`
	Seconds int    `json:"seconds,omitempty"`
}

type positionRecord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type itemRecord struct {
	Order          int            `json:"order"`
	Kind           string         `json:"kind"`
	DurationFrames int            `json:"durationFrames"`
	FileNameHint   string         `json:"fileNameHint"`
	Position       positionRecord `json:"position"`
	Scale          float64        `json:"scale"`
	ContentKey     string         `json:"contentKey,omitempty"`
	PrivatePath    string         `json:"privatePath,omitempty"`
}

type audioRecord struct {
	FileNameHint    string  `json:"fileNameHint"`
	DurationSeconds float64 `json:"durationSeconds"`
	ContentKey      string  `json:"contentKey,omitempty"`
	PrivatePath     string  `json:"privatePath,omitempty"`
}

// EncodeManifest renders p as its at-rest JSON record.
func EncodeManifest(p *Project) ([]byte, error) {
	rec := record{
		Title:          p.Title,
		Platform:       string(p.Platform),
		FitToAudio:     p.FitToAudio,
		DissolveFrames: p.DissolveFrames,
		Items:          make([]itemRecord, len(p.Items)),
		SavedAt:        p.SavedAt,
	}
	if p.Duration.MatchAudio {
		rec.DurationMode = durationRecord{Kind: durationKindMatchAudio}
	} else {
		rec.DurationMode = durationRecord{Kind: durationKindFixed, Seconds: p.Duration.Seconds}
	}
	for i, it := range p.Items {
		rec.Items[i] = itemRecord{
			Order:          i,
			Kind:           string(it.Kind),
			DurationFrames: it.NaturalDurationFrames,
			FileNameHint:   it.OriginalFileName,
			Position:       positionRecord{X: it.Transform.PositionX, Y: it.Transform.PositionY},
			Scale:          it.Transform.Scale,
			ContentKey:     it.SourceRef,
			PrivatePath:    it.PrivatePath,
		}
	}
	if p.Audio != nil {
		rec.Audio = &audioRecord{
			FileNameHint:    p.Audio.FileName,
			DurationSeconds: p.Audio.DurationSeconds,
			ContentKey:      string(p.Audio.ContentKey),
			PrivatePath:     p.Audio.PrivatePath,
		}
	}
	return json.MarshalIndent(rec, "", "  ")
}

// DecodeManifest parses a manifest record. Manifests written by the first
// editor release (flat "mediaItems" layout) are converted on the fly. Any
// record that does not describe a well-formed project is ErrCorrupt.
func DecodeManifest(data []byte) (*Project, error) {
	var probe struct {
		Items      json.RawMessage `json:"items"`
		MediaItems json.RawMessage `json:"mediaItems"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCorrupt, err)
	}
	if probe.Items == nil && probe.MediaItems != nil {
		return decodeLegacy(data)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCorrupt, err)
	}
	return rec.project()
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrCorrupt, fmt.Sprintf(format, args...))
}

func (rec *record) project() (*Project, error) {
	if strings.TrimSpace(rec.Title) == "" {
		return nil, corrupt("missing title")
	}
	platform, ok := ParsePlatform(rec.Platform)
	if !ok {
		return nil, corrupt("unknown platform %q", rec.Platform)
	}
	if rec.DissolveFrames < 0 {
		return nil, corrupt("negative dissolve %d", rec.DissolveFrames)
	}

	p := &Project{
		Title:          rec.Title,
		Platform:       platform,
		FitToAudio:     rec.FitToAudio,
		DissolveFrames: rec.DissolveFrames,
		SavedAt:        rec.SavedAt,
	}

	switch rec.DurationMode.Kind {
	case durationKindMatchAudio:
		p.Duration = MatchAudio()
	case durationKindFixed:
		if rec.DurationMode.Seconds <= 0 {
			return nil, corrupt("fixed duration of %d seconds", rec.DurationMode.Seconds)
		}
		p.Duration = FixedSeconds(rec.DurationMode.Seconds)
	default:
		return nil, corrupt("unknown duration mode %q", rec.DurationMode.Kind)
	}

	items := make([]itemRecord, len(rec.Items))
	copy(items, rec.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })

	p.Items = make([]Item, 0, len(items))
	for _, ir := range items {
		kind, ok := timeline.ParseKind(ir.Kind)
		if !ok {
			return nil, corrupt("item %d: unknown kind %q", ir.Order, ir.Kind)
		}
		if ir.ContentKey == "" && ir.PrivatePath == "" {
			return nil, corrupt("item %d: no media reference", ir.Order)
		}
		if ir.ContentKey != "" && !media.Key(ir.ContentKey).Valid() {
			return nil, corrupt("item %d: bad content key %q", ir.Order, ir.ContentKey)
		}
		item := Item{
			MediaItem: timeline.MediaItem{
				Kind:                  kind,
				SourceRef:             ir.ContentKey,
				NaturalDurationFrames: ir.DurationFrames,
				Transform:             timeline.Transform{PositionX: ir.Position.X, PositionY: ir.Position.Y, Scale: ir.Scale},
				OriginalFileName:      ir.FileNameHint,
			},
			PrivatePath: ir.PrivatePath,
		}
		if err := timeline.ValidateItem(item.MediaItem); err != nil {
			return nil, corrupt("item %d: %v", ir.Order, err)
		}
		p.Items = append(p.Items, item)
	}

	if rec.Audio != nil {
		if rec.Audio.ContentKey != "" && !media.Key(rec.Audio.ContentKey).Valid() {
			return nil, corrupt("bad audio content key %q", rec.Audio.ContentKey)
		}
		p.Audio = &AudioRef{
			FileName:        rec.Audio.FileNameHint,
			DurationSeconds: rec.Audio.DurationSeconds,
			ContentKey:      media.Key(rec.Audio.ContentKey),
			PrivatePath:     rec.Audio.PrivatePath,
		}
	}
	return p, nil
}

// legacyRecord is the flat layout written before manifests were versioned.
type legacyRecord struct {
	Title          string       `json:"title"`
	Platform       string       `json:"platform"`
	DurationOption string       `json:"durationOption"`
	FitToMusic     bool         `json:"fitToMusic"`
	ImagePositions []string     `json:"imagePositions"`
	ImageScales    []float64    `json:"imageScales"`
	MediaItems     []legacyItem `json:"mediaItems"`
	MusicFileName  *string      `json:"musicFileName"`
	MusicDuration  *float64     `json:"musicDuration"`
	MusicHashKey   *string      `json:"musicHashKey"`
	MusicSavedPath *string      `json:"musicSavedPath"`
	SavedAt        time.Time    `json:"savedAt"`
	Dissolve       *int         `json:"dissolveDurationFrames"`
}

type legacyItem struct {
	Order            int     `json:"order"`
	Type             string  `json:"type"`
	DurationInFrames int     `json:"durationInFrames"`
	FileName         string  `json:"fileName"`
	ObjectPosition   string  `json:"objectPosition"`
	HashKey          *string `json:"hashKey"`
	SavedPath        string  `json:"savedPath"`
}

func decodeLegacy(data []byte) (*Project, error) {
	var lr legacyRecord
	if err := json.Unmarshal(data, &lr); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCorrupt, err)
	}

	rec := record{
		Title:          lr.Title,
		Platform:       lr.Platform,
		FitToAudio:     lr.FitToMusic,
		DissolveFrames: timeline.DefaultDissolveFrames,
		SavedAt:        lr.SavedAt,
	}
	if rec.Platform == "" {
		rec.Platform = string(DefaultPlatform)
	}
	if lr.Dissolve != nil {
		rec.DissolveFrames = *lr.Dissolve
	}

	mode, err := ParseDurationMode(lr.DurationOption)
	if err != nil {
		return nil, corrupt("duration option %q", lr.DurationOption)
	}
	if mode.MatchAudio {
		rec.DurationMode = durationRecord{Kind: durationKindMatchAudio}
	} else {
		rec.DurationMode = durationRecord{Kind: durationKindFixed, Seconds: mode.Seconds}
	}

	sorted := make([]legacyItem, len(lr.MediaItems))
	copy(sorted, lr.MediaItems)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	for i, li := range sorted {
		ir := itemRecord{
			Order:          i,
			Kind:           li.Type,
			DurationFrames: li.DurationInFrames,
			FileNameHint:   li.FileName,
			Scale:          1,
		}
		if ir.DurationFrames <= 0 {
			ir.DurationFrames = timeline.DefaultImageDurationFrames
		}

		pos := li.ObjectPosition
		if i < len(lr.ImagePositions) && lr.ImagePositions[i] != "" {
			pos = lr.ImagePositions[i]
		}
		ir.Position.X, ir.Position.Y = timeline.ParsePosition(pos)
		if i < len(lr.ImageScales) && lr.ImageScales[i] > 0 {
			ir.Scale = lr.ImageScales[i]
		}

		if li.HashKey != nil && *li.HashKey != "" {
			ir.ContentKey = *li.HashKey
		} else {
			ir.PrivatePath = legacyMediaPath(li)
		}
		rec.Items = append(rec.Items, ir)
	}

	switch {
	case lr.MusicHashKey != nil && *lr.MusicHashKey != "":
		rec.Audio = &audioRecord{ContentKey: *lr.MusicHashKey}
	case lr.MusicSavedPath != nil && *lr.MusicSavedPath != "":
		rec.Audio = &audioRecord{PrivatePath: *lr.MusicSavedPath}
	case lr.MusicFileName != nil && *lr.MusicFileName != "":
		rec.Audio = &audioRecord{PrivatePath: path.Join("music", path.Base(*lr.MusicFileName))}
	}
	if rec.Audio != nil {
		if lr.MusicFileName != nil {
			rec.Audio.FileNameHint = *lr.MusicFileName
		}
		if lr.MusicDuration != nil {
			rec.Audio.DurationSeconds = *lr.MusicDuration
		}
	}

	return rec.project()
}

func legacyMediaPath(li legacyItem) string {
	if li.SavedPath != "" {
		return li.SavedPath
	}
	name := li.FileName
	if name == "" {
		name = "item"
	}
	return path.Join("media", strconv.Itoa(li.Order)+"-"+path.Base(name))
}
