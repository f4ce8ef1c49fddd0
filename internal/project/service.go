package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/logging"
	"github.com/reelforge/reelforge-agent/internal/media"
	"github.com/reelforge/reelforge-agent/internal/metrics"
	"github.com/reelforge/reelforge-agent/internal/timeline"
)

const defaultUploadConcurrency = 4

// Fallback extensions when an upload's file name has none.
const (
	fallbackImageExt = ".jpg"
	fallbackVideoExt = ".mp4"
	fallbackAudioExt = ".mp3"
)

type Settings struct {
	FPS         int
	TailSeconds int
	// UploadConcurrency bounds parallel blob writes during Save.
	UploadConcurrency int
}

// Upload is raw bytes attached to a draft item or track.
type Upload struct {
	FileName string
	Data     []byte
}

// DraftItem is an item as submitted by the editor. Exactly one of Upload and
// ContentKey is expected; an Upload wins when both are set.
type DraftItem struct {
	Kind           timeline.Kind
	DurationFrames int
	FileName       string
	Transform      timeline.Transform
	ContentKey     media.Key
	Upload         *Upload
}

type DraftAudio struct {
	FileName        string
	DurationSeconds float64
	ContentKey      media.Key
	Upload          *Upload
}

// Draft is an unsaved project.
type Draft struct {
	Title          string
	Platform       Platform
	Duration       DurationMode
	FitToAudio     bool
	DissolveFrames int
	Items          []DraftItem
	Audio          *DraftAudio
}

// Restored is a loaded project with its schedule rebuilt.
type Restored struct {
	Project      *Project
	Skipped      int
	TargetFrames int
	Schedule     timeline.Schedule
}

type Service struct {
	store    Store
	blobs    media.Blobs
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store Store, blobs media.Blobs, settings Settings, logger *slog.Logger) *Service {
	if settings.FPS <= 0 {
		settings.FPS = 30
	}
	if settings.UploadConcurrency <= 0 {
		settings.UploadConcurrency = defaultUploadConcurrency
	}
	return &Service{store: store, blobs: blobs, settings: settings, logger: logger, now: time.Now}
}

func (s *Service) Store() Store {
	return s.store
}

// Save stores every uploaded blob, then writes the manifest. The manifest is
// written only once all blob writes have succeeded, so a failure part way
// leaves at most orphan blobs and never a manifest pointing at missing data.
func (s *Service) Save(ctx context.Context, d Draft) (*Project, string, error) {
	p, location, err := s.save(ctx, d)
	metrics.RecordProjectOp("save", err)
	if err != nil {
		return nil, "", err
	}
	if s.logger != nil {
		logging.WithProject(s.logger, p.Title).Info("project saved", "items", len(p.Items), "location", location)
	}
	return p, location, nil
}

func (s *Service) save(ctx context.Context, d Draft) (*Project, string, error) {
	p, err := s.storeMedia(ctx, d)
	if err != nil {
		return nil, "", err
	}
	location, err := s.store.Save(ctx, p)
	if err != nil {
		return nil, "", err
	}
	return p, location, nil
}

// storeMedia writes the draft's uploads and returns the project that
// references them.
func (s *Service) storeMedia(ctx context.Context, d Draft) (*Project, error) {
	if err := validateDraft(d); err != nil {
		return nil, err
	}

	p := &Project{
		Title:          SanitizeTitle(d.Title),
		Platform:       d.Platform,
		Duration:       d.Duration,
		FitToAudio:     d.FitToAudio,
		DissolveFrames: d.DissolveFrames,
		Items:          make([]Item, len(d.Items)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.UploadConcurrency)

	for i, di := range d.Items {
		p.Items[i] = Item{MediaItem: timeline.MediaItem{
			Kind:                  di.Kind,
			SourceRef:             string(di.ContentKey),
			NaturalDurationFrames: di.DurationFrames,
			Transform:             di.Transform,
			OriginalFileName:      di.FileName,
		}}
		if di.Upload == nil {
			continue
		}

		up := di.Upload
		ext := extOr(up.FileName, di.FileName, fallbackExt(di.Kind))
		g.Go(func() error {
			key, err := s.blobs.Put(gctx, up.Data, ext)
			if err != nil {
				return fmt.Errorf("store item %d: %w", i, err)
			}
			p.Items[i].SourceRef = string(key)
			return nil
		})
	}

	if d.Audio != nil {
		p.Audio = &AudioRef{
			FileName:        d.Audio.FileName,
			DurationSeconds: d.Audio.DurationSeconds,
			ContentKey:      d.Audio.ContentKey,
		}
		if up := d.Audio.Upload; up != nil {
			ext := extOr(up.FileName, d.Audio.FileName, fallbackAudioExt)
			g.Go(func() error {
				key, err := s.blobs.Put(gctx, up.Data, ext)
				if err != nil {
					return fmt.Errorf("store audio: %w", err)
				}
				p.Audio.ContentKey = key
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, it := range p.Items {
		if !s.blobs.Has(it.ContentKey()) {
			return nil, apperr.Invalid("item %d references unknown media %q", i, it.SourceRef)
		}
	}
	if p.Audio != nil && !s.blobs.Has(p.Audio.ContentKey) {
		return nil, apperr.Invalid("audio references unknown media %q", p.Audio.ContentKey)
	}

	p.SavedAt = s.now().UTC()
	return p, nil
}

func validateDraft(d Draft) error {
	if _, ok := ParsePlatform(string(d.Platform)); !ok {
		return apperr.Invalid("unknown platform %q", d.Platform)
	}
	if !d.Duration.MatchAudio && d.Duration.Seconds <= 0 {
		return apperr.Invalid("fixed duration must be positive")
	}
	if d.DissolveFrames < 0 {
		return apperr.Invalid("dissolve %d is negative", d.DissolveFrames)
	}
	for i, di := range d.Items {
		item := timeline.MediaItem{Kind: di.Kind, NaturalDurationFrames: di.DurationFrames, Transform: di.Transform}
		if err := timeline.ValidateItem(item); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		if di.Upload == nil && di.ContentKey == "" {
			return apperr.Invalid("item %d has no media", i)
		}
	}
	if a := d.Audio; a != nil {
		if a.Upload == nil && a.ContentKey == "" {
			return apperr.Invalid("audio has no media")
		}
		if a.DurationSeconds < 0 || math.IsNaN(a.DurationSeconds) {
			return apperr.Invalid("audio duration %v", a.DurationSeconds)
		}
	}
	return nil
}

func fallbackExt(kind timeline.Kind) string {
	if kind == timeline.KindVideo {
		return fallbackVideoExt
	}
	return fallbackImageExt
}

// extOr returns the first usable extension among the given names.
func extOr(uploadName, displayName, fallback string) string {
	for _, name := range []string{uploadName, displayName} {
		if ext, err := media.NormalizeExt(filepath.Ext(name)); err == nil {
			return ext
		}
	}
	return fallback
}

// Load returns the stored project as written.
func (s *Service) Load(ctx context.Context, title string) (*Project, error) {
	p, err := s.store.Load(ctx, title)
	metrics.RecordProjectOp("load", err)
	return p, err
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	out, err := s.store.List(ctx)
	metrics.RecordProjectOp("list", err)
	return out, err
}

func (s *Service) Delete(ctx context.Context, title string) error {
	err := s.store.Delete(ctx, title)
	metrics.RecordProjectOp("delete", err)
	if err == nil && s.logger != nil {
		logging.WithProject(s.logger, SanitizeTitle(title)).Info("project deleted")
	}
	return err
}

// Restore loads a project, drops items whose media can no longer be found,
// and recomputes the schedule.
func (s *Service) Restore(ctx context.Context, title string) (*Restored, error) {
	p, err := s.Load(ctx, title)
	if err != nil {
		return nil, err
	}

	kept := p.Items[:0:0]
	for i, it := range p.Items {
		if s.itemAvailable(p.Title, it) {
			kept = append(kept, it)
			continue
		}
		if s.logger != nil {
			logging.WithProject(s.logger, p.Title).Warn("media missing, skipping item",
				"index", i, "key", it.SourceRef, "private_path", it.PrivatePath)
		}
	}
	skipped := len(p.Items) - len(kept)
	p.Items = kept
	metrics.AddRestoreSkipped(skipped)

	if p.Audio != nil && !s.audioAvailable(p.Title, p.Audio) {
		if s.logger != nil {
			logging.WithProject(s.logger, p.Title).Warn("audio missing", "key", p.Audio.ContentKey)
		}
		p.Audio = nil
	}

	target := s.TargetFrames(p)
	sched := timeline.ComputeSchedule(p.MediaItems(), target, p.DissolveFrames)
	metrics.RecordSchedule(sched.Len())

	return &Restored{Project: p, Skipped: skipped, TargetFrames: target, Schedule: sched}, nil
}

func (s *Service) itemAvailable(title string, it Item) bool {
	if it.SourceRef != "" {
		return s.blobs.Has(it.ContentKey())
	}
	return s.privateExists(title, it.PrivatePath)
}

func (s *Service) audioAvailable(title string, a *AudioRef) bool {
	if a.ContentKey != "" {
		return s.blobs.Has(a.ContentKey)
	}
	return s.privateExists(title, a.PrivatePath)
}

func (s *Service) privateExists(title, rel string) bool {
	if rel == "" {
		return false
	}
	path, err := s.store.PrivateFile(title, rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && s.logger != nil {
			s.logger.Warn("stat private media", "path", path, "error", err)
		}
		return false
	}
	return info.Mode().IsRegular()
}

// TargetFrames is the timeline length for p: the audio length when fitting to
// audio (or matching it with a track present), the fixed length otherwise,
// the natural length when matching audio without a track. Non-empty
// timelines get the closing tail added.
func (s *Service) TargetFrames(p *Project) int {
	if len(p.Items) == 0 {
		return 0
	}
	fps := s.settings.FPS

	var base int
	hasAudio := p.Audio != nil && p.Audio.DurationSeconds > 0
	switch {
	case hasAudio && (p.FitToAudio || p.Duration.MatchAudio):
		base = timeline.FramesFromSeconds(p.Audio.DurationSeconds, fps)
	case !p.Duration.MatchAudio:
		base = p.Duration.Seconds * fps
	default:
		base = timeline.NaturalDuration(p.MediaItems(), p.DissolveFrames)
	}
	return base + s.settings.TailSeconds*fps
}
