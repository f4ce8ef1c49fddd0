// Package project persists reel compositions. A manifest records item
// order, transforms, the audio reference and the duration settings; media
// bytes live in the content-addressed store and are referenced by key.
package project

import (
	"strconv"
	"strings"
	"time"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/media"
	"github.com/reelforge/reelforge-agent/internal/timeline"
)

type Platform string

const (
	PlatformTikTok   Platform = "tiktok"
	PlatformFBSquare Platform = "fb-square"
	PlatformFBVideo  Platform = "fb-video"

	DefaultPlatform = PlatformTikTok
)

var platformSizes = map[Platform][2]int{
	PlatformTikTok:   {1080, 1920},
	PlatformFBSquare: {1080, 1080},
	PlatformFBVideo:  {1920, 1080},
}

func ParsePlatform(s string) (Platform, bool) {
	p := Platform(s)
	_, ok := platformSizes[p]
	return p, ok
}

// Dimensions returns the output frame size for p.
func (p Platform) Dimensions() (width, height int) {
	size := platformSizes[p]
	return size[0], size[1]
}

// DurationMode selects how the target length is derived: from the audio
// track, or a fixed number of seconds.
type DurationMode struct {
	MatchAudio bool
	Seconds    int
}

// Fixed durations offered by the editor.
var DurationPresets = []int{60, 90, 120}

func MatchAudio() DurationMode { return DurationMode{MatchAudio: true} }

func FixedSeconds(n int) DurationMode { return DurationMode{Seconds: n} }

// DefaultDuration is the editor's initial choice.
var DefaultDuration = FixedSeconds(90)

// ParseDurationMode reads the editor's option strings: "music" or a positive
// number of seconds.
func ParseDurationMode(s string) (DurationMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultDuration, nil
	}
	if s == "music" {
		return MatchAudio(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return DurationMode{}, apperr.Invalid("unknown duration option %q", s)
	}
	return FixedSeconds(n), nil
}

func (d DurationMode) String() string {
	if d.MatchAudio {
		return "music"
	}
	return strconv.Itoa(d.Seconds)
}

// Item is a timeline item as persisted. SourceRef holds the content key.
type Item struct {
	timeline.MediaItem
	// PrivatePath is relative to the project directory and set only for
	// manifests written before media was content addressed.
	PrivatePath string
}

func (it Item) ContentKey() media.Key {
	return media.Key(it.SourceRef)
}

type AudioRef struct {
	FileName        string
	DurationSeconds float64
	ContentKey      media.Key
	PrivatePath     string
}

type Project struct {
	Title          string
	Platform       Platform
	Duration       DurationMode
	FitToAudio     bool
	Items          []Item
	Audio          *AudioRef
	DissolveFrames int
	SavedAt        time.Time
}

// MediaItems returns the timeline view of the project's items.
func (p *Project) MediaItems() []timeline.MediaItem {
	out := make([]timeline.MediaItem, len(p.Items))
	for i, it := range p.Items {
		out[i] = it.MediaItem
	}
	return out
}

// Summary is one entry of a project listing.
type Summary struct {
	Title     string    `json:"title"`
	ItemCount int       `json:"item_count"`
	SavedAt   time.Time `json:"saved_at"`
	Corrupt   bool      `json:"corrupt,omitempty"`
}
