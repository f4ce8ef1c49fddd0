package project

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/reelforge/reelforge-agent/internal/apperr"
	"github.com/reelforge/reelforge-agent/internal/timeline"
)

func sampleProject() *Project {
	return &Project{
		Title:      "My-Reel",
		Platform:   PlatformFBSquare,
		Duration:   FixedSeconds(60),
		FitToAudio: true,
		Items: []Item{
			{MediaItem: timeline.MediaItem{
				Kind:                  timeline.KindImage,
				SourceRef:             "2cf24dba5fb0a30e.jpg",
				NaturalDurationFrames: 120,
				Transform:             timeline.Transform{PositionX: 30, PositionY: 70, Scale: 1.25},
				OriginalFileName:      "beach.jpg",
			}},
			{MediaItem: timeline.MediaItem{
				Kind:                  timeline.KindVideo,
				SourceRef:             "a1b2c3d4e5f60718.mp4",
				NaturalDurationFrames: 451,
				Transform:             timeline.DefaultTransform,
				OriginalFileName:      "surf.MP4",
			}},
		},
		Audio: &AudioRef{
			FileName:        "song.mp3",
			DurationSeconds: 93.5,
			ContentKey:      "0123456789abcdef.mp3",
		},
		DissolveFrames: 15,
		SavedAt:        time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC),
	}
}

var projectCmpOpts = []cmp.Option{cmpopts.EquateEmpty()}

func TestManifest_RoundTrip(t *testing.T) {
	want := sampleProject()

	data, err := EncodeManifest(want)
	if err != nil {
		t.Fatalf("EncodeManifest() error = %v", err)
	}
	got, err := DecodeManifest(data)
	if err != nil {
		t.Fatalf("DecodeManifest() error = %v", err)
	}
	if diff := cmp.Diff(want, got, projectCmpOpts...); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestManifest_MatchAudioNoTrack(t *testing.T) {
	want := sampleProject()
	want.Duration = MatchAudio()
	want.Audio = nil
	want.Items = nil

	data, err := EncodeManifest(want)
	if err != nil {
		t.Fatalf("EncodeManifest() error = %v", err)
	}
	got, err := DecodeManifest(data)
	if err != nil {
		t.Fatalf("DecodeManifest() error = %v", err)
	}
	if diff := cmp.Diff(want, got, projectCmpOpts...); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeManifest_SortsByOrder(t *testing.T) {
	data := []byte(`{
		"title": "t", "platform": "tiktok",
		"durationMode": {"kind": "fixed", "seconds": 90},
		"items": [
			{"order": 2, "kind": "image", "durationFrames": 120, "position": {"x": 50, "y": 50}, "scale": 1, "contentKey": "2222222222222222.jpg"},
			{"order": 0, "kind": "image", "durationFrames": 120, "position": {"x": 50, "y": 50}, "scale": 1, "contentKey": "0000000000000000.jpg"},
			{"order": 1, "kind": "video", "durationFrames": 60, "position": {"x": 50, "y": 50}, "scale": 1, "contentKey": "1111111111111111.mp4"}
		],
		"audio": null
	}`)

	p, err := DecodeManifest(data)
	if err != nil {
		t.Fatalf("DecodeManifest() error = %v", err)
	}
	for i, it := range p.Items {
		if want := []string{"0000000000000000.jpg", "1111111111111111.mp4", "2222222222222222.jpg"}[i]; it.SourceRef != want {
			t.Errorf("item %d = %s, want %s", i, it.SourceRef, want)
		}
	}
}

func TestDecodeManifest_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"title": `},
		{"array", `[]`},
		{"missing title", `{"platform":"tiktok","durationMode":{"kind":"fixed","seconds":90},"items":[]}`},
		{"unknown platform", `{"title":"t","platform":"vhs","durationMode":{"kind":"fixed","seconds":90},"items":[]}`},
		{"unknown mode", `{"title":"t","platform":"tiktok","durationMode":{"kind":"forever"},"items":[]}`},
		{"zero fixed", `{"title":"t","platform":"tiktok","durationMode":{"kind":"fixed"},"items":[]}`},
		{"unknown kind", `{"title":"t","platform":"tiktok","durationMode":{"kind":"fixed","seconds":9},"items":[{"order":0,"kind":"gif","durationFrames":1,"position":{"x":1,"y":1},"scale":1,"contentKey":"0000000000000000.gif"}]}`},
		{"traversal key", `{"title":"t","platform":"tiktok","durationMode":{"kind":"fixed","seconds":9},"items":[{"order":0,"kind":"image","durationFrames":1,"position":{"x":1,"y":1},"scale":1,"contentKey":"../x.jpg"}]}`},
		{"no reference", `{"title":"t","platform":"tiktok","durationMode":{"kind":"fixed","seconds":9},"items":[{"order":0,"kind":"image","durationFrames":1,"position":{"x":1,"y":1},"scale":1}]}`},
		{"zero duration", `{"title":"t","platform":"tiktok","durationMode":{"kind":"fixed","seconds":9},"items":[{"order":0,"kind":"image","durationFrames":0,"position":{"x":1,"y":1},"scale":1,"contentKey":"0000000000000000.jpg"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeManifest([]byte(tt.data))
			if !errors.Is(err, apperr.ErrCorrupt) {
				t.Fatalf("DecodeManifest() error = %v, want ErrCorrupt", err)
			}
			if errors.Is(err, apperr.ErrNotFound) {
				t.Error("corrupt record must not read as not found")
			}
		})
	}
}

func TestDecodeManifest_Legacy(t *testing.T) {
	data := []byte(`{
		"title": "Old-Reel",
		"platform": "fb-video",
		"durationOption": "music",
		"fitToMusic": true,
		"imagePositions": ["top left", "30% 70%"],
		"mediaItems": [
			{"order": 1, "type": "video", "durationInFrames": 300, "fileName": "clip.mp4", "hashKey": null},
			{"order": 0, "type": "image", "durationInFrames": 120, "fileName": "a.jpg", "objectPosition": "center center", "hashKey": "2cf24dba5fb0a30e.jpg"}
		],
		"musicFileName": "song.mp3",
		"musicDuration": 42.5,
		"musicHashKey": null,
		"savedAt": "2025-01-02T03:04:05Z"
	}`)

	p, err := DecodeManifest(data)
	if err != nil {
		t.Fatalf("DecodeManifest() error = %v", err)
	}

	want := &Project{
		Title:      "Old-Reel",
		Platform:   PlatformFBVideo,
		Duration:   MatchAudio(),
		FitToAudio: true,
		Items: []Item{
			{MediaItem: timeline.MediaItem{
				Kind:                  timeline.KindImage,
				SourceRef:             "2cf24dba5fb0a30e.jpg",
				NaturalDurationFrames: 120,
				Transform:             timeline.Transform{PositionX: 0, PositionY: 0, Scale: 1},
				OriginalFileName:      "a.jpg",
			}},
			{
				MediaItem: timeline.MediaItem{
					Kind:                  timeline.KindVideo,
					NaturalDurationFrames: 300,
					Transform:             timeline.Transform{PositionX: 30, PositionY: 70, Scale: 1},
					OriginalFileName:      "clip.mp4",
				},
				PrivatePath: "media/1-clip.mp4",
			},
		},
		Audio: &AudioRef{
			FileName:        "song.mp3",
			DurationSeconds: 42.5,
			PrivatePath:     "music/song.mp3",
		},
		DissolveFrames: timeline.DefaultDissolveFrames,
		SavedAt:        time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if diff := cmp.Diff(want, p, projectCmpOpts...); diff != "" {
		t.Errorf("legacy decode mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDurationMode(t *testing.T) {
	tests := []struct {
		in      string
		want    DurationMode
		wantErr bool
	}{
		{"music", MatchAudio(), false},
		{"60", FixedSeconds(60), false},
		{"", DefaultDuration, false},
		{"0", DurationMode{}, true},
		{"forever", DurationMode{}, true},
	}
	for _, tt := range tests {
		got, err := ParseDurationMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseDurationMode(%q) error = %v", tt.in, err)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseDurationMode(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestPlatformDimensions(t *testing.T) {
	w, h := PlatformTikTok.Dimensions()
	if w != 1080 || h != 1920 {
		t.Errorf("tiktok = %dx%d", w, h)
	}
	if _, ok := ParsePlatform("vhs"); ok {
		t.Error("unexpected platform accepted")
	}
}
