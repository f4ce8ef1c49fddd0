package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reelforge/reelforge-agent/internal/apperr"
)

func TestClipName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		maxLen   int
		want     string
	}{
		{"camera roll duplicate", "IMG_0001 (1).HEIC", 160, "IMG_0001 (1).HEIC"},
		{"decomposed hangul", "\u1112\u1161\u11ab\u1100\u1173\u11af.mov", 160, "\ud55c\uae00.mov"},
		{"decomposed accent", "Cafe\u0301 terrace.jpg", 160, "Caf\u00e9 terrace.jpg"},
		{"line breaks from a pasted name", "drone\r\nsunset.mp4", 160, "dronesunset.mp4"},
		{"path and shell punctuation", "take:2/final*cut?.mp4", 160, "take_2_final_cut_.mp4"},
		{"punctuation runs collapse", "clip <<>> b.mp4", 160, "clip _ b.mp4"},
		{"only punctuation", "<<>>", 160, ""},
		{"truncated on a rune", "가나다라마바사.png", 3, "가나다"},
		{"truncation trims the cut", "beach _trip.jpg", 6, "beach"},
		{"no limit", strings.Repeat("a", 300), 0, strings.Repeat("a", 300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClipName(tt.fileName, tt.maxLen); got != tt.want {
				t.Errorf("ClipName(%q, %d) = %q, want %q", tt.fileName, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestValidateOutputDir(t *testing.T) {
	base := t.TempDir()
	edl := filepath.Join(base, "Summer-Reel.edl")
	if err := os.WriteFile(edl, []byte("TITLE: Summer-Reel\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateOutputDir(base); err != nil {
		t.Fatalf("ValidateOutputDir(%q) = %v, want nil", base, err)
	}

	for _, dir := range []string{
		"",
		"   ",
		filepath.Join(base, "exports"),
		edl,
		base + "/../" + filepath.Base(base),
		base + "/",
	} {
		if err := ValidateOutputDir(dir); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("ValidateOutputDir(%q) = %v, want ErrInvalidInput", dir, err)
		}
	}
}

func TestWriteFile_NameFromTitle(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFile(dir, "여름: 바다", "TITLE: x\n")
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if want := filepath.Join(dir, "여름_ 바다.edl"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	path, err = WriteFile(dir, "???", "TITLE: x\n")
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if filepath.Base(path) != "reelforge_export.edl" {
		t.Errorf("fallback name = %q", filepath.Base(path))
	}
}
