package storage

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestJobPrefix(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"abc123/original.mp4", "abc123/"},
		{"abc/def/clip_0.mp4", "abc/"},
		{"loose.mp4", "loose.mp4/"},
	}

	for _, tc := range tests {
		if got := JobPrefix(tc.key); got != tc.want {
			t.Errorf("JobPrefix(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestIsOriginal(t *testing.T) {
	if !IsOriginal("abc/original.mp4") {
		t.Error("expected original.mp4 to be the source file")
	}
	if IsOriginal("abc/clip_0.mp4") {
		t.Error("clip must not be treated as the source file")
	}
}

func TestNewUploadKey(t *testing.T) {
	key := NewUploadKey()

	prefix, rest, ok := strings.Cut(key, "/")
	if !ok {
		t.Fatalf("expected a folder in %q", key)
	}
	if _, err := uuid.Parse(prefix); err != nil {
		t.Errorf("expected uuid prefix, got %q", prefix)
	}
	if rest != "original.mp4" {
		t.Errorf("expected original.mp4, got %q", rest)
	}
	if !IsOriginal(key) {
		t.Errorf("upload key %q must be recognised as the source file", key)
	}
	if JobPrefix(key) != prefix+"/" {
		t.Errorf("job prefix mismatch for %q", key)
	}
}

func TestYouTubePrefix(t *testing.T) {
	id := uuid.MustParse("5b0c5b8e-8c3a-4e57-9d6b-0a4f9f5f2c11")
	if got := YouTubePrefix(id); got != "youtube/5b0c5b8e-8c3a-4e57-9d6b-0a4f9f5f2c11/" {
		t.Errorf("unexpected prefix %q", got)
	}
}
