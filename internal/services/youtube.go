package services

import (
	"regexp"
	"strings"

	yt "github.com/kkdai/youtube/v2"
)

var youtubeURLRegex = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)`)

// ValidateYouTubeURL accepts watch, short-link and embed URLs and returns the
// video id. Anything else is rejected before a job is created.
func ValidateYouTubeURL(raw string) (string, error) {
	url := strings.TrimSpace(raw)
	if url == "" {
		return "", &ValidationError{Fields: map[string]string{"url": "YouTube URL is required"}}
	}

	if !youtubeURLRegex.MatchString(url) {
		return "", &ValidationError{Fields: map[string]string{"url": "Invalid YouTube URL"}}
	}

	videoID, err := yt.ExtractVideoID(url)
	if err != nil || len(videoID) != 11 {
		return "", &ValidationError{Fields: map[string]string{"url": "Invalid YouTube URL"}}
	}

	return videoID, nil
}
