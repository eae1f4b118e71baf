package storage

import (
	"strings"

	"github.com/google/uuid"
)

const (
	originalSuffix = "original.mp4"
	youtubeFolder  = "youtube"
)

// NewUploadKey allocates the key for a freshly uploaded source video. The
// leading UUID segment is the job prefix its clips are written under.
func NewUploadKey() string {
	return uuid.New().String() + "/" + originalSuffix
}

// JobPrefix returns the folder holding a source file and its clips:
// "abc123/original.mp4" -> "abc123/".
func JobPrefix(s3Key string) string {
	first, _, _ := strings.Cut(s3Key, "/")
	return first + "/"
}

// YouTubePrefix scopes one YouTube job's outputs under the shared folder.
func YouTubePrefix(jobID uuid.UUID) string {
	return youtubeFolder + "/" + jobID.String() + "/"
}

func IsOriginal(key string) bool {
	return strings.HasSuffix(key, originalSuffix)
}
