package workflow

import (
	"strings"

	"podclip-backend/internal/storage"
)

// clipKeys picks the produced clips out of a listing. The source file is
// always skipped. A positive limit keeps only the most recent objects, which
// assumes the listing is ordered oldest first.
func clipKeys(objects []storage.Object, limit int) []string {
	var keys []string
	for _, obj := range objects {
		if obj.Key == "" || storage.IsOriginal(obj.Key) {
			continue
		}
		keys = append(keys, obj.Key)
	}

	if limit > 0 && len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}
	return keys
}

func withTrailingSlash(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}
