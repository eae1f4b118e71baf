package services

import (
	"errors"
	"testing"
)

func TestValidateYouTubeURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantID  string
		wantErr bool
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"watch url with params", "https://youtube.com/watch?v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ", false},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"embed", "youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"not a url", "not-a-url", "", true},
		{"empty", "   ", "", true},
		{"other host", "https://vimeo.com/123456", "", true},
		{"shorts not accepted", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ValidateYouTubeURL(tc.url)
			if tc.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if verr.Fields["url"] == "" {
					t.Errorf("expected url field error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tc.wantID {
				t.Errorf("Expected video id %q, got %q", tc.wantID, id)
			}
		})
	}
}
