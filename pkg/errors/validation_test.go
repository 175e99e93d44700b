package errors

import (
	"strings"
	"testing"
)

func TestValidateTemplateID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "sanremo_story", false},
		{"valid with dash", "sanremo-post", false},
		{"valid with digits", "sanremo_post_16x9", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 65), true},
		{"uppercase", "Sanremo", true},
		{"leading underscore", "_story", true},
		{"space", "sanremo story", true},
		{"path traversal", "../story", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTemplateID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTemplateID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidTemplate) {
				t.Errorf("ValidateTemplateID(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidTemplate)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid png", "sanremo_story.png", false},
		{"valid without extension", "story", false},
		{"valid with spaces", "my story.png", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 256), true},
		{"slash", "out/story.png", true},
		{"backslash", "out\\story.png", true},
		{"traversal", "..png", true},
		{"hidden", ".story.png", true},
		{"null byte", "story\x00.png", true},
		{"newline", "story\n.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateImageURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://cdn.example.com/cover.jpg", false},
		{"http with query", "http://localhost:8080/a.png?size=1900", false},

		{"empty", "", true},
		{"relative", "/logo.svg", true},
		{"file scheme", "file:///etc/passwd", true},
		{"data uri", "data:image/png;base64,AAAA", true},
		{"no host", "https:///cover.jpg", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImageURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateImageURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
