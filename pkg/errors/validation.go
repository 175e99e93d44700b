package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// templateIDRegex matches template identifiers such as "sanremo_story".
var templateIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateTemplateID validates a template identifier.
// Identifiers are lowercase ASCII words joined by underscores or dashes, at most 64 characters.
func ValidateTemplateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidTemplate, "template id cannot be empty")
	}
	if len(id) > 64 {
		return New(ErrCodeInvalidTemplate, "template id too long (max 64 characters)")
	}
	if !templateIDRegex.MatchString(id) {
		return New(ErrCodeInvalidTemplate, "invalid template id: %q", id)
	}
	return nil
}

// ValidateFilename validates an export filename for safety.
// It ensures the filename is a simple basename without path components.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - No hidden files (leading dot)
//   - Maximum length of 255 characters
func ValidateFilename(name string) error {
	if name == "" {
		return New(ErrCodeInvalidFilename, "filename cannot be empty")
	}
	if len(name) > 255 {
		return New(ErrCodeInvalidFilename, "filename too long (max 255 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidFilename, "filename contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidFilename, "filename cannot contain path separators")
	}
	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidFilename, "filename cannot contain path traversal sequences (..)")
	}
	if strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidFilename, "filename cannot be a hidden file")
	}

	return nil
}

// ValidateImageURL validates a remote image reference.
// It ensures the URL parses and has a safe scheme (http or https) and a host.
func ValidateImageURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidField, "image URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidField, err, "invalid image URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidField, "image URL must use http or https scheme")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidField, "image URL must include a host")
	}

	return nil
}
