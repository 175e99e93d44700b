package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
)

// DefaultKeyer derives unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key scheme.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ImageKey hashes the (optionally query-stripped) URL under the "img" prefix.
func (DefaultKeyer) ImageKey(rawURL string, includeQuery bool) string {
	if !includeQuery {
		if u, err := url.Parse(rawURL); err == nil {
			u.RawQuery = ""
			u.Fragment = ""
			rawURL = u.String()
		}
	}
	return hashKey("img", rawURL)
}

// PreviewKey hashes the template, values hash and scale under the "preview" prefix.
func (DefaultKeyer) PreviewKey(templateID, valuesHash string, scale float64) string {
	return hashKey("preview", templateID, valuesHash, strconv.FormatFloat(scale, 'f', 3, 64))
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey returns prefix:sha256(parts). Parts are NUL-separated so that
// ("ab", "c") and ("a", "bc") differ.
func hashKey(prefix string, parts ...string) string {
	return prefix + ":" + Hash([]byte(strings.Join(parts, "\x00")))
}
