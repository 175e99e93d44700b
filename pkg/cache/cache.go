// Package cache provides byte caches for remote resources and rendered previews.
//
// Three backends implement [Cache]:
//   - [FileCache]: hash-sharded files under the user cache directory (CLI default)
//   - [RedisCache]: a shared Redis instance, for studio servers running side by side
//   - [NullCache]: caching disabled
//
// Keys are produced by a [Keyer] so that every caller derives them the same way:
//
//	k := cache.NewDefaultKeyer()
//	key := k.ImageKey("https://cdn.example.com/cover.jpg?size=1900", true)
//	if data, hit, err := c.Get(ctx, key); err == nil && hit {
//	    // use data
//	}
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional time-to-live.
// Implementations must be safe for concurrent use; the image barrier fetches
// every image of a composition in parallel.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TTLs for the cached value kinds.
const (
	// TTLImage bounds how long a fetched remote image is reused by warm-up
	// captures and previews. Final captures always bypass it.
	TTLImage = 24 * time.Hour

	// TTLPreview bounds how long a rendered preview thumbnail is reused.
	TTLPreview = 10 * time.Minute
)

// Keyer derives cache keys.
type Keyer interface {
	// ImageKey returns the key for a remote image. When includeQuery is false
	// the query string is dropped so that URLs differing only in query share an entry.
	ImageKey(rawURL string, includeQuery bool) string

	// PreviewKey returns the key for a rendered preview of a template with the
	// given resolved values hash at the given scale.
	PreviewKey(templateID, valuesHash string, scale float64) string
}
