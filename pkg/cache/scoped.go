package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// This is useful when several studio instances share one Redis database:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "templatestudio:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ImageKey generates a prefixed key for a remote image.
func (k *ScopedKeyer) ImageKey(rawURL string, includeQuery bool) string {
	return k.prefix + k.inner.ImageKey(rawURL, includeQuery)
}

// PreviewKey generates a prefixed key for a rendered preview.
func (k *ScopedKeyer) PreviewKey(templateID, valuesHash string, scale float64) string {
	return k.prefix + k.inner.PreviewKey(templateID, valuesHash, scale)
}
