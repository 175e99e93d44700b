package render

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/templatestudio/pkg/cache"
	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/httputil"
	"github.com/matzehuels/templatestudio/pkg/observability"
	"github.com/matzehuels/templatestudio/pkg/scene"
)

// maxImageBytes bounds a single image download.
const maxImageBytes = 32 << 20

// CacheBustParam is the query parameter appended by cache-busting fetches.
const CacheBustParam = "_"

// ResourceFetcher fetches embedded resources during a capture.
type ResourceFetcher interface {
	Fetch(ctx context.Context, src string, opts FetchRequest) (scene.Resource, error)
}

// FetchRequest is one resource fetch.
type FetchRequest struct {
	FetchOptions
	CacheBust    bool
	IncludeQuery bool
}

// Fetcher downloads images over HTTP with caching and retries. It serves
// both as the document [scene.Loader] and as the rasterizer's resource
// fetcher.
type Fetcher struct {
	client   *http.Client
	cache    cache.Cache
	keyer    cache.Keyer
	ttl      time.Duration
	attempts int
	backoff  time.Duration
	origin   string
	cors     bool
	logger   *log.Logger
	now      func() time.Time
}

// FetcherOption configures a [Fetcher].
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the HTTP client. Its cookie jar is only consulted for
// credentialed fetches.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithCache enables caching of fetched bytes.
func WithCache(c cache.Cache, k cache.Keyer, ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.cache = c
		if k != nil {
			f.keyer = k
		}
		f.ttl = ttl
	}
}

// WithRetry sets how many attempts a transient failure gets and the
// initial backoff.
func WithRetry(attempts int, backoff time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.attempts = attempts
		f.backoff = backoff
	}
}

// WithCORS enforces CORS: responses must carry an Access-Control-Allow-Origin
// header matching origin (or "*"). CORS-mode fetches without it fail and
// no-cors fetches come back tainted.
func WithCORS(origin string) FetcherOption {
	return func(f *Fetcher) {
		f.cors = true
		f.origin = origin
	}
}

// WithFetchLogger sets the logger.
func WithFetchLogger(l *log.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher returns a fetcher with a 15 second client timeout, three
// attempts and no cache.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		keyer:    cache.NewDefaultKeyer(),
		attempts: 3,
		backoff:  200 * time.Millisecond,
		logger:   log.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load implements [scene.Loader] the way an <img> element loads: CORS mode
// only with the crossorigin attribute, query kept in the cache key.
func (f *Fetcher) Load(ctx context.Context, req scene.LoadRequest) (scene.Resource, error) {
	mode, creds := ModeNoCORS, CredentialsInclude
	if req.CrossOrigin {
		mode, creds = ModeCORS, CredentialsOmit
	}
	return f.Fetch(ctx, req.Src, FetchRequest{
		FetchOptions: FetchOptions{Mode: mode, Credentials: creds},
		IncludeQuery: true,
	})
}

// Fetch downloads src. Cached bytes are used unless the request busts the
// cache; fresh untainted bytes are written back either way.
func (f *Fetcher) Fetch(ctx context.Context, src string, req FetchRequest) (scene.Resource, error) {
	key := f.keyer.ImageKey(src, req.IncludeQuery)

	if f.cache != nil && !req.CacheBust {
		data, hit, err := f.cache.Get(ctx, key)
		if err != nil {
			f.logger.Warn("image cache read failed", "src", src, "err", err)
		}
		if hit {
			observability.Cache().OnCacheHit(ctx, "img")
			return scene.Resource{Data: data}, nil
		}
		observability.Cache().OnCacheMiss(ctx, "img")
	}

	target := src
	if req.CacheBust {
		target = CacheBustURL(src, f.now().UnixNano())
	}

	var res scene.Resource
	err := httputil.Retry(ctx, f.attempts, f.backoff, func() error {
		var err error
		res, err = f.get(ctx, target, req.FetchOptions)
		return err
	})
	if err != nil {
		return scene.Resource{}, err
	}

	if f.cache != nil && !res.Tainted {
		if err := f.cache.Set(ctx, key, res.Data, f.ttl); err != nil {
			f.logger.Warn("image cache write failed", "src", src, "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "img", len(res.Data))
		}
	}
	return res, nil
}

func (f *Fetcher) get(ctx context.Context, target string, opts FetchOptions) (scene.Resource, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return scene.Resource{}, errors.New(errors.ErrCodeInvalidField, "unsupported image URL %q", target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return scene.Resource{}, errors.Wrap(errors.ErrCodeNetwork, err, "build request")
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/jpeg,image/*;q=0.8")
	if opts.Mode == ModeCORS && f.origin != "" {
		req.Header.Set("Origin", f.origin)
	}

	client := f.client
	if opts.Credentials != CredentialsInclude && client.Jar != nil {
		c := *client
		c.Jar = nil
		client = &c
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		if ctx.Err() != nil {
			return scene.Resource{}, ctx.Err()
		}
		return scene.Resource{}, &httputil.RetryableError{
			Err: errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", u.Redacted()),
		}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := errors.New(errors.ErrCodeNetwork, "fetch %s: %s", u.Redacted(), resp.Status)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return scene.Resource{}, &httputil.RetryableError{Err: err, After: httputil.RetryAfter(resp.Header, time.Now())}
		}
		return scene.Resource{}, err
	}

	tainted := false
	if f.cors && !f.allowed(resp.Header.Get("Access-Control-Allow-Origin")) {
		if opts.Mode == ModeCORS {
			return scene.Resource{}, errors.New(errors.ErrCodeNetwork,
				"fetch %s: blocked by CORS policy (no Access-Control-Allow-Origin)", u.Redacted())
		}
		tainted = true
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return scene.Resource{}, &httputil.RetryableError{
			Err: errors.Wrap(errors.ErrCodeNetwork, err, "read %s", u.Redacted()),
		}
	}
	if len(data) > maxImageBytes {
		return scene.Resource{}, errors.New(errors.ErrCodeNetwork, "image %s exceeds %d bytes", u.Redacted(), maxImageBytes)
	}
	return scene.Resource{Data: data, Tainted: tainted}, nil
}

func (f *Fetcher) allowed(acao string) bool {
	return acao == "*" || (acao != "" && acao == f.origin)
}

// CacheBustURL appends _=<nanos> to src, keeping existing query parameters
// in their original order.
func CacheBustURL(src string, nanos int64) string {
	param := CacheBustParam + "=" + strconv.FormatInt(nanos, 10)
	u, err := url.Parse(src)
	if err != nil {
		if strings.Contains(src, "?") {
			return src + "&" + param
		}
		return src + "?" + param
	}
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String()
}
