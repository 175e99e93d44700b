// Package httputil provides HTTP helpers shared by the image fetcher.
//
// # Retry
//
// [Retry] re-runs an operation when it fails with a [RetryableError]:
//
//	err := httputil.Retry(ctx, 3, 200*time.Millisecond, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    ...
//	})
//
// Callers decide what is transient. The image fetcher treats network errors,
// 5xx and 429 responses as retryable and everything else as final. A
// Retry-After header, parsed by [RetryAfter], stretches the next delay.
//
// Retry is only ever applied to individual resource fetches. A PNG export is
// a single attempt and is never retried.
package httputil
