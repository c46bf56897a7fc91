// Package httputil provides the HTTP plumbing used by the photo prefetcher.
//
// [Retry] re-runs an operation with exponential backoff while it fails with
// a [RetryableError]. [Fetch] performs a GET and classifies failures so that
// network errors, 429 and 5xx responses are retried and everything else is
// returned immediately:
//
//	var body []byte
//	err := httputil.Retry(ctx, 3, 200*time.Millisecond, func() error {
//	    var err error
//	    body, _, err = httputil.Fetch(ctx, client, url, maxBytes)
//	    return err
//	})
package httputil
