package collector

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPOptions configures the shared resty client of the network sources.
type HTTPOptions struct {
	Timeout      time.Duration
	Proxy        string
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	// ThrottleWait is the back-off after a 429 response. It may exceed
	// RetryMaxWait, which only caps the exponential backoff.
	ThrottleWait time.Duration
}

// DefaultThrottleWait is the back-off applied after a 429 response.
const DefaultThrottleWait = 15 * time.Second

// DefaultHTTPOptions retries three times with 2s..8s exponential backoff and
// waits 15s after a 429.
func DefaultHTTPOptions() HTTPOptions {
	return HTTPOptions{
		Timeout:      40 * time.Second,
		RetryCount:   3,
		RetryWait:    2 * time.Second,
		RetryMaxWait: 8 * time.Second,
		ThrottleWait: DefaultThrottleWait,
	}
}

// backoff is the wait before retry attempt n (1-based) of a non-throttled
// failure: RetryWait doubling per attempt, capped at RetryMaxWait.
func (o HTTPOptions) backoff(attempt int) time.Duration {
	wait := o.RetryWait
	for i := 1; i < attempt && wait < o.RetryMaxWait; i++ {
		wait *= 2
	}
	if o.RetryMaxWait > 0 && wait > o.RetryMaxWait {
		wait = o.RetryMaxWait
	}
	return wait
}

func newClient(opts HTTPOptions) *resty.Client {
	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; MarketResearch/1.0)")
	if opts.Proxy != "" {
		client.SetProxy(opts.Proxy)
	}
	client.SetRetryCount(opts.RetryCount)
	if opts.ThrottleWait <= 0 {
		opts.ThrottleWait = DefaultThrottleWait
	}
	client.SetRetryWaitTime(opts.RetryWait)
	// resty clamps any retry-after to the max wait, so the ceiling has to
	// cover the throttle wait. Ordinary failures stay capped by backoff.
	client.SetRetryMaxWaitTime(max(opts.RetryMaxWait, opts.ThrottleWait))
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
	})
	client.SetRetryAfter(func(_ *resty.Client, r *resty.Response) (time.Duration, error) {
		if r == nil {
			return opts.backoff(1), nil
		}
		if r.StatusCode() == http.StatusTooManyRequests {
			return opts.ThrottleWait, nil
		}
		return opts.backoff(r.Request.Attempt), nil
	})
	return client
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime accepts the date formats seen in search APIs and RSS feeds.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
