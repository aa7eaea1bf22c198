package stormglass

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// httpDoer abstracts *http.Client for testability.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// transport wraps the HTTP client in a circuit breaker so a hard upstream
// outage stops burning credential quota and backoff time.
//
// Only network errors and 5xx responses count as breaker failures. Quota
// statuses (402/429) and parameter rejections (422) are ordinary responses:
// they say nothing about upstream health, and counting them would let a
// drained credential pool trip the breaker. The trip threshold sits well
// above one transient-retry budget so the rotation semantics of a single
// sweep are never cut short under normal failure mixes.
type transport struct {
	client  httpDoer
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func newTransport(client httpDoer) *transport {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "stormglass",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 30
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
	return &transport{client: client, breaker: cb}
}

// do executes the request through the breaker. A 5xx response is returned
// alongside a non-nil error so callers can classify it; 2xx/4xx responses
// return with a nil error.
func (t *transport) do(req *http.Request) (*http.Response, error) {
	return t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, fmt.Errorf("upstream returned %d", resp.StatusCode)
		}
		return resp, nil
	})
}

// breakerOpen reports whether the error came from an open circuit breaker,
// in which case retrying immediately is pointless.
func breakerOpen(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}
