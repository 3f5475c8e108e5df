// Package probe executes HTTP GET checks against monitored targets and
// classifies the outcome into the reason taxonomy stored with each check.
package probe

import (
	"context"
	"io"
	"net/http"
	"time"
)

const (
	// maxBodyBytes caps how much of a response body is read for content
	// rule evaluation. Bytes beyond the cap are discarded at read time
	// and never reach the classifier.
	maxBodyBytes = 1_000_000

	userAgent = "GenTrack/1.0"
)

// Outcome is the raw result of one GET against a target, before the
// classifier turns it into an up/down verdict.
type Outcome struct {
	// StartedAt is the wall-clock moment the probe began. It becomes the
	// check's checked_at and the started_at of any incident it opens.
	StartedAt time.Time
	// StatusCode is nil when the request never produced a response.
	StatusCode *int
	// LatencyMS covers the full exchange including the body read.
	LatencyMS int
	// Body holds up to maxBodyBytes of the response, only for statuses in
	// the success range.
	Body []byte
	// Err is the transport error, nil when a response arrived. A body
	// read failure sets Err while keeping StatusCode.
	Err error
}

// Prober issues probe requests. Timeouts are applied per request via
// context so targets with different budgets share one client.
type Prober struct {
	client *http.Client
}

// New creates a Prober. Keep-alives are disabled so every probe pays
// the full DNS/connect/TLS cost and the measured latency reflects what
// a fresh client would see.
func New() *Prober {
	return &Prober{
		client: &http.Client{
			Transport: &http.Transport{
				DisableKeepAlives: true,
				ForceAttemptHTTP2: true,
			},
		},
	}
}

// Probe runs a single GET against url with the given timeout budget.
// It never returns an error: failures are recorded in the Outcome for
// the classifier.
func (p *Prober) Probe(ctx context.Context, url string, timeout time.Duration) Outcome {
	start := time.Now()
	out := Outcome{StartedAt: start.UTC()}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		out.LatencyMS = elapsedMS(start)
		out.Err = err
		return out
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := p.client.Do(req)
	if err != nil {
		out.LatencyMS = elapsedMS(start)
		out.Err = err
		return out
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	out.StatusCode = &code

	if code >= 200 && code < 400 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		out.LatencyMS = elapsedMS(start)
		if err != nil {
			out.Err = err
			return out
		}
		out.Body = body
		return out
	}

	out.LatencyMS = elapsedMS(start)
	return out
}

func elapsedMS(start time.Time) int {
	return int(time.Since(start).Milliseconds())
}
