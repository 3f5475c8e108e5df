package probe

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gentrack/gentrack/internal/model"
)

func TestProbeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "GenTrack/1.0" {
			t.Errorf("User-Agent = %q, want GenTrack/1.0", got)
		}
		if got := r.Header.Get("Accept"); got != "*/*" {
			t.Errorf("Accept = %q, want */*", got)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	out := New().Probe(context.Background(), srv.URL, 5*time.Second)
	if out.Err != nil {
		t.Fatalf("Err = %v", out.Err)
	}
	if out.StatusCode == nil || *out.StatusCode != 200 {
		t.Fatalf("StatusCode = %v, want 200", out.StatusCode)
	}
	if string(out.Body) != "hello" {
		t.Fatalf("Body = %q, want hello", out.Body)
	}
	if out.LatencyMS < 0 {
		t.Fatalf("LatencyMS = %d", out.LatencyMS)
	}
	if out.StartedAt.IsZero() || out.StartedAt.Location() != time.UTC {
		t.Fatalf("StartedAt = %v, want non-zero UTC", out.StartedAt)
	}
}

func TestProbeCapsBody(t *testing.T) {
	big := bytes.Repeat([]byte("x"), maxBodyBytes+512)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(big)
	}))
	defer srv.Close()

	out := New().Probe(context.Background(), srv.URL, 5*time.Second)
	if out.Err != nil {
		t.Fatalf("Err = %v", out.Err)
	}
	// The literal pins the cap: 1_000_000, not 1 MiB.
	if len(out.Body) != 1_000_000 {
		t.Fatalf("len(Body) = %d, want 1000000", len(out.Body))
	}
}

func TestProbeDiscardsBytesBeyondCap(t *testing.T) {
	// The marker sits just past the cap; a cap applied at read time
	// must keep it out of the captured body, so the substring rule
	// cannot match on bytes the check never retained.
	body := append(bytes.Repeat([]byte("x"), 1_000_000), []byte("ready")...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	out := New().Probe(context.Background(), srv.URL, 5*time.Second)
	if out.Err != nil {
		t.Fatalf("Err = %v", out.Err)
	}
	if bytes.Contains(out.Body, []byte("ready")) {
		t.Fatal("body retained bytes beyond the cap")
	}

	v := Classify(model.Target{ExpectedSubstring: strPtr("ready")}, out)
	if v.IsUp {
		t.Fatal("want content_mismatch for marker beyond the cap")
	}
	if v.ReasonCode == nil || *v.ReasonCode != ReasonContentMismatch {
		t.Fatalf("reason = %v, want %s", v.ReasonCode, ReasonContentMismatch)
	}
}

func TestProbeSkipsBodyOnFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("oops"))
	}))
	defer srv.Close()

	out := New().Probe(context.Background(), srv.URL, 5*time.Second)
	if out.Err != nil {
		t.Fatalf("Err = %v", out.Err)
	}
	if out.StatusCode == nil || *out.StatusCode != 500 {
		t.Fatalf("StatusCode = %v, want 500", out.StatusCode)
	}
	if out.Body != nil {
		t.Fatalf("Body = %q, want nil", out.Body)
	}

	v := Classify(model.Target{}, out)
	if v.IsUp || *v.ReasonCode != ReasonHTTP5xx || *v.ErrorMessage != "HTTP 500" {
		t.Fatalf("verdict = %+v", v)
	}
}

func TestProbeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	out := New().Probe(context.Background(), srv.URL, 30*time.Millisecond)
	if out.Err == nil {
		t.Fatal("want transport error")
	}
	reason, msg := classifyError(out.Err)
	if reason != ReasonTimeout {
		t.Fatalf("reason = %s (%v), want timeout", reason, out.Err)
	}
	if msg != "Timeout de conexao." {
		t.Fatalf("message = %q", msg)
	}
}

func TestProbeConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	out := New().Probe(context.Background(), url, 2*time.Second)
	if out.Err == nil {
		t.Fatal("want transport error")
	}
	if out.StatusCode != nil {
		t.Fatalf("StatusCode = %v, want nil", *out.StatusCode)
	}
	reason, _ := classifyError(out.Err)
	if reason != ReasonConnectionError {
		t.Fatalf("reason = %s (%v), want connection_error", reason, out.Err)
	}
}
