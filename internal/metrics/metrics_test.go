package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestObserveCheckLabelsResult(t *testing.T) {
	m := New()
	m.ObserveCheck("up", 0.042)
	m.ObserveCheck("up", 0.050)
	m.ObserveCheck("http_5xx", 0.120)

	body := scrape(t, m)
	if !strings.Contains(body, `gentrack_checks_total{result="up"} 2`) {
		t.Fatalf("missing up counter in:\n%s", body)
	}
	if !strings.Contains(body, `gentrack_checks_total{result="http_5xx"} 1`) {
		t.Fatalf("missing http_5xx counter in:\n%s", body)
	}
	if !strings.Contains(body, "gentrack_probe_duration_seconds_count 3") {
		t.Fatalf("missing histogram count in:\n%s", body)
	}
}

func TestSchedulerCounters(t *testing.T) {
	m := New()
	m.IncSchedulerTick()
	m.IncSchedulerTick()
	m.IncCheckError()
	m.SetDueTargets(4)

	body := scrape(t, m)
	if !strings.Contains(body, "gentrack_scheduler_ticks_total 2") {
		t.Fatalf("missing tick counter in:\n%s", body)
	}
	if !strings.Contains(body, "gentrack_check_errors_total 1") {
		t.Fatalf("missing error counter in:\n%s", body)
	}
	if !strings.Contains(body, "gentrack_due_targets 4") {
		t.Fatalf("missing due gauge in:\n%s", body)
	}
}

func TestBuildInfoExposed(t *testing.T) {
	if !strings.Contains(scrape(t, New()), "gentrack_build_info") {
		t.Fatal("build info gauge not registered")
	}
}

func TestIsolatedRegistries(t *testing.T) {
	// Two instances must not panic on duplicate registration and must
	// not share counters.
	a, b := New(), New()
	a.IncSchedulerTick()
	if strings.Contains(scrape(t, b), "gentrack_scheduler_ticks_total 1") {
		t.Fatal("registries are shared")
	}
}
