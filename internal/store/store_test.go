package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/gentrack/gentrack/internal/model"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "pgx")), mock
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertTargetReturnsID(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO targets").
		WithArgs("API", "https://api.example.com/health", 60, 8, nil, nil, nil, created).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := s.InsertTarget(context.Background(), model.Target{
		Name:            "API",
		URL:             "https://api.example.com/health",
		IntervalSeconds: 60,
		TimeoutSeconds:  8,
		CreatedAt:       created,
	})
	if err != nil {
		t.Fatalf("InsertTarget: %v", err)
	}
	if id != 7 {
		t.Fatalf("id = %d, want 7", id)
	}
	expectMet(t, mock)
}

func TestInsertTargetDuplicateURL(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO targets").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	_, err := s.InsertTarget(context.Background(), model.Target{Name: "API", URL: "https://dup.example.com"})
	if !errors.Is(err, ErrDuplicateURL) {
		t.Fatalf("err = %v, want ErrDuplicateURL", err)
	}
	expectMet(t, mock)
}

func TestGetTargetNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM targets WHERE id").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetTarget(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	expectMet(t, mock)
}

func TestDeleteTarget(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM targets").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := s.DeleteTarget(context.Background(), 3); err != nil {
		t.Fatalf("DeleteTarget: %v", err)
	}

	mock.ExpectExec("DELETE FROM targets").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := s.DeleteTarget(context.Background(), 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	expectMet(t, mock)
}

func TestDueTargetsFiltersOnInterval(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	created := now.Add(-time.Hour)

	cols := []string{
		"id", "name", "url", "interval_seconds", "timeout_seconds",
		"expected_substring", "expected_json_keys", "max_latency_ms",
		"created_at", "last_checked_at",
	}
	rows := sqlmock.NewRows(cols).
		AddRow(int64(1), "never-checked", "https://a.example.com", 60, 8, nil, nil, nil, created, nil).
		AddRow(int64(2), "fresh", "https://b.example.com", 60, 8, nil, nil, nil, created, now.Add(-30*time.Second)).
		AddRow(int64(3), "stale", "https://c.example.com", 60, 8, nil, nil, nil, created, now.Add(-60*time.Second))
	mock.ExpectQuery("FROM targets t").WillReturnRows(rows)

	due, err := s.DueTargets(context.Background(), now)
	if err != nil {
		t.Fatalf("DueTargets: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("len(due) = %d, want 2", len(due))
	}
	if due[0].ID != 1 || due[1].ID != 3 {
		t.Fatalf("due ids = %d,%d, want 1,3", due[0].ID, due[1].ID)
	}
	expectMet(t, mock)
}

func TestBeginCheckTxTakesAdvisoryLock(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(LockKey(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := s.BeginCheckTx(context.Background(), 42)
	if err != nil {
		t.Fatalf("BeginCheckTx: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	expectMet(t, mock)
}

func TestLockKeyIsStable(t *testing.T) {
	if LockKey(1) != LockKey(1) {
		t.Fatal("LockKey not deterministic")
	}
	if LockKey(1) == LockKey(2) {
		t.Fatal("LockKey collides for adjacent ids")
	}
}

func TestLastCheckNilWhenNeverProbed(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, is_up, checked_at").
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	tx, err := s.BeginCheckTx(context.Background(), 5)
	if err != nil {
		t.Fatalf("BeginCheckTx: %v", err)
	}
	defer tx.Rollback()

	ref, err := tx.LastCheck(context.Background(), 5)
	if err != nil {
		t.Fatalf("LastCheck: %v", err)
	}
	if ref != nil {
		t.Fatalf("ref = %+v, want nil", ref)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	expectMet(t, mock)
}

func TestInsertCheckReturnsID(t *testing.T) {
	s, mock := newMockStore(t)
	checkedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	status := 200
	latency := 42

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO checks").
		WithArgs(int64(5), checkedAt, &status, &latency, true, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	tx, err := s.BeginCheckTx(context.Background(), 5)
	if err != nil {
		t.Fatalf("BeginCheckTx: %v", err)
	}
	id, err := tx.InsertCheck(context.Background(), model.Check{
		TargetID:   5,
		CheckedAt:  checkedAt,
		StatusCode: &status,
		LatencyMS:  &latency,
		IsUp:       true,
	})
	if err != nil {
		t.Fatalf("InsertCheck: %v", err)
	}
	if id != 11 {
		t.Fatalf("id = %d, want 11", id)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	expectMet(t, mock)
}

func TestResolveIncident(t *testing.T) {
	s, mock := newMockStore(t)
	endedAt := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE incidents").
		WithArgs(endedAt, int64(300), int64(12), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := s.BeginCheckTx(context.Background(), 5)
	if err != nil {
		t.Fatalf("BeginCheckTx: %v", err)
	}
	if err := tx.ResolveIncident(context.Background(), 9, endedAt, 300, 12); err != nil {
		t.Fatalf("ResolveIncident: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	expectMet(t, mock)
}

func TestTargetSummariesExpandsJSONKeys(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	keys := "status,data.items.0.id"

	cols := []string{
		"id", "name", "url", "interval_seconds", "timeout_seconds",
		"expected_substring", "expected_json_keys", "max_latency_ms", "created_at",
		"last_checked_at", "last_status_code", "last_latency_ms", "last_is_up",
		"last_reason_code", "last_error_message", "uptime_24h",
	}
	rows := sqlmock.NewRows(cols).
		AddRow(int64(1), "API", "https://api.example.com", 60, 8, nil, keys, nil, now.Add(-time.Hour),
			nil, nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery("FROM targets t").WithArgs(now.Add(-24 * time.Hour)).WillReturnRows(rows)

	got, err := s.TargetSummaries(context.Background(), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("TargetSummaries: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if len(got[0].ExpectedJSONKeys) != 2 || got[0].ExpectedJSONKeys[0] != "status" || got[0].ExpectedJSONKeys[1] != "data.items.0.id" {
		t.Fatalf("ExpectedJSONKeys = %v", got[0].ExpectedJSONKeys)
	}
	if got[0].Uptime24h != nil {
		t.Fatalf("Uptime24h = %v, want nil", *got[0].Uptime24h)
	}
	expectMet(t, mock)
}

func TestReliabilityEmptyFleet(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM incidents i").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("FROM incidents").
		WillReturnRows(sqlmock.NewRows([]string{"day_count", "week_count", "month_count", "mttr_seconds"}).
			AddRow(0, 0, 0, nil))
	mock.ExpectQuery("WITH resolved AS").
		WillReturnRows(sqlmock.NewRows([]string{"mtbf_seconds"}).AddRow(nil))

	got, err := s.Reliability(context.Background(), nil)
	if err != nil {
		t.Fatalf("Reliability: %v", err)
	}
	if got.LastIncident != nil {
		t.Fatalf("LastIncident = %+v, want nil", got.LastIncident)
	}
	if got.MTTRSeconds != nil || got.MTBFSeconds != nil {
		t.Fatal("MTTR/MTBF should be nil with no incidents")
	}
	if got.IncidentsDay != 0 || got.IncidentsWeek != 0 || got.IncidentsMonth != 0 {
		t.Fatalf("counts = %d/%d/%d, want 0/0/0", got.IncidentsDay, got.IncidentsWeek, got.IncidentsMonth)
	}
	expectMet(t, mock)
}
