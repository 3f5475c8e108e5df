// Package model defines domain structs shared across the persistence
// layer, the monitor, and the API.
package model

import (
	"strings"
	"time"
)

// Target is a registered endpoint with a probe cadence and optional
// validation rules. ExpectedJSONKeys holds the comma-joined storage
// form; use SplitJSONKeys for the list form.
type Target struct {
	ID                int64      `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	URL               string     `db:"url" json:"url"`
	IntervalSeconds   int        `db:"interval_seconds" json:"interval_seconds"`
	TimeoutSeconds    int        `db:"timeout_seconds" json:"timeout_seconds"`
	ExpectedSubstring *string    `db:"expected_substring" json:"expected_substring"`
	ExpectedJSONKeys  *string    `db:"expected_json_keys" json:"expected_json_keys"`
	MaxLatencyMS      *int       `db:"max_latency_ms" json:"max_latency_ms"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	LastCheckedAt     *time.Time `db:"last_checked_at" json:"-"`
}

// Check is a single recorded probe outcome. Immutable once inserted.
type Check struct {
	ID           int64     `db:"id" json:"id"`
	TargetID     int64     `db:"target_id" json:"target_id"`
	CheckedAt    time.Time `db:"checked_at" json:"checked_at"`
	StatusCode   *int      `db:"status_code" json:"status_code"`
	LatencyMS    *int      `db:"latency_ms" json:"latency_ms"`
	IsUp         bool      `db:"is_up" json:"is_up"`
	ReasonCode   *string   `db:"reason_code" json:"reason_code"`
	ErrorMessage *string   `db:"error_message" json:"error_message"`
}

// CheckRef is the slice of a check the incident engine needs.
type CheckRef struct {
	ID        int64     `db:"id"`
	IsUp      bool      `db:"is_up"`
	CheckedAt time.Time `db:"checked_at"`
}

// Incident is a contiguous down-period for one target, open until
// recovery. The check references are internal bookkeeping and are not
// part of API responses.
type Incident struct {
	ID              int64      `db:"id" json:"id"`
	TargetID        int64      `db:"target_id" json:"target_id"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	EndedAt         *time.Time `db:"ended_at" json:"ended_at"`
	DurationSeconds *int       `db:"duration_seconds" json:"duration_seconds"`
	IsResolved      bool       `db:"is_resolved" json:"is_resolved"`
	ReasonCode      *string    `db:"reason_code" json:"reason_code"`
	ReasonMessage   *string    `db:"reason_message" json:"reason_message"`
	StartCheckID    *int64     `db:"start_check_id" json:"-"`
	RecoveryCheckID *int64     `db:"recovery_check_id" json:"-"`
}

// TargetSummary is a target joined with its most recent check and the
// 24h uptime ratio. This is the shape list/create endpoints return.
type TargetSummary struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	URL               string     `json:"url"`
	IntervalSeconds   int        `json:"interval_seconds"`
	TimeoutSeconds    int        `json:"timeout_seconds"`
	ExpectedSubstring *string    `json:"expected_substring"`
	ExpectedJSONKeys  []string   `json:"expected_json_keys"`
	MaxLatencyMS      *int       `json:"max_latency_ms"`
	CreatedAt         time.Time  `json:"created_at"`
	LastCheckedAt     *time.Time `json:"last_checked_at"`
	LastStatusCode    *int       `json:"last_status_code"`
	LastLatencyMS     *int       `json:"last_latency_ms"`
	LastIsUp          *bool      `json:"last_is_up"`
	LastReasonCode    *string    `json:"last_reason_code"`
	LastErrorMessage  *string    `json:"last_error_message"`
	Uptime24h         *float64   `json:"uptime_24h"`
}

// LastIncident is the most recent incident enriched with the target
// name, as embedded in reliability summaries.
type LastIncident struct {
	ID              int64      `db:"id" json:"id"`
	TargetID        int64      `db:"target_id" json:"target_id"`
	TargetName      string     `db:"target_name" json:"target_name"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	EndedAt         *time.Time `db:"ended_at" json:"ended_at"`
	DurationSeconds *int       `db:"duration_seconds" json:"duration_seconds"`
	IsResolved      bool       `db:"is_resolved" json:"is_resolved"`
	ReasonCode      *string    `db:"reason_code" json:"reason_code"`
	ReasonMessage   *string    `db:"reason_message" json:"reason_message"`
}

// ReliabilitySummary aggregates incident analytics for one target or,
// when built without a target filter, for the whole fleet.
type ReliabilitySummary struct {
	LastIncident   *LastIncident `json:"last_incident"`
	MTTRSeconds    *float64      `json:"mttr_seconds"`
	MTBFSeconds    *float64      `json:"mtbf_seconds"`
	IncidentsDay   int           `json:"incidents_day"`
	IncidentsWeek  int           `json:"incidents_week"`
	IncidentsMonth int           `json:"incidents_month"`
}

// Dashboard is the aggregate returned by GET /api/dashboard.
type Dashboard struct {
	TotalTargets    int                `json:"total_targets"`
	UpNow           int                `json:"up_now"`
	DownNow         int                `json:"down_now"`
	UnknownNow      int                `json:"unknown_now"`
	AvgUptime24h    *float64           `json:"avg_uptime_24h"`
	IncidentSummary ReliabilitySummary `json:"incident_summary"`
	Targets         []TargetSummary    `json:"targets"`
}

// SplitJSONKeys expands the comma-joined storage form of
// expected_json_keys into the list of dotted paths. Blank segments are
// dropped.
func SplitJSONKeys(raw *string) []string {
	if raw == nil {
		return []string{}
	}
	parts := strings.Split(*raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}

// JoinJSONKeys normalizes a list of dotted paths into the comma-joined
// storage form. Returns nil when no usable key remains.
func JoinJSONKeys(keys []string) *string {
	cleaned := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	joined := strings.Join(cleaned, ",")
	return &joined
}
