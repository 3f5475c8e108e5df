package service

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// JSONKeys accepts either a JSON array of strings or a single
// comma-separated string, so both payload styles reach the same
// normalized form.
type JSONKeys []string

func (k *JSONKeys) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*k = list
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*k = strings.Split(text, ",")
		return nil
	}
	return fmt.Errorf("expected_json_keys deve ser uma lista ou uma string separada por virgulas")
}

// TargetPayload is the create-target request body. Absent interval and
// timeout fall back to the configured defaults.
type TargetPayload struct {
	Name              string   `json:"name"`
	URL               string   `json:"url"`
	IntervalSeconds   *int     `json:"interval_seconds"`
	TimeoutSeconds    *int     `json:"timeout_seconds"`
	ExpectedSubstring string   `json:"expected_substring"`
	ExpectedJSONKeys  JSONKeys `json:"expected_json_keys"`
	MaxLatencyMS      *int     `json:"max_latency_ms"`
}

func isValidHTTPURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
