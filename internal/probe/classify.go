package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/gentrack/gentrack/internal/model"
)

// Reason codes recorded with failed checks. The set is closed: the API
// and dashboard key off these exact strings.
const (
	ReasonTimeout            = "timeout"
	ReasonDNSError           = "dns_error"
	ReasonSSLError           = "ssl_error"
	ReasonConnectionError    = "connection_error"
	ReasonUnknownError       = "unknown_error"
	ReasonHTTP4xx            = "http_4xx"
	ReasonHTTP5xx            = "http_5xx"
	ReasonLatencyExceeded    = "latency_exceeded"
	ReasonContentMismatch    = "content_mismatch"
	ReasonInvalidJSON        = "invalid_json"
	ReasonJSONSchemaMismatch = "json_schema_mismatch"
)

// Verdict is the classifier's up/down decision for one outcome.
// ReasonCode and ErrorMessage are nil when the target is up.
type Verdict struct {
	IsUp         bool
	ReasonCode   *string
	ErrorMessage *string
}

func down(code, message string) Verdict {
	return Verdict{ReasonCode: &code, ErrorMessage: &message}
}

// Classify turns a probe outcome into a verdict by applying, in order:
// transport error mapping, HTTP status gating, then the target's
// content rules (latency ceiling, expected substring, expected JSON
// keys). The first rule that fails decides the reason.
func Classify(target model.Target, out Outcome) Verdict {
	if out.Err != nil {
		code, message := classifyError(out.Err)
		return down(code, message)
	}

	// The prober always sets one of Err or StatusCode; treat a hand-built
	// outcome with neither as an unknown failure rather than panicking.
	if out.StatusCode == nil {
		return down(ReasonUnknownError, "Erro desconhecido.")
	}

	status := *out.StatusCode
	if status < 200 || status >= 400 {
		code := ReasonHTTP4xx
		if status >= 500 {
			code = ReasonHTTP5xx
		}
		return down(code, fmt.Sprintf("HTTP %d", status))
	}

	if target.MaxLatencyMS != nil && out.LatencyMS > *target.MaxLatencyMS {
		return down(ReasonLatencyExceeded,
			fmt.Sprintf("Latencia acima do maximo (%dms > %dms).", out.LatencyMS, *target.MaxLatencyMS))
	}

	if target.ExpectedSubstring != nil && *target.ExpectedSubstring != "" {
		if !bytes.Contains(out.Body, []byte(*target.ExpectedSubstring)) {
			return down(ReasonContentMismatch,
				fmt.Sprintf("Conteudo esperado nao encontrado: '%s'.", *target.ExpectedSubstring))
		}
	}

	if keys := model.SplitJSONKeys(target.ExpectedJSONKeys); len(keys) > 0 {
		var data any
		if err := json.Unmarshal(out.Body, &data); err != nil {
			return down(ReasonInvalidJSON, "Resposta nao e JSON valido.")
		}
		for _, path := range keys {
			if !jsonPathExists(data, path) {
				return down(ReasonJSONSchemaMismatch, "Chave JSON ausente: "+path)
			}
		}
	}

	return Verdict{IsUp: true}
}

// classifyError maps a transport error to a reason code. Typed checks
// run first; the string fallbacks catch wrapped errors that lost their
// type.
func classifyError(err error) (string, string) {
	text := err.Error()
	lowered := strings.ToLower(text)

	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout, "Timeout de conexao."
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonDNSError, "Erro de DNS."
	}
	if isTLSError(err) {
		return ReasonSSLError, "Erro SSL/TLS."
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout, "Timeout de conexao."
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ReasonConnectionError, "Falha de conexao: " + text
	}
	if strings.Contains(lowered, "tls") || strings.Contains(lowered, "ssl") ||
		strings.Contains(lowered, "certificate") {
		return ReasonSSLError, "Erro SSL/TLS."
	}
	if strings.Contains(lowered, "timed out") {
		return ReasonTimeout, "Timeout de conexao."
	}
	if text == "" {
		return ReasonUnknownError, "Erro desconhecido."
	}
	return ReasonUnknownError, text
}

func isTLSError(err error) bool {
	var (
		recordHeader tls.RecordHeaderError
		certVerify   *tls.CertificateVerificationError
		unknownAuth  x509.UnknownAuthorityError
		hostname     x509.HostnameError
		certInvalid  x509.CertificateInvalidError
	)
	return errors.As(err, &recordHeader) ||
		errors.As(err, &certVerify) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostname) ||
		errors.As(err, &certInvalid)
}

// jsonPathExists walks a dotted path through decoded JSON. Object
// segments must be present keys; array segments must be in-range
// numeric indexes.
func jsonPathExists(data any, path string) bool {
	current := data
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[part]
			if !ok {
				return false
			}
			current = value
		case []any:
			idx, ok := arrayIndex(part, len(node))
			if !ok {
				return false
			}
			current = node[idx]
		default:
			return false
		}
	}
	return true
}

func arrayIndex(part string, length int) (int, bool) {
	if part == "" {
		return 0, false
	}
	idx := 0
	for _, r := range part {
		if r < '0' || r > '9' {
			return 0, false
		}
		idx = idx*10 + int(r-'0')
		if idx >= length {
			return 0, false
		}
	}
	return idx, true
}
