package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
)

// errorBody covers the two JSON error shapes the supported providers return:
// {"error": {"message": "..."}} (OpenAI, Mistral, Deepseek, Gemini) and
// a bare {"message": "..."} / {"detail": "..."} (Replicate, Stability).
type errorBody struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// ClassifyHTTP maps a non-2xx provider response onto the error taxonomy.
// The human-readable message from the body is preserved; the raw body never
// reaches the caller.
func ClassifyHTTP(p Provider, status int, body []byte) *Error {
	msg := extractMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}

	kind := KindMalformedResponse
	lower := strings.ToLower(msg)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindInvalidCredential
	case status == http.StatusTooManyRequests:
		kind = KindQuotaExceeded
	case strings.Contains(lower, "quota"):
		// OpenAI reports exhausted quota as a 429 or in-body message
		// ("exceeded your current quota") depending on account state.
		kind = KindQuotaExceeded
	case strings.Contains(lower, "invalid") && strings.Contains(lower, "api key"):
		kind = KindInvalidCredential
	case status >= 500:
		kind = KindTransientNetwork
	}

	e := &Error{Kind: kind, Provider: p, Message: msg}
	switch kind {
	case KindInvalidCredential:
		e.Remediation = "check the " + p.DisplayName() + " API key in settings"
	case KindQuotaExceeded:
		e.Remediation = "update your billing or try another model"
	case KindTransientNetwork:
		e.Remediation = "try again in a moment"
	}
	return e
}

// ClassifyTransport maps a failed HTTP round trip (no response at all) onto
// the taxonomy: deadline errors become Timeout, everything else is treated
// as a transient network failure.
func ClassifyTransport(p Provider, err error) *Error {
	kind := KindTransientNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{
		Kind:        kind,
		Provider:    p,
		Message:     "could not reach " + p.DisplayName() + ": " + err.Error(),
		Remediation: "check your connection or try another model",
	}
}

func extractMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if eb.Error != nil && eb.Error.Message != "" {
		return eb.Error.Message
	}
	if eb.Message != "" {
		return eb.Message
	}
	return eb.Detail
}
