package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every adapter failure into a closed taxonomy.
// Adapters must translate provider-specific HTTP/JSON error bodies into
// exactly one kind plus a human-readable message.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindMissingCredential
	KindInvalidCredential
	KindQuotaExceeded
	KindTransientNetwork
	KindMalformedResponse
	KindTimeout
	KindNoCredentialsConfigured
	KindGenerationInProgress
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing_credential"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindTransientNetwork:
		return "transient_network"
	case KindMalformedResponse:
		return "malformed_response"
	case KindTimeout:
		return "timeout"
	case KindNoCredentialsConfigured:
		return "no_credentials_configured"
	case KindGenerationInProgress:
		return "generation_in_progress"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by adapters and the orchestrator.
// Remediation carries actionable guidance ("add an API key in settings",
// "try another model") so the UI never has to show a raw provider body.
type Error struct {
	Kind        ErrorKind
	Provider    Provider
	Message     string
	Remediation string
}

func (e *Error) Error() string {
	if e.Remediation != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Provider.DisplayName(), e.Message, e.Remediation)
	}
	return fmt.Sprintf("%s: %s", e.Provider.DisplayName(), e.Message)
}

// Errf builds a provider Error with a formatted message.
func Errf(p Provider, kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Provider: p, Message: fmt.Sprintf(format, args...)}
}

// MissingCredentialError reports an absent API key for a key-requiring provider.
func MissingCredentialError(p Provider) *Error {
	return &Error{
		Kind:        KindMissingCredential,
		Provider:    p,
		Message:     fmt.Sprintf("%s API key is required", p.DisplayName()),
		Remediation: "add it in settings",
	}
}

// KindOf extracts the taxonomy kind from any error chain.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// AsError returns the provider Error in the chain, or nil.
func AsError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}
