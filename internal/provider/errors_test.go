package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestProviderCredentialKeys(t *testing.T) {
	local := []Provider{Ollama, LocalDiffusion, LocalTTS, Unknown}
	for _, p := range local {
		if p.RequiresAPIKey() {
			t.Errorf("%v should not require a key", p)
		}
	}

	remote := []Provider{OpenAI, Gemini, Mistral, Deepseek, Replicate, Stability, ElevenLabs}
	seen := map[string]Provider{}
	for _, p := range remote {
		key := p.CredentialKey()
		if key == "" {
			t.Errorf("%v has no credential key", p)
		}
		if prev, dup := seen[key]; dup {
			t.Errorf("%v and %v share key %q", prev, p, key)
		}
		seen[key] = p
	}
}

func TestErrorFormatting(t *testing.T) {
	err := MissingCredentialError(OpenAI)
	if !strings.Contains(err.Error(), "OpenAI API key") {
		t.Errorf("message = %q", err.Error())
	}
	if !strings.Contains(err.Error(), "settings") {
		t.Errorf("message %q has no settings hint", err.Error())
	}
}

func TestKindOfUnwraps(t *testing.T) {
	inner := Errf(Gemini, KindQuotaExceeded, "quota")
	wrapped := fmt.Errorf("generation failed: %w", inner)

	if KindOf(wrapped) != KindQuotaExceeded {
		t.Errorf("kind = %v", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Errorf("plain error kind = %v", KindOf(errors.New("plain")))
	}
	if AsError(wrapped) == nil {
		t.Error("AsError failed to unwrap")
	}
}

func TestClassifyHTTPTable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, ``, KindInvalidCredential},
		{"forbidden", http.StatusForbidden, ``, KindInvalidCredential},
		{"rate limited", http.StatusTooManyRequests, ``, KindQuotaExceeded},
		{"quota message", http.StatusBadRequest, `{"error":{"message":"You exceeded your current quota"}}`, KindQuotaExceeded},
		{"invalid key message", http.StatusBadRequest, `{"error":{"message":"Invalid API key provided"}}`, KindInvalidCredential},
		{"server error", http.StatusBadGateway, ``, KindTransientNetwork},
		{"replicate detail", http.StatusBadRequest, `{"detail":"version does not exist"}`, KindMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ClassifyHTTP(OpenAI, tt.status, []byte(tt.body))
			if e.Kind != tt.want {
				t.Errorf("kind = %v, want %v", e.Kind, tt.want)
			}
		})
	}
}

func TestClassifyHTTPKeepsProviderMessage(t *testing.T) {
	e := ClassifyHTTP(Replicate, http.StatusBadRequest, []byte(`{"detail":"version does not exist"}`))
	if !strings.Contains(e.Message, "version does not exist") {
		t.Errorf("message = %q", e.Message)
	}
}
