// Package handlers exposes the REST and WebSocket surface: story CRUD and
// generation, credential management, media serving, and the playback
// control channel.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/playback"
	"github.com/tale-forge/taleforge/internal/provider"
	"github.com/tale-forge/taleforge/internal/story"
)

// Handler contains all HTTP handlers
type Handler struct {
	stories *story.Service
	creds   credentials.Store
	engine  *playback.Engine
}

// NewHandler creates a new handler
func NewHandler(stories *story.Service, creds credentials.Store, engine *playback.Engine) *Handler {
	return &Handler{
		stories: stories,
		creds:   creds,
		engine:  engine,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeProviderError maps the error taxonomy onto HTTP statuses and keeps
// the remediation hint in the payload.
func writeProviderError(w http.ResponseWriter, err error) {
	pe := provider.AsError(err)
	if pe == nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch pe.Kind {
	case provider.KindMissingCredential, provider.KindInvalidCredential, provider.KindNoCredentialsConfigured:
		status = http.StatusUnprocessableEntity
	case provider.KindQuotaExceeded:
		status = http.StatusTooManyRequests
	case provider.KindTransientNetwork, provider.KindMalformedResponse:
		status = http.StatusBadGateway
	case provider.KindTimeout:
		status = http.StatusGatewayTimeout
	case provider.KindGenerationInProgress:
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":       pe.Message,
		"kind":        pe.Kind.String(),
		"provider":    pe.Provider.String(),
		"remediation": pe.Remediation,
	})
}
