package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/provider/voice"
)

// ListCredentials handles GET /v1/credentials. Values are never returned;
// the response only reports which keys are configured.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	configured := map[string]bool{}
	for _, key := range credentials.Keys() {
		_, ok := h.creds.Get(key)
		configured[key] = ok
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"configured": configured})
}

// SetCredential handles PUT /v1/credentials/{key}
func (h *Handler) SetCredential(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if !credentials.KnownKey(key) {
		writeJSONError(w, http.StatusBadRequest, "unknown credential key")
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.creds.Set(key, req.Value); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to store credential")
		writeJSONError(w, http.StatusInternalServerError, "failed to store credential")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCredential handles DELETE /v1/credentials/{key}
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if !credentials.KnownKey(key) {
		writeJSONError(w, http.StatusBadRequest, "unknown credential key")
		return
	}
	if err := h.creds.Delete(key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to delete credential")
		writeJSONError(w, http.StatusInternalServerError, "failed to delete credential")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListVoices handles GET /v1/voices
func (h *Handler) ListVoices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"voices": voice.Voices()})
}
