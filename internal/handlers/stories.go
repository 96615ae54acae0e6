package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/story"
)

// ListStories handles GET /v1/stories
func (h *Handler) ListStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.stories.List()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list stories")
		writeJSONError(w, http.StatusInternalServerError, "failed to list stories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stories": stories})
}

// GetStory handles GET /v1/stories/{id}
func (h *Handler) GetStory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, err := h.stories.Get(id)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "story not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GenerateStory handles POST /v1/stories/generate
func (h *Handler) GenerateStory(w http.ResponseWriter, r *http.Request) {
	var req story.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	st, err := h.stories.Generate(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate story")
		writeProviderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// SaveStory handles PUT /v1/stories/{id}
func (h *Handler) SaveStory(w http.ResponseWriter, r *http.Request) {
	var st story.Story
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st.ID = mux.Vars(r)["id"]

	saved, err := h.stories.Save(st)
	if err != nil {
		log.Error().Err(err).Str("story_id", st.ID).Msg("Failed to save story")
		writeJSONError(w, http.StatusInternalServerError, "failed to save story")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteStory handles DELETE /v1/stories/{id}
func (h *Handler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.stories.Delete(id); err != nil {
		var nf *story.ErrNotFound
		if errors.As(err, &nf) {
			writeJSONError(w, http.StatusNotFound, "story not found")
			return
		}
		log.Error().Err(err).Str("story_id", id).Msg("Failed to delete story")
		writeJSONError(w, http.StatusInternalServerError, "failed to delete story")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegenerateImage handles POST /v1/stories/{id}/images/{index}/regenerate
func (h *Handler) RegenerateImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	slot, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid image index")
		return
	}

	st, err := h.stories.RegenerateImage(r.Context(), id, slot)
	if err != nil {
		var nf *story.ErrNotFound
		if errors.As(err, &nf) {
			writeJSONError(w, http.StatusNotFound, "story not found")
			return
		}
		log.Error().Err(err).Str("story_id", id).Int("slot", slot).Msg("Failed to regenerate image")
		writeProviderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SetStoryVoice handles PUT /v1/stories/{id}/voice
func (h *Handler) SetStoryVoice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Voice string `json:"voice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Voice == "" {
		writeJSONError(w, http.StatusBadRequest, "voice is required")
		return
	}

	st, err := h.stories.SetVoice(id, req.Voice)
	if err != nil {
		var nf *story.ErrNotFound
		if errors.As(err, &nf) {
			writeJSONError(w, http.StatusNotFound, "story not found")
			return
		}
		log.Error().Err(err).Str("story_id", id).Msg("Failed to change voice")
		writeJSONError(w, http.StatusInternalServerError, "failed to change voice")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
