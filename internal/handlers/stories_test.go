package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/orchestrator"
	"github.com/tale-forge/taleforge/internal/provider"
	"github.com/tale-forge/taleforge/internal/provider/image"
	"github.com/tale-forge/taleforge/internal/provider/text"
	"github.com/tale-forge/taleforge/internal/story"
)

type fakeTextGen struct{ out string }

func (f *fakeTextGen) Provider() provider.Provider { return provider.Ollama }

func (f *fakeTextGen) Generate(_ context.Context, _ text.Request) (string, error) {
	return f.out, nil
}

type fakeImageGen struct{}

func (fakeImageGen) Provider() provider.Provider { return provider.Replicate }

func (fakeImageGen) Generate(_ context.Context, req image.Request) (string, error) {
	return "https://img.example/" + req.Genre, nil
}

func newTestHandler(t *testing.T) (*Handler, credentials.Store) {
	t.Helper()
	repo, err := story.NewFileRepository(filepath.Join(t.TempDir(), "stories.json"))
	if err != nil {
		t.Fatal(err)
	}
	creds := credentials.NewMemStore()
	orch := orchestrator.New(
		creds,
		[]text.Generator{&fakeTextGen{out: "One.\n\nTwo.\n\nThree."}},
		[]image.Generator{fakeImageGen{}},
		orchestrator.DefaultFallback(),
	)
	svc := story.NewService(repo, orch)
	return NewHandler(svc, creds, nil), creds
}

func newTestRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/stories", h.ListStories).Methods("GET")
	api.HandleFunc("/stories/generate", h.GenerateStory).Methods("POST")
	api.HandleFunc("/stories/{id}", h.GetStory).Methods("GET")
	api.HandleFunc("/stories/{id}", h.DeleteStory).Methods("DELETE")
	api.HandleFunc("/stories/{id}/images/{index}/regenerate", h.RegenerateImage).Methods("POST")
	api.HandleFunc("/stories/{id}/voice", h.SetStoryVoice).Methods("PUT")
	api.HandleFunc("/credentials", h.ListCredentials).Methods("GET")
	api.HandleFunc("/credentials/{key}", h.SetCredential).Methods("PUT")
	return r
}

func TestGenerateStoryRequiresPrompt(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/v1/stories/generate", bytes.NewBufferString(`{"genre":"fantasy"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateAndFetchStory(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	body := bytes.NewBufferString(`{"prompt":"a clockwork owl","genre":"fantasy","length":"short"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/stories/generate", body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var st story.Story
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if len(st.Paragraphs) != 3 || len(st.Images) != 2 {
		t.Errorf("paragraphs = %d, images = %d", len(st.Paragraphs), len(st.Images))
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stories/"+st.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/stories/"+st.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stories/"+st.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestGetStoryNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stories/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSetCredentialRejectsUnknownKey(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPut, "/v1/credentials/random_key", bytes.NewBufferString(`{"value":"x"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestListCredentialsNeverLeaksValues(t *testing.T) {
	h, creds := newTestHandler(t)
	creds.Set(credentials.KeyOpenAI, "sk-super-secret")
	r := newTestRouter(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/credentials", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("sk-super-secret")) {
		t.Error("credential value leaked in the listing")
	}

	var resp struct {
		Configured map[string]bool `json:"configured"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Configured[credentials.KeyOpenAI] {
		t.Error("configured key not reported")
	}
	if resp.Configured[credentials.KeyGemini] {
		t.Error("unconfigured key reported as present")
	}
}

func TestProviderErrorStatusMapping(t *testing.T) {
	tests := []struct {
		kind provider.ErrorKind
		want int
	}{
		{provider.KindMissingCredential, http.StatusUnprocessableEntity},
		{provider.KindQuotaExceeded, http.StatusTooManyRequests},
		{provider.KindTransientNetwork, http.StatusBadGateway},
		{provider.KindTimeout, http.StatusGatewayTimeout},
		{provider.KindGenerationInProgress, http.StatusConflict},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeProviderError(rec, &provider.Error{Kind: tt.kind, Provider: provider.OpenAI, Message: "m"})
		if rec.Code != tt.want {
			t.Errorf("kind %v -> %d, want %d", tt.kind, rec.Code, tt.want)
		}
	}
}
