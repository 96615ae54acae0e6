package image

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/provider"
)

// rewriteTransport sends every request to the test server regardless of
// the adapter's hardcoded host.
type rewriteTransport struct{ target *url.URL }

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func testClient(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Transport: rewriteTransport{target: u}}
}

func TestPlaceholderCoversEveryGenre(t *testing.T) {
	genres := []string{
		"fantasy", "sci-fi", "mystery", "romance",
		"horror", "adventure", "historical", "fairy-tale",
	}
	for _, g := range genres {
		ref := Placeholder(g)
		if ref == "" {
			t.Errorf("no placeholder for genre %q", g)
		}
		if !IsPlaceholder(ref) {
			t.Errorf("placeholder for %q not recognized as one: %q", g, ref)
		}
	}

	// Unknown genres still resolve.
	if ref := Placeholder("cyber-noir"); ref == "" || !IsPlaceholder(ref) {
		t.Errorf("unknown genre placeholder = %q", ref)
	}
	if Placeholder("cyber-noir") != Placeholder("fantasy") {
		t.Error("unknown genre should use the fantasy placeholder")
	}
}

func TestEnhancePromptAppliesGenreStyle(t *testing.T) {
	p := enhancePrompt(Request{Prompt: "a castle on a hill", Genre: "horror"})
	if !strings.Contains(p, "a castle on a hill") {
		t.Errorf("prompt lost: %q", p)
	}
	if p == "a castle on a hill" {
		t.Error("no style prefix applied")
	}

	long := strings.Repeat("w", 400)
	p = enhancePrompt(Request{Prompt: long, Genre: "fantasy"})
	if !strings.HasSuffix(p, strings.Repeat("w", maxPromptExcerpt)) {
		t.Error("excerpt missing from the enhanced prompt")
	}
	if strings.Contains(p, strings.Repeat("w", maxPromptExcerpt+1)) {
		t.Errorf("prompt not truncated to %d chars", maxPromptExcerpt)
	}
}

func TestDallEMissingKeyReturnsPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached the network without a credential")
	}))
	defer srv.Close()

	gen := NewDallE(credentials.NewMemStore(), testClient(t, srv))
	ref, err := gen.Generate(context.Background(), Request{Prompt: "p", Genre: "comedy"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !IsPlaceholder(ref) {
		t.Errorf("got %q, want a placeholder", ref)
	}
}

func TestDallEReturnsHostedURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body dalleRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.Model != "dall-e-3" || body.N != 1 || body.ResponseFormat != "url" {
			t.Errorf("unexpected request: %+v", body)
		}
		w.Write([]byte(`{"data":[{"url":"https://images.example/out.png"}]}`))
	}))
	defer srv.Close()

	creds := credentials.NewMemStore()
	creds.Set(credentials.KeyOpenAI, "sk-test")

	gen := NewDallE(creds, testClient(t, srv))
	ref, err := gen.Generate(context.Background(), Request{Prompt: "p", Genre: "fantasy"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ref != "https://images.example/out.png" {
		t.Errorf("ref = %q", ref)
	}
}

func TestReplicateCreateAndPoll(t *testing.T) {
	var gotAuth []string
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/v1/predictions", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "starting",
			"urls":   map[string]string{"get": srv.URL + "/poll"},
		})
	})
	mux.HandleFunc("/poll", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "succeeded",
			"output": []string{"https://replicate.delivery/out.png"},
		})
	})

	creds := credentials.NewMemStore()
	creds.Set(credentials.KeyReplicate, "r8-test")

	gen := NewReplicate(creds, testClient(t, srv))
	ref, err := gen.Generate(context.Background(), Request{Prompt: "p", Genre: "adventure"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ref != "https://replicate.delivery/out.png" {
		t.Errorf("ref = %q", ref)
	}
	for i, auth := range gotAuth {
		if auth != "Token r8-test" {
			t.Errorf("request %d auth = %q", i, auth)
		}
	}
	if len(gotAuth) != 2 {
		t.Errorf("made %d requests, want create + one poll", len(gotAuth))
	}
}

func TestReplicateFailedPrediction(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/v1/predictions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "starting",
			"urls":   map[string]string{"get": srv.URL + "/poll"},
		})
	})
	mux.HandleFunc("/poll", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "failed",
			"error":  "NSFW content detected",
		})
	})

	creds := credentials.NewMemStore()
	creds.Set(credentials.KeyReplicate, "r8-test")

	gen := NewReplicate(creds, testClient(t, srv))
	_, err := gen.Generate(context.Background(), Request{Prompt: "p"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "NSFW") {
		t.Errorf("error %q lost the provider message", err.Error())
	}
	if provider.KindOf(err) != provider.KindMalformedResponse {
		t.Errorf("kind = %v, want malformed-response", provider.KindOf(err))
	}
}

func TestReplicateMissingKeyReturnsPlaceholder(t *testing.T) {
	gen := NewReplicate(credentials.NewMemStore(), http.DefaultClient)
	ref, err := gen.Generate(context.Background(), Request{Prompt: "p", Genre: "horror"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !IsPlaceholder(ref) {
		t.Errorf("got %q, want a placeholder", ref)
	}
}
