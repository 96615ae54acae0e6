package text

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/provider"
)

// Ollama generates stories against a local Ollama daemon. No credential is
// needed; the endpoint comes from the credential store's ollama_endpoint
// entry (default http://localhost:11434).
type Ollama struct {
	endpoint string
	client   *http.Client
}

// NewOllama returns an Ollama text adapter for the given base endpoint.
func NewOllama(endpoint string, client *http.Client) *Ollama {
	return &Ollama{endpoint: strings.TrimSuffix(endpoint, "/"), client: client}
}

func (o *Ollama) Provider() provider.Provider { return provider.Ollama }

type ollamaRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Stream  bool   `json:"stream"`
	Options struct {
		Temperature float64 `json:"temperature"`
		TopP        float64 `json:"top_p"`
		MaxTokens   int     `json:"max_tokens"`
	} `json:"options"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	model := req.ModelVariant
	if model == "" {
		model = "mistral"
	}

	payload := ollamaRequest{Model: model, Prompt: fullPrompt(req)}
	payload.Options.Temperature = 0.7
	payload.Options.TopP = 0.9
	payload.Options.MaxTokens = req.MaxTokens

	log.Debug().Str("model", model).Str("endpoint", o.endpoint).Msg("Calling local Ollama")

	body, err := postJSON(ctx, o.client, provider.Ollama, o.endpoint+"/api/generate", nil, payload)
	if err != nil {
		return "", err
	}

	var res ollamaResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", provider.Errf(provider.Ollama, provider.KindMalformedResponse, "failed to decode response: %v", err)
	}
	if res.Response == "" {
		return "", provider.Errf(provider.Ollama, provider.KindMalformedResponse, "empty response; make sure Ollama is running and the model is installed")
	}
	return res.Response, nil
}
