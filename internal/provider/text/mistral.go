package text

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/provider"
)

const mistralChatURL = "https://api.mistral.ai/v1/chat/completions"

// Mistral generates stories through Mistral's OpenAI-compatible chat
// endpoint with Bearer auth. The model is pinned to mistral-large-latest.
type Mistral struct {
	creds  credentials.Store
	client *http.Client
}

// NewMistral returns a Mistral text adapter.
func NewMistral(creds credentials.Store, client *http.Client) *Mistral {
	return &Mistral{creds: creds, client: client}
}

func (m *Mistral) Provider() provider.Provider { return provider.Mistral }

func (m *Mistral) Generate(ctx context.Context, req Request) (string, error) {
	key, ok := m.creds.Get(credentials.KeyMistral)
	if !ok {
		return "", provider.MissingCredentialError(provider.Mistral)
	}

	log.Debug().Int("max_tokens", req.MaxTokens).Msg("Calling Mistral chat completions")

	body, err := postJSON(ctx, m.client, provider.Mistral, mistralChatURL,
		map[string]string{"Authorization": "Bearer " + key},
		chatCompletionRequest{
			Model:     "mistral-large-latest",
			Messages:  []chatMessage{{Role: "user", Content: fullPrompt(req)}},
			MaxTokens: req.MaxTokens,
		})
	if err != nil {
		return "", err
	}
	return parseChatCompletion(provider.Mistral, body)
}
