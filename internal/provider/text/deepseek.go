package text

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/provider"
)

const deepseekChatURL = "https://api.deepseek.com/v1/chat/completions"

// Deepseek generates stories through Deepseek's OpenAI-compatible chat
// endpoint with Bearer auth. The model is pinned to deepseek-chat.
type Deepseek struct {
	creds  credentials.Store
	client *http.Client
}

// NewDeepseek returns a Deepseek text adapter.
func NewDeepseek(creds credentials.Store, client *http.Client) *Deepseek {
	return &Deepseek{creds: creds, client: client}
}

func (d *Deepseek) Provider() provider.Provider { return provider.Deepseek }

func (d *Deepseek) Generate(ctx context.Context, req Request) (string, error) {
	key, ok := d.creds.Get(credentials.KeyDeepseek)
	if !ok {
		return "", provider.MissingCredentialError(provider.Deepseek)
	}

	log.Debug().Int("max_tokens", req.MaxTokens).Msg("Calling Deepseek chat completions")

	body, err := postJSON(ctx, d.client, provider.Deepseek, deepseekChatURL,
		map[string]string{"Authorization": "Bearer " + key},
		chatCompletionRequest{
			Model:     "deepseek-chat",
			Messages:  []chatMessage{{Role: "user", Content: fullPrompt(req)}},
			MaxTokens: req.MaxTokens,
		})
	if err != nil {
		return "", err
	}
	return parseChatCompletion(provider.Deepseek, body)
}
