package text

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/provider"
)

const openAIChatURL = "https://api.openai.com/v1/chat/completions"

// OpenAI generates stories through the chat completions endpoint with
// Bearer auth.
type OpenAI struct {
	creds  credentials.Store
	client *http.Client
}

// NewOpenAI returns an OpenAI text adapter.
func NewOpenAI(creds credentials.Store, client *http.Client) *OpenAI {
	return &OpenAI{creds: creds, client: client}
}

func (o *OpenAI) Provider() provider.Provider { return provider.OpenAI }

func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	key, ok := o.creds.Get(credentials.KeyOpenAI)
	if !ok {
		return "", provider.MissingCredentialError(provider.OpenAI)
	}

	model := "gpt-3.5-turbo"
	if req.ModelVariant == "gpt-4o" {
		model = "gpt-4o"
	}

	log.Debug().Str("model", model).Int("max_tokens", req.MaxTokens).Msg("Calling OpenAI chat completions")

	body, err := postJSON(ctx, o.client, provider.OpenAI, openAIChatURL,
		map[string]string{"Authorization": "Bearer " + key},
		chatCompletionRequest{
			Model:       model,
			Messages:    []chatMessage{{Role: "user", Content: fullPrompt(req)}},
			MaxTokens:   req.MaxTokens,
			Temperature: 0.7,
		})
	if err != nil {
		return "", err
	}
	return parseChatCompletion(provider.OpenAI, body)
}
