package image

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/provider"
)

const dalleGenerationsURL = "https://api.openai.com/v1/images/generations"

// DallE generates illustrations through OpenAI's image endpoint. The
// contract returns a hosted URL synchronously.
type DallE struct {
	creds  credentials.Store
	client *http.Client
}

// NewDallE returns a DALL-E image adapter.
func NewDallE(creds credentials.Store, client *http.Client) *DallE {
	return &DallE{creds: creds, client: client}
}

func (d *DallE) Provider() provider.Provider { return provider.OpenAI }

type dalleRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality"`
	ResponseFormat string `json:"response_format"`
}

type dalleResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (d *DallE) Generate(ctx context.Context, req Request) (string, error) {
	key, ok := d.creds.Get(credentials.KeyOpenAI)
	if !ok {
		log.Warn().Str("genre", req.Genre).Msg("No OpenAI API key, using placeholder image")
		return Placeholder(req.Genre), nil
	}

	payload, err := json.Marshal(dalleRequest{
		Model:          "dall-e-3",
		Prompt:         enhancePrompt(req),
		N:              1,
		Size:           "1024x1024",
		Quality:        "standard",
		ResponseFormat: "url",
	})
	if err != nil {
		return "", provider.Errf(provider.OpenAI, provider.KindMalformedResponse, "failed to encode request: %v", err)
	}

	body, err := doJSON(ctx, d.client, provider.OpenAI, http.MethodPost, dalleGenerationsURL,
		map[string]string{"Authorization": "Bearer " + key}, payload)
	if err != nil {
		return "", err
	}

	var res dalleResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", provider.Errf(provider.OpenAI, provider.KindMalformedResponse, "failed to decode response: %v", err)
	}
	if len(res.Data) == 0 || res.Data[0].URL == "" {
		return "", provider.Errf(provider.OpenAI, provider.KindMalformedResponse, "response contained no image")
	}

	log.Info().Str("genre", req.Genre).Msg("DALL-E image generated")
	return res.Data[0].URL, nil
}
