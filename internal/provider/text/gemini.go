package text

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/provider"
)

const geminiGenerateURL = "https://generativelanguage.googleapis.com/v1/models/gemini-1.5-pro:generateContent"

// Gemini generates stories through the generateContent REST endpoint.
// Auth is a query-string key rather than a header.
type Gemini struct {
	creds  credentials.Store
	client *http.Client
}

// NewGemini returns a Gemini text adapter.
func NewGemini(creds credentials.Store, client *http.Client) *Gemini {
	return &Gemini{creds: creds, client: client}
}

func (g *Gemini) Provider() provider.Provider { return provider.Gemini }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int     `json:"maxOutputTokens"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	key, ok := g.creds.Get(credentials.KeyGemini)
	if !ok {
		return "", provider.MissingCredentialError(provider.Gemini)
	}

	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: fullPrompt(req)}}}},
	}
	payload.GenerationConfig.MaxOutputTokens = req.MaxTokens
	payload.GenerationConfig.Temperature = 0.7

	log.Debug().Int("max_tokens", req.MaxTokens).Msg("Calling Gemini generateContent")

	body, err := postJSON(ctx, g.client, provider.Gemini,
		geminiGenerateURL+"?key="+url.QueryEscape(key), nil, payload)
	if err != nil {
		return "", err
	}

	var res geminiResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", provider.Errf(provider.Gemini, provider.KindMalformedResponse, "failed to decode response: %v", err)
	}
	if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
		return "", provider.Errf(provider.Gemini, provider.KindMalformedResponse, "response contained no candidates")
	}
	return res.Candidates[0].Content.Parts[0].Text, nil
}
