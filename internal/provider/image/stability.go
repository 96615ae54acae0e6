package image

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/provider"
	"github.com/tale-forge/taleforge/internal/storage"
)

const stabilityGenerateURL = "https://api.stability.ai/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image"

// negativePrompt weights down the usual diffusion artifacts.
const negativePrompt = "blurry, bad anatomy, extra limbs, deformed, disfigured, text, watermark, signature, low quality"

// Stability generates illustrations through the Stability AI endpoint. The
// contract returns a base64 artifact synchronously, which is persisted to
// the asset store to obtain a stable reference.
type Stability struct {
	creds  credentials.Store
	client *http.Client
	assets storage.AssetStore
}

// NewStability returns a Stability AI image adapter.
func NewStability(creds credentials.Store, client *http.Client, assets storage.AssetStore) *Stability {
	return &Stability{creds: creds, client: client, assets: assets}
}

func (s *Stability) Provider() provider.Provider { return provider.Stability }

type stabilityTextPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type stabilityRequest struct {
	TextPrompts []stabilityTextPrompt `json:"text_prompts"`
	CfgScale    int                   `json:"cfg_scale"`
	Height      int                   `json:"height"`
	Width       int                   `json:"width"`
	Samples     int                   `json:"samples"`
	Steps       int                   `json:"steps"`
}

type stabilityResponse struct {
	Artifacts []struct {
		Base64 string `json:"base64"`
	} `json:"artifacts"`
}

func (s *Stability) Generate(ctx context.Context, req Request) (string, error) {
	key, ok := s.creds.Get(credentials.KeyStability)
	if !ok {
		log.Warn().Str("genre", req.Genre).Msg("No Stability AI API key, using placeholder image")
		return Placeholder(req.Genre), nil
	}

	payload, err := json.Marshal(stabilityRequest{
		TextPrompts: []stabilityTextPrompt{
			{Text: enhancePrompt(req), Weight: 1},
			{Text: negativePrompt, Weight: -1},
		},
		CfgScale: 7,
		Height:   1024,
		Width:    1024,
		Samples:  1,
		Steps:    30,
	})
	if err != nil {
		return "", provider.Errf(provider.Stability, provider.KindMalformedResponse, "failed to encode request: %v", err)
	}

	body, err := doJSON(ctx, s.client, provider.Stability, http.MethodPost, stabilityGenerateURL,
		map[string]string{"Authorization": "Bearer " + key}, payload)
	if err != nil {
		return "", err
	}

	var res stabilityResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", provider.Errf(provider.Stability, provider.KindMalformedResponse, "failed to decode response: %v", err)
	}
	if len(res.Artifacts) == 0 {
		return "", provider.Errf(provider.Stability, provider.KindMalformedResponse, "response contained no artifacts")
	}

	raw, err := base64.StdEncoding.DecodeString(res.Artifacts[0].Base64)
	if err != nil {
		return "", provider.Errf(provider.Stability, provider.KindMalformedResponse, "failed to decode image payload: %v", err)
	}

	key64 := fmt.Sprintf("images/stability-%d.png", time.Now().UnixNano())
	ref, err := s.assets.Put(ctx, key64, raw, "image/png")
	if err != nil {
		return "", provider.Errf(provider.Stability, provider.KindMalformedResponse, "failed to store image: %v", err)
	}

	log.Info().Str("genre", req.Genre).Int("size_bytes", len(raw)).Msg("Stability AI image generated")
	return ref, nil
}
