package image

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/provider"
	"github.com/tale-forge/taleforge/internal/storage"
)

// LocalDiffusion generates illustrations through a local Ollama daemon
// running a diffusion model. No credential is required; the binary PNG
// response is persisted to the asset store.
type LocalDiffusion struct {
	endpoint string
	client   *http.Client
	assets   storage.AssetStore
}

// NewLocalDiffusion returns a local diffusion adapter for the given
// Ollama endpoint.
func NewLocalDiffusion(endpoint string, client *http.Client, assets storage.AssetStore) *LocalDiffusion {
	return &LocalDiffusion{endpoint: strings.TrimSuffix(endpoint, "/"), client: client, assets: assets}
}

func (l *LocalDiffusion) Provider() provider.Provider { return provider.LocalDiffusion }

type diffusionRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

func (l *LocalDiffusion) Generate(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(diffusionRequest{
		Model:  "sdxl",
		Prompt: enhancePrompt(req),
		Stream: false,
		Format: "png",
	})
	if err != nil {
		return "", provider.Errf(provider.LocalDiffusion, provider.KindMalformedResponse, "failed to encode request: %v", err)
	}

	raw, err := doJSON(ctx, l.client, provider.LocalDiffusion, http.MethodPost, l.endpoint+"/api/generate", nil, payload)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", provider.Errf(provider.LocalDiffusion, provider.KindMalformedResponse, "empty image payload; make sure the sdxl model is installed")
	}

	key := fmt.Sprintf("images/local-%d.png", time.Now().UnixNano())
	ref, err := l.assets.Put(ctx, key, raw, "image/png")
	if err != nil {
		return "", provider.Errf(provider.LocalDiffusion, provider.KindMalformedResponse, "failed to store image: %v", err)
	}

	log.Info().Str("genre", req.Genre).Int("size_bytes", len(raw)).Msg("Local diffusion image generated")
	return ref, nil
}
