// Package image contains one generation adapter per supported image
// provider. Illustration is non-essential to story ownership, so adapters
// degrade: a missing credential yields a genre placeholder instead of an
// error, and callers absorb remaining failures the same way.
package image

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/tale-forge/taleforge/internal/provider"
)

// Request is an image-generation request for one illustration.
type Request struct {
	Prompt string
	Genre  string
}

// Generator is an image-generation adapter for a single provider. The
// returned string is an image reference: a remote URL or a stored blob
// reference from the asset store.
type Generator interface {
	Provider() provider.Provider
	Generate(ctx context.Context, req Request) (string, error)
}

// styleMap maps each of the eight supported genres to the style descriptor
// appended to prompts. Unknown genres fall back to fantasy.
var styleMap = map[string]string{
	"fantasy":    "fantasy art style, magical, mystical, detailed fantasy environment",
	"sci-fi":     "science fiction style, futuristic, high-tech, cinematic lighting",
	"mystery":    "dark atmospheric style, moody lighting, noir aesthetic, mysterious",
	"romance":    "romantic style, soft lighting, warm colors, emotional scene",
	"horror":     "horror style, dark, eerie, unsettling, atmospheric horror scene",
	"adventure":  "adventure style, dynamic, epic landscape, dramatic lighting",
	"historical": "historical style, period accurate details, vintage aesthetic",
	"fairy-tale": "fairy tale style, enchanted, whimsical, storybook illustration",
}

// maxPromptExcerpt bounds how much story text feeds an image prompt.
const maxPromptExcerpt = 200

// enhancePrompt combines the genre style descriptor with a bounded excerpt
// of the source prompt.
func enhancePrompt(req Request) string {
	style, ok := styleMap[req.Genre]
	if !ok {
		style = styleMap["fantasy"]
	}
	p := req.Prompt
	if len(p) > maxPromptExcerpt {
		p = p[:maxPromptExcerpt]
	}
	return style + ", " + p
}

// doJSON issues a JSON request and returns the raw response body with
// taxonomy classification applied to transport and HTTP failures.
func doJSON(ctx context.Context, client *http.Client, p provider.Provider, method, url string, headers map[string]string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, provider.Errf(p, provider.KindMalformedResponse, "failed to build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, provider.ClassifyTransport(p, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.ClassifyTransport(p, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, provider.ClassifyHTTP(p, resp.StatusCode, raw)
	}
	return raw, nil
}
