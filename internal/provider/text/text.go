// Package text contains one generation adapter per supported text provider.
// Each adapter owns its wire format, auth header convention and response
// parsing, and translates failures into the shared error taxonomy.
package text

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tale-forge/taleforge/internal/provider"
)

// Request is a resolved text-generation request. It is immutable for the
// duration of the call.
type Request struct {
	Prompt       string
	Genre        string
	Length       string // short, medium, long — used only for preamble wording
	MaxTokens    int
	ModelVariant string // provider-local model name, e.g. "gpt-4o" or "mistral"
}

// Generator is a text-generation adapter for a single provider.
type Generator interface {
	Provider() provider.Provider
	Generate(ctx context.Context, req Request) (string, error)
}

// fullPrompt prepends the deterministic system preamble: it names the genre,
// requests blank-line-separated paragraphs, and instructs the model to avoid
// structural repetition and meta-commentary.
func fullPrompt(req Request) string {
	preamble := fmt.Sprintf(`You are a creative fiction writer specializing in %s stories.
Write an engaging story based on the following prompt.
Make it approximately %s in length with vivid descriptions and compelling characters.
Format the story in paragraphs separated by blank lines.
Begin writing the story immediately without any introductions or meta-commentary.
IMPORTANT: Make sure the story is unique and specific to the prompt. DO NOT reuse story structure or elements.`, req.Genre, req.Length)
	return preamble + "\n\nPROMPT: " + req.Prompt
}

// postJSON issues a JSON POST and returns the response body, classifying
// transport failures and non-2xx statuses into the error taxonomy.
func postJSON(ctx context.Context, client *http.Client, p provider.Provider, url string, headers map[string]string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, provider.Errf(p, provider.KindMalformedResponse, "failed to encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, provider.Errf(p, provider.KindMalformedResponse, "failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, provider.ClassifyTransport(p, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.ClassifyTransport(p, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, provider.ClassifyHTTP(p, resp.StatusCode, body)
	}
	return body, nil
}

// chatCompletionRequest is the OpenAI-compatible chat request shape, shared
// by the OpenAI, Mistral and Deepseek wire contracts.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func parseChatCompletion(p provider.Provider, body []byte) (string, error) {
	var res chatCompletionResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", provider.Errf(p, provider.KindMalformedResponse, "failed to decode response: %v", err)
	}
	if len(res.Choices) == 0 || res.Choices[0].Message.Content == "" {
		return "", provider.Errf(p, provider.KindMalformedResponse, "response contained no completion")
	}
	return res.Choices[0].Message.Content, nil
}
