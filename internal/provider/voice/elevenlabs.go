package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/provider"
	"github.com/tale-forge/taleforge/internal/storage"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1/text-to-speech"

// maxTTSChars is the provider's input size limit; longer text is truncated
// before submission.
const maxTTSChars = 5000

// ElevenLabs synthesizes narration through the text-to-speech endpoint.
// Auth is the xi-api-key header; a successful response body is the raw
// audio binary, which is persisted to the asset store.
type ElevenLabs struct {
	creds  credentials.Store
	client *http.Client
	assets storage.AssetStore
}

// NewElevenLabs returns an ElevenLabs voice adapter.
func NewElevenLabs(creds credentials.Store, client *http.Client, assets storage.AssetStore) *ElevenLabs {
	return &ElevenLabs{creds: creds, client: client, assets: assets}
}

func (e *ElevenLabs) Provider() provider.Provider { return provider.ElevenLabs }

type elevenLabsRequest struct {
	Text          string `json:"text"`
	ModelID       string `json:"model_id"`
	VoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	} `json:"voice_settings"`
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text, voice string) (string, error) {
	key, ok := e.creds.Get(credentials.KeyElevenLabs)
	if !ok {
		return "", provider.MissingCredentialError(provider.ElevenLabs)
	}

	if len(text) > maxTTSChars {
		text = text[:maxTTSChars]
	}

	reqBody := elevenLabsRequest{Text: text, ModelID: "eleven_monolingual_v1"}
	reqBody.VoiceSettings.Stability = 0.5
	reqBody.VoiceSettings.SimilarityBoost = 0.5

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", provider.Errf(provider.ElevenLabs, provider.KindMalformedResponse, "failed to encode request: %v", err)
	}

	voiceID := VoiceID(voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, elevenLabsBaseURL+"/"+voiceID, bytes.NewReader(payload))
	if err != nil {
		return "", provider.Errf(provider.ElevenLabs, provider.KindMalformedResponse, "failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", key)

	log.Debug().Str("voice", voice).Str("voice_id", voiceID).Int("text_length", len(text)).Msg("Calling ElevenLabs TTS")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", provider.ClassifyTransport(provider.ElevenLabs, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", provider.ClassifyTransport(provider.ElevenLabs, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", provider.ClassifyHTTP(provider.ElevenLabs, resp.StatusCode, raw)
	}
	if len(raw) == 0 {
		return "", provider.Errf(provider.ElevenLabs, provider.KindMalformedResponse, "empty audio payload")
	}

	assetKey := fmt.Sprintf("audio/eleven-%s-%d.mp3", voice, time.Now().UnixNano())
	ref, err := e.assets.Put(ctx, assetKey, raw, "audio/mpeg")
	if err != nil {
		return "", provider.Errf(provider.ElevenLabs, provider.KindMalformedResponse, "failed to store audio: %v", err)
	}

	log.Info().Str("voice", voice).Int("size_bytes", len(raw)).Msg("ElevenLabs audio generated")
	return ref, nil
}
