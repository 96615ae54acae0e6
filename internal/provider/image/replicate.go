package image

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/provider"
)

const replicatePredictionsURL = "https://api.replicate.com/v1/predictions"

// sdxlVersion pins the Stable Diffusion model version used for predictions.
const sdxlVersion = "39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b"

// maxPollAttempts bounds prediction polling; with the increasing delay this
// gives up after roughly a minute.
const maxPollAttempts = 30

// Replicate generates illustrations through the predictions API. The
/// contract is asynchronous: creation returns a job whose URL is polled
// until a terminal status (succeeded/failed) or the attempt bound.
type Replicate struct {
	creds  credentials.Store
	client *http.Client
}

// NewReplicate returns a Replicate image adapter.
func NewReplicate(creds credentials.Store, client *http.Client) *Replicate {
	return &Replicate{creds: creds, client: client}
}

func (r *Replicate) Provider() provider.Provider { return provider.Replicate }

type replicateRequest struct {
	Version string `json:"version"`
	Input   struct {
		Prompt string `json:"prompt"`
	} `json:"input"`
}

type replicatePrediction struct {
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (r *Replicate) Generate(ctx context.Context, req Request) (string, error) {
	key, ok := r.creds.Get(credentials.KeyReplicate)
	if !ok {
		log.Warn().Str("genre", req.Genre).Msg("No Replicate API key, using placeholder image")
		return Placeholder(req.Genre), nil
	}

	var create replicateRequest
	create.Version = sdxlVersion
	create.Input.Prompt = enhancePrompt(req)
	payload, err := json.Marshal(create)
	if err != nil {
		return "", provider.Errf(provider.Replicate, provider.KindMalformedResponse, "failed to encode request: %v", err)
	}

	headers := map[string]string{"Authorization": "Token " + key}
	body, err := doJSON(ctx, r.client, provider.Replicate, http.MethodPost, replicatePredictionsURL, headers, payload)
	if err != nil {
		return "", err
	}

	var pred replicatePrediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return "", provider.Errf(provider.Replicate, provider.KindMalformedResponse, "failed to decode prediction: %v", err)
	}
	if pred.URLs.Get == "" {
		return "", provider.Errf(provider.Replicate, provider.KindMalformedResponse, "prediction has no polling URL")
	}

	return r.poll(ctx, pred.URLs.Get, headers)
}

// poll fetches the prediction until it reaches a terminal status. Delay
// between attempts grows from 2s by 500ms per attempt, capped at 5s.
func (r *Replicate) poll(ctx context.Context, url string, headers map[string]string) (string, error) {
	for attempt := 0; attempt < maxPollAttempts; attempt++ {
		body, err := doJSON(ctx, r.client, provider.Replicate, http.MethodGet, url, headers, nil)
		if err != nil {
			return "", err
		}

		var pred replicatePrediction
		if err := json.Unmarshal(body, &pred); err != nil {
			return "", provider.Errf(provider.Replicate, provider.KindMalformedResponse, "failed to decode poll response: %v", err)
		}

		log.Debug().Int("attempt", attempt+1).Str("status", pred.Status).Msg("Polling Replicate prediction")

		switch pred.Status {
		case "succeeded":
			if len(pred.Output) == 0 {
				return "", provider.Errf(provider.Replicate, provider.KindMalformedResponse, "prediction succeeded with no output")
			}
			return pred.Output[0], nil
		case "failed":
			return "", provider.Errf(provider.Replicate, provider.KindMalformedResponse, "image generation failed: %s", pred.Error)
		}

		delay := 2*time.Second + time.Duration(attempt)*500*time.Millisecond
		if delay > 5*time.Second {
			delay = 5 * time.Second
		}
		select {
		case <-ctx.Done():
			return "", provider.ClassifyTransport(provider.Replicate, ctx.Err())
		case <-time.After(delay):
		}
	}

	return "", &provider.Error{
		Kind:        provider.KindTimeout,
		Provider:    provider.Replicate,
		Message:     "image generation timed out",
		Remediation: "try again or pick another image model",
	}
}
