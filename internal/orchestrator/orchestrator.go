// Package orchestrator routes generation requests to provider adapters.
// Model identifiers carry a provider prefix (e.g. ollama-mistral,
// openai-gpt-4o); routing resolves the prefix once into a closed provider
// tag, then applies a bounded fallback policy on qualifying failures.
package orchestrator

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/provider"
	"github.com/tale-forge/taleforge/internal/provider/image"
	"github.com/tale-forge/taleforge/internal/provider/text"
)

// lengthTokens maps length classes to token budgets. Fixed table; the
// three classes are the only runtime choices.
var lengthTokens = map[string]int{
	"short":  500,
	"medium": 1000,
	"long":   1500,
}

// LengthTokens returns the token budget for a length class, defaulting to
// medium for unknown classes.
func LengthTokens(length string) int {
	if n, ok := lengthTokens[length]; ok {
		return n
	}
	return lengthTokens["medium"]
}

// probeOrder is the fixed priority used when a model id matches no known
// prefix: the first provider with a stored credential wins.
var probeOrder = []provider.Provider{provider.Gemini, provider.OpenAI, provider.Mistral}

// FallbackPolicy names the secondary provider retried once when the
// primary fails with one of the trigger kinds. No chain beyond one hop:
// that bounds retry storms and keeps latency predictable.
type FallbackPolicy struct {
	Secondary provider.Provider
	Triggers  []provider.ErrorKind
}

// DefaultFallback retries once against Gemini after a quota or credential
// rejection on the primary.
func DefaultFallback() FallbackPolicy {
	return FallbackPolicy{
		Secondary: provider.Gemini,
		Triggers:  []provider.ErrorKind{provider.KindQuotaExceeded, provider.KindInvalidCredential},
	}
}

func (f FallbackPolicy) triggered(kind provider.ErrorKind) bool {
	for _, t := range f.Triggers {
		if t == kind {
			return true
		}
	}
	return false
}

// Orchestrator owns the registered adapters and the fallback policy.
type Orchestrator struct {
	creds    credentials.Store
	texts    map[provider.Provider]text.Generator
	images   map[provider.Provider]image.Generator
	fallback FallbackPolicy
}

// New returns an orchestrator over the given adapters.
func New(creds credentials.Store, texts []text.Generator, images []image.Generator, fallback FallbackPolicy) *Orchestrator {
	o := &Orchestrator{
		creds:    creds,
		texts:    map[provider.Provider]text.Generator{},
		images:   map[provider.Provider]image.Generator{},
		fallback: fallback,
	}
	for _, t := range texts {
		o.texts[t.Provider()] = t
	}
	for _, g := range images {
		o.images[g.Provider()] = g
	}
	return o
}

// ResolveTextModel maps a model id onto its provider family and the
// provider-local variant. Unknown prefixes yield provider.Unknown.
func ResolveTextModel(modelID string) (provider.Provider, string) {
	switch {
	case strings.HasPrefix(modelID, "ollama-"):
		return provider.Ollama, strings.TrimPrefix(modelID, "ollama-")
	case strings.HasPrefix(modelID, "openai-"):
		return provider.OpenAI, strings.TrimPrefix(modelID, "openai-")
	case strings.HasPrefix(modelID, "gemini-"):
		return provider.Gemini, strings.TrimPrefix(modelID, "gemini-")
	case strings.HasPrefix(modelID, "mistral-"):
		return provider.Mistral, strings.TrimPrefix(modelID, "mistral-")
	case strings.HasPrefix(modelID, "deepseek-"):
		return provider.Deepseek, strings.TrimPrefix(modelID, "deepseek-")
	default:
		return provider.Unknown, ""
	}
}

// ResolveImageModel maps an image model id onto its provider. Unknown ids
// default to Replicate, matching the original behavior.
func ResolveImageModel(modelID string) provider.Provider {
	switch modelID {
	case "replicate-sd":
		return provider.Replicate
	case "openai-dalle":
		return provider.OpenAI
	case "stability-ai":
		return provider.Stability
	case "local-diffusion":
		return provider.LocalDiffusion
	default:
		return provider.Replicate
	}
}

// GenerateStory routes a text-generation request. On a qualifying failure
// of the primary it retries exactly once against the configured secondary,
// provided a credential for the secondary exists.
func (o *Orchestrator) GenerateStory(ctx context.Context, prompt, genre, length, modelID string) (string, error) {
	p, variant := ResolveTextModel(modelID)
	if p == provider.Unknown {
		// With cloud calls disabled the only place left to route is the
		// local daemon.
		if !o.cloudEnabled() {
			p, variant = provider.Ollama, ""
		} else {
			probed, err := o.probe()
			if err != nil {
				return "", err
			}
			log.Info().Str("model_id", modelID).Str("provider", probed.String()).Msg("Unknown model prefix, probed provider")
			p, variant = probed, ""
		}
	}

	gen, ok := o.texts[p]
	if !ok {
		return "", provider.Errf(p, provider.KindMalformedResponse, "no text adapter registered for %s", p.DisplayName())
	}

	req := text.Request{
		Prompt:       prompt,
		Genre:        genre,
		Length:       length,
		MaxTokens:    LengthTokens(length),
		ModelVariant: variant,
	}

	out, err := gen.Generate(ctx, req)
	if err == nil {
		return out, nil
	}

	kind := provider.KindOf(err)
	log.Warn().Err(err).Str("provider", p.String()).Str("kind", kind.String()).Msg("Primary text generation failed")

	if o.fallback.triggered(kind) && p != o.fallback.Secondary {
		if _, hasKey := o.creds.Get(o.fallback.Secondary.CredentialKey()); hasKey {
			if secondary, ok := o.texts[o.fallback.Secondary]; ok {
				log.Info().
					Str("primary", p.String()).
					Str("secondary", o.fallback.Secondary.String()).
					Msg("Retrying text generation against fallback provider")
				req.ModelVariant = ""
				return secondary.Generate(ctx, req)
			}
		}
	}

	return "", augmentRemediation(err, p, o.fallback.Secondary)
}

// probe walks the fixed priority order and picks the first provider with a
// stored credential. With no credentials at all the request cannot proceed.
func (o *Orchestrator) probe() (provider.Provider, error) {
	for _, p := range probeOrder {
		if _, ok := o.creds.Get(p.CredentialKey()); ok {
			return p, nil
		}
	}
	return provider.Unknown, &provider.Error{
		Kind:        provider.KindNoCredentialsConfigured,
		Provider:    provider.Unknown,
		Message:     "no valid API keys found",
		Remediation: "add at least one API key in settings",
	}
}

// augmentRemediation attaches actionable guidance to a surfaced failure so
// the UI never shows a raw provider error.
func augmentRemediation(err error, primary, secondary provider.Provider) error {
	pe := provider.AsError(err)
	if pe == nil {
		return err
	}
	if pe.Remediation != "" {
		return pe
	}
	switch pe.Kind {
	case provider.KindQuotaExceeded:
		pe.Remediation = "update your billing or try another model like " + secondary.DisplayName()
	case provider.KindInvalidCredential:
		pe.Remediation = "update the " + primary.DisplayName() + " API key in settings or try another model"
	default:
		pe.Remediation = "try another model"
	}
	return pe
}

// cloudEnabled reports whether hosted providers may be called at all; the
// use_cloud_api flag defaults to on.
func (o *Orchestrator) cloudEnabled() bool {
	return credentials.BoolFlag(o.creds, credentials.KeyUseCloudAPI, true)
}

// ImageGenerator returns the adapter for an image model id. When cloud
// calls are disabled, or the model needs a credential that is absent, it
// falls back to the local diffusion adapter if one is registered.
func (o *Orchestrator) ImageGenerator(modelID string) image.Generator {
	p := ResolveImageModel(modelID)
	if p.RequiresAPIKey() {
		_, hasKey := o.creds.Get(p.CredentialKey())
		if !hasKey || !o.cloudEnabled() {
			if local, ok := o.images[provider.LocalDiffusion]; ok {
				log.Debug().Str("model_id", modelID).Msg("Cloud image model unavailable, using local diffusion")
				return local
			}
		}
	}
	if gen, ok := o.images[p]; ok {
		return gen
	}
	return o.images[provider.Replicate]
}
