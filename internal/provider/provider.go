package provider

import "github.com/tale-forge/taleforge/internal/credentials"

// Provider identifies a known AI service. Dispatch happens over this closed
// set rather than re-parsing model id strings at every call site.
type Provider int

const (
	Unknown Provider = iota
	Ollama
	OpenAI
	Gemini
	Mistral
	Deepseek
	Replicate
	Stability
	LocalDiffusion
	ElevenLabs
	LocalTTS
)

// String returns the provider's short identifier.
func (p Provider) String() string {
	switch p {
	case Ollama:
		return "ollama"
	case OpenAI:
		return "openai"
	case Gemini:
		return "gemini"
	case Mistral:
		return "mistral"
	case Deepseek:
		return "deepseek"
	case Replicate:
		return "replicate"
	case Stability:
		return "stability"
	case LocalDiffusion:
		return "local-diffusion"
	case ElevenLabs:
		return "elevenlabs"
	case LocalTTS:
		return "local-tts"
	default:
		return "unknown"
	}
}

// DisplayName returns the name used in user-facing messages.
func (p Provider) DisplayName() string {
	switch p {
	case Ollama:
		return "Ollama"
	case OpenAI:
		return "OpenAI"
	case Gemini:
		return "Gemini"
	case Mistral:
		return "Mistral"
	case Deepseek:
		return "Deepseek"
	case Replicate:
		return "Replicate"
	case Stability:
		return "Stability AI"
	case LocalDiffusion:
		return "local diffusion"
	case ElevenLabs:
		return "ElevenLabs"
	case LocalTTS:
		return "local TTS"
	default:
		return "unknown provider"
	}
}

// CredentialKey returns the credential-store key for the provider, or ""
// for providers that run locally and need no key.
func (p Provider) CredentialKey() string {
	switch p {
	case OpenAI:
		return credentials.KeyOpenAI
	case Gemini:
		return credentials.KeyGemini
	case Mistral:
		return credentials.KeyMistral
	case Deepseek:
		return credentials.KeyDeepseek
	case Replicate:
		return credentials.KeyReplicate
	case Stability:
		return credentials.KeyStability
	case ElevenLabs:
		return credentials.KeyElevenLabs
	default:
		return ""
	}
}

// RequiresAPIKey reports whether the provider refuses to run without a credential.
func (p Provider) RequiresAPIKey() bool {
	return p.CredentialKey() != ""
}
