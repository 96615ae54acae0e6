package credentials

// Storage keys for provider secrets. One key per provider; the value is the
// raw secret string. No format validation happens here — each adapter decides
// whether a stored value is usable.
const (
	KeyOpenAI     = "openai_api_key"
	KeyGemini     = "gemini_api_key"
	KeyMistral    = "mistral_api_key"
	KeyDeepseek   = "deepseek_api_key"
	KeyReplicate  = "replicate_api_key"
	KeyStability  = "stability_api_key"
	KeyElevenLabs = "elevenlabs_api_key"
)

// Flag and endpoint keys stored alongside secrets. Flags hold "true"/"false".
const (
	KeyUseCloudAPI    = "use_cloud_api"
	KeyUseLocalTTS    = "use_local_tts"
	KeyOllamaEndpoint = "ollama_endpoint"
)

// DefaultOllamaEndpoint is used when no ollama_endpoint entry exists.
const DefaultOllamaEndpoint = "http://localhost:11434"

// Keys lists every known storage key, secrets first.
func Keys() []string {
	return []string{
		KeyOpenAI, KeyGemini, KeyMistral, KeyDeepseek,
		KeyReplicate, KeyStability, KeyElevenLabs,
		KeyUseCloudAPI, KeyUseLocalTTS, KeyOllamaEndpoint,
	}
}

// KnownKey reports whether key is one of the defined storage keys.
func KnownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// Store is a key-value accessor over persistent credential storage.
// Concurrent writers use last-write-wins semantics; there is no locking
// beyond what each implementation needs for internal consistency.
type Store interface {
	// Get returns the stored value and whether it was present.
	Get(key string) (string, bool)
	// Set stores the value, overwriting any previous entry.
	Set(key, value string) error
	// Delete removes the entry if present.
	Delete(key string) error
}

// BoolFlag reads a boolean-valued entry; absent or unparsable entries
// return the given default.
func BoolFlag(s Store, key string, def bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch v {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	return def
}

// OllamaEndpoint returns the configured Ollama base URL or the default.
func OllamaEndpoint(s Store) string {
	if v, ok := s.Get(KeyOllamaEndpoint); ok && v != "" {
		return v
	}
	return DefaultOllamaEndpoint
}
