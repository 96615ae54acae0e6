package voice

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/provider"
	"github.com/tale-forge/taleforge/internal/storage"
)

// espeakVariants maps catalog voice names onto eSpeak voice variants so a
// voice choice survives the fallback, if only approximately.
var espeakVariants = map[string]string{
	"adam":   "en+m3",
	"antoni": "en+m4",
	"josh":   "en+m2",
	"sam":    "en+m5",
	"onyx":   "en+m1",
	"bella":  "en+f3",
	"elli":   "en+f4",
	"rachel": "en+f2",
	"domi":   "en+f5",
}

// LocalTTS synthesizes narration on-device by driving eSpeak into a WAV
// file. It is the lower-fidelity fallback when the cloud voice provider is
// unavailable, so missing voice credentials never block narration.
type LocalTTS struct {
	assets storage.AssetStore
}

// NewLocalTTS returns the on-device synthesis adapter.
func NewLocalTTS(assets storage.AssetStore) *LocalTTS {
	return &LocalTTS{assets: assets}
}

func (l *LocalTTS) Provider() provider.Provider { return provider.LocalTTS }

func findESpeak() (string, error) {
	for _, candidate := range []string{"espeak-ng", "espeak"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

func (l *LocalTTS) Synthesize(ctx context.Context, text, voice string) (string, error) {
	espeakPath, err := findESpeak()
	if err != nil {
		return "", provider.Errf(provider.LocalTTS, provider.KindTransientNetwork, "local speech synthesis unavailable: %v", err)
	}

	if len(text) > maxTTSChars {
		text = text[:maxTTSChars]
	}

	tmp, err := os.CreateTemp("", "taleforge-tts-*.wav")
	if err != nil {
		return "", provider.Errf(provider.LocalTTS, provider.KindMalformedResponse, "failed to create temp file: %v", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	args := []string{"-w", tmpPath}
	if variant, ok := espeakVariants[voice]; ok {
		args = append(args, "-v", variant)
	}
	args = append(args, text)

	log.Debug().Str("voice", voice).Int("text_length", len(text)).Msg("Synthesizing audio with eSpeak")

	cmd := exec.CommandContext(ctx, espeakPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", provider.Errf(provider.LocalTTS, provider.KindMalformedResponse, "speech synthesis failed: %v: %s", err, out)
	}

	raw, err := os.ReadFile(tmpPath)
	if err != nil || len(raw) == 0 {
		return "", provider.Errf(provider.LocalTTS, provider.KindMalformedResponse, "speech synthesis produced no audio")
	}

	assetKey := fmt.Sprintf("audio/local-%s-%d%s", voice, time.Now().UnixNano(), filepath.Ext(tmpPath))
	ref, err := l.assets.Put(ctx, assetKey, raw, "audio/wav")
	if err != nil {
		return "", provider.Errf(provider.LocalTTS, provider.KindMalformedResponse, "failed to store audio: %v", err)
	}

	log.Info().Str("voice", voice).Int("size_bytes", len(raw)).Msg("Local TTS audio generated")
	return ref, nil
}
