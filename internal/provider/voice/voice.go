// Package voice contains narration synthesis adapters. Narration degrades
// gracefully: when the cloud voice provider is unavailable the engine falls
// back to on-device synthesis rather than failing playback.
package voice

import (
	"context"

	"github.com/tale-forge/taleforge/internal/provider"
)

// Synthesizer converts one paragraph of text into an audio reference.
type Synthesizer interface {
	Provider() provider.Provider
	Synthesize(ctx context.Context, text, voice string) (string, error)
}

// elevenVoiceIDs maps the catalog's voice names to ElevenLabs voice ids.
// Unknown names resolve to the default voice.
var elevenVoiceIDs = map[string]string{
	"adam":    "pNInz6obpgDQGcFmaJgB",
	"antoni":  "ErXwobaYiN019PkySvjV",
	"bella":   "EXAVITQu4vr4xnSDxMaL",
	"elli":    "MF3mGyEYCl7XYWbV9V6O",
	"josh":    "TxGEqnHWrfWFTfGW9XjX",
	"rachel":  "21m00Tcm4TlvDq8ikWAM",
	"sam":     "yoZ06aMxZJJ28mfd3POQ",
	"domi":    "AZnzlk1XvdvUeBnXmlld",
	"onyx":    "IKne3meq5aSn9XLyUdCD",
	"default": "IKne3meq5aSn9XLyUdCD",
}

// VoiceID resolves a voice name to the provider id, defaulting for
// unknown names.
func VoiceID(name string) string {
	if id, ok := elevenVoiceIDs[name]; ok {
		return id
	}
	return elevenVoiceIDs["default"]
}

// Voices lists the selectable voice names, in catalog order.
func Voices() []string {
	return []string{"adam", "antoni", "bella", "elli", "josh", "rachel", "sam", "domi", "onyx"}
}
