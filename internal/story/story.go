// Package story holds the story model and the generation service that
// assembles text, illustrations, and metadata into a persisted story.
package story

import (
	"fmt"
	"time"
)

// Story is one generated story with its media references. Audio maps
// paragraph index to the narration reference for the story's voice; a
// voice change discards it.
type Story struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Prompt     string         `json:"prompt"`
	Genre      string         `json:"genre"`
	Length     string         `json:"length"`
	Paragraphs []string       `json:"paragraphs"`
	Images     []string       `json:"images"`
	Audio      map[int]string `json:"audio,omitempty"`
	TextModel  string         `json:"text_model"`
	ImageModel string         `json:"image_model"`
	Voice      string         `json:"voice"`
	CreatedAt  time.Time      `json:"created_at"`
}

// maxTitlePromptLen bounds how much of the prompt the derived title shows.
const maxTitlePromptLen = 20

// DefaultTitle derives a display title from the user's prompt.
func DefaultTitle(prompt string) string {
	if len(prompt) > maxTitlePromptLen {
		return fmt.Sprintf("Story about %s...", prompt[:maxTitlePromptLen])
	}
	return fmt.Sprintf("Story about %s", prompt)
}

// Now returns the creation timestamp; stored in UTC so the wire format is
// stable across hosts.
func Now() time.Time {
	return time.Now().UTC()
}
