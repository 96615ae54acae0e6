// Package assembly turns raw generated text into the structured pieces a
// story is made of: ordered paragraphs, a derived illustration plan, and
// the fanned-out image generation that fills it.
package assembly

import (
	"context"
	"math"
	"math/rand"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/provider/image"
	"golang.org/x/sync/errgroup"
)

// Image count bounds per story. The density target is one illustration per
// three paragraphs, clamped so short stories still get a spread and long
// ones stay affordable.
const (
	minImages     = 2
	maxImages     = 5
	excerptLength = 200
)

// SplitParagraphs splits generated prose on blank lines, discarding empty
// fragments. Paragraph order is the narrative order and is preserved.
func SplitParagraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}

// ImageCount returns the number of illustrations for a story of n
// paragraphs: ceil(n/3), clamped to [2,5].
func ImageCount(n int) int {
	count := int(math.Ceil(float64(n) / 3))
	if count < minImages {
		count = minImages
	}
	if count > maxImages {
		count = maxImages
	}
	return count
}

// Excerpt truncates a paragraph to the illustration prompt length.
func Excerpt(paragraph string) string {
	if len(paragraph) > excerptLength {
		return paragraph[:excerptLength]
	}
	return paragraph
}

// BuildImagePrompts derives the illustration prompts. The user's prompt
// anchors the first image; longer stories pull excerpts from the opening,
// middle, and closing paragraphs so the illustrations track the narrative
// arc. Any remaining slots are padded with random paragraph excerpts, and
// duplicates are dropped in order.
func BuildImagePrompts(prompt string, paragraphs []string, count int) []string {
	candidates := []string{prompt}
	n := len(paragraphs)
	if n > 0 {
		if n > 3 {
			candidates = append(candidates, Excerpt(paragraphs[0]))
		}
		if n > 6 {
			candidates = append(candidates, Excerpt(paragraphs[n/2]))
		}
		candidates = append(candidates, Excerpt(paragraphs[n-1]))
	}

	for len(candidates) < count && n > 0 {
		candidates = append(candidates, Excerpt(paragraphs[rand.Intn(n)]))
	}

	seen := map[string]bool{}
	var out []string
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == count {
			break
		}
	}
	return out
}

// GenerateImages fans the illustration prompts out concurrently. A failed
// image never fails the story: the slot is filled with a genre placeholder
// and the error is logged. Slot order matches prompt order.
func GenerateImages(ctx context.Context, gen image.Generator, genre string, prompts []string) []string {
	refs := make([]string, len(prompts))

	g, ctx := errgroup.WithContext(ctx)
	for i, prompt := range prompts {
		g.Go(func() error {
			ref, err := gen.Generate(ctx, image.Request{Prompt: prompt, Genre: genre})
			if err != nil {
				log.Warn().Err(err).Int("slot", i).Msg("Image generation failed, using placeholder")
				ref = image.Placeholder(genre)
			}
			refs[i] = ref
			return nil
		})
	}
	g.Wait()

	return refs
}
