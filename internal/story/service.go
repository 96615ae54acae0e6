package story

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/assembly"
	"github.com/tale-forge/taleforge/internal/orchestrator"
	"github.com/tale-forge/taleforge/internal/provider"
	"github.com/tale-forge/taleforge/internal/provider/image"
)

// GenerateRequest carries the user's generation inputs. Empty model and
// voice fields fall back to the local-first defaults.
type GenerateRequest struct {
	Prompt     string `json:"prompt"`
	Genre      string `json:"genre"`
	Length     string `json:"length"`
	TextModel  string `json:"text_model"`
	ImageModel string `json:"image_model"`
	Voice      string `json:"voice"`
}

const (
	defaultTextModel  = "ollama-mistral"
	defaultImageModel = "replicate-sd"
	defaultVoice      = "adam"
)

func (r *GenerateRequest) applyDefaults() {
	if r.TextModel == "" {
		r.TextModel = defaultTextModel
	}
	if r.ImageModel == "" {
		r.ImageModel = defaultImageModel
	}
	if r.Voice == "" {
		r.Voice = defaultVoice
	}
	if r.Length == "" {
		r.Length = "medium"
	}
	if r.Genre == "" {
		r.Genre = "fantasy"
	}
}

// Service coordinates generation and persistence. At most one generation
// runs at a time; concurrent requests are rejected rather than queued.
type Service struct {
	mu         sync.Mutex
	generating bool

	repo Repository
	orch *orchestrator.Orchestrator
}

// NewService returns a story service.
func NewService(repo Repository, orch *orchestrator.Orchestrator) *Service {
	return &Service{repo: repo, orch: orch}
}

// List returns all stories, newest first.
func (s *Service) List() ([]Story, error) { return s.repo.List() }

// Get returns one story by id.
func (s *Service) Get(id string) (Story, error) { return s.repo.Get(id) }

// Save upserts a story, deriving a title when none is set.
func (s *Service) Save(st Story) (Story, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = Now()
	}
	if st.Title == "" {
		st.Title = DefaultTitle(st.Prompt)
	}
	if err := s.repo.Save(st); err != nil {
		return Story{}, err
	}
	return st, nil
}

// Delete removes a story.
func (s *Service) Delete(id string) error { return s.repo.Delete(id) }

func (s *Service) beginGeneration() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating {
		return &provider.Error{
			Kind:        provider.KindGenerationInProgress,
			Message:     "a story is already being generated",
			Remediation: "wait for the current generation to finish",
		}
	}
	s.generating = true
	return nil
}

func (s *Service) endGeneration() {
	s.mu.Lock()
	s.generating = false
	s.mu.Unlock()
}

// Generate produces a complete story: text first, then illustrations
// fanned out concurrently, then persistence. Image failures degrade to
// placeholders; only text failure aborts.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (Story, error) {
	if err := s.beginGeneration(); err != nil {
		return Story{}, err
	}
	defer s.endGeneration()

	req.applyDefaults()

	log.Info().
		Str("genre", req.Genre).
		Str("length", req.Length).
		Str("text_model", req.TextModel).
		Str("image_model", req.ImageModel).
		Msg("Generating story")

	text, err := s.orch.GenerateStory(ctx, req.Prompt, req.Genre, req.Length, req.TextModel)
	if err != nil {
		return Story{}, err
	}

	paragraphs := assembly.SplitParagraphs(text)
	count := assembly.ImageCount(len(paragraphs))
	prompts := assembly.BuildImagePrompts(req.Prompt, paragraphs, count)
	images := assembly.GenerateImages(ctx, s.orch.ImageGenerator(req.ImageModel), req.Genre, prompts)

	st := Story{
		ID:         uuid.NewString(),
		Title:      DefaultTitle(req.Prompt),
		Prompt:     req.Prompt,
		Genre:      req.Genre,
		Length:     req.Length,
		Paragraphs: paragraphs,
		Images:     images,
		TextModel:  req.TextModel,
		ImageModel: req.ImageModel,
		Voice:      req.Voice,
		CreatedAt:  Now(),
	}

	if err := s.repo.Save(st); err != nil {
		return Story{}, err
	}

	log.Info().
		Str("story_id", st.ID).
		Int("paragraphs", len(paragraphs)).
		Int("images", len(images)).
		Msg("Story generated")
	return st, nil
}

// RegenerateImage replaces one illustration. The prompt is drawn from the
// paragraph the slot illustrates, so the new image stays anchored to the
// same stretch of narrative.
func (s *Service) RegenerateImage(ctx context.Context, id string, slot int) (Story, error) {
	st, err := s.repo.Get(id)
	if err != nil {
		return Story{}, err
	}
	if slot < 0 || slot >= len(st.Images) {
		return Story{}, &provider.Error{
			Kind:    provider.KindMalformedResponse,
			Message: "image index out of range",
		}
	}

	prompt := st.Prompt
	if n := len(st.Paragraphs); n > 0 {
		idx := slot * 3
		if idx > n-1 {
			idx = n - 1
		}
		prompt = assembly.Excerpt(st.Paragraphs[idx])
	}

	gen := s.orch.ImageGenerator(st.ImageModel)
	ref, err := gen.Generate(ctx, image.Request{Prompt: prompt, Genre: st.Genre})
	if err != nil {
		log.Warn().Err(err).Str("story_id", id).Int("slot", slot).Msg("Image regeneration failed, using placeholder")
		ref = image.Placeholder(st.Genre)
	}

	st.Images[slot] = ref
	if err := s.repo.Save(st); err != nil {
		return Story{}, err
	}
	return st, nil
}

// SetVoice records a narration voice change and drops audio synthesized
// with the previous voice.
func (s *Service) SetVoice(id, voiceName string) (Story, error) {
	st, err := s.repo.Get(id)
	if err != nil {
		return Story{}, err
	}
	if st.Voice == voiceName {
		return st, nil
	}
	st.Voice = voiceName
	st.Audio = nil
	if err := s.repo.Save(st); err != nil {
		return Story{}, err
	}
	return st, nil
}

// SetAudio records a synthesized narration reference for one paragraph.
func (s *Service) SetAudio(id string, paragraph int, ref string) error {
	st, err := s.repo.Get(id)
	if err != nil {
		return err
	}
	if st.Audio == nil {
		st.Audio = map[int]string{}
	}
	st.Audio[paragraph] = ref
	return s.repo.Save(st)
}
