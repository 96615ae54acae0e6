package story

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrNotFound reports a lookup for a story id that does not exist.
type ErrNotFound struct{ ID string }

func (e *ErrNotFound) Error() string { return fmt.Sprintf("story %s not found", e.ID) }

// Repository persists stories. Save upserts by id.
type Repository interface {
	List() ([]Story, error)
	Get(id string) (Story, error)
	Save(s Story) error
	Delete(id string) error
}

// FileRepository keeps all stories in one JSON document on disk. The
// library is small enough that rewriting the whole file per save is
// cheaper than anything fancier.
type FileRepository struct {
	mu      sync.Mutex
	path    string
	stories map[string]Story
}

// NewFileRepository loads (or creates) the story file at path.
func NewFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{path: path, stories: map[string]Story{}}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read story file: %w", err)
	}

	var list []Story
	if err := json.Unmarshal(raw, &list); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Story file is corrupt, starting empty")
		return r, nil
	}
	for _, s := range list {
		r.stories[s.ID] = s
	}
	return r, nil
}

func (r *FileRepository) List() ([]Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Story, 0, len(r.stories))
	for _, s := range r.stories {
		out = append(out, s)
	}
	// Newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *FileRepository) Get(id string) (Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stories[id]
	if !ok {
		return Story{}, &ErrNotFound{ID: id}
	}
	return s, nil
}

func (r *FileRepository) Save(s Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stories[s.ID] = s
	return r.persistLocked()
}

func (r *FileRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stories[id]; !ok {
		return &ErrNotFound{ID: id}
	}
	delete(r.stories, id)
	return r.persistLocked()
}

func (r *FileRepository) persistLocked() error {
	list := make([]Story, 0, len(r.stories))
	for _, s := range r.stories {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })

	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode stories: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create story dir: %w", err)
	}
	if err := os.WriteFile(r.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write story file: %w", err)
	}
	return nil
}
