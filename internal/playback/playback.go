// Package playback drives sequential paragraph narration through an
// explicit state machine. Audio is synthesized lazily per paragraph and
// cached per voice, so replaying or resuming never re-synthesizes and a
// voice change never serves stale audio.
package playback

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/provider/voice"
)

// State is the playback machine state.
type State int

const (
	StateIdle State = iota
	StateGenerating
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Player is the audio output device. Play starts a track and invokes done
// when the track finishes naturally; Stop discards the current track
// without invoking done.
type Player interface {
	Play(ref string, done func()) error
	Pause()
	Resume()
	Stop()
	SetVolume(level float64)
	Close() error
}

// Status is an immutable snapshot of the engine, published to the listener
// on every transition.
type Status struct {
	State     State   `json:"state"`
	Paragraph int     `json:"paragraph"`
	Voice     string  `json:"voice"`
	Volume    float64 `json:"volume"`
	Muted     bool    `json:"muted"`
	Error     string  `json:"error,omitempty"`
}

// Engine sequences paragraph narration. All transitions happen under one
// lock; synthesis runs outside it so a slow provider never blocks pause or
// volume changes.
type Engine struct {
	mu     sync.Mutex
	synth  voice.Synthesizer
	player Player

	paragraphs []string
	voice      string
	volume     float64
	muted      bool

	state     State
	index     int
	lastErr   string
	listener  func(Status)
	audioSink func(voiceName string, paragraph int, ref string)

	// cache maps voice name to paragraph index to audio reference.
	cache map[string]map[int]string

	// generation counter invalidates in-flight synthesis and done
	// callbacks after a stop, skip, or voice change.
	gen uint64
}

// NewEngine returns an idle engine narrating with the given voice.
func NewEngine(synth voice.Synthesizer, player Player, voiceName string, volume float64) *Engine {
	player.SetVolume(volume)
	return &Engine{
		synth:  synth,
		player: player,
		voice:  voiceName,
		volume: volume,
		cache:  map[string]map[int]string{},
	}
}

// SetListener registers the transition callback. The callback runs with the
// engine lock held and must not call back into the engine.
func (e *Engine) SetListener(fn func(Status)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = fn
}

// SetAudioSink registers a callback invoked for every newly synthesized
// paragraph, letting callers persist audio references. Same constraint as
// the listener: it runs under the engine lock.
func (e *Engine) SetAudioSink(fn func(voiceName string, paragraph int, ref string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.audioSink = fn
}

// Load replaces the narrated paragraphs and resets the machine to idle.
// The audio cache is keyed by paragraph index, so it is only valid for
// one set of paragraphs and is dropped here.
func (e *Engine) Load(paragraphs []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	e.paragraphs = paragraphs
	e.index = 0
	e.lastErr = ""
	e.cache = map[string]map[int]string{}
	e.setStateLocked(StateIdle)
}

// SeedCache primes the cache with previously persisted references, so a
// reloaded story replays without re-synthesis. Call after Load.
func (e *Engine) SeedCache(voiceName string, refs map[int]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(refs) == 0 {
		return
	}
	byIndex, ok := e.cache[voiceName]
	if !ok {
		byIndex = map[int]string{}
		e.cache[voiceName] = byIndex
	}
	for i, ref := range refs {
		byIndex[i] = ref
	}
}

// Status returns the current snapshot.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

func (e *Engine) statusLocked() Status {
	return Status{
		State:     e.state,
		Paragraph: e.index,
		Voice:     e.voice,
		Volume:    e.volume,
		Muted:     e.muted,
		Error:     e.lastErr,
	}
}

func (e *Engine) setStateLocked(s State) {
	e.state = s
	if e.listener != nil {
		e.listener(e.statusLocked())
	}
}

func (e *Engine) stopLocked() {
	e.gen++
	e.player.Stop()
}

// Play starts or resumes narration. From paused it resumes the current
// track; from idle it narrates from the current paragraph.
func (e *Engine) Play(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StatePlaying, StateGenerating:
		return nil
	case StatePaused:
		e.player.Resume()
		e.setStateLocked(StatePlaying)
		return nil
	}

	e.lastErr = ""
	e.startLocked(ctx, e.index)
	return nil
}

// Pause suspends a playing track in place; position is preserved.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePlaying {
		return
	}
	e.player.Pause()
	e.setStateLocked(StatePaused)
}

// Stop halts narration and rewinds to the first paragraph.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	e.index = 0
	e.setStateLocked(StateIdle)
}

// Skip jumps to paragraph i and narrates it. Skips are ignored while audio
// is being generated and for out-of-range targets.
func (e *Engine) Skip(ctx context.Context, i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateGenerating {
		log.Debug().Int("paragraph", i).Msg("Skip ignored during generation")
		return
	}
	if i < 0 || i >= len(e.paragraphs) {
		return
	}
	e.stopLocked()
	e.index = i
	e.lastErr = ""
	e.startLocked(ctx, i)
}

// ChangeVoice switches the narration voice and invalidates the entire
// audio cache, so every paragraph is re-synthesized with the new voice;
// if narration is active the current paragraph restarts in it.
func (e *Engine) ChangeVoice(ctx context.Context, voiceName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if voiceName == e.voice {
		return
	}
	e.voice = voiceName
	e.cache = map[string]map[int]string{}

	switch e.state {
	case StatePlaying, StatePaused:
		e.stopLocked()
		e.startLocked(ctx, e.index)
	default:
		if e.listener != nil {
			e.listener(e.statusLocked())
		}
	}
}

// SetVolume sets the output level, clamped to [0,1].
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.volume = v
	e.player.SetVolume(e.effectiveVolumeLocked())
	if e.listener != nil {
		e.listener(e.statusLocked())
	}
}

// SetMuted silences output without losing the stored level.
func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = muted
	e.player.SetVolume(e.effectiveVolumeLocked())
	if e.listener != nil {
		e.listener(e.statusLocked())
	}
}

func (e *Engine) effectiveVolumeLocked() float64 {
	if e.muted {
		return 0
	}
	return e.volume
}

// Voice returns the active narration voice.
func (e *Engine) Voice() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.voice
}

// Close tears the engine down.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	e.setStateLocked(StateIdle)
	return e.player.Close()
}

// startLocked begins narration of paragraph i. Past the last paragraph the
// story is complete and the machine returns to idle.
func (e *Engine) startLocked(ctx context.Context, i int) {
	if i >= len(e.paragraphs) {
		e.index = 0
		e.setStateLocked(StateIdle)
		log.Info().Msg("Narration complete")
		return
	}

	if ref, ok := e.cachedLocked(i); ok {
		e.playLocked(ctx, i, ref, false)
		return
	}

	e.synthesizeLocked(ctx, i, false)
}

// synthesizeLocked kicks off asynchronous synthesis for paragraph i.
// regenerated marks the single retry after a playback failure; its result
// plays without another regeneration pass.
func (e *Engine) synthesizeLocked(ctx context.Context, i int, regenerated bool) {
	e.setStateLocked(StateGenerating)
	gen := e.gen
	voiceName := e.voice
	text := e.paragraphs[i]

	go func() {
		ref, err := e.synthesizeWithRetry(ctx, text, voiceName)

		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.gen {
			return
		}
		if err != nil {
			log.Error().Err(err).Int("paragraph", i).Msg("Audio synthesis failed")
			e.lastErr = err.Error()
			e.setStateLocked(StateIdle)
			return
		}
		e.storeLocked(voiceName, i, ref)
		e.playLocked(ctx, i, ref, regenerated)
	}()
}

// synthesizeWithRetry retries a failed synthesis exactly once before the
// failure becomes persistent.
func (e *Engine) synthesizeWithRetry(ctx context.Context, text, voiceName string) (string, error) {
	ref, err := e.synth.Synthesize(ctx, text, voiceName)
	if err == nil {
		return ref, nil
	}
	log.Warn().Err(err).Str("voice", voiceName).Msg("Synthesis failed, retrying once")
	return e.synth.Synthesize(ctx, text, voiceName)
}

// playLocked hands the reference to the player. A playback failure means
// the reference went stale (a deleted media file, say): the cache entry is
// evicted and the paragraph regenerated once before the error sticks.
func (e *Engine) playLocked(ctx context.Context, i int, ref string, regenerated bool) {
	gen := e.gen
	err := e.player.Play(ref, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.gen || e.state != StatePlaying || e.index != i {
			return
		}
		e.index = i + 1
		e.startLocked(context.Background(), e.index)
	})
	if err != nil {
		if byIndex, ok := e.cache[e.voice]; ok {
			delete(byIndex, i)
		}
		if !regenerated {
			log.Warn().Err(err).Int("paragraph", i).Msg("Audio playback failed, regenerating")
			e.synthesizeLocked(ctx, i, true)
			return
		}
		log.Error().Err(err).Int("paragraph", i).Msg("Audio playback failed")
		e.lastErr = err.Error()
		e.setStateLocked(StateIdle)
		return
	}
	e.index = i
	e.setStateLocked(StatePlaying)
}

func (e *Engine) cachedLocked(i int) (string, bool) {
	byIndex, ok := e.cache[e.voice]
	if !ok {
		return "", false
	}
	ref, ok := byIndex[i]
	return ref, ok
}

func (e *Engine) storeLocked(voiceName string, i int, ref string) {
	byIndex, ok := e.cache[voiceName]
	if !ok {
		byIndex = map[int]string{}
		e.cache[voiceName] = byIndex
	}
	byIndex[i] = ref
	if e.audioSink != nil {
		e.audioSink(voiceName, i, ref)
	}
}
