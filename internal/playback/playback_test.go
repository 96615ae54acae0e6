package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tale-forge/taleforge/internal/provider"
)

// fakeSynth counts synthesis calls per voice and can be scripted to fail.
type fakeSynth struct {
	mu      sync.Mutex
	calls   map[string]int
	failFor int // number of leading calls that fail
	block   chan struct{}
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{calls: map[string]int{}}
}

func (f *fakeSynth) Provider() provider.Provider { return provider.LocalTTS }

func (f *fakeSynth) Synthesize(_ context.Context, text, voice string) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[voice]++
	total := 0
	for _, n := range f.calls {
		total += n
	}
	if total <= f.failFor {
		return "", provider.Errf(provider.LocalTTS, provider.KindTransientNetwork, "synthesis unavailable")
	}
	return "audio/" + voice + "/" + text, nil
}

func (f *fakeSynth) count(voice string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[voice]
}

// fakePlayer records tracks and exposes the completion callback so tests
// drive track endings explicitly. failFor makes the leading Play calls
// error out, standing in for stale media references.
type fakePlayer struct {
	mu       sync.Mutex
	tracks   []string
	done     func()
	volume   float64
	closed   bool
	failFor  int
	attempts int
}

func (f *fakePlayer) Play(ref string, done func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failFor {
		return provider.Errf(provider.LocalTTS, provider.KindMalformedResponse, "cannot open audio")
	}
	f.tracks = append(f.tracks, ref)
	f.done = done
	return nil
}

func (f *fakePlayer) Pause()  {}
func (f *fakePlayer) Resume() {}
func (f *fakePlayer) Stop()   {}

func (f *fakePlayer) SetVolume(level float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = level
}

func (f *fakePlayer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePlayer) finishTrack() {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()
	if done != nil {
		done()
	}
}

func (f *fakePlayer) trackCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tracks)
}

func newTestEngine(synth *fakeSynth, player *fakePlayer) (*Engine, chan Status) {
	e := NewEngine(synth, player, "adam", 0.7)
	events := make(chan Status, 64)
	e.SetListener(func(st Status) {
		select {
		case events <- st:
		default:
		}
	})
	return e, events
}

func waitState(t *testing.T, events chan Status, want State) Status {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-events:
			if st.State == want {
				return st
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v", want)
		}
	}
}

func TestPlayGeneratesThenPlays(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{}
	e, events := newTestEngine(synth, player)

	e.Load([]string{"First paragraph.", "Second paragraph."})
	if err := e.Play(context.Background()); err != nil {
		t.Fatalf("play: %v", err)
	}

	waitState(t, events, StateGenerating)
	st := waitState(t, events, StatePlaying)
	if st.Paragraph != 0 {
		t.Errorf("paragraph = %d, want 0", st.Paragraph)
	}
	if synth.count("adam") != 1 {
		t.Errorf("synth calls = %d, want 1", synth.count("adam"))
	}
}

func TestPauseResumePreservesParagraph(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{}
	e, events := newTestEngine(synth, player)

	e.Load([]string{"One.", "Two.", "Three."})
	e.Play(context.Background())
	waitState(t, events, StatePlaying)

	player.finishTrack()
	st := waitState(t, events, StatePlaying)
	if st.Paragraph != 1 {
		t.Fatalf("paragraph = %d, want 1 after first track", st.Paragraph)
	}

	e.Pause()
	st = waitState(t, events, StatePaused)
	if st.Paragraph != 1 {
		t.Errorf("pause moved paragraph to %d", st.Paragraph)
	}

	e.Play(context.Background())
	st = waitState(t, events, StatePlaying)
	if st.Paragraph != 1 {
		t.Errorf("resume moved paragraph to %d", st.Paragraph)
	}
	if synth.count("adam") != 2 {
		t.Errorf("resume re-synthesized: %d calls", synth.count("adam"))
	}
}

func TestFullSequenceEndsIdle(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{}
	e, events := newTestEngine(synth, player)

	paragraphs := []string{"P0.", "P1.", "P2."}
	e.Load(paragraphs)
	e.Play(context.Background())

	for range paragraphs {
		waitState(t, events, StatePlaying)
		player.finishTrack()
	}

	st := waitState(t, events, StateIdle)
	if st.Paragraph != 0 {
		t.Errorf("completed run left paragraph at %d", st.Paragraph)
	}
	if player.trackCount() != 3 {
		t.Errorf("played %d tracks, want 3", player.trackCount())
	}
}

func TestReplayUsesCache(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{}
	e, events := newTestEngine(synth, player)

	e.Load([]string{"Only one."})
	e.Play(context.Background())
	waitState(t, events, StatePlaying)
	player.finishTrack()
	waitState(t, events, StateIdle)

	e.Play(context.Background())
	waitState(t, events, StatePlaying)

	if synth.count("adam") != 1 {
		t.Errorf("replay re-synthesized: %d calls", synth.count("adam"))
	}
}

func TestChangeVoiceResynthesizes(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{}
	e, events := newTestEngine(synth, player)

	e.Load([]string{"Hello there."})
	e.Play(context.Background())
	waitState(t, events, StatePlaying)

	e.ChangeVoice(context.Background(), "bella")
	waitState(t, events, StateGenerating)
	waitState(t, events, StatePlaying)

	if synth.count("bella") != 1 {
		t.Errorf("bella synth calls = %d, want 1", synth.count("bella"))
	}
	if got := e.Voice(); got != "bella" {
		t.Errorf("voice = %q", got)
	}
}

func TestChangeVoiceInvalidatesEntireCache(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{}
	e, events := newTestEngine(synth, player)

	e.Load([]string{"Round trip."})
	e.Play(context.Background())
	waitState(t, events, StatePlaying)

	e.ChangeVoice(context.Background(), "bella")
	waitState(t, events, StateGenerating)
	waitState(t, events, StatePlaying)

	e.ChangeVoice(context.Background(), "adam")
	waitState(t, events, StateGenerating)
	waitState(t, events, StatePlaying)

	if synth.count("adam") != 2 {
		t.Errorf("adam synth calls = %d, want 2 after returning to the voice", synth.count("adam"))
	}
}

func TestSkipIgnoredDuringGeneration(t *testing.T) {
	synth := newFakeSynth()
	synth.block = make(chan struct{})
	player := &fakePlayer{}
	e, events := newTestEngine(synth, player)

	e.Load([]string{"A.", "B.", "C."})
	e.Play(context.Background())
	waitState(t, events, StateGenerating)

	e.Skip(context.Background(), 2)
	if st := e.Status(); st.Paragraph != 0 {
		t.Errorf("skip during generation moved paragraph to %d", st.Paragraph)
	}

	close(synth.block)
	st := waitState(t, events, StatePlaying)
	if st.Paragraph != 0 {
		t.Errorf("paragraph = %d after generation, want 0", st.Paragraph)
	}
}

func TestSynthesisRetriesOnce(t *testing.T) {
	synth := newFakeSynth()
	synth.failFor = 1
	player := &fakePlayer{}
	e, events := newTestEngine(synth, player)

	e.Load([]string{"Fragile."})
	e.Play(context.Background())

	st := waitState(t, events, StatePlaying)
	if st.Error != "" {
		t.Errorf("unexpected error %q", st.Error)
	}
	if synth.count("adam") != 2 {
		t.Errorf("synth calls = %d, want 2 (one retry)", synth.count("adam"))
	}
}

func TestSynthesisFailureBecomesPersistent(t *testing.T) {
	synth := newFakeSynth()
	synth.failFor = 2
	player := &fakePlayer{}
	e, events := newTestEngine(synth, player)

	e.Load([]string{"Doomed."})
	e.Play(context.Background())

	// Load itself publishes an idle snapshot; wait for generation to start
	// so the idle observed below is the post-failure one.
	waitState(t, events, StateGenerating)
	st := waitState(t, events, StateIdle)
	if st.Error == "" {
		t.Error("expected a persistent error after both attempts failed")
	}
	if player.trackCount() != 0 {
		t.Error("a track played despite synthesis failure")
	}
}

func TestLoadDropsPreviousStoryAudio(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{}
	e, events := newTestEngine(synth, player)

	e.Load([]string{"Story A paragraph zero."})
	e.Play(context.Background())
	waitState(t, events, StatePlaying)

	e.Load([]string{"Story B paragraph zero."})
	e.Play(context.Background())
	waitState(t, events, StatePlaying)

	if synth.count("adam") != 2 {
		t.Errorf("synth calls = %d, want 2 (one per story)", synth.count("adam"))
	}
	player.mu.Lock()
	last := player.tracks[len(player.tracks)-1]
	player.mu.Unlock()
	if last != "audio/adam/Story B paragraph zero." {
		t.Errorf("second story played %q", last)
	}
}

func TestSeedCacheSkipsSynthesis(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{}
	e, events := newTestEngine(synth, player)

	e.Load([]string{"Persisted one.", "Persisted two."})
	e.SeedCache("adam", map[int]string{0: "audio/persisted-0.mp3", 1: "audio/persisted-1.mp3"})
	e.Play(context.Background())
	waitState(t, events, StatePlaying)
	player.finishTrack()
	waitState(t, events, StatePlaying)

	if synth.count("adam") != 0 {
		t.Errorf("seeded playback synthesized %d times", synth.count("adam"))
	}
	player.mu.Lock()
	defer player.mu.Unlock()
	if player.tracks[0] != "audio/persisted-0.mp3" || player.tracks[1] != "audio/persisted-1.mp3" {
		t.Errorf("tracks = %v", player.tracks)
	}
}

func TestPlaybackFailureRegeneratesOnce(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{failFor: 1}
	e, events := newTestEngine(synth, player)

	e.Load([]string{"Stale ref."})
	e.SeedCache("adam", map[int]string{0: "audio/deleted.mp3"})
	e.Play(context.Background())

	st := waitState(t, events, StatePlaying)
	if st.Error != "" {
		t.Errorf("unexpected error %q", st.Error)
	}
	if synth.count("adam") != 1 {
		t.Errorf("synth calls = %d, want 1 regeneration", synth.count("adam"))
	}
	player.mu.Lock()
	defer player.mu.Unlock()
	if len(player.tracks) != 1 || player.tracks[0] != "audio/adam/Stale ref." {
		t.Errorf("tracks = %v, want the regenerated reference", player.tracks)
	}
}

func TestPlaybackFailurePersistsAfterRegeneration(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{failFor: 2}
	e, events := newTestEngine(synth, player)

	e.Load([]string{"Unplayable."})
	e.Play(context.Background())

	waitState(t, events, StateGenerating)
	st := waitState(t, events, StateIdle)
	if st.Error == "" {
		t.Error("expected an error after the regenerated reference also failed")
	}
	if synth.count("adam") != 2 {
		t.Errorf("synth calls = %d, want 2 (initial plus one regeneration)", synth.count("adam"))
	}
}

func TestVolumeAndMute(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{}
	e, _ := newTestEngine(synth, player)

	e.SetVolume(0.5)
	if player.volume != 0.5 {
		t.Errorf("volume = %v", player.volume)
	}

	e.SetMuted(true)
	if player.volume != 0 {
		t.Errorf("muted volume = %v, want 0", player.volume)
	}

	e.SetMuted(false)
	if player.volume != 0.5 {
		t.Errorf("unmuted volume = %v, want the stored 0.5", player.volume)
	}

	e.SetVolume(1.7)
	if player.volume != 1 {
		t.Errorf("volume = %v, want clamped to 1", player.volume)
	}
}

func TestAudioSinkReceivesReferences(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{}
	e, events := newTestEngine(synth, player)

	var mu sync.Mutex
	got := map[int]string{}
	e.SetAudioSink(func(voiceName string, paragraph int, ref string) {
		mu.Lock()
		got[paragraph] = ref
		mu.Unlock()
	})

	e.Load([]string{"Sink me."})
	e.Play(context.Background())
	waitState(t, events, StatePlaying)

	mu.Lock()
	defer mu.Unlock()
	if got[0] == "" {
		t.Error("audio sink never received the synthesized reference")
	}
}

func TestStopRewinds(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{}
	e, events := newTestEngine(synth, player)

	e.Load([]string{"X.", "Y."})
	e.Play(context.Background())
	waitState(t, events, StatePlaying)
	player.finishTrack()
	waitState(t, events, StatePlaying)

	e.Stop()
	st := waitState(t, events, StateIdle)
	if st.Paragraph != 0 {
		t.Errorf("stop left paragraph at %d", st.Paragraph)
	}
}
