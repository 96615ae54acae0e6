package playback

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/rs/zerolog/log"
)

// playbackRate is the fixed speaker sample rate; decoded tracks are
// resampled to it so the speaker is initialized exactly once.
const playbackRate beep.SampleRate = 44100

// BeepPlayer renders audio files through the system speaker. Cloud
// narration arrives as MP3, the local synthesizer produces WAV; both are
// decoded by file extension. References can be absolute paths, /media/
// URLs backed by the local media directory, or remote URLs.
type BeepPlayer struct {
	mu       sync.Mutex
	once     sync.Once
	ctrl     *beep.Ctrl
	vol      *effects.Volume
	track    beep.StreamSeekCloser
	level    float64
	mediaDir string
}

// NewBeepPlayer returns a speaker-backed player. mediaDir resolves /media/
// references to local files.
func NewBeepPlayer(mediaDir string) *BeepPlayer {
	return &BeepPlayer{level: 1, mediaDir: mediaDir}
}

func (p *BeepPlayer) open(ref string) (io.ReadCloser, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		resp, err := http.Get(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch audio %s: %w", ref, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to fetch audio %s: status %d", ref, resp.StatusCode)
		}
		// Buffer fully; the decoder seeks.
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read audio %s: %w", ref, err)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	path := ref
	if rest, ok := strings.CutPrefix(ref, "/media/"); ok {
		path = filepath.Join(p.mediaDir, filepath.FromSlash(rest))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio %s: %w", ref, err)
	}
	return f, nil
}

func (p *BeepPlayer) decode(ref string) (beep.StreamSeekCloser, beep.Format, error) {
	rc, err := p.open(ref)
	if err != nil {
		return nil, beep.Format{}, err
	}
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".wav":
		return wav.Decode(rc)
	default:
		return mp3.Decode(rc)
	}
}

func (p *BeepPlayer) Play(ref string, done func()) error {
	streamer, format, err := p.decode(ref)
	if err != nil {
		return err
	}

	var initErr error
	p.once.Do(func() {
		initErr = speaker.Init(playbackRate, playbackRate.N(time.Second/10))
	})
	if initErr != nil {
		streamer.Close()
		return fmt.Errorf("failed to initialize speaker: %w", initErr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	resampled := beep.Resample(4, format.SampleRate, playbackRate, streamer)
	p.ctrl = &beep.Ctrl{Streamer: resampled}
	p.vol = &effects.Volume{Streamer: p.ctrl, Base: 2, Volume: gain(p.level), Silent: p.level <= 0}
	p.track = streamer

	log.Debug().Str("ref", ref).Msg("Starting audio track")
	// The callback runs inside the speaker mixer, which holds the speaker
	// lock; done must run elsewhere so it can start the next track.
	speaker.Play(beep.Seq(p.vol, beep.Callback(func() {
		streamer.Close()
		go done()
	})))
	return nil
}

// gain maps a linear 0..1 level onto the exponential volume scale.
func gain(level float64) float64 {
	if level <= 0 {
		return 0
	}
	return math.Log2(level)
}

func (p *BeepPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
}

func (p *BeepPlayer) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
}

func (p *BeepPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *BeepPlayer) stopLocked() {
	if p.track == nil {
		return
	}
	speaker.Clear()
	p.track.Close()
	p.track = nil
	p.ctrl = nil
	p.vol = nil
}

func (p *BeepPlayer) SetVolume(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	if p.vol == nil {
		return
	}
	speaker.Lock()
	p.vol.Volume = gain(level)
	p.vol.Silent = level <= 0
	speaker.Unlock()
}

func (p *BeepPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}
