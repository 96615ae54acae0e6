package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/playback"
)

const playbackWSReadLimit = 16 << 10

var playbackWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// playbackWSInMessage is the JSON shape sent from the client.
type playbackWSInMessage struct {
	Action    string  `json:"action"`
	StoryID   string  `json:"story_id,omitempty"`
	Paragraph int     `json:"paragraph,omitempty"`
	Voice     string  `json:"voice,omitempty"`
	Volume    float64 `json:"volume,omitempty"`
	Muted     bool    `json:"muted,omitempty"`
}

// playbackWSOutMessage is the JSON shape sent to the client.
type playbackWSOutMessage struct {
	Type   string           `json:"type"`
	Status *playback.Status `json:"status,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// PlaybackWS handles GET /v1/playback/ws — the playback control channel.
// Clients send commands; the server pushes a status snapshot on every
// machine transition, including transitions driven by track completion.
func (h *Handler) PlaybackWS(w http.ResponseWriter, r *http.Request) {
	conn, err := playbackWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("playback ws upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(playbackWSReadLimit)
	conn.SetReadDeadline(time.Now().Add(60 * time.Minute))

	// Transitions fire from the audio goroutine under the engine lock, so
	// pushes go through a buffered channel drained by a single writer. A
	// slow client drops snapshots rather than stalling playback.
	statusCh := make(chan playbackWSOutMessage, 16)
	done := make(chan struct{})
	defer close(done)

	h.engine.SetListener(func(st playback.Status) {
		select {
		case statusCh <- playbackWSOutMessage{Type: "status", Status: &st}:
		default:
		}
	})
	defer h.engine.SetListener(nil)

	go func() {
		for {
			select {
			case msg := <-statusCh:
				if err := writeWSJSON(conn, msg); err != nil {
					log.Debug().Err(err).Msg("playback ws write")
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			log.Debug().Err(err).Msg("playback ws read")
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Minute))

		var in playbackWSInMessage
		if err := json.Unmarshal(raw, &in); err != nil {
			pushWSMessage(statusCh, playbackWSOutMessage{Type: "error", Error: "invalid JSON: " + err.Error()})
			continue
		}

		if err := h.applyPlaybackCommand(r.Context(), in); err != nil {
			pushWSMessage(statusCh, playbackWSOutMessage{Type: "error", Error: err.Error()})
			continue
		}
		if in.Action == "status" || in.Action == "load" {
			st := h.engine.Status()
			pushWSMessage(statusCh, playbackWSOutMessage{Type: "status", Status: &st})
		}
	}
}

// applyPlaybackCommand dispatches one client command to the engine. State
// snapshots reach the client through the transition listener, not here.
func (h *Handler) applyPlaybackCommand(ctx context.Context, in playbackWSInMessage) error {
	switch in.Action {
	case "load":
		st, err := h.stories.Get(in.StoryID)
		if err != nil {
			return errors.New("story not found")
		}
		h.engine.Load(st.Paragraphs)
		if st.Voice != "" {
			h.engine.ChangeVoice(ctx, st.Voice)
			h.engine.SeedCache(st.Voice, st.Audio)
		}
		// The story's voice can change after load, so persistence checks
		// the stored voice at synthesis time, not a snapshot.
		h.engine.SetAudioSink(func(voiceName string, paragraph int, ref string) {
			cur, err := h.stories.Get(st.ID)
			if err != nil || cur.Voice != voiceName {
				return
			}
			if err := h.stories.SetAudio(st.ID, paragraph, ref); err != nil {
				log.Warn().Err(err).Str("story_id", st.ID).Msg("Failed to persist audio reference")
			}
		})
		return nil
	case "play":
		return h.engine.Play(context.Background())
	case "pause":
		h.engine.Pause()
		return nil
	case "stop":
		h.engine.Stop()
		return nil
	case "skip":
		h.engine.Skip(context.Background(), in.Paragraph)
		return nil
	case "voice":
		if in.Voice == "" {
			return errors.New("voice is required")
		}
		h.engine.ChangeVoice(context.Background(), in.Voice)
		if in.StoryID != "" {
			if _, err := h.stories.SetVoice(in.StoryID, in.Voice); err != nil {
				log.Warn().Err(err).Str("story_id", in.StoryID).Msg("Failed to persist voice change")
			}
		}
		return nil
	case "volume":
		h.engine.SetVolume(in.Volume)
		return nil
	case "mute":
		h.engine.SetMuted(in.Muted)
		return nil
	case "status":
		return nil
	default:
		return errors.New("unknown action: " + in.Action)
	}
}

// pushWSMessage drops the message when the buffer is full: if the writer
// goroutine has exited on a write error the read loop must not block.
func pushWSMessage(ch chan playbackWSOutMessage, msg playbackWSOutMessage) {
	select {
	case ch <- msg:
	default:
	}
}

func writeWSJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	return conn.WriteJSON(v)
}
