package voice

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tale-forge/taleforge/internal/credentials"
	"github.com/tale-forge/taleforge/internal/provider"
)

// Narrator chains the cloud synthesizer with the on-device fallback.
// A missing ElevenLabs credential or a remote failure falls through to
// local synthesis; only a failure of both surfaces to the caller.
type Narrator struct {
	creds credentials.Store
	cloud Synthesizer
	local Synthesizer
}

// NewNarrator builds the default synthesis chain.
func NewNarrator(creds credentials.Store, cloud, local Synthesizer) *Narrator {
	return &Narrator{creds: creds, cloud: cloud, local: local}
}

func (n *Narrator) Provider() provider.Provider { return provider.ElevenLabs }

func (n *Narrator) Synthesize(ctx context.Context, text, voice string) (string, error) {
	useLocal := credentials.BoolFlag(n.creds, credentials.KeyUseLocalTTS, false)
	_, hasKey := n.creds.Get(credentials.KeyElevenLabs)

	if !useLocal && hasKey {
		ref, err := n.cloud.Synthesize(ctx, text, voice)
		if err == nil {
			return ref, nil
		}
		log.Warn().Err(err).Str("voice", voice).Msg("Cloud TTS failed, falling back to local synthesis")
	} else {
		log.Debug().Bool("use_local_tts", useLocal).Bool("has_key", hasKey).Msg("Using local TTS")
	}

	return n.local.Synthesize(ctx, text, voice)
}
