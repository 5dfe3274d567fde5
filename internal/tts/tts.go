// Package tts turns agent replies into 48 kHz mono linear16 PCM for
// server-side playback.
package tts

import (
	"context"
	"fmt"
	"strings"
)

// SampleRate of every PCM stream produced by this package.
const SampleRate = 48000

// Synthesizer streams 48 kHz PCM mono audio for the given text. The PCM
// channel is closed when synthesis ends; at most one error is sent.
type Synthesizer interface {
	StreamPCM48k(ctx context.Context, text string) (<-chan []byte, <-chan error)
}

// Options selects and configures a Synthesizer.
type Options struct {
	Provider          string
	DeepgramAPIKey    string
	DeepgramModel     string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
}

// New returns the configured synthesizer, or nil when server-side speech is
// disabled and the browser should synthesize locally.
func New(o Options) (Synthesizer, error) {
	switch strings.ToLower(strings.TrimSpace(o.Provider)) {
	case "", "browser", "none":
		return nil, nil
	case "deepgram":
		if o.DeepgramAPIKey == "" {
			return nil, fmt.Errorf("tts: DEEPGRAM_API_KEY is required for provider deepgram")
		}
		return NewDeepgramClient(o.DeepgramAPIKey, o.DeepgramModel), nil
	case "elevenlabs":
		if o.ElevenLabsAPIKey == "" || o.ElevenLabsVoiceID == "" {
			return nil, fmt.Errorf("tts: ELEVENLABS_API_KEY and ELEVENLABS_VOICE_ID are required for provider elevenlabs")
		}
		return NewElevenLabsClient(o.ElevenLabsAPIKey, o.ElevenLabsVoiceID), nil
	}
	return nil, fmt.Errorf("tts: unknown provider %q", o.Provider)
}

// SplitSentences breaks a reply into sentence-like chunks so audio for the
// first sentence can start before the rest is synthesized. Punctuation is
// kept; newlines end a chunk.
func SplitSentences(reply string) []string {
	txt := strings.TrimSpace(reply)
	if txt == "" {
		return nil
	}
	var chunks []string
	var b strings.Builder
	flush := func() {
		if chunk := strings.TrimSpace(b.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		b.Reset()
	}
	for _, r := range txt {
		switch r {
		case '.', '!', '?':
			b.WriteRune(r)
			flush()
		case '\n', '\r':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return chunks
}
