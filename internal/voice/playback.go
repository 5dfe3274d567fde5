package voice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chadiek/eloquence/internal/tts"
)

// frameBytes is 20ms of 48 kHz mono linear16.
const frameBytes = tts.SampleRate / 50 * 2

// playback speaks agent replies through the browser. With a synthesizer
// the server streams PCM frames; otherwise the browser synthesizes the text.
type playback struct {
	conn   *conn
	synth  tts.Synthesizer
	logger *slog.Logger
}

func (p *playback) Speak(ctx context.Context, text string) error {
	req := p.conn.register(false, msgPlaybackDone)
	id := req.id
	defer p.conn.unregister(id)

	if err := p.start(ctx, id, text); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		_ = p.conn.writeJSON(serverMessage{Type: msgCancelSpeak, ID: id})
		return nil
	case <-p.conn.done():
		return nil
	case <-req.reply:
		return nil
	}
}

// start sends the speak request and, when a synthesizer is configured, the
// audio. Synthesis that fails before any audio was sent falls back to
// browser speech.
func (p *playback) start(ctx context.Context, id uint64, text string) error {
	if p.synth != nil {
		sent, err := p.stream(ctx, id, text)
		if err == nil {
			return p.conn.writeJSON(serverMessage{Type: msgSpeakEnd, ID: id})
		}
		if ctx.Err() != nil {
			return nil
		}
		p.logger.Warn("speech synthesis failed", "err", err, "frames_sent", sent)
		if sent > 0 {
			return p.conn.writeJSON(serverMessage{Type: msgSpeakEnd, ID: id})
		}
	}
	return p.conn.writeJSON(serverMessage{Type: msgSpeak, ID: id, Text: text})
}

// stream synthesizes text sentence by sentence and writes binary frames
// between speak and speak_end. It returns the number of frames written.
func (p *playback) stream(ctx context.Context, id uint64, text string) (int, error) {
	var f framer
	sent := 0
	announced := false
	emit := func(frame []byte) error {
		if !announced {
			announced = true
			if err := p.conn.writeJSON(serverMessage{Type: msgSpeak, ID: id, Text: text, Audio: true, SampleRate: tts.SampleRate}); err != nil {
				return err
			}
		}
		if err := p.conn.writeBinary(frame); err != nil {
			return err
		}
		sent++
		return nil
	}

	for _, sentence := range tts.SplitSentences(text) {
		pcmCh, errCh := p.synth.StreamPCM48k(ctx, sentence)
		for pcmCh != nil || errCh != nil {
			select {
			case b, ok := <-pcmCh:
				if !ok {
					pcmCh = nil
					continue
				}
				for _, frame := range f.write(b) {
					if err := emit(frame); err != nil {
						return sent, err
					}
				}
			case err, ok := <-errCh:
				if !ok {
					errCh = nil
					continue
				}
				if err != nil {
					return sent, err
				}
			case <-ctx.Done():
				return sent, ctx.Err()
			}
		}
	}
	if tail := f.flush(); tail != nil {
		if err := emit(tail); err != nil {
			return sent, err
		}
	}
	if sent == 0 {
		return 0, fmt.Errorf("synthesizer produced no audio")
	}
	return sent, nil
}

// framer cuts a PCM byte stream into fixed 20ms frames.
type framer struct {
	buf []byte
}

func (f *framer) write(pcm []byte) [][]byte {
	f.buf = append(f.buf, pcm...)
	var frames [][]byte
	for len(f.buf) >= frameBytes {
		frame := make([]byte, frameBytes)
		copy(frame, f.buf[:frameBytes])
		frames = append(frames, frame)
		f.buf = f.buf[frameBytes:]
	}
	return frames
}

// flush zero-pads the remainder to a full frame.
func (f *framer) flush() []byte {
	if len(f.buf) == 0 {
		return nil
	}
	frame := make([]byte, frameBytes)
	copy(frame, f.buf)
	f.buf = nil
	return frame
}
