package tts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
)

// DeepgramClient synthesizes speech over the Deepgram Aura websocket.
type DeepgramClient struct {
	apiKey     string
	model      string
	sampleRate int
	encoding   string

	// IdleWindow ends a stream once audio has stopped arriving for this long.
	IdleWindow time.Duration
	// MaxDuration bounds a single utterance.
	MaxDuration time.Duration
}

func NewDeepgramClient(apiKey, model string) *DeepgramClient {
	if model == "" {
		model = "aura-2-thalia-en"
	}
	return &DeepgramClient{
		apiKey:      apiKey,
		model:       model,
		sampleRate:  SampleRate,
		encoding:    "linear16",
		IdleWindow:  400 * time.Millisecond,
		MaxDuration: 12 * time.Second,
	}
}

func (d *DeepgramClient) StreamPCM48k(ctx context.Context, text string) (<-chan []byte, <-chan error) {
	out := newAudioSink(64)
	pcmCh := out.ch
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer out.close()

		if d.apiKey == "" {
			errCh <- fmt.Errorf("deepgram: API key missing")
			return
		}
		if text == "" {
			return
		}

		options := &clientinterfaces.WSSpeakOptions{
			Model:      d.model,
			Encoding:   d.encoding,
			SampleRate: d.sampleRate,
		}

		var lastRecvUnix int64
		var seenAudio int32

		cb := &speakCallback{onBinary: func(data []byte) error {
			if len(data) == 0 {
				return nil
			}
			atomic.StoreInt64(&lastRecvUnix, time.Now().UnixNano())
			atomic.StoreInt32(&seenAudio, 1)
			out.send(ctx, data)
			return nil
		}}

		dg, err := speak.NewWSUsingCallback(ctx, d.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
		if err != nil {
			errCh <- fmt.Errorf("deepgram: create ws client: %w", err)
			return
		}

		stopped := false
		stopClient := func() {
			if !stopped {
				stopped = true
				dg.Stop()
			}
		}
		defer stopClient()

		if ok := dg.Connect(); !ok {
			errCh <- fmt.Errorf("deepgram: connect failed")
			return
		}

		if err := dg.SpeakWithText(text); err != nil {
			errCh <- fmt.Errorf("deepgram: speak text: %w", err)
			return
		}
		if err := dg.Flush(); err != nil {
			slog.Warn("deepgram flush failed", "err", err)
		}

		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		deadline := time.Now().Add(d.MaxDuration)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if atomic.LoadInt32(&seenAudio) == 1 {
					last := time.Unix(0, atomic.LoadInt64(&lastRecvUnix))
					if time.Since(last) > d.IdleWindow {
						return
					}
				}
				if time.Now().After(deadline) {
					if atomic.LoadInt32(&seenAudio) == 0 {
						errCh <- fmt.Errorf("deepgram: no audio within %s", d.MaxDuration)
					}
					return
				}
			}
		}
	}()

	return pcmCh, errCh
}

// audioSink guards a PCM channel that SDK callbacks may write to after the
// stream goroutine has returned. Sends after close are dropped.
type audioSink struct {
	ch   chan []byte
	done chan struct{}
	mu   sync.RWMutex
	once sync.Once
}

func newAudioSink(size int) *audioSink {
	return &audioSink{ch: make(chan []byte, size), done: make(chan struct{})}
}

func (a *audioSink) send(ctx context.Context, data []byte) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	select {
	case <-a.done:
		return false
	default:
	}
	b := make([]byte, len(data))
	copy(b, data)
	select {
	case a.ch <- b:
		return true
	case <-a.done:
	case <-ctx.Done():
	}
	return false
}

func (a *audioSink) close() {
	a.once.Do(func() {
		close(a.done)
		a.mu.Lock()
		close(a.ch)
		a.mu.Unlock()
	})
}

type speakCallback struct{ onBinary func([]byte) error }

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (s *speakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (s *speakCallback) Warning(w *msginterfaces.WarningResponse) error {
	slog.Warn("deepgram warning", "event", w)
	return nil
}
func (s *speakCallback) Error(e *msginterfaces.ErrorResponse) error {
	slog.Error("deepgram error", "event", e)
	return nil
}
func (s *speakCallback) UnhandledEvent([]byte) error { return nil }
func (s *speakCallback) Binary(byMsg []byte) error {
	if s.onBinary != nil {
		return s.onBinary(byMsg)
	}
	return nil
}
