// Package voice runs practice sessions over a WebSocket. The browser is the
// microphone and the speaker: the server asks it to listen or speak and it
// answers with utterances and playback completions.
package voice

import (
	"errors"

	"github.com/chadiek/eloquence/internal/domain"
)

// Client → server message types.
const (
	msgStart        = "start"
	msgStop         = "stop"
	msgRestart      = "restart"
	msgRetryScore   = "retry_score"
	msgUtterance    = "utterance"
	msgCaptureError = "capture_error"
	msgPlaybackDone = "playback_done"
)

// Server → client message types.
const (
	msgSession      = "session"
	msgState        = "state"
	msgListen       = "listen"
	msgCancelListen = "cancel_listen"
	msgSpeak        = "speak"
	msgSpeakEnd     = "speak_end"
	msgCancelSpeak  = "cancel_speak"
	msgTurn         = "turn"
	msgAssessment   = "assessment"
	msgError        = "error"
	msgCommandError = "command_error"
)

type clientMessage struct {
	Type   string `json:"type"`
	ID     uint64 `json:"id,omitempty"`
	Text   string `json:"text,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type serverMessage struct {
	Type string `json:"type"`
	ID   uint64 `json:"id,omitempty"`

	SessionID string `json:"session_id,omitempty"`
	Scenario  string `json:"scenario,omitempty"`
	Coach     string `json:"coach,omitempty"`

	State  string `json:"state,omitempty"`
	Reason string `json:"reason,omitempty"`

	Lang       string `json:"lang,omitempty"`
	Text       string `json:"text,omitempty"`
	Audio      bool   `json:"audio,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`

	Turn       *domain.WireTurn   `json:"turn,omitempty"`
	Assessment *domain.Assessment `json:"assessment,omitempty"`

	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Command string `json:"command,omitempty"`
}

// errorCode classifies a session error for the client.
func errorCode(err error) string {
	var ce *domain.CaptureError
	switch {
	case errors.As(err, &ce):
		return "capture_failed"
	case errors.Is(err, domain.ErrGenerationFailed):
		return "generation_failed"
	case errors.Is(err, domain.ErrScoringFailed):
		return "scoring_failed"
	}
	return "session_error"
}
