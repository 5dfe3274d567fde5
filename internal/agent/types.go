package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chadiek/eloquence/internal/domain"
)

// Capture listens for one finalized utterance. Cancelling ctx stops the
// capture; the result of a cancelled Listen is ignored by the Session.
// Failures other than cancellation should be *domain.CaptureError.
type Capture interface {
	Listen(ctx context.Context) (string, error)
}

// CaptureQueuer is implemented by captures that must order their results
// against later commands. Queued is called after the result of a Listen
// has been queued on the session inbox.
type CaptureQueuer interface {
	Queued()
}

// Playback speaks text and returns once playback has ended, either
// naturally or because ctx was cancelled.
type Playback interface {
	Speak(ctx context.Context, text string) error
}

// Dialogue produces the role-play partner's reply to the last turn.
type Dialogue interface {
	GenerateReply(ctx context.Context, transcript []domain.Turn, scenario domain.Scenario) (string, error)
}

// Scorer grades a finished transcript.
type Scorer interface {
	ScoreTranscript(ctx context.Context, transcript []domain.Turn, coach domain.Coach) (domain.Assessment, error)
}

// EventSink receives session notifications. Calls are made from the
// session goroutine, one at a time, in transition order.
type EventSink interface {
	StateChanged(state domain.SessionState, reason domain.SessionStateReason)
	TurnAppended(turn domain.Turn)
	SessionError(err error)
	AssessmentReady(a domain.Assessment)
}

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrBusy              = errors.New("session busy")
	ErrNothingToScore    = errors.New("transcript is empty")
	ErrSessionClosed     = errors.New("session closed")
)

const (
	defaultGenerateTimeout = 20 * time.Second
	defaultScoreTimeout    = 60 * time.Second
)

// Config describes one practice session.
type Config struct {
	ID              string
	Scenario        domain.Scenario
	Coach           domain.Coach
	GenerateTimeout time.Duration
	ScoreTimeout    time.Duration
	Logger          *slog.Logger
}

// Snapshot is a point-in-time copy of a Session's state.
type Snapshot struct {
	ID          string
	Scenario    domain.Scenario
	Coach       domain.Coach
	State       domain.SessionState
	Transcript  []domain.Turn
	Assessment  *domain.Assessment
	StopPending bool
	LastError   string
}

type nopSink struct{}

func (nopSink) StateChanged(domain.SessionState, domain.SessionStateReason) {}
func (nopSink) TurnAppended(domain.Turn)                                  {}
func (nopSink) SessionError(error)                                        {}
func (nopSink) AssessmentReady(domain.Assessment)                         {}
