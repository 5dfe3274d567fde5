package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/chadiek/eloquence/internal/domain"
)

// transitions lists every state change the Session may perform.
var transitions = map[domain.SessionState][]domain.SessionState{
	domain.SessionStateIdle:          {domain.SessionStateIdle, domain.SessionStateListening, domain.SessionStateScoring},
	domain.SessionStateListening:     {domain.SessionStateIdle, domain.SessionStateProcessing, domain.SessionStateScoring},
	domain.SessionStateProcessing:    {domain.SessionStateIdle, domain.SessionStateSpeaking, domain.SessionStateScoring},
	domain.SessionStateSpeaking:      {domain.SessionStateIdle, domain.SessionStateListening, domain.SessionStateScoring},
	domain.SessionStateScoring:       {domain.SessionStateResults, domain.SessionStateScoringFailed},
	domain.SessionStateResults:       {domain.SessionStateIdle},
	domain.SessionStateScoringFailed: {domain.SessionStateIdle, domain.SessionStateScoring},
}

func canTransition(from, to domain.SessionState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type commandKind string

const (
	cmdStart   commandKind = "start"
	cmdStop    commandKind = "stop"
	cmdRestart commandKind = "restart"
	cmdRetry   commandKind = "retry_score"
)

type event any

type commandEvent struct {
	kind  commandKind
	reply chan error
}

type captureDone struct {
	op   uint64
	text string
	err  error
}

type replyDone struct {
	op   uint64
	text string
	err  error
}

type playbackDone struct {
	op  uint64
	err error
}

type scoreDone struct {
	op         uint64
	assessment domain.Assessment
	err        error
}

// Session drives one practice conversation: listen, reply, speak, repeat,
// and finally score. All state is owned by the goroutine running Run;
// adapters run in worker goroutines and report back through the inbox.
type Session struct {
	cfg      Config
	capture  Capture
	playback Playback
	dialogue Dialogue
	scorer   Scorer
	sink     EventSink
	logger   *slog.Logger

	inbox   chan event
	closed  chan struct{}
	runOnce sync.Once

	// owned by Run
	runCtx      context.Context
	state       domain.SessionState
	transcript  []domain.Turn
	assessment  *domain.Assessment
	stopPending bool
	lastErr     error
	op          uint64
	cancelOp    context.CancelFunc

	mu   sync.RWMutex
	snap Snapshot
}

// NewSession constructs a Session in the Idle state. Call Run to start
// processing events.
func NewSession(cfg Config, capture Capture, playback Playback, dialogue Dialogue, scorer Scorer, sink EventSink) *Session {
	if sink == nil {
		sink = nopSink{}
	}
	if cfg.Scenario == "" {
		cfg.Scenario = domain.DefaultScenario
	}
	if cfg.Coach == "" {
		cfg.Coach = domain.CoachDefault
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = defaultGenerateTimeout
	}
	if cfg.ScoreTimeout <= 0 {
		cfg.ScoreTimeout = defaultScoreTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		cfg:      cfg,
		capture:  capture,
		playback: playback,
		dialogue: dialogue,
		scorer:   scorer,
		sink:     sink,
		logger:   logger.With("session_id", cfg.ID),
		inbox:    make(chan event, 16),
		closed:   make(chan struct{}),
		state:    domain.SessionStateIdle,
	}
	s.publish()
	return s
}

// Run processes events until ctx is cancelled. It may be called once.
func (s *Session) Run(ctx context.Context) error {
	err := errors.New("session already running")
	s.runOnce.Do(func() {
		err = s.run(ctx)
	})
	return err
}

func (s *Session) run(ctx context.Context) error {
	s.runCtx = ctx
	defer close(s.closed)
	defer s.logTranscript()
	for {
		select {
		case <-ctx.Done():
			s.cancelInFlight()
			return ctx.Err()
		case ev := <-s.inbox:
			s.handle(ev)
			s.publish()
		}
	}
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Start begins listening. Valid in Idle.
func (s *Session) Start(ctx context.Context) error { return s.command(ctx, cmdStart) }

// Stop requests scoring. In Listening the capture is cancelled and scoring
// begins immediately; in Processing and Speaking the request is remembered
// and honoured when the in-flight operation completes.
func (s *Session) Stop(ctx context.Context) error { return s.command(ctx, cmdStop) }

// Restart discards the transcript and assessment and starts listening
// again. It is refused with ErrBusy while a service call is in flight.
func (s *Session) Restart(ctx context.Context) error { return s.command(ctx, cmdRestart) }

// RetryScoring re-sends the kept transcript after a scoring failure.
func (s *Session) RetryScoring(ctx context.Context) error { return s.command(ctx, cmdRetry) }

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Transcript = domain.CloneTurns(s.snap.Transcript)
	if s.snap.Assessment != nil {
		a := s.snap.Assessment.Clone()
		out.Assessment = &a
	}
	return out
}

func (s *Session) command(ctx context.Context, kind commandKind) error {
	reply := make(chan error, 1)
	select {
	case s.inbox <- commandEvent{kind: kind, reply: reply}:
	case <-s.closed:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-s.closed:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post delivers a worker completion. It never blocks past the end of Run.
func (s *Session) post(ev event) {
	select {
	case s.inbox <- ev:
	case <-s.closed:
	}
}

func (s *Session) handle(ev event) {
	switch e := ev.(type) {
	case commandEvent:
		err := s.handleCommand(e.kind)
		s.publish()
		e.reply <- err
	case captureDone:
		if e.op == s.op && s.state == domain.SessionStateListening {
			s.onCaptured(e.text, e.err)
		}
	case replyDone:
		if e.op == s.op && s.state == domain.SessionStateProcessing {
			s.onReply(e.text, e.err)
		}
	case playbackDone:
		if e.op == s.op && s.state == domain.SessionStateSpeaking {
			s.onPlaybackDone(e.err)
		}
	case scoreDone:
		if e.op == s.op && s.state == domain.SessionStateScoring {
			s.onScored(e.assessment, e.err)
		}
	}
}

func (s *Session) handleCommand(kind commandKind) error {
	s.logger.Debug("session command", "command", string(kind), "state", string(s.state))
	switch kind {
	case cmdStart:
		if s.state != domain.SessionStateIdle {
			return fmt.Errorf("%w: start in %s", ErrInvalidTransition, s.state)
		}
		s.lastErr = nil
		return s.listen(domain.SessionReasonStarted)

	case cmdStop:
		switch s.state {
		case domain.SessionStateListening:
			s.cancelInFlight()
			return s.score(domain.SessionReasonStopRequested)
		case domain.SessionStateProcessing, domain.SessionStateSpeaking:
			s.stopPending = true
			return nil
		case domain.SessionStateIdle:
			if len(s.transcript) == 0 {
				return ErrNothingToScore
			}
			return s.score(domain.SessionReasonStopRequested)
		case domain.SessionStateScoring:
			return nil
		}
		return fmt.Errorf("%w: stop in %s", ErrInvalidTransition, s.state)

	case cmdRestart:
		if s.state == domain.SessionStateProcessing || s.state == domain.SessionStateScoring {
			return fmt.Errorf("%w: %s in flight", ErrBusy, s.state)
		}
		if err := s.setState(domain.SessionStateIdle, domain.SessionReasonRestarted); err != nil {
			return err
		}
		s.cancelInFlight()
		s.transcript = nil
		s.assessment = nil
		s.stopPending = false
		s.lastErr = nil
		return s.listen(domain.SessionReasonRestarted)

	case cmdRetry:
		if s.state != domain.SessionStateScoringFailed {
			return fmt.Errorf("%w: retry in %s", ErrInvalidTransition, s.state)
		}
		return s.score(domain.SessionReasonRetryScoring)
	}
	return fmt.Errorf("%w: unknown command %q", ErrInvalidTransition, kind)
}

func (s *Session) onCaptured(text string, err error) {
	s.clearOp()
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = &domain.CaptureError{Reason: domain.CaptureNoSpeech}
	}
	if err != nil {
		s.fail(err)
		_ = s.setState(domain.SessionStateIdle, domain.SessionReasonCaptureFailed)
		return
	}
	s.appendTurn(domain.Turn{Speaker: domain.SpeakerUser, Text: text})
	if err := s.setState(domain.SessionStateProcessing, domain.SessionReasonUtterance); err != nil {
		return
	}
	op := s.nextOp()
	ctx, cancel := context.WithTimeout(s.runCtx, s.cfg.GenerateTimeout)
	s.cancelOp = cancel
	transcript := domain.CloneTurns(s.transcript)
	go func() {
		defer cancel()
		reply, err := s.dialogue.GenerateReply(ctx, transcript, s.cfg.Scenario)
		s.post(replyDone{op: op, text: reply, err: err})
	}()
}

func (s *Session) onReply(text string, err error) {
	s.clearOp()
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("%w: empty reply", domain.ErrGenerationFailed)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrGenerationFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
		}
		s.fail(err)
		if s.stopPending {
			_ = s.score(domain.SessionReasonStopRequested)
			return
		}
		_ = s.setState(domain.SessionStateIdle, domain.SessionReasonGenerationFailed)
		return
	}
	text = strings.TrimSpace(text)
	s.appendTurn(domain.Turn{Speaker: domain.SpeakerAgent, Text: text})
	if s.stopPending {
		_ = s.score(domain.SessionReasonStopRequested)
		return
	}
	if err := s.setState(domain.SessionStateSpeaking, domain.SessionReasonReplyReady); err != nil {
		return
	}
	op := s.nextOp()
	ctx, cancel := context.WithCancel(s.runCtx)
	s.cancelOp = cancel
	go func() {
		defer cancel()
		err := s.playback.Speak(ctx, text)
		s.post(playbackDone{op: op, err: err})
	}()
}

func (s *Session) onPlaybackDone(err error) {
	s.clearOp()
	if err != nil {
		s.logger.Warn("playback ended with error", "err", err)
	}
	if s.stopPending {
		_ = s.score(domain.SessionReasonStopRequested)
		return
	}
	_ = s.listen(domain.SessionReasonPlaybackDone)
}

func (s *Session) onScored(a domain.Assessment, err error) {
	s.clearOp()
	if err == nil {
		err = a.Validate()
		if err != nil {
			err = fmt.Errorf("%w: %w", domain.ErrScoringFailed, err)
		}
	}
	if err != nil {
		if !errors.Is(err, domain.ErrScoringFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrScoringFailed, err)
		}
		s.fail(err)
		_ = s.setState(domain.SessionStateScoringFailed, domain.SessionReasonScoringFailed)
		return
	}
	a = a.Clone()
	s.assessment = &a
	if err := s.setState(domain.SessionStateResults, domain.SessionReasonScored); err != nil {
		return
	}
	s.sink.AssessmentReady(a.Clone())
}

// listen enters Listening and starts a capture worker.
func (s *Session) listen(reason domain.SessionStateReason) error {
	if err := s.setState(domain.SessionStateListening, reason); err != nil {
		return err
	}
	op := s.nextOp()
	ctx, cancel := context.WithCancel(s.runCtx)
	s.cancelOp = cancel
	go func() {
		defer cancel()
		text, err := s.capture.Listen(ctx)
		s.post(captureDone{op: op, text: text, err: err})
		if q, ok := s.capture.(CaptureQueuer); ok {
			q.Queued()
		}
	}()
	return nil
}

// score freezes the transcript and starts a scoring worker.
func (s *Session) score(reason domain.SessionStateReason) error {
	if err := s.setState(domain.SessionStateScoring, reason); err != nil {
		return err
	}
	s.stopPending = false
	s.lastErr = nil
	op := s.nextOp()
	ctx, cancel := context.WithTimeout(s.runCtx, s.cfg.ScoreTimeout)
	s.cancelOp = cancel
	transcript := domain.CloneTurns(s.transcript)
	coach := s.cfg.Coach
	go func() {
		defer cancel()
		a, err := s.scorer.ScoreTranscript(ctx, transcript, coach)
		s.post(scoreDone{op: op, assessment: a, err: err})
	}()
	return nil
}

func (s *Session) setState(to domain.SessionState, reason domain.SessionStateReason) error {
	from := s.state
	if !canTransition(from, to) {
		s.logger.Error("rejected session transition", "from", string(from), "to", string(to), "reason", string(reason))
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	s.state = to
	s.logger.Info("session state", "from", string(from), "to", string(to), "reason", string(reason))
	s.sink.StateChanged(to, reason)
	return nil
}

func (s *Session) appendTurn(t domain.Turn) {
	s.transcript = append(s.transcript, t)
	s.logger.Debug("turn", "speaker", string(t.Speaker), "text", t.Text)
	s.sink.TurnAppended(t)
}

func (s *Session) fail(err error) {
	s.lastErr = err
	s.logger.Warn("session error", "state", string(s.state), "err", err)
	s.sink.SessionError(err)
}

// nextOp invalidates every outstanding worker result.
func (s *Session) nextOp() uint64 {
	s.op++
	return s.op
}

func (s *Session) clearOp() {
	if s.cancelOp != nil {
		s.cancelOp()
		s.cancelOp = nil
	}
}

func (s *Session) cancelInFlight() {
	s.clearOp()
	s.op++
}

func (s *Session) publish() {
	snap := Snapshot{
		ID:          s.cfg.ID,
		Scenario:    s.cfg.Scenario,
		Coach:       s.cfg.Coach,
		State:       s.state,
		Transcript:  domain.CloneTurns(s.transcript),
		StopPending: s.stopPending,
	}
	if s.assessment != nil {
		a := s.assessment.Clone()
		snap.Assessment = &a
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func (s *Session) logTranscript() {
	var b strings.Builder
	for _, t := range s.transcript {
		b.WriteString("[")
		b.WriteString(strings.ToUpper(string(t.Speaker)))
		b.WriteString("] ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	s.logger.Info("session ended", "state", string(s.state), "turns", len(s.transcript), "transcript", strings.TrimSpace(b.String()))
}
