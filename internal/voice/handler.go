package voice

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chadiek/eloquence/internal/agent"
	"github.com/chadiek/eloquence/internal/domain"
	"github.com/chadiek/eloquence/internal/tts"
)

const maxMessageBytes = 64 << 10

// Handler serves one practice session per websocket connection.
type Handler struct {
	Dialogue        agent.Dialogue
	Scorer          agent.Scorer
	Synth           tts.Synthesizer
	GenerateTimeout time.Duration
	ScoreTimeout    time.Duration
	Lang            string
	Logger          *slog.Logger

	upgrader websocket.Upgrader
}

// NewHandler builds a Handler. An empty or "*" origin list accepts any
// origin.
func NewHandler(dialogue agent.Dialogue, scorer agent.Scorer, synth tts.Synthesizer, allowedOrigins []string) *Handler {
	h := &Handler{
		Dialogue: dialogue,
		Scorer:   scorer,
		Synth:    synth,
		Lang:     DefaultLang,
		Logger:   slog.Default(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 65536,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, o := range allowed {
		if strings.TrimSpace(o) == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(strings.TrimSpace(o), origin) {
				return true
			}
		}
		return false
	}
}

// ServeHTTP upgrades the request and runs a session until the socket closes.
// Query parameters: context (scenario id) and coach (coach id).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("ws upgrade error", "err", err)
		return
	}
	ws.SetReadLimit(maxMessageBytes)
	c := newConn(ws)
	defer c.close()

	q := r.URL.Query()
	scenario := domain.Scenario(strings.TrimSpace(q.Get("context")))
	if scenario == "" {
		scenario = domain.DefaultScenario
	}
	coachID := q.Get("coach")
	if strings.TrimSpace(coachID) == "" {
		coachID = string(domain.CoachOrator)
	}
	coach := domain.ParseCoach(coachID)

	id := uuid.NewString()
	logger := h.Logger.With("session_id", id)
	if !scenario.Known() {
		logger.Warn("custom scenario requested", "scenario", string(scenario))
	}
	lang := h.Lang
	if lang == "" {
		lang = DefaultLang
	}

	sess := agent.NewSession(agent.Config{
		ID:              id,
		Scenario:        scenario,
		Coach:           coach,
		GenerateTimeout: h.GenerateTimeout,
		ScoreTimeout:    h.ScoreTimeout,
		Logger:          h.Logger,
	},
		&capture{conn: c, lang: lang},
		&playback{conn: c, synth: h.Synth, logger: logger},
		h.Dialogue,
		h.Scorer,
		&sink{conn: c, logger: logger},
	)

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		<-sess.Done()
	}()
	go func() {
		_ = sess.Run(ctx)
	}()

	logger.Info("practice session opened", "scenario", string(scenario), "coach", string(coach), "remote", r.RemoteAddr)
	if err := c.writeJSON(serverMessage{Type: msgSession, SessionID: id, Scenario: string(scenario), Coach: string(coach)}); err != nil {
		return
	}

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("ws read ended", "err", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var m clientMessage
		if err := json.Unmarshal(data, &m); err != nil {
			_ = c.writeJSON(serverMessage{Type: msgCommandError, Error: "invalid message"})
			continue
		}
		h.dispatch(ctx, c, sess, m, logger)
	}
}

func (h *Handler) dispatch(ctx context.Context, c *conn, sess *agent.Session, m clientMessage, logger *slog.Logger) {
	var err error
	switch m.Type {
	case msgStart:
		err = sess.Start(ctx)
	case msgStop:
		err = sess.Stop(ctx)
	case msgRestart:
		err = sess.Restart(ctx)
	case msgRetryScore:
		err = sess.RetryScoring(ctx)
	case msgUtterance, msgCaptureError, msgPlaybackDone:
		if !c.resolve(m) {
			logger.Debug("dropped stale reply", "type", m.Type, "id", m.ID)
		}
		return
	default:
		_ = c.writeJSON(serverMessage{Type: msgCommandError, Command: m.Type, Error: "unknown message type"})
		return
	}
	if err != nil {
		_ = c.writeJSON(serverMessage{Type: msgCommandError, Command: m.Type, Error: err.Error()})
	}
}

// sink forwards session events to the browser.
type sink struct {
	conn   *conn
	logger *slog.Logger
}

func (s *sink) send(m serverMessage) {
	if err := s.conn.writeJSON(m); err != nil {
		s.logger.Debug("ws write failed", "type", m.Type, "err", err)
	}
}

func (s *sink) StateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	s.send(serverMessage{Type: msgState, State: string(state), Reason: string(reason)})
}

func (s *sink) TurnAppended(t domain.Turn) {
	wt := domain.TurnsToWire([]domain.Turn{t})[0]
	s.send(serverMessage{Type: msgTurn, Turn: &wt})
}

func (s *sink) SessionError(err error) {
	s.send(serverMessage{Type: msgError, Code: errorCode(err), Error: err.Error()})
}

func (s *sink) AssessmentReady(a domain.Assessment) {
	s.send(serverMessage{Type: msgAssessment, Assessment: &a})
}
