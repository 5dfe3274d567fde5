package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// Turn is one utterance in a practice conversation.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// CloneTurns returns a copy of the transcript that shares no backing array
// with the input.
func CloneTurns(turns []Turn) []Turn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Scenario selects the role the agent plays.
type Scenario string

const (
	ScenarioNegotiation           Scenario = "negotiation"
	ScenarioInterview             Scenario = "interview"
	ScenarioDifficultConversation Scenario = "difficult_convo"
)

// DefaultScenario is used when a client does not pick one.
const DefaultScenario = ScenarioNegotiation

// Known reports whether s is one of the built-in scenarios.
func (s Scenario) Known() bool {
	switch s {
	case ScenarioNegotiation, ScenarioInterview, ScenarioDifficultConversation:
		return true
	}
	return false
}

// Coach selects the persona used to score a transcript.
type Coach string

const (
	CoachOrator      Coach = "orator"
	CoachStoryteller Coach = "storyteller"
	CoachExecutive   Coach = "executive"
	CoachDefault     Coach = "default"
)

// ParseCoach maps an external identifier to a Coach. Unrecognized values map
// to CoachDefault.
func ParseCoach(id string) Coach {
	switch c := Coach(strings.ToLower(strings.TrimSpace(id))); c {
	case CoachOrator, CoachStoryteller, CoachExecutive:
		return c
	}
	return CoachDefault
}

// Scores holds the four assessment metrics, each in [0,100].
type Scores struct {
	Clarity    float64 `json:"clarity"`
	Confidence float64 `json:"confidence"`
	Empathy    float64 `json:"empathy"`
	Persuasion float64 `json:"persuasion"`
}

// Assessment is the coach's verdict on a finished conversation.
type Assessment struct {
	Scores      Scores   `json:"scores"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
	Rewrite     string   `json:"rewrite"`
}

// Validate checks score ranges and required text.
func (a Assessment) Validate() error {
	metrics := []struct {
		name  string
		value float64
	}{
		{"clarity", a.Scores.Clarity},
		{"confidence", a.Scores.Confidence},
		{"empathy", a.Scores.Empathy},
		{"persuasion", a.Scores.Persuasion},
	}
	for _, m := range metrics {
		if m.value < 0 || m.value > 100 {
			return fmt.Errorf("score %s out of range: %v", m.name, m.value)
		}
	}
	if strings.TrimSpace(a.Feedback) == "" {
		return errors.New("feedback is empty")
	}
	if a.Suggestions == nil {
		return errors.New("suggestions missing")
	}
	return nil
}

// Clone returns a deep copy.
func (a Assessment) Clone() Assessment {
	out := a
	if a.Suggestions != nil {
		out.Suggestions = append([]string(nil), a.Suggestions...)
	}
	return out
}

// SessionState models the practice session lifecycle.
type SessionState string

const (
	SessionStateIdle          SessionState = "idle"
	SessionStateListening     SessionState = "listening"
	SessionStateProcessing    SessionState = "processing"
	SessionStateSpeaking      SessionState = "speaking"
	SessionStateScoring       SessionState = "scoring"
	SessionStateResults       SessionState = "results"
	SessionStateScoringFailed SessionState = "scoring_failed"
)

// SessionStateReason explains why a transition happened.
type SessionStateReason string

const (
	SessionReasonStarted          SessionStateReason = "started"
	SessionReasonRestarted        SessionStateReason = "restarted"
	SessionReasonUtterance        SessionStateReason = "utterance_received"
	SessionReasonCaptureFailed    SessionStateReason = "capture_failed"
	SessionReasonReplyReady       SessionStateReason = "reply_ready"
	SessionReasonGenerationFailed SessionStateReason = "generation_failed"
	SessionReasonPlaybackDone     SessionStateReason = "playback_done"
	SessionReasonStopRequested    SessionStateReason = "stop_requested"
	SessionReasonScored           SessionStateReason = "scored"
	SessionReasonScoringFailed    SessionStateReason = "scoring_failed"
	SessionReasonRetryScoring     SessionStateReason = "retry_scoring"
)
