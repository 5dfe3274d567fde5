package domain

import "strings"

// WireTurn is the {role, message} shape used by the HTTP API and the browser.
type WireTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// wireAgentRole is the role the browser client uses for agent messages.
const wireAgentRole = "model"

// TurnsFromWire converts client messages into turns. Role "user" is the user;
// every other role is the agent.
func TurnsFromWire(in []WireTurn) []Turn {
	if len(in) == 0 {
		return nil
	}
	out := make([]Turn, 0, len(in))
	for _, m := range in {
		speaker := SpeakerAgent
		if strings.EqualFold(strings.TrimSpace(m.Role), string(SpeakerUser)) {
			speaker = SpeakerUser
		}
		out = append(out, Turn{Speaker: speaker, Text: m.Message})
	}
	return out
}

// TurnsToWire converts turns into client messages.
func TurnsToWire(in []Turn) []WireTurn {
	out := make([]WireTurn, 0, len(in))
	for _, t := range in {
		role := wireAgentRole
		if t.Speaker == SpeakerUser {
			role = string(SpeakerUser)
		}
		out = append(out, WireTurn{Role: role, Message: t.Text})
	}
	return out
}
