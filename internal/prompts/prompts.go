// Package prompts holds the instruction text sent to the language model for
// role-play and coaching, with optional YAML overrides.
package prompts

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chadiek/eloquence/internal/domain"
)

const roleplayRules = `Your goal is to play the role defined by this scenario authentically.
Keep your responses concise (1-3 sentences) to allow for a back-and-forth dialogue.
Do not break character. Do not act as an AI assistant. Act AS the role.`

// Catalog maps scenarios and coaches to instruction text.
type Catalog struct {
	Rules        string                     `yaml:"rules"`
	Scenarios    map[domain.Scenario]string `yaml:"scenarios"`
	Coaches      map[domain.Coach]string    `yaml:"coaches"`
	DefaultCoach string                     `yaml:"default_coach"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Rules: roleplayRules,
		Scenarios: map[domain.Scenario]string{
			domain.ScenarioInterview:             "Job Interview: be a professional interviewer. Ask behavioral questions.",
			domain.ScenarioNegotiation:           "Business Negotiation: be a tough but fair counter-party.",
			domain.ScenarioDifficultConversation: "Difficult Conversation: be the person the user is in conflict with.",
		},
		Coaches: map[domain.Coach]string{
			domain.CoachOrator:      "You are 'The Orator'. Your style is inspired by Barack Obama. Focus on cadence, pauses, rhetorical flourishes, and inspiring tone. Be constructive but demanding of high rhetorical standards.",
			domain.CoachStoryteller: "You are 'The Storyteller'. Your style is inspired by Abraham Lincoln. Focus on folksy wisdom, humility, and the use of metaphor or anecdote to drive points home. Be gentle but profound.",
			domain.CoachExecutive:   "You are 'The Executive'. Your style is inspired by Steve Jobs. Focus on radical simplicity, clarity, and vision. Be direct, blunt, and demand perfection. No fluff.",
		},
		DefaultCoach: "You are a communication coach.",
	}
}

// Load reads a YAML file and layers it over the built-in catalog. Keys that
// are absent or blank keep their defaults.
func Load(path string) (*Catalog, error) {
	c := Default()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prompts file: %w", err)
	}
	defer f.Close()

	var override Catalog
	if err := yaml.NewDecoder(f).Decode(&override); err != nil {
		return nil, fmt.Errorf("decode prompts file %s: %w", path, err)
	}
	c.merge(override)
	return c, nil
}

func (c *Catalog) merge(o Catalog) {
	if strings.TrimSpace(o.Rules) != "" {
		c.Rules = o.Rules
	}
	if strings.TrimSpace(o.DefaultCoach) != "" {
		c.DefaultCoach = o.DefaultCoach
	}
	for k, v := range o.Scenarios {
		if strings.TrimSpace(v) != "" {
			c.Scenarios[k] = v
		}
	}
	for k, v := range o.Coaches {
		if strings.TrimSpace(v) != "" {
			c.Coaches[k] = v
		}
	}
}

// ScenarioInstruction builds the system instruction for a role-play scenario.
// Scenarios without an entry get a generic instruction naming the scenario.
func (c *Catalog) ScenarioInstruction(s domain.Scenario) string {
	role, ok := c.Scenarios[s]
	if !ok {
		role = fmt.Sprintf("Play the other party in this scenario: %q.", string(s))
	}
	var b strings.Builder
	b.WriteString("You are a roleplay partner in a conversation training app.\n")
	b.WriteString("The user has selected the following scenario: ")
	b.WriteString(role)
	b.WriteString("\n\n")
	b.WriteString(c.Rules)
	return b.String()
}

// CoachInstruction returns the persona text for a coach. Unknown coaches get
// the neutral default persona.
func (c *Catalog) CoachInstruction(coach domain.Coach) string {
	if text, ok := c.Coaches[coach]; ok {
		return text
	}
	return c.DefaultCoach
}
