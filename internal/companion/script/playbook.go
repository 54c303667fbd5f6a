// Package script holds the companion's playbook: the keyword lists that drive
// the safety heuristics and every fixed response text. Wording lives here as
// data so that changing a phrase or a keyword never touches control flow.
package script

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Playbook is the full set of keyword lists and fixed scripts.
type Playbook struct {
	// TriggerWords drives the inline empathy acknowledgment on inbound text.
	TriggerWords []string `yaml:"triggerWords"`
	// EscalationWords is the narrower list the scheduler scans recent history
	// with before choosing plain vs. escalated affirmation wording.
	EscalationWords []string `yaml:"escalationWords"`
	// AnxietyWords drives the grounding-technique script.
	AnxietyWords []string `yaml:"anxietyWords"`

	Scripts Scripts `yaml:"scripts"`
}

// Scripts holds every fixed message the companion can send.
type Scripts struct {
	Greeting             string            `yaml:"greeting"`
	Help                 string            `yaml:"help"`
	Grounding            string            `yaml:"grounding"`
	Empathy              string            `yaml:"empathy"`
	DependencyWarning    string            `yaml:"dependencyWarning"`
	Boundary             string            `yaml:"boundary"`
	Affirmation          string            `yaml:"affirmation"`
	AffirmationEscalated string            `yaml:"affirmationEscalated"`
	Fallback             string            `yaml:"fallback"`
	Emergency            string            `yaml:"emergency"`
	Cleared              string            `yaml:"cleared"`
	Unauthorized         string            `yaml:"unauthorized"`
	MoodPrompt           string            `yaml:"moodPrompt"`
	Mood                 map[string]string `yaml:"mood"`
	NowPrompt            string            `yaml:"nowPrompt"`
	Now                  map[string]string `yaml:"now"`
}

// Parse decodes a playbook YAML document and validates it. It is the
// canonical entry point for loading playbooks from disk.
func Parse(data []byte) (*Playbook, error) {
	var pb Playbook
	if err := yaml.Unmarshal(data, &pb); err != nil {
		return nil, fmt.Errorf("playbook parse: %w", err)
	}
	if err := Validate(&pb); err != nil {
		return nil, err
	}
	return &pb, nil
}

// Validate checks a playbook for completeness. It returns the first problem
// found, or nil when the playbook is usable.
func Validate(pb *Playbook) error {
	if pb == nil {
		return fmt.Errorf("playbook must not be nil")
	}

	lists := []struct {
		name  string
		words []string
	}{
		{"triggerWords", pb.TriggerWords},
		{"escalationWords", pb.EscalationWords},
		{"anxietyWords", pb.AnxietyWords},
	}
	for _, l := range lists {
		if len(l.words) == 0 {
			return fmt.Errorf("%s must not be empty", l.name)
		}
		for i, w := range l.words {
			if strings.TrimSpace(w) == "" {
				return fmt.Errorf("%s[%d] must not be blank", l.name, i)
			}
		}
	}

	texts := []struct {
		name string
		text string
	}{
		{"scripts.greeting", pb.Scripts.Greeting},
		{"scripts.help", pb.Scripts.Help},
		{"scripts.grounding", pb.Scripts.Grounding},
		{"scripts.empathy", pb.Scripts.Empathy},
		{"scripts.dependencyWarning", pb.Scripts.DependencyWarning},
		{"scripts.boundary", pb.Scripts.Boundary},
		{"scripts.affirmation", pb.Scripts.Affirmation},
		{"scripts.affirmationEscalated", pb.Scripts.AffirmationEscalated},
		{"scripts.fallback", pb.Scripts.Fallback},
		{"scripts.emergency", pb.Scripts.Emergency},
	}
	for _, s := range texts {
		if strings.TrimSpace(s.text) == "" {
			return fmt.Errorf("%s must not be empty", s.name)
		}
	}
	return nil
}
