package ai

import (
	"fmt"
	"sort"

	"github.com/baldionna/baldi/internal/config"
)

// Persona is a named system preamble plus generation tweaks.
type Persona struct {
	Name      string
	Summary   string
	System    string
	Overrides config.Generation
}

var personas = map[string]Persona{
	"baldionna": {
		Name:    "baldionna",
		Summary: "general conversational assistant",
		System: `You are BALDIONNA-ai, a helpful conversational assistant.
Answer in the language the user writes in. Be clear and direct.
Use short paragraphs and markdown lists when they help. Never repeat yourself.`,
	},
	"analyst": {
		Name:    "analyst",
		Summary: "precise, sourced answers for research questions",
		System: `You are BALDIONNA-ai in analyst mode. Give precise, well-structured answers.
When web results are provided, ground every claim in them and cite the source link.
Say plainly when the sources do not answer the question.`,
		Overrides: config.Generation{
			MaxTokens:   intPtr(8000),
			Temperature: floatPtr(0.4),
		},
	},
	"writer": {
		Name:    "writer",
		Summary: "long-form, creative writing",
		System: `You are BALDIONNA-ai in writer mode. Produce vivid, well-paced prose.
Vary sentence structure and vocabulary. Do not loop on the same adjectives.`,
		Overrides: config.Generation{
			Temperature:      floatPtr(0.95),
			FrequencyPenalty: floatPtr(0.8),
		},
	},
}

// LookupPersona returns the named persona.
func LookupPersona(name string) (Persona, error) {
	p, ok := personas[name]
	if !ok {
		return Persona{}, fmt.Errorf("unknown persona %q", name)
	}
	return p, nil
}

// Personas returns all built-in personas sorted by name.
func Personas() []Persona {
	all := make([]Persona, 0, len(personas))
	for _, p := range personas {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
