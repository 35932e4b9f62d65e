package summarize

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/brettboylen/reddit-digest/models"
)

const maxWords = 325

type persona struct {
	Role         string
	Audience     string
	Subject      string
	Implications string
	Advice       string
}

var personas = map[models.Domain]persona{
	models.DomainFinance: {
		Role:         "a senior financial analyst",
		Audience:     "institutional investors, professional traders, and serious retail investors",
		Subject:      "finance",
		Implications: "Investment Implications",
		Advice:       "specific positioning, risk thresholds and timeframes; always name exact tickers, prices and percentages",
	},
	models.DomainEntertainment: {
		Role:         "an entertainment industry analyst",
		Audience:     "streaming subscribers, content creators, and entertainment enthusiasts",
		Subject:      "entertainment",
		Implications: "Viewing Implications",
		Advice:       "what to watch next and why; always name exact titles, platforms, seasons and release dates",
	},
	models.DomainTravel: {
		Role:         "a travel expert",
		Audience:     "experienced travelers, travel planners, and adventure seekers",
		Subject:      "travel",
		Implications: "Travel Implications",
		Advice:       "concrete planning advice; always name exact places, prices, airlines and dates",
	},
	models.DomainRegionalTravel: {
		Role:         "a regional travel specialist",
		Audience:     "destination-focused travelers and cultural explorers",
		Subject:      "regional travel",
		Implications: "Regional Implications",
		Advice:       "destination-specific advice; always name exact cities, regions, costs and seasons",
	},
}

var promptTemplate = template.Must(template.New("summary").Parse(
	`You are {{.Persona.Role}} creating a summary of Reddit {{.Persona.Subject}} discussions for {{.Persona.Audience}}.

KEEP THE ENTIRE RESPONSE UNDER {{.MaxWords}} WORDS.

ANALYSIS SCOPE:
- Category: {{.Category}}
- Time period: {{.Window}} data
- Posts analyzed: top {{.Analyzed}} of {{.Total}} highest-ranked posts

CONTENT TO ANALYZE:
{{.Posts}}

REQUIRED OUTPUT STRUCTURE:

Overview (40-50 words)
Two or three sentences capturing the broad themes and tone.

Key Themes (170-200 words)
The 3 most important topics as a numbered list, each with specific details from the posts.

{{.Persona.Implications}} (80-100 words)
Two numbered insights that do not repeat the key themes: {{.Persona.Advice}}.

Use exactly these three section headers. Never end mid-sentence: if a sentence would exceed the word limit, leave it out.`))

// BuildPrompt renders the summary request for one category
func BuildPrompt(domain models.Domain, tf models.TimeFilter, category models.Category, prepared Prepared) (string, error) {
	p, ok := personas[domain]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrUnknownDomain, domain)
	}

	var sb strings.Builder
	err := promptTemplate.Execute(&sb, map[string]any{
		"Persona":  p,
		"MaxWords": maxWords,
		"Category": category.DisplayName(),
		"Window":   windowName(tf),
		"Analyzed": prepared.Analyzed,
		"Total":    prepared.Total,
		"Posts":    prepared.Text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return sb.String(), nil
}

func windowName(tf models.TimeFilter) string {
	if tf == models.TimeFilterDay {
		return "Daily"
	}
	return "Weekly"
}
