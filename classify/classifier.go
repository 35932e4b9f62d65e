package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/brettboylen/reddit-digest/models"
)

// Result is the outcome of classifying one post. An empty Category means the
// post is not applicable to the domain (entertainment relevance gate).
type Result struct {
	Category   models.Category
	Confidence models.Confidence
}

// Applicable reports whether the post belongs to the domain at all
func (r Result) Applicable() bool {
	return r.Category != ""
}

var notApplicable = Result{Confidence: models.ConfidenceNoMedia}

// Text is the normalized input every stage sees. Title, Flair and SelfText are
// lowercased; Subreddit keeps its original casing for exact table lookups.
type Text struct {
	Title     string
	Flair     string
	Subreddit string
	SelfText  string
	Combined  string
}

// NewText normalizes raw post fields
func NewText(title, flair, subreddit, selftext string) Text {
	t := Text{
		Title:     strings.ToLower(title),
		Flair:     strings.ToLower(strings.TrimSpace(flair)),
		Subreddit: strings.TrimSpace(subreddit),
		SelfText:  strings.ToLower(selftext),
	}
	t.Combined = t.Title + " " + t.SelfText
	return t
}

// Stage is one named rule layer. Apply returns ok=false to defer to the next
// stage; the first stage that returns ok=true decides the result.
type Stage struct {
	Name  string
	Apply func(t Text) (Result, bool)
}

// Classifier runs an ordered list of stages for one domain
type Classifier struct {
	domain   models.Domain
	stages   []Stage
	fallback models.Category
}

// New compiles rules into a classifier. Every category referenced by the
// rules must belong to the domain.
func New(domain models.Domain, rules Rules) (*Classifier, error) {
	if err := rules.validate(domain); err != nil {
		return nil, err
	}

	var stages []Stage

	if rules.Gate != nil {
		gate, err := compileGate(rules.Gate)
		if err != nil {
			return nil, fmt.Errorf("relevance gate: %w", err)
		}
		stages = append(stages, gate)
	}

	stages = append(stages,
		subredditStage("direct_subreddit", rules.DirectSubreddits, models.ConfidenceHigh),
		flairStage(rules.Flair),
	)
	stages = append(stages, rules.TitleMarkers...)

	kw, err := compileKeywords(rules.Keywords)
	if err != nil {
		return nil, fmt.Errorf("keyword rules: %w", err)
	}
	stages = append(stages, kw)

	if rules.Opinion != nil {
		op, err := compileOpinion(rules.Opinion)
		if err != nil {
			return nil, fmt.Errorf("opinion rules: %w", err)
		}
		stages = append(stages, op)
	}

	stages = append(stages, subredditStage("subreddit_default", rules.SubredditDefaults, models.ConfidenceLow))
	stages = append(stages, rules.Context...)

	fallback := rules.Fallback
	stages = append(stages, Stage{
		Name: "fallback",
		Apply: func(Text) (Result, bool) {
			return Result{Category: fallback, Confidence: models.ConfidenceFallback}, true
		},
	})

	return &Classifier{domain: domain, stages: stages, fallback: fallback}, nil
}

// MustNew is like New but panics when the rules do not compile
func MustNew(domain models.Domain, rules Rules) *Classifier {
	c, err := New(domain, rules)
	if err != nil {
		panic(fmt.Sprintf("classify: invalid %s rules: %v", domain, err))
	}
	return c
}

// ForDomain returns a classifier with the built-in rules of a domain
func ForDomain(domain models.Domain) (*Classifier, error) {
	rules, ok := DefaultRules(domain)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownDomain, domain)
	}
	return New(domain, rules)
}

// DefaultRules returns the built-in rule table of a domain
func DefaultRules(domain models.Domain) (Rules, bool) {
	switch domain {
	case models.DomainFinance:
		return FinanceRules(), true
	case models.DomainEntertainment:
		return EntertainmentRules(), true
	case models.DomainTravel:
		return TravelTipsRules(), true
	case models.DomainRegionalTravel:
		return RegionalTravelRules(), true
	}
	return Rules{}, false
}

// Domain returns the domain this classifier was built for
func (c *Classifier) Domain() models.Domain {
	return c.domain
}

// StageNames lists the stages in evaluation order
func (c *Classifier) StageNames() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name
	}
	return names
}

// Classify assigns a category. It is deterministic and never fails; missing
// flair or selftext should be passed as empty strings.
func (c *Classifier) Classify(title, flair, subreddit, selftext string) Result {
	t := NewText(title, flair, subreddit, selftext)

	for _, stage := range c.stages {
		res, ok := stage.Apply(t)
		if !ok {
			continue
		}
		if !res.Applicable() {
			return notApplicable
		}
		// heuristics are plain funcs; ignore anything outside the closed set
		if !c.domain.Has(res.Category) {
			continue
		}
		return res
	}

	return Result{Category: c.fallback, Confidence: models.ConfidenceFallback}
}

// ClassifyPost classifies p in place and returns the result
func (c *Classifier) ClassifyPost(p *models.ClassifiedPost) Result {
	res := c.Classify(p.Title, p.LinkFlairText, p.Subreddit, p.SelfText)
	p.Category = res.Category
	p.Confidence = res.Confidence
	return res
}

func subredditStage(name string, table map[string]models.Category, conf models.Confidence) Stage {
	return Stage{
		Name: name,
		Apply: func(t Text) (Result, bool) {
			if cat, ok := table[t.Subreddit]; ok {
				return Result{Category: cat, Confidence: conf}, true
			}
			return Result{}, false
		},
	}
}

func flairStage(rules []FlairRule) Stage {
	return Stage{
		Name: "flair",
		Apply: func(t Text) (Result, bool) {
			if t.Flair == "" {
				return Result{}, false
			}
			for _, r := range rules {
				if strings.Contains(t.Flair, strings.ToLower(r.Keyword)) {
					return Result{Category: r.Category, Confidence: models.ConfidenceHigh}, true
				}
			}
			return Result{}, false
		},
	}
}

type weightedGroup struct {
	category models.Category
	weight   int
	patterns []*regexp.Regexp
}

func compileKeywords(groups []KeywordGroup) (Stage, error) {
	compiled := make([]weightedGroup, 0, len(groups))
	for _, g := range groups {
		patterns, err := compilePatterns(g.Patterns)
		if err != nil {
			return Stage{}, fmt.Errorf("category %s: %w", g.Category, err)
		}
		weight := g.Weight
		if weight <= 0 {
			weight = 1
		}
		compiled = append(compiled, weightedGroup{category: g.Category, weight: weight, patterns: patterns})
	}

	return Stage{
		Name: "keywords",
		Apply: func(t Text) (Result, bool) {
			var best models.Category
			bestScore := 0
			for _, g := range compiled {
				score := countMatches(g.patterns, t.Combined) * g.weight
				// strict > so the group listed first wins ties
				if score > bestScore {
					best = g.category
					bestScore = score
				}
			}
			if bestScore == 0 {
				return Result{}, false
			}
			return Result{Category: best, Confidence: models.ConfidenceMedium}, true
		},
	}, nil
}

func compileOpinion(rules *OpinionRules) (Stage, error) {
	patterns, err := compilePatterns(rules.Patterns)
	if err != nil {
		return Stage{}, err
	}
	cat := rules.Category

	return Stage{
		Name: "opinion",
		Apply: func(t Text) (Result, bool) {
			if anyMatch(patterns, t.Combined) {
				return Result{}, false
			}
			return Result{Category: cat, Confidence: models.ConfidenceLowOpinion}, true
		},
	}, nil
}

func compileGate(g *GateRules) (Stage, error) {
	exclusions, err := compilePatterns(g.Exclusions)
	if err != nil {
		return Stage{}, fmt.Errorf("exclusions: %w", err)
	}
	strong, err := compilePatterns(g.Strong)
	if err != nil {
		return Stage{}, fmt.Errorf("strong indicators: %w", err)
	}
	additional, err := compilePatterns(g.Additional)
	if err != nil {
		return Stage{}, fmt.Errorf("additional indicators: %w", err)
	}
	lenient, err := compilePatterns(g.Lenient)
	if err != nil {
		return Stage{}, fmt.Errorf("lenient indicators: %w", err)
	}
	lenientSubs := make(map[string]bool, len(g.LenientSubreddits))
	for _, s := range g.LenientSubreddits {
		lenientSubs[s] = true
	}

	return Stage{
		Name: "relevance_gate",
		Apply: func(t Text) (Result, bool) {
			switch {
			case anyMatch(exclusions, t.Combined):
				return notApplicable, true
			case anyMatch(strong, t.Combined), anyMatch(additional, t.Combined):
				return Result{}, false
			case lenientSubs[t.Subreddit] && anyMatch(lenient, t.Combined):
				return Result{}, false
			}
			return notApplicable, true
		},
	}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func countMatches(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, re := range patterns {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
