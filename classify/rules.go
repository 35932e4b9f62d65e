package classify

import (
	"fmt"

	"github.com/brettboylen/reddit-digest/models"
)

// Rules is the immutable rule table of one domain. Build a fresh value per
// classifier; the constructors below never share slices or maps.
type Rules struct {
	// Gate filters posts that are not about the domain at all
	Gate *GateRules

	DirectSubreddits map[string]models.Category
	Flair            []FlairRule

	// TitleMarkers run between flair and keywords
	TitleMarkers []Stage

	Keywords []KeywordGroup
	Opinion  *OpinionRules

	SubredditDefaults map[string]models.Category

	// Context heuristics run after subreddit defaults
	Context []Stage

	Fallback models.Category
}

// FlairRule maps a case-insensitive flair substring to a category
type FlairRule struct {
	Keyword  string
	Category models.Category
}

// KeywordGroup counts regex matches for one category. Weight multiplies the
// raw count; groups earlier in the slice win ties.
type KeywordGroup struct {
	Category models.Category
	Weight   int
	Patterns []string
}

// OpinionRules sends posts without any opinion word to Category
type OpinionRules struct {
	Category models.Category
	Patterns []string
}

// GateRules decides whether a post is relevant to the domain. Exclusions win
// over every inclusion list; Lenient only applies to LenientSubreddits.
type GateRules struct {
	Exclusions        []string
	Strong            []string
	Additional        []string
	LenientSubreddits []string
	Lenient           []string
}

func (r Rules) validate(domain models.Domain) error {
	if len(domain.Categories()) == 0 {
		return fmt.Errorf("%w: %s", models.ErrUnknownDomain, domain)
	}

	check := func(where string, c models.Category) error {
		if !domain.Has(c) {
			return fmt.Errorf("%s: category %q is not part of domain %s", where, c, domain)
		}
		return nil
	}

	if r.Fallback == "" {
		return fmt.Errorf("domain %s has no fallback category", domain)
	}
	if err := check("fallback", r.Fallback); err != nil {
		return err
	}
	for sub, c := range r.DirectSubreddits {
		if err := check("direct subreddit "+sub, c); err != nil {
			return err
		}
	}
	for _, f := range r.Flair {
		if f.Keyword == "" {
			return fmt.Errorf("empty flair keyword for %s", f.Category)
		}
		if err := check("flair "+f.Keyword, f.Category); err != nil {
			return err
		}
	}
	for _, g := range r.Keywords {
		if err := check("keywords", g.Category); err != nil {
			return err
		}
	}
	if r.Opinion != nil {
		if err := check("opinion", r.Opinion.Category); err != nil {
			return err
		}
	}
	for sub, c := range r.SubredditDefaults {
		if err := check("subreddit default "+sub, c); err != nil {
			return err
		}
	}
	for _, s := range append(append([]Stage{}, r.TitleMarkers...), r.Context...) {
		if s.Name == "" || s.Apply == nil {
			return fmt.Errorf("domain %s has an unnamed or empty stage", domain)
		}
	}
	return nil
}
