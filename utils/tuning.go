package utils

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/brettboylen/reddit-digest/extract"
	"github.com/brettboylen/reddit-digest/models"
	"github.com/brettboylen/reddit-digest/ranking"
)

// Tuning adjusts scoring and extraction without a rebuild
type Tuning struct {
	// Multipliers override or extend the built-in subreddit comment weights
	Multipliers map[string]float64 `yaml:"multipliers"`

	// Profiles are keyed by domain. ParseTuning rewrites aliases such as
	// travel_tips to the canonical name.
	Profiles map[string]ProfileOverride `yaml:"profiles"`
}

// ProfileOverride changes parts of a domain's built-in extraction profile.
// Quotas replace the built-in quota of the same category or are appended.
type ProfileOverride struct {
	Subreddits []string                `yaml:"subreddits"`
	Threshold  *float64                `yaml:"threshold"`
	Quotas     []extract.CategoryQuota `yaml:"quotas"`
}

// LoadTuning reads a YAML tuning file. An empty path yields empty tuning.
func LoadTuning(path string) (*Tuning, error) {
	if path == "" {
		return &Tuning{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tuning file: %w", err)
	}
	defer f.Close()

	return ParseTuning(f)
}

// ParseTuning decodes tuning YAML, rejecting unknown keys and domains
func ParseTuning(r io.Reader) (*Tuning, error) {
	var t Tuning
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse tuning file: %w", err)
	}

	// key profiles by canonical domain so aliases cannot shadow each other
	profiles := make(map[string]ProfileOverride, len(t.Profiles))
	aliases := make(map[models.Domain]string, len(t.Profiles))
	for name, o := range t.Profiles {
		d, err := models.ParseDomain(name)
		if err != nil {
			return nil, fmt.Errorf("tuning profiles: %w", err)
		}
		if prev, dup := aliases[d]; dup {
			return nil, fmt.Errorf("tuning profiles %q and %q both configure %s", prev, name, d)
		}
		aliases[d] = name
		profiles[string(d)] = o
	}
	t.Profiles = profiles

	for name := range t.Profiles {
		if _, err := t.Profile(models.Domain(name)); err != nil {
			return nil, err
		}
	}
	for sub, m := range t.Multipliers {
		if m < 0 {
			return nil, fmt.Errorf("tuning multiplier for %s must not be negative", sub)
		}
	}

	return &t, nil
}

// Scorer returns a scorer using the built-in multipliers overlaid with the
// tuned ones
func (t *Tuning) Scorer() *ranking.Scorer {
	table := ranking.DefaultMultipliers()
	for sub, m := range t.Multipliers {
		table[sub] = m
	}
	return ranking.NewScorer(table)
}

// Profile returns the built-in profile of d with any override applied
func (t *Tuning) Profile(d models.Domain) (extract.Profile, error) {
	p, err := extract.DefaultProfile(d)
	if err != nil {
		return extract.Profile{}, err
	}

	o, ok := t.override(d)
	if !ok {
		return p, nil
	}

	if len(o.Subreddits) > 0 {
		p.Subreddits = append([]string(nil), o.Subreddits...)
	}
	if o.Threshold != nil {
		p.Threshold = *o.Threshold
	}
	for _, q := range o.Quotas {
		replaced := false
		for i := range p.Quotas {
			if p.Quotas[i].Category == q.Category {
				p.Quotas[i] = q
				replaced = true
				break
			}
		}
		if !replaced {
			p.Quotas = append(p.Quotas, q)
		}
	}

	if err := p.Validate(); err != nil {
		return extract.Profile{}, fmt.Errorf("tuning for %s: %w", d, err)
	}
	return p, nil
}

func (t *Tuning) override(d models.Domain) (ProfileOverride, bool) {
	o, ok := t.Profiles[string(d)]
	return o, ok
}
