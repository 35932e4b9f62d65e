package ranking

import (
	"math"
	"sort"

	"github.com/brettboylen/reddit-digest/models"
)

const (
	upvoteWeight      = 1.0
	baseCommentWeight = 5.0
)

// defaultMultipliers are comment multipliers keyed by subreddit. Subreddits
// where comments are scarce relative to upvotes get a higher multiplier.
var defaultMultipliers = map[string]float64{
	// finance
	"Bitcoin":               3.0,
	"cryptocurrency":        2.5,
	"stocks":                2.0,
	"daytrading":            1.8,
	"forex":                 1.8,
	"pennystocks":           1.5,
	"investing":             1.2,
	"ValueInvesting":        1.0,
	"financialindependence": 0.8,
	"CryptoMarkets":         0.6,
	"wallstreetbets":        1.5,
	"SecurityAnalysis":      1.0,
	"thetagang":             1.2,
	"personalfinance":       0.8,

	// entertainment
	"movies":                1.8,
	"television":            1.8,
	"netflix":               1.2,
	"hulu":                  1.2,
	"DisneyPlus":            1.5,
	"PrimeVideo":            1.5,
	"HBOMax":                1.5,
	"AppleTVPlus":           1.8,
	"anime":                 1.0,
	"animesuggest":          0.8,
	"horror":                1.5,
	"horrormovies":          1.5,
	"MovieSuggestions":      0.8,
	"televisionsuggestions": 0.8,
	"NetflixBestOf":         1.0,
	"documentaries":         1.8,
	"tipofmytongue":         0.6,
	"ifyoulikeblank":        0.8,
	"criterion":             2.0,
	"truefilm":              2.0,
	"flicks":                1.5,
	"letterboxd":            1.8,
}

// DefaultMultipliers returns a copy of the built-in multiplier table
func DefaultMultipliers() map[string]float64 {
	out := make(map[string]float64, len(defaultMultipliers))
	for k, v := range defaultMultipliers {
		out[k] = v
	}
	return out
}

// Scorer computes popularity scores. It holds no mutable state after
// construction and is safe for concurrent use.
type Scorer struct {
	multipliers map[string]float64
}

// NewScorer creates a scorer with the given multiplier table. A nil table
// uses DefaultMultipliers.
func NewScorer(multipliers map[string]float64) *Scorer {
	if multipliers == nil {
		multipliers = defaultMultipliers
	}
	table := make(map[string]float64, len(multipliers))
	for k, v := range multipliers {
		table[k] = v
	}
	return &Scorer{multipliers: table}
}

// Multiplier returns the comment multiplier for a subreddit. Unknown
// subreddits and negative or non-finite entries get 1.0.
func (s *Scorer) Multiplier(subreddit string) float64 {
	if m, ok := s.multipliers[subreddit]; ok && !badFloat(m) && m >= 0 {
		return m
	}
	return 1.0
}

// Score returns score*1.0 + numComments*(5.0*multiplier). NaN and infinite
// inputs count as zero; negative scores are kept as is.
func (s *Scorer) Score(score, numComments float64, subreddit string) float64 {
	if badFloat(score) {
		score = 0
	}
	if badFloat(numComments) {
		numComments = 0
	}
	return score*upvoteWeight + numComments*(baseCommentWeight*s.Multiplier(subreddit))
}

// ScorePost scores a single post
func (s *Scorer) ScorePost(p models.Post) models.ClassifiedPost {
	return models.ClassifiedPost{
		Post:            p,
		PopularityScore: s.Score(float64(p.Score), float64(p.NumComments), p.Subreddit),
	}
}

// ScorePosts scores every post, preserving order
func (s *Scorer) ScorePosts(posts []models.Post) []models.ClassifiedPost {
	scored := make([]models.ClassifiedPost, 0, len(posts))
	for _, p := range posts {
		scored = append(scored, s.ScorePost(p))
	}
	return scored
}

// FilterByThreshold keeps posts whose popularity is at least minScore
func FilterByThreshold(posts []models.ClassifiedPost, minScore float64) []models.ClassifiedPost {
	kept := make([]models.ClassifiedPost, 0, len(posts))
	for _, p := range posts {
		if p.PopularityScore >= minScore {
			kept = append(kept, p)
		}
	}
	return kept
}

// SortByPopularity sorts in place, highest score first. Equal scores keep
// their relative order.
func SortByPopularity(posts []models.ClassifiedPost) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PopularityScore > posts[j].PopularityScore
	})
}

// Top returns the n most popular posts without modifying the input
func Top(posts []models.ClassifiedPost, n int) []models.ClassifiedPost {
	sorted := make([]models.ClassifiedPost, len(posts))
	copy(sorted, posts)
	SortByPopularity(sorted)
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func badFloat(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
