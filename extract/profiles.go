package extract

import (
	"fmt"

	"github.com/brettboylen/reddit-digest/models"
)

// CategoryQuota is the minimum post count of one category and where to look
// for more posts when it falls short
type CategoryQuota struct {
	Category models.Category `yaml:"category"`
	Minimum  int             `yaml:"minimum"`

	// Threshold is the popularity floor for backfilled posts
	Threshold float64 `yaml:"threshold"`

	// Subreddits rich in this category; empty means every profile subreddit
	Subreddits []string `yaml:"subreddits"`
}

// Profile configures balanced extraction for one domain
type Profile struct {
	Domain     models.Domain   `yaml:"domain"`
	Subreddits []string        `yaml:"subreddits"`
	Threshold  float64         `yaml:"threshold"`
	Quotas     []CategoryQuota `yaml:"quotas"`
}

// Quota returns the quota of a category
func (p Profile) Quota(c models.Category) (CategoryQuota, bool) {
	for _, q := range p.Quotas {
		if q.Category == c {
			return q, true
		}
	}
	return CategoryQuota{}, false
}

// BackfillSubreddits returns the subreddits queried when q falls short
func (p Profile) BackfillSubreddits(q CategoryQuota) []string {
	if len(q.Subreddits) > 0 {
		return q.Subreddits
	}
	return p.Subreddits
}

// Validate checks that quotas only name categories of the domain
func (p Profile) Validate() error {
	if len(p.Domain.Categories()) == 0 {
		return fmt.Errorf("%w: %s", models.ErrUnknownDomain, p.Domain)
	}
	if len(p.Subreddits) == 0 {
		return fmt.Errorf("profile %s has no subreddits", p.Domain)
	}
	seen := make(map[models.Category]bool)
	for _, q := range p.Quotas {
		if !p.Domain.Has(q.Category) {
			return fmt.Errorf("profile %s: category %q is not part of the domain", p.Domain, q.Category)
		}
		if seen[q.Category] {
			return fmt.Errorf("profile %s: duplicate quota for %s", p.Domain, q.Category)
		}
		if q.Minimum < 0 {
			return fmt.Errorf("profile %s: negative minimum for %s", p.Domain, q.Category)
		}
		seen[q.Category] = true
	}
	return nil
}

// Clone returns a deep copy so callers can apply overrides safely
func (p Profile) Clone() Profile {
	out := p
	out.Subreddits = append([]string(nil), p.Subreddits...)
	out.Quotas = make([]CategoryQuota, len(p.Quotas))
	for i, q := range p.Quotas {
		q.Subreddits = append([]string(nil), q.Subreddits...)
		out.Quotas[i] = q
	}
	return out
}

// DefaultProfile returns the built-in profile of a domain
func DefaultProfile(d models.Domain) (Profile, error) {
	switch d {
	case models.DomainFinance:
		return financeProfile(), nil
	case models.DomainEntertainment:
		return entertainmentProfile(), nil
	case models.DomainTravel:
		return travelTipsProfile(), nil
	case models.DomainRegionalTravel:
		return regionalTravelProfile(), nil
	}
	return Profile{}, fmt.Errorf("%w: %s", models.ErrUnknownDomain, d)
}

func financeProfile() Profile {
	return Profile{
		Domain: models.DomainFinance,
		Subreddits: []string{
			"wallstreetbets", "investing", "stocks", "SecurityAnalysis",
			"ValueInvesting", "options", "pennystocks", "daytrading",
			"SwingTrading", "forex", "cryptocurrency", "Bitcoin",
			"CryptoMarkets", "thetagang", "SPACs", "financialindependence",
			"personalfinance",
		},
		Threshold: 300,
		Quotas: []CategoryQuota{
			{Category: models.CategoryAnalysis, Minimum: 25, Threshold: 150,
				Subreddits: []string{"SecurityAnalysis", "ValueInvesting", "investing", "thetagang"}},
			{Category: models.CategoryMarketNews, Minimum: 25, Threshold: 225,
				Subreddits: []string{"stocks", "cryptocurrency", "Bitcoin"}},
			{Category: models.CategoryQuestions, Minimum: 20, Threshold: 112,
				Subreddits: []string{"personalfinance", "investing"}},
			{Category: models.CategoryMemes, Minimum: 20, Threshold: 187,
				Subreddits: []string{"wallstreetbets", "cryptocurrency"}},
			{Category: models.CategoryCommunity, Minimum: 15, Threshold: 90,
				Subreddits: []string{"wallstreetbets", "pennystocks"}},
			{Category: models.CategoryPersonalTrading, Minimum: 50, Threshold: 300},
		},
	}
}

func entertainmentProfile() Profile {
	return Profile{
		Domain: models.DomainEntertainment,
		Subreddits: []string{
			"netflix", "hulu", "DisneyPlus", "PrimeVideo", "HBOMax", "AppleTVPlus",
			"movies", "television", "letterboxd", "anime", "animesuggest",
			"horror", "horrormovies", "MovieSuggestions", "televisionsuggestions",
			"NetflixBestOf", "documentaries", "tipofmytongue", "ifyoulikeblank",
			"criterion", "truefilm", "flicks",
		},
		Threshold: 100,
		Quotas: []CategoryQuota{
			{Category: models.CategoryRecommendations, Minimum: 25, Threshold: 50,
				Subreddits: []string{"animesuggest", "MovieSuggestions", "televisionsuggestions", "NetflixBestOf", "ifyoulikeblank"}},
			{Category: models.CategoryReviewsDiscussions, Minimum: 20, Threshold: 80,
				Subreddits: []string{"netflix", "hulu", "DisneyPlus", "HBOMax", "letterboxd", "flicks"}},
			{Category: models.CategoryNewsAnnouncements, Minimum: 15, Threshold: 100,
				Subreddits: []string{"movies", "television", "anime"}},
			{Category: models.CategoryListsRankings, Minimum: 10, Threshold: 70,
				Subreddits: []string{"criterion", "truefilm", "letterboxd"}},
			{Category: models.CategoryIdentification, Minimum: 8, Threshold: 30,
				Subreddits: []string{"tipofmytongue", "ifyoulikeblank"}},
		},
	}
}

func travelTipsProfile() Profile {
	return Profile{
		Domain: models.DomainTravel,
		Subreddits: []string{
			"travel", "TravelNoPics", "travelhacks", "onebag", "digitalnomad",
			"longtermtravel", "solotravel", "backpacking", "budgettravel", "shoestring",
		},
		Threshold: 10,
		Quotas: []CategoryQuota{
			{Category: models.CategoryGeneralTravel, Minimum: 30, Threshold: 5,
				Subreddits: []string{"travel", "TravelNoPics", "travelhacks", "onebag", "digitalnomad", "longtermtravel"}},
			{Category: models.CategorySoloTravel, Minimum: 20, Threshold: 5,
				Subreddits: []string{"solotravel"}},
			{Category: models.CategoryBudgetTravel, Minimum: 20, Threshold: 5,
				Subreddits: []string{"budgettravel", "shoestring", "backpacking"}},
		},
	}
}

func regionalTravelProfile() Profile {
	return Profile{
		Domain: models.DomainRegionalTravel,
		Subreddits: []string{
			"europe", "travel_Europe", "ItalyTravel", "germany",
			"JapanTravel", "Thailand", "IndiaTravel", "SouthEastAsia", "china",
			"MexicoTravel", "canada", "VisitingIceland", "argentina",
			"australia", "newzealand", "southafrica",
		},
		Threshold: 10,
		Quotas: []CategoryQuota{
			{Category: models.CategoryEurope, Minimum: 20, Threshold: 5,
				Subreddits: []string{"europe", "travel_Europe", "ItalyTravel", "germany", "VisitingIceland"}},
			{Category: models.CategoryAsia, Minimum: 20, Threshold: 5,
				Subreddits: []string{"JapanTravel", "Thailand", "IndiaTravel", "SouthEastAsia", "china"}},
			{Category: models.CategoryAmericas, Minimum: 15, Threshold: 5,
				Subreddits: []string{"MexicoTravel", "canada", "argentina"}},
			{Category: models.CategoryOceaniaAfrica, Minimum: 10, Threshold: 5,
				Subreddits: []string{"australia", "newzealand", "southafrica"}},
		},
	}
}
