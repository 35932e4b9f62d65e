package models

import "fmt"

// Category is a closed set of discussion types. Values are stable keys used
// in datasets and URLs; DisplayName gives the human readable label.
type Category string

// Finance categories
const (
	CategoryPersonalTrading Category = "personal"
	CategoryAnalysis        Category = "analysis"
	CategoryMarketNews      Category = "news"
	CategoryMemes           Category = "memes"
	CategoryQuestions       Category = "questions"
	CategoryCommunity       Category = "community"
)

// Entertainment categories
const (
	CategoryRecommendations    Category = "recommendations"
	CategoryReviewsDiscussions Category = "reviews_discussions"
	CategoryNewsAnnouncements  Category = "news_announcements"
	CategoryIdentification     Category = "identification_help"
	CategoryListsRankings      Category = "lists_rankings"
)

// Travel tips categories
const (
	CategoryGeneralTravel Category = "general"
	CategorySoloTravel    Category = "solo"
	CategoryBudgetTravel  Category = "budget"
)

// Regional travel categories
const (
	CategoryEurope        Category = "europe"
	CategoryAsia          Category = "asia"
	CategoryAmericas      Category = "americas"
	CategoryOceaniaAfrica Category = "oceania_africa"
)

var displayNames = map[Category]string{
	CategoryPersonalTrading: "Personal Trading Stories",
	CategoryAnalysis:        "Analysis & Education",
	CategoryMarketNews:      "Market News & Politics",
	CategoryMemes:           "Memes & Entertainment",
	CategoryQuestions:       "Questions & Help",
	CategoryCommunity:       "Community Discussion",

	CategoryRecommendations:    "Recommendation Requests",
	CategoryReviewsDiscussions: "Reviews & Discussions",
	CategoryNewsAnnouncements:  "News & Announcements",
	CategoryIdentification:     "Identification & Help",
	CategoryListsRankings:      "Lists & Rankings",

	CategoryGeneralTravel: "General Travel Advice",
	CategorySoloTravel:    "Solo Travel",
	CategoryBudgetTravel:  "Budget Travel",

	CategoryEurope:        "Europe",
	CategoryAsia:          "Asia",
	CategoryAmericas:      "Americas",
	CategoryOceaniaAfrica: "Oceania & Africa",
}

var domainCategories = map[Domain][]Category{
	DomainFinance: {
		CategoryPersonalTrading, CategoryAnalysis, CategoryMarketNews,
		CategoryMemes, CategoryQuestions, CategoryCommunity,
	},
	DomainEntertainment: {
		CategoryRecommendations, CategoryReviewsDiscussions, CategoryNewsAnnouncements,
		CategoryIdentification, CategoryListsRankings,
	},
	DomainTravel: {
		CategoryGeneralTravel, CategorySoloTravel, CategoryBudgetTravel,
	},
	DomainRegionalTravel: {
		CategoryEurope, CategoryAsia, CategoryAmericas, CategoryOceaniaAfrica,
	},
}

// DisplayName returns the canonical label, e.g. "Analysis & Education"
func (c Category) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return string(c)
}

func (c Category) String() string {
	return c.DisplayName()
}

// Categories returns the closed category set of a domain in canonical order
func (d Domain) Categories() []Category {
	cats := domainCategories[d]
	out := make([]Category, len(cats))
	copy(out, cats)
	return out
}

// Has reports whether c belongs to the domain
func (d Domain) Has(c Category) bool {
	for _, cat := range domainCategories[d] {
		if cat == c {
			return true
		}
	}
	return false
}

// ParseCategory resolves a display name or key within a domain
func ParseCategory(d Domain, s string) (Category, error) {
	for _, cat := range domainCategories[d] {
		if string(cat) == s || displayNames[cat] == s {
			return cat, nil
		}
	}
	return "", fmt.Errorf("category %q is not part of domain %s", s, d)
}
