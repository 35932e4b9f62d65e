package classify

import (
	"regexp"

	"github.com/brettboylen/reddit-digest/models"
)

var dollarAmount = regexp.MustCompile(`\$[\d,]+`)

// TravelTipsRules returns the travel tips rule table
func TravelTipsRules() Rules {
	return Rules{
		DirectSubreddits: map[string]models.Category{
			"solotravel":   models.CategorySoloTravel,
			"budgettravel": models.CategoryBudgetTravel,
			"shoestring":   models.CategoryBudgetTravel,
		},
		Flair: []FlairRule{
			{"solo", models.CategorySoloTravel},
			{"budget", models.CategoryBudgetTravel},
			{"cheap", models.CategoryBudgetTravel},
			{"backpack", models.CategoryBudgetTravel},
			{"advice", models.CategoryGeneralTravel},
			{"tips", models.CategoryGeneralTravel},
			{"help", models.CategoryGeneralTravel},
			{"question", models.CategoryGeneralTravel},
			{"planning", models.CategoryGeneralTravel},
			{"itinerary", models.CategoryGeneralTravel},
			{"guide", models.CategoryGeneralTravel},
		},
		TitleMarkers: []Stage{{
			Name:  "question_thread",
			Apply: questionThread,
		}},
		Keywords: []KeywordGroup{
			{
				Category: models.CategorySoloTravel,
				Weight:   1,
				Patterns: []string{
					`solo travel`, `traveling alone`, `alone`, `by myself`, `first time solo`,
					`solo female`, `solo male`, `safety.*solo`, `solo.*safe`,
					`lonely`, `meeting people`, `making friends`, `social`, `single traveler`,
					`on my own`, `by yourself`, `solo.*experience`, `solo.*trip`,
				},
			},
			{
				Category: models.CategoryBudgetTravel,
				Weight:   1,
				Patterns: []string{
					`\$[\d,]+`, `budget`, `cheap`, `affordable`, `cost`, `expensive`,
					`broke`, `money`, `save.*money`, `shoestring`, `hostels`,
					`free`, `discount`, `deal`, `coupon`, `sale`, `bargain`,
					`backpack`, `hitchhike`, `couch.*surf`, `work.*exchange`,
					`volunteer`, `wwoof`, `budget.*airline`, `low.*cost`,
				},
			},
			{
				Category: models.CategoryGeneralTravel,
				Weight:   1,
				Patterns: []string{
					`itinerary`, `planning`, `advice`, `tips`, `guide`, `help`,
					`recommend`, `suggest`, `best.*way`, `how.*to`, `what.*do`,
					`visa`, `passport`, `flight`, `hotel`, `accommodation`,
					`transportation`, `insurance`, `packing`, `luggage`,
					`airport`, `border`, `customs`, `embassy`, `document`,
					`currency`, `exchange`, `sim.*card`, `wifi`, `roaming`,
				},
			},
		},
		SubredditDefaults: map[string]models.Category{
			"travel":         models.CategoryGeneralTravel,
			"TravelNoPics":   models.CategoryGeneralTravel,
			"travelhacks":    models.CategoryGeneralTravel,
			"onebag":         models.CategoryGeneralTravel,
			"digitalnomad":   models.CategoryGeneralTravel,
			"longtermtravel": models.CategoryGeneralTravel,
			"backpacking":    models.CategoryBudgetTravel,
		},
		Context: []Stage{
			{
				Name: "dollar_amount",
				Apply: func(t Text) (Result, bool) {
					if dollarAmount.MatchString(t.Combined) {
						return Result{Category: models.CategoryBudgetTravel, Confidence: models.ConfidenceLow}, true
					}
					return Result{}, false
				},
			},
			{
				Name: "solo_safety",
				Apply: func(t Text) (Result, bool) {
					if containsAny(t.Combined, "safe", "safety", "dangerous", "secure", "risk") &&
						containsAny(t.Combined, "alone", "solo", "myself") {
						return Result{Category: models.CategorySoloTravel, Confidence: models.ConfidenceLow}, true
					}
					return Result{}, false
				},
			},
			{
				Name: "long_selftext",
				Apply: func(t Text) (Result, bool) {
					if len(t.SelfText) > 300 {
						return Result{Category: models.CategoryGeneralTravel, Confidence: models.ConfidenceLow}, true
					}
					return Result{}, false
				},
			},
		},
		Fallback: models.CategoryGeneralTravel,
	}
}

func questionThread(t Text) (Result, bool) {
	if !containsAny(t.Title, "question", "help", "advice", "recommend", "suggest") {
		return Result{}, false
	}
	switch {
	case containsAny(t.Combined, "solo", "alone", "by myself"):
		return Result{Category: models.CategorySoloTravel, Confidence: models.ConfidenceHigh}, true
	case containsAny(t.Combined, "budget", "cheap", "money", "cost"):
		return Result{Category: models.CategoryBudgetTravel, Confidence: models.ConfidenceHigh}, true
	}
	return Result{Category: models.CategoryGeneralTravel, Confidence: models.ConfidenceMedium}, true
}
