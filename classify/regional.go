package classify

import (
	"strings"

	"github.com/brettboylen/reddit-digest/models"
)

type wordRegion struct {
	word   string
	region models.Category
}

// checked in order, first hit wins
var currencyRegions = []wordRegion{
	{"euro", models.CategoryEurope},
	{"eur", models.CategoryEurope},
	{"pound", models.CategoryEurope},
	{"gbp", models.CategoryEurope},
	{"yen", models.CategoryAsia},
	{"yuan", models.CategoryAsia},
	{"rupee", models.CategoryAsia},
	{"baht", models.CategoryAsia},
	{"dollar", models.CategoryAmericas},
	{"peso", models.CategoryAmericas},
	{"real", models.CategoryAmericas},
}

var languageRegions = []wordRegion{
	{"spanish", models.CategoryAmericas},
	{"portuguese", models.CategoryAmericas},
	{"french", models.CategoryEurope},
	{"german", models.CategoryEurope},
	{"italian", models.CategoryEurope},
	{"japanese", models.CategoryAsia},
	{"chinese", models.CategoryAsia},
	{"thai", models.CategoryAsia},
	{"hindi", models.CategoryAsia},
	{"arabic", models.CategoryOceaniaAfrica},
}

// RegionalTravelRules returns the regional travel rule table. Region
// specific subreddits are authoritative.
func RegionalTravelRules() Rules {
	return Rules{
		DirectSubreddits: map[string]models.Category{
			"europe":          models.CategoryEurope,
			"travel_Europe":   models.CategoryEurope,
			"ItalyTravel":     models.CategoryEurope,
			"germany":         models.CategoryEurope,
			"VisitingIceland": models.CategoryEurope,
			"JapanTravel":     models.CategoryAsia,
			"Thailand":        models.CategoryAsia,
			"IndiaTravel":     models.CategoryAsia,
			"SouthEastAsia":   models.CategoryAsia,
			"china":           models.CategoryAsia,
			"MexicoTravel":    models.CategoryAmericas,
			"canada":          models.CategoryAmericas,
			"argentina":       models.CategoryAmericas,
			"australia":       models.CategoryOceaniaAfrica,
			"newzealand":      models.CategoryOceaniaAfrica,
			"southafrica":     models.CategoryOceaniaAfrica,
		},
		Flair: []FlairRule{
			{"europe", models.CategoryEurope},
			{"asia", models.CategoryAsia},
			{"america", models.CategoryAmericas},
			{"oceania", models.CategoryOceaniaAfrica},
			{"africa", models.CategoryOceaniaAfrica},
			{"italy", models.CategoryEurope},
			{"germany", models.CategoryEurope},
			{"japan", models.CategoryAsia},
			{"thailand", models.CategoryAsia},
			{"india", models.CategoryAsia},
			{"china", models.CategoryAsia},
			{"mexico", models.CategoryAmericas},
			{"canada", models.CategoryAmericas},
			{"australia", models.CategoryOceaniaAfrica},
			{"new zealand", models.CategoryOceaniaAfrica},
		},
		Keywords: []KeywordGroup{
			{
				Category: models.CategoryEurope,
				Weight:   1,
				Patterns: []string{
					`italy`, `france`, `spain`, `germany`, `uk`, `britain`, `england`,
					`scotland`, `ireland`, `netherlands`, `belgium`, `switzerland`,
					`austria`, `portugal`, `norway`, `sweden`, `denmark`, `finland`,
					`poland`, `czech`, `hungary`, `romania`, `bulgaria`, `croatia`,
					`serbia`, `slovakia`, `slovenia`, `estonia`, `latvia`, `lithuania`,
					`europe`, `european`, `eu `, `schengen`, `eurail`, `interrail`,
				},
			},
			{
				Category: models.CategoryAsia,
				Weight:   1,
				Patterns: []string{
					`japan`, `china`, `korea`, `south korea`, `north korea`, `taiwan`,
					`hong kong`, `macau`, `mongolia`,
					`thailand`, `vietnam`, `cambodia`, `laos`, `myanmar`, `singapore`,
					`malaysia`, `indonesia`, `philippines`, `brunei`,
					`india`, `pakistan`, `bangladesh`, `sri lanka`, `nepal`, `bhutan`,
					`maldives`, `afghanistan`,
					`kazakhstan`, `uzbekistan`, `turkmenistan`, `kyrgyzstan`, `tajikistan`,
					`iran`, `iraq`, `turkey`, `georgia`, `armenia`, `azerbaijan`,
					`asia`, `asian`, `southeast asia`, `south asia`, `east asia`,
				},
			},
			{
				Category: models.CategoryAmericas,
				Weight:   1,
				Patterns: []string{
					`usa`, `united states`, `america`, `canada`, `mexico`,
					`guatemala`, `belize`, `honduras`, `el salvador`, `nicaragua`,
					`costa rica`, `panama`,
					`brazil`, `argentina`, `chile`, `colombia`, `venezuela`, `peru`,
					`ecuador`, `bolivia`, `paraguay`, `uruguay`, `guyana`, `suriname`,
					`cuba`, `jamaica`, `haiti`, `dominican republic`, `puerto rico`,
					`bahamas`, `barbados`, `trinidad`,
					`latin america`, `south america`, `north america`, `central america`,
				},
			},
			{
				Category: models.CategoryOceaniaAfrica,
				Weight:   1,
				Patterns: []string{
					`australia`, `new zealand`, `fiji`, `papua new guinea`, `samoa`,
					`tonga`, `vanuatu`, `solomon islands`, `micronesia`, `palau`,
					`south africa`, `egypt`, `morocco`, `tunisia`, `kenya`, `tanzania`,
					`uganda`, `rwanda`, `ethiopia`, `ghana`, `nigeria`, `senegal`,
					`mali`, `burkina faso`, `ivory coast`, `cameroon`, `gabon`,
					`congo`, `zambia`, `zimbabwe`, `botswana`, `namibia`, `madagascar`,
					`africa`, `african`, `oceania`, `pacific islands`,
				},
			},
		},
		Context: []Stage{
			wordRegionStage("currency", currencyRegions),
			wordRegionStage("language", languageRegions),
		},
		Fallback: models.CategoryAsia,
	}
}

func wordRegionStage(name string, table []wordRegion) Stage {
	return Stage{
		Name: name,
		Apply: func(t Text) (Result, bool) {
			for _, wr := range table {
				if strings.Contains(t.Combined, wr.word) {
					return Result{Category: wr.region, Confidence: models.ConfidenceLow}, true
				}
			}
			return Result{}, false
		},
	}
}
