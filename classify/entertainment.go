package classify

import "github.com/brettboylen/reddit-digest/models"

// EntertainmentRules returns the entertainment rule table. Posts that do not
// reference any movie, show or anime are not applicable.
func EntertainmentRules() Rules {
	return Rules{
		Gate: &GateRules{
			Exclusions: []string{
				// platform and device issues
				`streaming.*device`, `best.*device`, `roku`, `chromecast`, `apple.*tv.*device`,
				`subtitles?$`, `subtitle.*setting`, `closed.*caption`,
				`buffering`, `loading`, `internet.*speed`, `wifi`, `connection.*issue`,
				`app.*crash`, `login.*error`, `account.*problem`, `password.*reset`,

				// business news
				`stock.*price`, `earnings`, `revenue`, `\$\d+.*billion`, `acquisition`,
				`lawsuit`, `legal.*battle`, `court.*case`, `settlement`,
				`subscription.*price`, `cost.*increase`, `billing.*issue`, `refund`,

				// platform comparisons
				`^(disney.*plus|netflix|hulu|prime.*video|hbo.*max)\s*\?\s*$`,
				`(disney.*plus|netflix|hulu) vs (disney.*plus|netflix|hulu)`,
				`which.*platform.*better`, `best.*streaming.*service`,

				// celebrity deaths
				`dead at \d+`, `dies at \d+`, `\bdied\b`, `cardiac.*arrest`,
				`accident.*death`, `tragic.*news`, `\brip\s+[a-z]+`,

				// network operations
				`launches.*in.*country`, `available.*in.*region`, `coming.*to.*country`,
				`million.*viewers`, `ratings.*hit`, `series.*high.*viewers`,
			},
			Strong: []string{
				`"[a-z][^"]{3,}"`, `'[a-z][^']{3,}'`,
				`season \d+`, `episode \d+`, `s\d+e\d+`, `finale`, `premiere`,
				`\bseason\s+(?:one|two|three|four|five|final)`, `series.*finale`,
				`finished.*watching`, `started.*watching`, `rewatching`, `binge.*watch`,
				`american.*horror.*story`, `peaky.*blinders`, `black.*mirror`,
				`spider-?man`, `kpop.*demon.*hunters`, `stranger.*things`,
				`breaking.*bad`, `the.*office`, `game.*of.*thrones`,
				`\btrainwreck\b.*(?:pi|moms|documentary|episode)`,
			},
			Additional: []string{
				`top \d+.*(?:favorite|best).*(?:on|netflix|hulu|disney|hbo)`,
				`(?:netflix|hulu|disney|hbo).*original.*(?:exceed|disappoint|good|bad)`,
				`what.*(?:movie|film|show|series).*(?:is|this|for|you)`,
				`need.*(?:find|identify).*(?:movie|film|show|series)`,
				`(?:movies|films|shows|series).*(?:that|which|with)\s+\w+`,
				`looking.*for.*(?:anime|movie|film|show|series).*(?:that|with)`,
				`any.*similar.*(?:shows|movies|films|series)`,
				`(?:classic|old).*(?:movies|films).*(?:everyone|should)`,
				`coming.*of.*age.*(?:films|movies)`,
				`animated.*(?:marvel|dc).*(?:television|series)`,
				`trailer.*(?:hulu|netflix|disney)`,
				`\b(?:untamed|freakish)\b.*(?:series|show|documentary)`,
				`films.*(?:that|i).*(?:wish|would)`,
			},
			LenientSubreddits: []string{
				"anime", "animesuggest", "horror", "horrormovies",
				"documentaries", "MovieSuggestions", "televisionsuggestions",
				"tipofmytongue", "ifyoulikeblank", "criterion", "truefilm", "flicks",
			},
			Lenient: []string{
				`\bmovie\b`, `\bfilm\b`, `\bshow\b`, `\bseries\b`,
				`\banime\b`, `\bdocumentary\b`, `recommend`, `suggest`,
				`what.*watch`, `best.*(?:movie|show|film|series)`,
				`favorite.*(?:movie|show|film|series)`,
				`looking.*for.*anime`, `need.*to.*(?:cry|laugh)`,
				`what.*(?:this|vibe)`, `similar.*to`,
				`anime.*that.*(?:takes|death|serious)`,
			},
		},
		DirectSubreddits: map[string]models.Category{
			"animesuggest":          models.CategoryRecommendations,
			"MovieSuggestions":      models.CategoryRecommendations,
			"televisionsuggestions": models.CategoryRecommendations,
			"NetflixBestOf":         models.CategoryRecommendations,
			"ifyoulikeblank":        models.CategoryRecommendations,
			"tipofmytongue":         models.CategoryIdentification,
			"criterion":             models.CategoryListsRankings,
			"truefilm":              models.CategoryListsRankings,
			"flicks":                models.CategoryReviewsDiscussions,
		},
		Flair: []FlairRule{
			{"request", models.CategoryRecommendations},
			{"suggestion", models.CategoryRecommendations},
			{"discussion", models.CategoryReviewsDiscussions},
			{"review", models.CategoryReviewsDiscussions},
			{"news", models.CategoryNewsAnnouncements},
			{"announcement", models.CategoryNewsAnnouncements},
			{"trailer", models.CategoryNewsAnnouncements},
			{"help", models.CategoryIdentification},
			{"list", models.CategoryListsRankings},
		},
		// weights: recommendations > identification > lists > news > reviews
		Keywords: []KeywordGroup{
			{
				Category: models.CategoryRecommendations,
				Weight:   6,
				Patterns: []string{
					`\b(?:recommend|suggestion|suggest)\b`,
					`what.*(?:should|to).*watch`,
					`(?:need|want|looking\s+for).*(?:movie|show|series|anime)`,
					`give.*me.*(?:your|some).*favorite`,
					`\[request\]`,
					`best.*(?:movie|show|series|anime).*(?:for|to|on)`,
					`any.*good.*(?:movie|show|series|anime)`,
					`hidden.*gem`,
					`underrated.*(?:movie|show|series|anime)`,
					`never.*watched.*(?:anime|genre)`,
					`new.*to.*(?:anime|horror|sci.*fi)`,
					`similar.*to.*(?:this|that)`,
					`like.*(?:this|that).*(?:movie|show)`,
					`(?:beginner|starter).*(?:anime|movie|show)`,
					`feel.*good.*(?:movie|show)`,
					`binge.*watch.*(?:recommendation|suggestion)`,
				},
			},
			{
				Category: models.CategoryReviewsDiscussions,
				Weight:   2,
				Patterns: []string{
					`(?:just|finally).*(?:finished|watched|binged)`,
					`(?:loved|hated|enjoyed|disappointed)`,
					`(?:amazing|terrible|brilliant|awful|meh)`,
					`\bomfg\b`,
					`(?:my|personal).*(?:opinion|review|thoughts?)`,
					`(?:exceeded|disappointed).*expectation`,
					`made.*me.*(?:cry|laugh|emotional)`,
					`what.*(?:do\s+you\s+think|your\s+opinion)`,
					`(?:best|worst|favorite).*(?:season|character|episode)`,
					`which.*(?:is|do\s+you).*(?:better|prefer)`,
					`\[discussion\]`,
					`what.*(?:scene|moment|part).*(?:favorite|memorable)`,
					`who.*(?:else|thinks|agrees)`,
					`am.*i.*the.*only.*one`,
					`unpopular.*opinion`,
					`hot.*take`,
					`change.*my.*mind`,
				},
			},
			{
				Category: models.CategoryNewsAnnouncements,
				Weight:   3,
				Patterns: []string{
					`(?:delayed|postponed|moved).*(?:to|until)`,
					`(?:official|new).*(?:poster|trailer|teaser)`,
					`(?:season|series).*(?:\d+|two|three).*(?:announcement|confirmed)`,
					`(?:cast|casting|star|starring).*(?:announced|confirmed)`,
					`(?:premiere|release).*(?:date|schedule)`,
					`\|\|.*(?:trailer|teaser|poster)`,
					`has.*made.*(?:history|record)`,
					`(?:filming|production).*(?:starts|begins|wraps)`,
					`(?:renewed|cancelled|greenlit)`,
					`first.*(?:look|image|poster)`,
					`breaking.*news`,
					`just.*announced`,
				},
			},
			{
				Category: models.CategoryIdentification,
				Weight:   5,
				Patterns: []string{
					`(?:need.*to.*find|trying.*to.*find)`,
					`what.*(?:movie|show|series|anime).*(?:is.*this|this.*is)`,
					`(?:similar|like).*(?:to|this).*(?:movie|show|series)`,
					`what.*(?:films|movies|shows).*(?:have.*this|this.*vibe)`,
					`remind.*me.*of`,
					`same.*(?:vibe|energy|feel)`,
					`movies.*(?:like|similar)`,
					`can.*t.*remember.*(?:movie|show)`,
					`help.*me.*(?:find|remember|identify)`,
					`what.*was.*that.*(?:movie|show)`,
					`tip.*of.*my.*tongue`,
				},
			},
			{
				Category: models.CategoryListsRankings,
				Weight:   4,
				Patterns: []string{
					`(?:my|top|best).*(?:\d+|three|five|ten).*(?:favorite|best)`,
					`(?:greatest|best).*(?:of.*all.*time|ever)`,
					`(?:underrated|overrated).*(?:list|collection)`,
					`(?:classic|old).*(?:movie|film).*(?:everyone|should)`,
					`(?:films|movies).*(?:that.*i|everyone).*(?:wish|should)`,
					`(?:ranking|list).*(?:of|my)`,
					`collection.*of`,
					`tier.*list`,
					`\d+.*(?:best|worst|favorite).*(?:movie|show|anime)`,
					`every.*(?:movie|show).*(?:ranked|rating)`,
					`definitive.*(?:list|ranking)`,
				},
			},
		},
		Opinion: &OpinionRules{
			Category: models.CategoryNewsAnnouncements,
			Patterns: []string{
				`amazing`, `brilliant`, `fantastic`, `excellent`, `terrible`, `awful`,
				`love`, `hate`, `favorite`, `best`, `worst`, `good`, `bad`,
				`made.*me.*(?:cry|laugh)`, `emotional`, `touching`, `boring`,
				`recommend`, `suggest`, `worth.*watch`, `must.*watch`,
			},
		},
		SubredditDefaults: map[string]models.Category{
			"netflix":       models.CategoryReviewsDiscussions,
			"hulu":          models.CategoryReviewsDiscussions,
			"DisneyPlus":    models.CategoryReviewsDiscussions,
			"PrimeVideo":    models.CategoryReviewsDiscussions,
			"HBOMax":        models.CategoryReviewsDiscussions,
			"AppleTVPlus":   models.CategoryReviewsDiscussions,
			"movies":        models.CategoryNewsAnnouncements,
			"television":    models.CategoryNewsAnnouncements,
			"letterboxd":    models.CategoryReviewsDiscussions,
			"anime":         models.CategoryReviewsDiscussions,
			"horror":        models.CategoryReviewsDiscussions,
			"horrormovies":  models.CategoryReviewsDiscussions,
			"documentaries": models.CategoryNewsAnnouncements,
		},
		Fallback: models.CategoryReviewsDiscussions,
	}
}
