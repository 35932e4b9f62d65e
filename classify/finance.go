package classify

import (
	"strings"

	"github.com/brettboylen/reddit-digest/models"
)

// FinanceRules returns the finance rule table
func FinanceRules() Rules {
	return Rules{
		Flair: []FlairRule{
			{"gain", models.CategoryPersonalTrading},
			{"loss", models.CategoryPersonalTrading},
			{"yolo", models.CategoryPersonalTrading},
			{"meme", models.CategoryMemes},
			{"dd", models.CategoryAnalysis},
			{"daily discussion", models.CategoryCommunity},
			{"discussion", models.CategoryCommunity},
			{"news", models.CategoryMarketNews},
			{"markets", models.CategoryMarketNews},
			{"question", models.CategoryQuestions},
			{"help", models.CategoryQuestions},
			{"advice", models.CategoryQuestions},
		},
		TitleMarkers: []Stage{{
			Name: "discussion_thread",
			Apply: func(t Text) (Result, bool) {
				if strings.Contains(t.Title, "daily discussion") || strings.Contains(t.Title, "what are your moves") {
					return Result{Category: models.CategoryCommunity, Confidence: models.ConfidenceHigh}, true
				}
				return Result{}, false
			},
		}},
		Keywords: []KeywordGroup{
			{
				Category: models.CategoryPersonalTrading,
				Weight:   1,
				Patterns: []string{
					`\$[\d,]+`, `gain`, `loss`, `profit`, `sold`, `bought`,
					`yolo`, `portfolio`, `account`, `made \$`, `lost \$`,
					`my first`, `finally`, `i did it`, `worst.*decision`,
					`quit.*job`, `full.?time.*trading`, `milestone`,
				},
			},
			{
				Category: models.CategoryAnalysis,
				Weight:   1,
				Patterns: []string{
					`\$[a-z]{2,5}`, `dd`, `analysis`, `earnings`, `valuation`,
					`bullish`, `bearish`, `target price`, `pt:`, `catalyst`,
					`strategy`, `how to`, `guide`, `tutorial`, `method`,
					`checklist`, `tips`, `lesson`, `learned`,
				},
			},
			{
				Category: models.CategoryMarketNews,
				Weight:   1,
				Patterns: []string{
					`trump`, `biden`, `fed`, `powell`, `interest rate`,
					`inflation`, `gdp`, `unemployment`, `congress`,
					`breaking`, `announces`, `reports`, `says:`, `according to`,
					`bloomberg`, `reuters`, `cnbc`, `wsj`,
				},
			},
			{
				Category: models.CategoryMemes,
				Weight:   1,
				Patterns: []string{
					`🚀`, `💎`, `🦍`, `📈`, `📉`, `😂`, `💀`, `🤡`,
					`me when`, `me at`, `this is`, `that feel when`,
					`tfw`, `mood`, `relatable`, `too real`,
				},
			},
			{
				Category: models.CategoryQuestions,
				Weight:   1,
				Patterns: []string{
					`\?`, `should i`, `what do you think`, `need advice`,
					`help`, `confused`, `beginner`, `new to`, `eli5`,
					`can someone explain`, `is it worth`, `recommend`,
				},
			},
		},
		Opinion: &OpinionRules{
			Category: models.CategoryMarketNews,
			Patterns: []string{
				`think`, `believe`, `feel`, `opinion`,
				`worst`, `best`, `amazing`, `terrible`, `finally`, `omg`,
				`love`, `hate`, `insane`, `crazy`, `regret`, `lol`,
			},
		},
		SubredditDefaults: map[string]models.Category{
			"wallstreetbets":        models.CategoryPersonalTrading,
			"investing":             models.CategoryAnalysis,
			"stocks":                models.CategoryMarketNews,
			"SecurityAnalysis":      models.CategoryAnalysis,
			"ValueInvesting":        models.CategoryAnalysis,
			"options":               models.CategoryAnalysis,
			"pennystocks":           models.CategoryAnalysis,
			"daytrading":            models.CategoryPersonalTrading,
			"SwingTrading":          models.CategoryPersonalTrading,
			"forex":                 models.CategoryPersonalTrading,
			"cryptocurrency":        models.CategoryMarketNews,
			"Bitcoin":               models.CategoryPersonalTrading,
			"CryptoMarkets":         models.CategoryAnalysis,
			"thetagang":             models.CategoryAnalysis,
			"SPACs":                 models.CategoryAnalysis,
			"financialindependence": models.CategoryPersonalTrading,
			"personalfinance":       models.CategoryQuestions,
		},
		Context: []Stage{
			{
				Name: "long_analysis",
				Apply: func(t Text) (Result, bool) {
					if len(t.SelfText) > 500 && containsAny(t.Combined, "because", "analysis", "think", "believe") {
						return Result{Category: models.CategoryAnalysis, Confidence: models.ConfidenceLow}, true
					}
					return Result{}, false
				},
			},
			{
				Name: "emotional_language",
				Apply: func(t Text) (Result, bool) {
					if containsAny(t.Combined, "worst", "best", "amazing", "terrible", "finally", "omg") {
						return Result{Category: models.CategoryPersonalTrading, Confidence: models.ConfidenceLow}, true
					}
					return Result{}, false
				},
			},
		},
		Fallback: models.CategoryCommunity,
	}
}
