package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettboylen/reddit-digest/models"
)

func catPost(id string, popularity float64, category models.Category, title, selftext string) models.ClassifiedPost {
	return models.ClassifiedPost{
		Post:            models.Post{ID: id, Title: title, SelfText: selftext},
		PopularityScore: popularity,
		Category:        category,
	}
}

func TestPreparePostsEmptyCategory(t *testing.T) {
	posts := []models.ClassifiedPost{catPost("a", 1, models.CategoryMemes, "lol", "")}

	_, err := PreparePosts(posts, models.CategoryAnalysis)
	assert.ErrorIs(t, err, ErrNoPosts)
}

func TestPreparePostsCapsAtFifty(t *testing.T) {
	var posts []models.ClassifiedPost
	for i := 0; i < 60; i++ {
		posts = append(posts, catPost(fmt.Sprint(i), float64(i), models.CategoryAnalysis, fmt.Sprintf("post %d", i), ""))
	}

	prepared, err := PreparePosts(posts, models.CategoryAnalysis)
	require.NoError(t, err)
	assert.Equal(t, 50, prepared.Total)
	assert.Equal(t, 50, prepared.Analyzed)
	assert.True(t, strings.HasPrefix(prepared.Text, "Title: post 59"), "most popular first")
	assert.NotContains(t, prepared.Text, "Title: post 9\n")
}

func TestPreparePostsStopsAtTokenBudget(t *testing.T) {
	long := strings.Repeat("a", 5000)
	var posts []models.ClassifiedPost
	for i := 0; i < 20; i++ {
		posts = append(posts, catPost(fmt.Sprint(i), float64(100-i), models.CategoryAnalysis, "big", long))
	}

	prepared, err := PreparePosts(posts, models.CategoryAnalysis)
	require.NoError(t, err)

	// each entry is 2035 characters, about 508 tokens
	assert.Equal(t, 8, prepared.Analyzed)
	assert.Equal(t, 20, prepared.Total)
	assert.LessOrEqual(t, prepared.Tokens, ContentTokens)
	assert.Equal(t, 8, strings.Count(prepared.Text, truncationMarker))
}

func TestPreparePostsAlwaysIncludesFirst(t *testing.T) {
	huge := strings.Repeat("t", 20000)
	prepared, err := PreparePosts([]models.ClassifiedPost{
		catPost("a", 2, models.CategoryAnalysis, huge, ""),
		catPost("b", 1, models.CategoryAnalysis, "small", ""),
	}, models.CategoryAnalysis)
	require.NoError(t, err)

	assert.Equal(t, 1, prepared.Analyzed)
	assert.Greater(t, prepared.Tokens, ContentTokens)
}

func TestRenderPostSkipsShortContent(t *testing.T) {
	assert.Equal(t, "Title: hi", renderPost(catPost("a", 1, "", "hi", "   too short ")))
	assert.Equal(t, "Title: hi\nContent: long enough body", renderPost(catPost("a", 1, "", "hi", "long enough body")))
}

func TestTrimIncomplete(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"complete", "One. Two!", "One. Two!"},
		{"trailing fragment", "One. Two? And then the", "One. Two?"},
		{"whitespace", "  One.  \n", "One."},
		{"no terminator", "just words", "just words"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TrimIncomplete(tc.input))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prepared := Prepared{Text: "Title: NVDA earnings", Total: 12, Analyzed: 9}

	prompt, err := BuildPrompt(models.DomainFinance, models.TimeFilterDay, models.CategoryAnalysis, prepared)
	require.NoError(t, err)
	assert.Contains(t, prompt, "senior financial analyst")
	assert.Contains(t, prompt, "Category: Analysis & Education")
	assert.Contains(t, prompt, "Daily data")
	assert.Contains(t, prompt, "top 9 of 12")
	assert.Contains(t, prompt, "Title: NVDA earnings")
	assert.Contains(t, prompt, "Investment Implications")

	for _, d := range models.AllDomains() {
		_, err := BuildPrompt(d, models.TimeFilterWeek, d.Categories()[0], prepared)
		assert.NoError(t, err, d)
	}

	_, err = BuildPrompt("sports", models.TimeFilterWeek, models.CategoryAnalysis, prepared)
	assert.ErrorIs(t, err, models.ErrUnknownDomain)
}

type fakeChat struct {
	requests []openai.ChatCompletionRequest
	reply    string
	err      error
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.reply}},
		},
	}, nil
}

func TestSummarize(t *testing.T) {
	log, _ := test.NewNullLogger()
	chat := &fakeChat{reply: "Overview: calm week. Key themes follow! Then an unfinished"}
	s := New(chat, "", 6000, log)

	posts := []models.ClassifiedPost{
		catPost("a", 10, models.CategoryMarketNews, "Fed holds rates", ""),
		catPost("b", 5, models.CategoryMemes, "meme", ""),
	}

	summary, err := s.Summarize(context.Background(), models.DomainFinance, models.TimeFilterWeek, models.CategoryMarketNews, posts)
	require.NoError(t, err)

	assert.Equal(t, "Overview: calm week. Key themes follow!", summary.Text)
	assert.Equal(t, 1, summary.TotalPosts)
	assert.Equal(t, 1, summary.Analyzed)
	assert.Equal(t, models.CategoryMarketNews, summary.Category)

	require.Len(t, chat.requests, 1)
	req := chat.requests[0]
	assert.Equal(t, DefaultModel, req.Model)
	assert.InDelta(t, 0.2, req.Temperature, 1e-6)
	assert.Equal(t, 450, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "Title: Fed holds rates")
	assert.NotContains(t, req.Messages[0].Content, "meme")
}

func TestSummarizeErrors(t *testing.T) {
	log, _ := test.NewNullLogger()

	chat := &fakeChat{err: errors.New("boom")}
	s := New(chat, "custom-model", 6000, log)
	posts := []models.ClassifiedPost{catPost("a", 10, models.CategorySoloTravel, "Alone in Lisbon", "")}

	_, err := s.Summarize(context.Background(), models.DomainTravel, models.TimeFilterWeek, models.CategorySoloTravel, posts)
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, "custom-model", chat.requests[0].Model)

	_, err = s.Summarize(context.Background(), models.DomainTravel, models.TimeFilterWeek, models.CategoryBudgetTravel, posts)
	assert.ErrorIs(t, err, ErrNoPosts)
	assert.Len(t, chat.requests, 1, "no request for an empty category")
}

func TestNewGroqRequiresKey(t *testing.T) {
	log, _ := test.NewNullLogger()

	_, err := NewGroq(Options{}, log)
	assert.ErrorIs(t, err, ErrNotConfigured)

	s, err := NewGroq(Options{APIKey: "key"}, log)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, s.Model())
}
