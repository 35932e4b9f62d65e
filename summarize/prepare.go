package summarize

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/brettboylen/reddit-digest/models"
	"github.com/brettboylen/reddit-digest/ranking"
)

// ErrNoPosts is returned when a category has nothing to summarize
var ErrNoPosts = errors.New("no posts in category")

const (
	MaxPosts          = 50
	ContentTokens     = 4500
	MaxContentChars   = 2000
	minContentChars   = 10
	postSeparator     = "\n\n---\n\n"
	truncationMarker  = "... [truncated]"
	charsPerTokenRate = 4
)

// Prepared is the post text handed to the model
type Prepared struct {
	Text     string
	Total    int // posts considered, at most MaxPosts
	Analyzed int // posts that fit the token budget
	Tokens   int
}

// EstimateTokens approximates the token count of s at four characters per token
func EstimateTokens(s string) int {
	return len(s) / charsPerTokenRate
}

// PreparePosts picks the most popular posts of category and renders them
// until the content budget is spent. The first post is always included.
func PreparePosts(posts []models.ClassifiedPost, category models.Category) (Prepared, error) {
	var matching []models.ClassifiedPost
	for _, p := range posts {
		if p.Category == category {
			matching = append(matching, p)
		}
	}
	if len(matching) == 0 {
		return Prepared{}, fmt.Errorf("%w: %s", ErrNoPosts, category)
	}

	top := ranking.Top(matching, MaxPosts)
	out := Prepared{Total: len(top)}

	parts := make([]string, 0, len(top))
	for _, p := range top {
		entry := renderPost(p)
		tokens := EstimateTokens(entry)
		if out.Tokens+tokens > ContentTokens && out.Analyzed > 0 {
			break
		}
		parts = append(parts, entry)
		out.Tokens += tokens
		out.Analyzed++
	}

	out.Text = strings.Join(parts, postSeparator)
	return out, nil
}

func renderPost(p models.ClassifiedPost) string {
	entry := "Title: " + p.Title
	content := strings.TrimSpace(p.SelfText)
	if len(content) > minContentChars {
		if len(content) > MaxContentChars {
			content = cut(content, MaxContentChars) + truncationMarker
		}
		entry += "\nContent: " + content
	}
	return entry
}

// TrimIncomplete drops trailing text after the last sentence terminator.
// Text without any terminator is returned trimmed but otherwise intact.
func TrimIncomplete(text string) string {
	text = strings.TrimSpace(text)
	i := strings.LastIndexAny(text, ".!?")
	if i < 0 {
		return text
	}
	return strings.TrimSpace(text[:i+1])
}

func cut(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
