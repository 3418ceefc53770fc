// Package rater batch-scores articles for newsworthiness using structured
// model output. Rating is advisory: every failure mode fails open so a
// broken or unreachable model never stops article flow.
package rater

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"newsrelay/internal/feed"
	"newsrelay/internal/language"
	"newsrelay/internal/llm"
	"newsrelay/internal/logger"
)

// defaultScore is assigned whenever rating fails: articles pass through as
// medium priority rather than being dropped.
const defaultScore = 5

const previewLength = 80

// Gateway is the completion capability the rater needs.
type Gateway interface {
	Complete(ctx context.Context, prompt string, schema *llm.Schema) llm.Result
}

// Rated pairs an article with its newsworthiness score.
type Rated struct {
	Article feed.Article
	Score   int
}

type Rater struct {
	gw Gateway
}

func New(gw Gateway) *Rater {
	return &Rater{gw: gw}
}

// RateBatch rates all articles in one structured call. The returned slice
// keeps input order and contains only articles classified as news with a
// positive rating; ads and zero-rated entries are dropped.
func (r *Rater) RateBatch(ctx context.Context, articles []feed.Article, src language.Code) []Rated {
	if len(articles) == 0 {
		return nil
	}

	prompt := buildPrompt(articles, src)
	schema := batchSchema(len(articles))

	res := r.gw.Complete(ctx, prompt, schema)
	if !res.OK() {
		logger.Warn("batch rating unavailable, defaulting all articles to medium priority",
			"kind", res.Kind.String(), "articles", len(articles))
		return failOpen(articles)
	}

	var parsed map[string]struct {
		Type   string `json:"type"`
		Rating int    `json:"rating"`
	}
	if err := json.Unmarshal([]byte(res.Text), &parsed); err != nil {
		logger.Warn("could not parse rating response, defaulting entire batch",
			"error", err, "preview", truncateFlat(res.Text, 200))
		return failOpen(articles)
	}

	rated := make([]Rated, 0, len(articles))
	for i, article := range articles {
		key := fmt.Sprintf("article_%d", i+1)
		entry, ok := parsed[key]
		if !ok {
			// Missing from the response: default this one article.
			logger.Debug("article missing from rating response", "key", key)
			rated = append(rated, Rated{Article: article, Score: defaultScore})
			continue
		}
		if entry.Type == "NEWS" && entry.Rating > 0 {
			rated = append(rated, Rated{Article: article, Score: entry.Rating})
		} else {
			logger.Debug("article filtered out by rating",
				"type", entry.Type, "rating", entry.Rating, "title", article.Title)
		}
	}

	logger.Info("batch rating complete", "kept", len(rated), "total", len(articles))
	return rated
}

func failOpen(articles []feed.Article) []Rated {
	rated := make([]Rated, len(articles))
	for i, a := range articles {
		rated[i] = Rated{Article: a, Score: defaultScore}
	}
	return rated
}

func buildPrompt(articles []feed.Article, src language.Code) string {
	var preview strings.Builder
	for i, a := range articles {
		preview.WriteString(fmt.Sprintf("\nArticle %d: %s\n", i+1, articlePreview(a)))
	}

	return fmt.Sprintf(`You are a content filter and importance rater for a news service. Rate each article:

RATING SCALE:
- 10: Breaking/urgent news (wars, major political events)
- 8-9: Important news (elections, significant policies)
- 6-7: Regular news (standard political/global updates)
- 4-5: Minor news (small updates, local events)
- 1-3: Barely newsworthy
- 0: Advertisement/commercial content (set type to "AD")

ARTICLES TO RATE (%s):
%s
Rate each article and respond with the structured JSON format.
`, src.Name(), preview.String())
}

// articlePreview keeps the per-article prompt contribution short: the title
// plus a small summary excerpt.
func articlePreview(a feed.Article) string {
	summary := a.Summary
	if len(summary) > previewLength {
		summary = summary[:previewLength] + "..."
	}
	switch {
	case a.Title != "" && summary != "":
		return a.Title + "\n" + summary
	case a.Title != "":
		return a.Title
	case summary != "":
		return summary
	}
	return "No content"
}

// batchSchema builds the strict response schema sized to the batch: one
// required article_N object per input article.
func batchSchema(count int) *llm.Schema {
	properties := make(map[string]any, count)
	required := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		key := fmt.Sprintf("article_%d", i)
		properties[key] = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"type": map[string]any{
					"type":        "string",
					"enum":        []string{"NEWS", "AD"},
					"description": "Whether this is news content or advertisement",
				},
				"rating": map[string]any{
					"type":        "integer",
					"minimum":     0,
					"maximum":     10,
					"description": "Importance rating (0 for ads, 1-10 for news)",
				},
			},
			"required":             []string{"type", "rating"},
			"additionalProperties": false,
		}
		required = append(required, key)
	}
	return llm.ObjectSchema("article_ratings", properties, required)
}

func truncateFlat(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) <= max {
		return s
	}
	half := max / 2
	return s[:half] + "...[TRUNCATED]..." + s[len(s)-half:]
}
