// Package feed pulls configured news sources and normalizes their entries
// into Articles. One bad source never affects its siblings: a fetch or parse
// failure yields an empty batch for that source only.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"newsrelay/internal/dedupe"
	"newsrelay/internal/language"
	"newsrelay/internal/logger"
)

// Origin says which ingestion path produced an Article.
type Origin string

const (
	OriginFeed     Origin = "scheduled-feed"
	OriginRealtime Origin = "realtime-channel"
	OriginWebhook  Origin = "webhook"
)

// Article is the common shape every ingestion path funnels into. It is
// transient: created per event and discarded once processed.
type Article struct {
	Title      string
	Summary    string
	Link       string
	GUID       string
	SourceLang language.Code
	SourceName string
	Origin     Origin
}

// Identifier returns a stable fingerprint for deduplication. The permalink
// wins, then the feed-provided id, then a hash of title plus the first 200
// bytes of the summary. The result is always hashed so every window key has
// one uniform format. An article with no usable material returns "".
func (a Article) Identifier() string {
	id := a.Link
	if id == "" {
		id = a.GUID
	}
	if id == "" {
		summary := a.Summary
		if len(summary) > 200 {
			summary = summary[:200]
		}
		id = a.Title + "|" + summary
	}
	if strings.TrimSpace(id) == "" {
		logger.Warn("could not derive an identifier for article", "title", truncate(a.Title, 50))
		return ""
	}
	return dedupe.Fingerprint(id)
}

// Source is one configured feed.
type Source struct {
	URL  string        `yaml:"url"`
	Lang language.Code `yaml:"lang"`
}

type sourcesConfig struct {
	Feeds []Source `yaml:"feeds"`
}

// LoadSources reads the feed list from a YAML file.
func LoadSources(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg sourcesConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, s := range cfg.Feeds {
		if !language.Valid(s.Lang) {
			return nil, fmt.Errorf("feed %s has unsupported language %q", s.URL, s.Lang)
		}
	}
	return cfg.Feeds, nil
}

// Fetcher downloads and normalizes feeds.
type Fetcher struct {
	parser *gofeed.Parser
	limit  int
}

func NewFetcher(limit int) *Fetcher {
	return &Fetcher{
		parser: gofeed.NewParser(),
		limit:  limit,
	}
}

// Fetch returns up to the configured limit of articles from src, tagged with
// its language and host. Failures are logged and return an empty slice.
func (f *Fetcher) Fetch(ctx context.Context, src Source) []Article {
	parsed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		logger.Warn("feed fetch failed", "url", src.URL, "error", err)
		return nil
	}

	items := parsed.Items
	if f.limit > 0 && len(items) > f.limit {
		items = items[:f.limit]
	}

	articles := make([]Article, 0, len(items))
	for _, item := range items {
		articles = append(articles, Article{
			Title:      strings.TrimSpace(item.Title),
			Summary:    StripHTML(item.Description),
			Link:       item.Link,
			GUID:       item.GUID,
			SourceLang: src.Lang,
			SourceName: hostLabel(src.URL),
			Origin:     OriginFeed,
		})
	}

	logger.Info("feed fetched", "source", hostLabel(src.URL), "articles", len(articles))
	return articles
}

// StripHTML flattens an HTML fragment into plain text with collapsed
// whitespace. Feed summaries routinely arrive with markup embedded.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func hostLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
