package pipeline

import (
	"context"
	"testing"
	"time"

	"newsrelay/internal/dedupe"
	"newsrelay/internal/feed"
	"newsrelay/internal/language"
	"newsrelay/internal/rater"
)

type stubFetcher struct {
	articles map[string][]feed.Article
	calls    int
}

func (f *stubFetcher) Fetch(_ context.Context, src feed.Source) []feed.Article {
	f.calls++
	return f.articles[src.URL]
}

type stubRater struct {
	scores  map[string]int
	batches [][]feed.Article
}

func (r *stubRater) RateBatch(_ context.Context, articles []feed.Article, _ language.Code) []rater.Rated {
	r.batches = append(r.batches, articles)
	rated := make([]rater.Rated, 0, len(articles))
	for _, a := range articles {
		rated = append(rated, rater.Rated{Article: a, Score: r.scores[a.Title]})
	}
	return rated
}

type stubTranslator struct {
	calls int
}

func (t *stubTranslator) TranslateToAll(_ context.Context, text string, src language.Code) map[language.Code]string {
	t.calls++
	out := make(map[language.Code]string)
	for _, lang := range language.All() {
		out[lang] = text
	}
	return out
}

type stubDeliverer struct {
	delivered []string
}

func (d *stubDeliverer) Deliver(_ context.Context, lang language.Code, text, _ string) bool {
	d.delivered = append(d.delivered, string(lang)+": "+text)
	return true
}

func article(title string, lang language.Code) feed.Article {
	return feed.Article{
		Title:      title,
		Link:       "https://example.com/" + title,
		SourceLang: lang,
		Origin:     feed.OriginFeed,
	}
}

func newTestPipeline(f *stubFetcher, r *stubRater, tr *stubTranslator, d *stubDeliverer) *Pipeline {
	return New(Options{
		Fetcher:     f,
		Rater:       r,
		Translator:  tr,
		Fanout:      d,
		Window:      dedupe.NewWindow(3 * time.Hour),
		Sources:     []feed.Source{{URL: "a", Lang: language.Hebrew}, {URL: "b", Lang: language.English}},
		MinRating:   7,
		MaxArticles: 1,
		Pace:        time.Microsecond,
	})
}

func TestSelectTopThresholdCapAndOrder(t *testing.T) {
	p := &Pipeline{minRating: 7, maxArticles: 2}
	rated := []rater.Rated{
		{Article: article("low", language.Hebrew), Score: 6},
		{Article: article("first-eight", language.Hebrew), Score: 8},
		{Article: article("ten", language.Hebrew), Score: 10},
		{Article: article("second-eight", language.Hebrew), Score: 8},
	}

	got := p.selectTop(rated)
	if len(got) != 2 {
		t.Fatalf("cap not applied, got %d articles", len(got))
	}
	if got[0].Article.Title != "ten" {
		t.Fatalf("best article first, got %q", got[0].Article.Title)
	}
	// Stable sort: of the two eights, the earlier one wins the remaining slot.
	if got[1].Article.Title != "first-eight" {
		t.Fatalf("stable order violated, got %q", got[1].Article.Title)
	}
}

func TestRunDeliversTopArticleToAllLanguages(t *testing.T) {
	f := &stubFetcher{articles: map[string][]feed.Article{
		"a": {article("big", language.Hebrew)},
		"b": {article("small", language.English)},
	}}
	r := &stubRater{scores: map[string]int{"big": 9, "small": 3}}
	tr := &stubTranslator{}
	d := &stubDeliverer{}

	newTestPipeline(f, r, tr, d).Run(context.Background())

	if tr.calls != 1 {
		t.Fatalf("only the selected article should be translated, got %d calls", tr.calls)
	}
	if len(d.delivered) != len(language.All()) {
		t.Fatalf("expected one delivery per language, got %v", d.delivered)
	}
	if len(r.batches) != 2 {
		t.Fatalf("expected one rating batch per source language, got %d", len(r.batches))
	}
}

func TestRunSkipsArticlesSeenInPreviousCycle(t *testing.T) {
	f := &stubFetcher{articles: map[string][]feed.Article{
		"a": {article("repeat", language.Hebrew)},
	}}
	r := &stubRater{scores: map[string]int{"repeat": 9}}
	tr := &stubTranslator{}
	d := &stubDeliverer{}
	p := newTestPipeline(f, r, tr, d)

	p.Run(context.Background())
	p.Run(context.Background())

	if len(r.batches) != 1 {
		t.Fatalf("second cycle must not re-rate a seen article, got %d batches", len(r.batches))
	}
	if tr.calls != 1 {
		t.Fatalf("second cycle must not re-translate, got %d calls", tr.calls)
	}
}

func TestRunBelowThresholdDeliversNothing(t *testing.T) {
	// Fail-open rating assigns medium priority, which sits below the
	// default threshold: degraded rating quietly pauses the feed flow.
	f := &stubFetcher{articles: map[string][]feed.Article{
		"a": {article("one", language.Hebrew), article("two", language.Hebrew)},
	}}
	r := &stubRater{scores: map[string]int{"one": 5, "two": 5}}
	tr := &stubTranslator{}
	d := &stubDeliverer{}

	newTestPipeline(f, r, tr, d).Run(context.Background())

	if tr.calls != 0 {
		t.Fatal("nothing above threshold, translator must stay idle")
	}
	if len(d.delivered) != 0 {
		t.Fatalf("nothing should be delivered, got %v", d.delivered)
	}
}
